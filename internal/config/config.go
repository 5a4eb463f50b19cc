package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type TelegramConfig struct {
	Token          string  `toml:"token"`
	AllowedUserIDs []int64 `toml:"allowed_user_ids"`
	PollTimeout    int     `toml:"poll_timeout_seconds"`
}

type CompletionConfig struct {
	Endpoint     string   `toml:"endpoint"`
	APIKey       string   `toml:"api_key"`
	DefaultModel string   `toml:"default_model"`
	Models       []string `toml:"models"`
	HTTPTimeout  int      `toml:"http_timeout_seconds"`
}

type SessionConfig struct {
	Driver   string `toml:"driver"` // "memory" or "redis"
	RedisURL string `toml:"redis_url"`
	TTLHours int    `toml:"ttl_hours"`
}

type VoiceConfig struct {
	Endpoint    string `toml:"endpoint"`
	HTTPTimeout int    `toml:"http_timeout_seconds"`
}

type DebugConfig struct {
	LogRequests   bool   `toml:"log_requests"`
	LogResponses  bool   `toml:"log_responses"`
	LogDirectory  string `toml:"log_directory"`
	ValidateRoles bool   `toml:"validate_roles"`
}

type Config struct {
	DataDir    string           `toml:"data_dir"`
	Telegram   TelegramConfig   `toml:"telegram"`
	Completion CompletionConfig `toml:"completion"`
	Session    SessionConfig    `toml:"session"`
	Voice      VoiceConfig      `toml:"voice"`
	Debug      DebugConfig      `toml:"debug"`
}

func Default() Config {
	defaultDataDir := defaultDataDir()
	return Config{
		DataDir: defaultDataDir,
		Telegram: TelegramConfig{
			PollTimeout: 30,
		},
		Completion: CompletionConfig{
			Endpoint:     "https://api.groq.com/openai",
			DefaultModel: "llama-3.1-8b-instant",
			Models: []string{
				"llama-3.3-70b-versatile",
				"llama-3.1-8b-instant",
				"llama-3.1-70b-versatile",
				"gemma2-9b-it",
				"llama3-8b-8192",
				"llama3-70b-8192",
				"mixtral-8x7b-32768",
				"gemma-7b-it",
			},
			HTTPTimeout: 300,
		},
		Session: SessionConfig{
			Driver:   "memory",
			TTLHours: 24,
		},
		Voice: VoiceConfig{
			HTTPTimeout: 60,
		},
		Debug: DebugConfig{
			LogRequests:   false,
			LogResponses:  false,
			LogDirectory:  filepath.Join(defaultDataDir, "debug"),
			ValidateRoles: true,
		},
	}
}

func LoadOrCreate(path string) (Config, error) {
	config := Default()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return config, err
			}

			configData, err := toml.Marshal(config)
			if err != nil {
				return config, err
			}

			if err := os.WriteFile(path, configData, 0o644); err != nil {
				return config, err
			}

			return loadFromEnv(config), nil
		}

		return config, err
	}

	configData, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := toml.Unmarshal(configData, &config); err != nil {
		return config, err
	}

	config.DataDir = expandPath(config.DataDir)
	config.Completion.Endpoint = strings.TrimSpace(config.Completion.Endpoint)
	config = loadFromEnv(config)

	if config.Completion.Endpoint == "" {
		return config, errors.New("completion endpoint is required")
	}

	if config.Completion.DefaultModel == "" {
		return config, errors.New("completion default_model is required")
	}

	return config, nil
}

// loadFromEnv lets secrets and deployment-specific values override the file
// so tokens never need to be written to disk.
func loadFromEnv(config Config) Config {
	if token := os.Getenv("MURMUR_BOT_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if key := os.Getenv("MURMUR_API_KEY"); key != "" {
		config.Completion.APIKey = key
	}
	if url := os.Getenv("MURMUR_REDIS_URL"); url != "" {
		config.Session.RedisURL = url
		config.Session.Driver = "redis"
	}
	if os.Getenv("MURMUR_DEBUG_LOG_REQUESTS") == "1" {
		config.Debug.LogRequests = true
	}
	if os.Getenv("MURMUR_DEBUG_LOG_RESPONSES") == "1" {
		config.Debug.LogResponses = true
	}
	return config
}

func (c Config) PollTimeout() time.Duration {
	if c.Telegram.PollTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Telegram.PollTimeout) * time.Second
}

func (c Config) SessionTTL() time.Duration {
	if c.Session.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Session.TTLHours) * time.Hour
}

func defaultDataDir() string {
	homeDir, _ := os.UserHomeDir()

	if homeDir == "" {
		return ".murmur"
	}

	return filepath.Join(homeDir, ".murmur")
}

func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		homeDir, _ := os.UserHomeDir()

		if homeDir != "" {
			trimmed := strings.TrimPrefix(path, "~")
			trimmed = strings.TrimPrefix(trimmed, string(os.PathSeparator))

			return filepath.Join(homeDir, trimmed)
		}
	}

	return path
}
