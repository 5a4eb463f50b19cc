package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file was not created: %v", err)
	}

	if cfg.Completion.Endpoint != "https://api.groq.com/openai" {
		t.Errorf("endpoint = %q", cfg.Completion.Endpoint)
	}
	if cfg.Completion.DefaultModel != "llama-3.1-8b-instant" {
		t.Errorf("default model = %q", cfg.Completion.DefaultModel)
	}
	if cfg.Session.Driver != "memory" {
		t.Errorf("session driver = %q", cfg.Session.Driver)
	}
	wantModels := []string{
		"llama-3.3-70b-versatile",
		"llama-3.1-8b-instant",
		"llama-3.1-70b-versatile",
		"gemma2-9b-it",
		"llama3-8b-8192",
		"llama3-70b-8192",
		"mixtral-8x7b-32768",
		"gemma-7b-it",
	}
	if got := cfg.Completion.Models; len(got) != len(wantModels) {
		t.Errorf("model catalog = %v, want %v", got, wantModels)
	} else {
		for i := range wantModels {
			if got[i] != wantModels[i] {
				t.Errorf("model[%d] = %q, want %q", i, got[i], wantModels[i])
			}
		}
	}
	if !cfg.Debug.ValidateRoles {
		t.Error("role validation should default on")
	}
}

func TestLoadOrCreateReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[telegram]
token = "tok"
allowed_user_ids = [1, 2]
poll_timeout_seconds = 10

[completion]
endpoint = "http://localhost:8080"
default_model = "test-model"
models = ["test-model"]

[session]
driver = "redis"
redis_url = "redis://localhost:6379/0"
ttl_hours = 2
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}

	if cfg.Telegram.Token != "tok" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if got := cfg.Telegram.AllowedUserIDs; len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("allowed users = %v", got)
	}
	if cfg.Completion.Endpoint != "http://localhost:8080" {
		t.Errorf("endpoint = %q", cfg.Completion.Endpoint)
	}
	if cfg.Session.Driver != "redis" {
		t.Errorf("driver = %q", cfg.Session.Driver)
	}
	if cfg.PollTimeout() != 10*time.Second {
		t.Errorf("poll timeout = %v", cfg.PollTimeout())
	}
	if cfg.SessionTTL() != 2*time.Hour {
		t.Errorf("session ttl = %v", cfg.SessionTTL())
	}
}

func TestLoadOrCreateRejectsMissingEndpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[completion]
endpoint = "   "
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadOrCreate(path); err == nil {
		t.Fatal("expected error for blank endpoint")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("MURMUR_BOT_TOKEN", "env-token")
	t.Setenv("MURMUR_API_KEY", "env-key")
	t.Setenv("MURMUR_REDIS_URL", "redis://env:6379")
	t.Setenv("MURMUR_DEBUG_LOG_REQUESTS", "1")

	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}

	if cfg.Telegram.Token != "env-token" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Completion.APIKey != "env-key" {
		t.Errorf("api key = %q", cfg.Completion.APIKey)
	}
	if cfg.Session.Driver != "redis" {
		t.Errorf("driver = %q, redis url should force the redis driver", cfg.Session.Driver)
	}
	if cfg.Session.RedisURL != "redis://env:6379" {
		t.Errorf("redis url = %q", cfg.Session.RedisURL)
	}
	if !cfg.Debug.LogRequests {
		t.Error("request logging should be forced on")
	}
}

func TestTimeoutFallbacks(t *testing.T) {
	var cfg Config

	if cfg.PollTimeout() != 30*time.Second {
		t.Errorf("poll timeout fallback = %v", cfg.PollTimeout())
	}
	if cfg.SessionTTL() != 24*time.Hour {
		t.Errorf("session ttl fallback = %v", cfg.SessionTTL())
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("no home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"/var/lib/murmur", "/var/lib/murmur"},
		{"~", home},
		{"~/murmur", filepath.Join(home, "murmur")},
	}

	for _, tt := range tests {
		if got := expandPath(tt.input); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
