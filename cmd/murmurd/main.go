package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/volnat/murmur/internal/bot"
	"github.com/volnat/murmur/internal/config"
	"github.com/volnat/murmur/internal/dispatch"
	"github.com/volnat/murmur/internal/provider"
	"github.com/volnat/murmur/internal/session"
	"github.com/volnat/murmur/internal/transport"
	"github.com/volnat/murmur/internal/transport/telegram"
	"github.com/volnat/murmur/internal/voice"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:           "murmurd",
		Short:         "Telegram chat bot daemon backed by a streaming completion API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			token, _ := cmd.Flags().GetString("token")
			redisURL, _ := cmd.Flags().GetString("redis-url")
			return run(cmd.Context(), logger, configPath, token, redisURL)
		},
	}

	rootCmd.Flags().StringP("config", "c", "", "path to config file (default ~/.murmur/config.toml)")
	rootCmd.Flags().String("token", "", "Telegram bot token (overrides config)")
	rootCmd.Flags().String("redis-url", "", "Redis URL for session storage (overrides config)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, tokenOverride, redisOverride string) error {
	if configPath == "" {
		configPath = filepath.Join(config.Default().DataDir, "config.toml")
	}

	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if tokenOverride != "" {
		cfg.Telegram.Token = tokenOverride
	}
	if redisOverride != "" {
		cfg.Session.RedisURL = redisOverride
		cfg.Session.Driver = string(session.DriverRedis)
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required (config file or MURMUR_BOT_TOKEN)")
	}
	if cfg.Completion.APIKey == "" {
		return fmt.Errorf("completion api key is required (config file or MURMUR_API_KEY)")
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close session store", "error", err)
		}
	}()

	chat := provider.NewGroqProvider(provider.GroqConfig{
		Endpoint:    cfg.Completion.Endpoint,
		APIKey:      cfg.Completion.APIKey,
		HTTPTimeout: time.Duration(cfg.Completion.HTTPTimeout) * time.Second,
	}, cfg.Debug)

	var synth voice.Synthesizer
	if cfg.Voice.Endpoint != "" {
		synth = voice.NewHTTPSynthesizer(cfg.Voice.Endpoint, time.Duration(cfg.Voice.HTTPTimeout)*time.Second)
		logger.Info("voice synthesis enabled", "endpoint", cfg.Voice.Endpoint)
	}

	client := telegram.NewClient(cfg.Telegram.Token)

	dispatcher := dispatch.New(store, chat, client, synth, dispatch.Config{
		EditInterval: time.Second,
	}, logger)

	router := bot.NewRouter(
		store,
		dispatcher,
		dispatch.NewQueues(),
		client,
		bot.AllowList(cfg.Telegram.AllowedUserIDs),
		cfg.Completion.Models,
		logger,
	)

	logger.Info("murmurd started",
		"model", cfg.Completion.DefaultModel,
		"session_driver", cfg.Session.Driver,
		"allowed_users", len(cfg.Telegram.AllowedUserIDs),
	)

	if err := client.Poll(ctx, cfg.PollTimeout(), func(update transport.Update) {
		router.HandleUpdate(ctx, update)
	}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("update polling stopped: %w", err)
	}

	logger.Info("murmurd stopped")
	return nil
}

func buildStore(cfg config.Config, logger *slog.Logger) (session.Store, error) {
	opts := []session.StoreOption{
		session.WithDefaultModel(cfg.Completion.DefaultModel),
	}

	driver := session.Driver(cfg.Session.Driver)
	if driver == session.DriverRedis {
		redisOpts, err := redis.ParseURL(cfg.Session.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = append(opts,
			session.WithRedisClient(redis.NewClient(redisOpts)),
			session.WithRedisTTL(cfg.SessionTTL()),
		)
		logger.Info("using redis session store", "addr", redisOpts.Addr)
	}

	return session.NewStore(driver, opts...)
}
