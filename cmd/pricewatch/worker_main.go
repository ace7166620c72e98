package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	redisv8 "github.com/go-redis/redis/v8"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/pricewatch/internal/alerts"
	"github.com/sawpanic/pricewatch/internal/config"
	httpiface "github.com/sawpanic/pricewatch/internal/interfaces/http"
	"github.com/sawpanic/pricewatch/internal/lock"
	"github.com/sawpanic/pricewatch/internal/notify"
	"github.com/sawpanic/pricewatch/internal/persistence/postgres"
	"github.com/sawpanic/pricewatch/internal/quotes"
	"github.com/sawpanic/pricewatch/internal/state"
)

// deps is everything a cycle needs, assembled once per process.
type deps struct {
	engine *alerts.Engine
	stream *quotes.Stream
}

func buildDeps(cfg config.Config) (*deps, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("bad log level %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)

	db, err := postgres.Open(cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	store := postgres.NewAlertsRepo(db, cfg.Postgres.Timeout)

	lockClient := redisv8.NewClient(&redisv8.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	locker := lock.NewRedisLock(lockClient)

	var tracker alerts.Tracker
	switch cfg.Worker.Tracker {
	case "redis":
		trackerClient := redisv9.NewClient(&redisv9.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		tracker = state.NewRedisTracker(trackerClient, cfg.Worker.TrackerTTL)
	default:
		tracker = alerts.NewMemoryTracker()
	}

	rest := quotes.NewClient(quotes.ClientConfig{
		BaseURL:   cfg.Quotes.BaseURL,
		APIKey:    cfg.Quotes.APIKey,
		RateLimit: cfg.Quotes.RateLimit,
		Burst:     cfg.Quotes.Burst,
		Timeout:   cfg.Quotes.Timeout,
	})

	var source alerts.QuoteSource = rest
	var stream *quotes.Stream
	if cfg.Quotes.StreamURL != "" {
		stream = quotes.NewStream(cfg.Quotes.StreamURL, rest)
		source = stream
	}

	notifier := notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Timeout)

	engine := alerts.NewEngine(store, source, locker, notifier, tracker, alerts.Options{
		PollInterval:   cfg.Worker.PollInterval,
		LockTTL:        cfg.Worker.LockTTL,
		DebounceWindow: cfg.Worker.DebounceWindow,
	})

	return &deps{engine: engine, stream: stream}, nil
}

func loadConfigFromCmd(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromCmd(cmd)
	if err != nil {
		return err
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if d.stream != nil {
		go d.stream.Run(ctx)
	}

	srv := httpiface.NewServer(cfg.HTTP.ListenAddr)
	go func() {
		if err := srv.Start(ctx); err != nil {
			log.Error().Err(err).Msg("http server failed")
		}
	}()

	d.engine.Run(ctx)
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromCmd(cmd)
	if err != nil {
		return err
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}

	stats, err := d.engine.EvaluateOnce(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("evaluated=%d triggered=%d\n", stats.Evaluated, stats.Triggered)
	return nil
}
