package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"partnershib-bot/internal/bot"
	"partnershib-bot/internal/config"
	"partnershib-bot/internal/coordinator"
	"partnershib-bot/internal/database"
	"partnershib-bot/internal/ledger"
	"partnershib-bot/internal/metrics"
	"partnershib-bot/internal/service"
	"partnershib-bot/internal/store"
	"partnershib-bot/internal/worker"
)

func main() {
	// Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Could not create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
	logger.Info("Service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	policy, err := cfg.Ledger.Policy()
	if err != nil {
		return err
	}

	// Connect to Database (migrates the schema)
	db, err := database.ConnectPostgres(cfg.Database, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	// Connect to Redis
	rdb, err := database.ConnectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer rdb.Close()

	st := store.NewStore(db)
	opts := service.DefaultOptions()
	opts.StoreTimeout = cfg.Database.Timeout
	opts.MaxRetries = cfg.Database.MaxRetries
	svc := service.NewLog(
		service.New(st, ledger.NewEngine(policy), coordinator.New(), logger, opts),
		logger,
	)

	tgBot, err := bot.NewBot(
		cfg.BotToken,
		svc,
		cfg.Links,
		database.NewDeduper(rdb, "callback:", cfg.Redis.DedupTTL),
		bot.NewLimiter(cfg.TapsPerSecond, 5),
		cfg.NotifyWorkers,
		logger,
	)
	if err != nil {
		return err
	}
	defer tgBot.Notifier.Stop()

	if cfg.Reminder.Enabled {
		checker := worker.NewChecker(
			st,
			database.NewDeduper(rdb, "reminder:", 2*cfg.Reminder.Lookback),
			tgBot.Notifier,
			policy,
			cfg.Reminder.Lookback,
			logger,
		)
		if err := checker.Start(ctx, cfg.Reminder.Schedule); err != nil {
			return err
		}
		defer checker.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		allowed, err := metrics.ParseCIDRs(cfg.Metrics.AllowedCIDRs)
		if err != nil {
			return err
		}
		health := func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := sqlDB.PingContext(ctx); err != nil {
				return err
			}
			return rdb.Ping(ctx).Err()
		}
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Addr, metrics.NewRouter(allowed, health), logger)
		})
	}

	g.Go(func() error {
		return tgBot.Start(gctx)
	})

	logger.Info("Service started successfully", zap.String("app", cfg.AppName))
	return g.Wait()
}
