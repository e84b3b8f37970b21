package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/mateeyas/calebmateo-filesync/internal/cloudflare"
	"github.com/mateeyas/calebmateo-filesync/internal/config"
	"github.com/mateeyas/calebmateo-filesync/internal/dblog"
	"github.com/mateeyas/calebmateo-filesync/internal/mailer"
	"github.com/mateeyas/calebmateo-filesync/internal/pipeline"
	"github.com/mateeyas/calebmateo-filesync/internal/retry"
	"github.com/mateeyas/calebmateo-filesync/internal/runlock"
	"github.com/mateeyas/calebmateo-filesync/internal/spaces"
	"github.com/mateeyas/calebmateo-filesync/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("filesync: %v", err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}
	cfg := config.Load()

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	fallback := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(dblog.New(st, fallback, cfg.LogLevel))
	slog.SetDefault(logger)

	objects, err := spaces.New(cfg.SpacesEndpoint, cfg.SpacesKey, cfg.SpacesSecret, cfg.SpacesBucket, cfg.SpacesUseSSL)
	if err != nil {
		return err
	}

	cf := cloudflare.New(cfg.CloudflareAccountID, cfg.CloudflareAPIToken,
		cfg.StatusTimeout, cfg.UploadTimeout, logger)
	ml := mailer.New(cfg.ResendAPIKey, logger)

	var lock *runlock.Lock
	if cfg.RedisAddr != "" {
		// The lock must outlive the longest possible cycle, which is
		// bounded by the polling ceiling plus upload time.
		lock, err = runlock.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			cfg.PollCeiling+2*cfg.UploadTimeout)
		if err != nil {
			return err
		}
		defer lock.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runCycle := func(ctx context.Context) error {
		cycleID := uuid.New().String()
		cycleLog := logger.With("cycle_id", cycleID)

		if lock != nil {
			if err := lock.Acquire(ctx, cycleID); err != nil {
				if errors.Is(err, runlock.ErrHeld) {
					cycleLog.Warn("previous cycle still running, skipping this one")
					return nil
				}
				return err
			}
			defer lock.Release(ctx)
		}

		dispatcher := pipeline.NewDispatcher(objects, cf, st, cycleLog, retry.Options{
			MaxAttempts: cfg.MaxAttempts,
			Delay:       cfg.RetryDelay,
			Logger:      cycleLog,
		})
		poller := pipeline.NewPoller(cf, st, cycleLog, cfg.PollInterval, cfg.PollCeiling)
		coordinator := pipeline.NewCoordinator(st, dispatcher, poller, ml, cycleLog)

		started := time.Now()
		if err := coordinator.RunCycle(ctx); err != nil {
			return err
		}
		cycleLog.Info("cycle finished", "duration", time.Since(started).String())
		return nil
	}

	logger.Info("file processing service started and running")

	if cfg.Schedule == "" {
		return runCycle(ctx)
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Schedule, func() {
		if err := runCycle(ctx); err != nil {
			logger.Error("scheduled cycle failed", "error", err.Error())
		}
	}); err != nil {
		return fmt.Errorf("invalid SYNC_SCHEDULE %q: %w", cfg.Schedule, err)
	}

	scheduler.Start()
	logger.Info("running on schedule", "schedule", cfg.Schedule)
	<-ctx.Done()
	<-scheduler.Stop().Done()
	return nil
}
