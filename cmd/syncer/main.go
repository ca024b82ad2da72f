package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rentbay/internal/adapters/baas"
	"rentbay/internal/adapters/observability"
	redisad "rentbay/internal/adapters/redis"
	"rentbay/internal/app"
	"rentbay/internal/shared"
	mysqlrepo "rentbay/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	observability.SetLevel(cfg.LogLevel)
	log.Logger = observability.NewLogger(cfg.AppEnv, "syncer")

	log.Info().
		Str("base", cfg.BaaSURL).
		Int("workers", cfg.SyncWorkers).
		Int("batch", cfg.SyncBatch).
		Str("schedule", cfg.SyncSchedule).
		Msg("syncer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := baas.New(cfg.BaaSURL, cfg.BaaSKey, cfg.BaaSRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize hosted platform client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	svc := app.NewSyncService(baas.NewListingSource(client), repo, cache, cfg.SyncWorkers, cfg.SyncBatch)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SyncSchedule == "" {
		if err := runOnce(ctx, svc); err != nil {
			log.Fatal().Err(err).Msg("sync failed")
		}
		return
	}

	observability.Serve(cfg.MetricsAddr)
	c := cron.New(cron.WithLogger(cronLogger{log.Logger}), cron.WithChain(cron.SkipIfStillRunning(cronLogger{log.Logger})))
	if _, err := c.AddFunc(cfg.SyncSchedule, func() {
		if err := runOnce(ctx, svc); err != nil {
			log.Error().Err(err).Msg("scheduled sync failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SyncSchedule).Msg("invalid SYNC_SCHEDULE")
	}
	c.Start()

	<-ctx.Done()
	log.Info().Msg("stopping scheduler")
	<-c.Stop().Done()
	_ = cache.Close()
	_ = db.Close()
}

func runOnce(ctx context.Context, s *app.SyncService) error {
	rep, err := s.Run(ctx)
	if err != nil {
		return err
	}
	log.Info().
		Int("changed", rep.Changed).
		Int("upserted", rep.Upserted).
		Int("missed", rep.Missed).
		Int("failed", rep.Failed).
		Time("watermark", rep.Watermark).
		Msg("sync completed")
	return nil
}

// cronLogger routes scheduler events through zerolog.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, kv ...any) {
	c.l.Debug().Str("kv", fmt.Sprint(kv...)).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error().Err(err).Str("kv", fmt.Sprint(kv...)).Msg("cron: " + msg)
}
