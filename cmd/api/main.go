package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"rentbay/internal/adapters/baas"
	server "rentbay/internal/adapters/http_server"
	"rentbay/internal/adapters/observability"
	redisad "rentbay/internal/adapters/redis"
	"rentbay/internal/app"
	"rentbay/internal/domain"
	"rentbay/internal/shared"
	mysqlrepo "rentbay/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	observability.SetLevel(cfg.LogLevel)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api")

	observability.Serve(cfg.MetricsAddr)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	db.SetMaxOpenConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cache.Ping(context.Background()); err != nil {
		log.Warn().Err(err).Msg("redis unreachable; serving uncached")
	}

	var mirror domain.StatusMirror
	if cfg.BaaSURL != "" {
		client, err := baas.New(cfg.BaaSURL, cfg.BaaSKey, cfg.BaaSRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize hosted platform client")
		}
		mirror = baas.NewListingSource(client)
	}

	adminLoc, err := time.LoadLocation(cfg.AdminTimezone)
	if err != nil {
		log.Warn().Err(err).Str("tz", cfg.AdminTimezone).Msg("unknown ADMIN_TZ; using UTC")
		adminLoc = time.UTC
	}

	listings := app.NewListingService(repo, repo, cache, cfg.CacheTTL).
		WithDefaults(cfg.DefaultCurrency, cfg.FeatureDuration)
	handlers := &server.Handlers{
		Auth:      server.NewAuthenticator(cfg.BaaSJWTSecret),
		Listings:  listings,
		Stays:     app.NewStayService(repo, repo, cfg.ServiceFeeBps),
		Admin:     app.NewAdminService(repo, mirror, cache, cfg.ReviewQueueLimit).WithClock(time.Now, adminLoc),
		Referrals: app.NewReferralService(repo, cfg.CashoutMinMinor, cfg.DefaultCurrency).WithQueueLimit(cfg.CashoutQueueLimit),
		Billing:   app.NewBillingService(repo, repo),
		Legal:     app.NewLegalService(repo),
	}

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountAPI(handlers)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	_ = cache.Close()
	_ = db.Close()
}
