package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"EvolutionProfiles/internal/config"
	"EvolutionProfiles/internal/github"
	"EvolutionProfiles/internal/metrics"
	"EvolutionProfiles/internal/profile"
	"EvolutionProfiles/internal/service"
	"EvolutionProfiles/internal/storage"
	"EvolutionProfiles/internal/storage/postgres"
	httptransport "EvolutionProfiles/internal/transport/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogger(cfg.Log)

	repo, cleanup, err := buildRepository(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init repository")
	}
	defer cleanup()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ghClient := github.NewClient(cfg.GitHub.URL, cfg.GitHub.Token, &http.Client{Timeout: cfg.GitHub.Timeout})
	lookup := github.NewCachingClient(ghClient, cfg.GitHub.CacheTTL, m)
	enricher := profile.NewEnricher(lookup, log.Logger, m)

	svc := service.New(repo, enricher, log.Logger)
	handler := httptransport.NewHandler(svc, cfg.Profile.EnrichWait, reg)

	server := &http.Server{
		Addr:    cfg.HTTP.Addr(),
		Handler: handler.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("storage", cfg.Storage.Type).
			Bool("github_token", cfg.GitHub.Token != "").
			Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown")
	}
}

func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Level).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func buildRepository(ctx context.Context, cfg config.Config) (storage.Repository, func(), error) {
	switch cfg.Storage.Type {
	case "postgres":
		store, err := postgres.New(ctx, cfg.Storage.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}
