package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/candidstudio/moodgrab/internal/api"
	"github.com/candidstudio/moodgrab/internal/api/handler"
	"github.com/candidstudio/moodgrab/internal/config"
	"github.com/candidstudio/moodgrab/internal/downloader"
	"github.com/candidstudio/moodgrab/internal/enrich"
	"github.com/candidstudio/moodgrab/internal/extract"
	"github.com/candidstudio/moodgrab/internal/ingest"
	"github.com/candidstudio/moodgrab/internal/repository"
	"github.com/candidstudio/moodgrab/internal/transcript"
	"github.com/candidstudio/moodgrab/internal/worker"
	"github.com/candidstudio/moodgrab/pkg/llm"
	"github.com/candidstudio/moodgrab/pkg/whisper"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("moodgrab %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting moodgrab",
		"version", Version,
		"build_time", BuildTime,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		logger.Error("failed to create database directory", "error", err)
		os.Exit(1)
	}

	itemRepo, err := repository.NewSQLiteItemRepository(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to open item store", "error", err)
		os.Exit(1)
	}
	defer itemRepo.Close()

	jobRepo := repository.NewInMemoryJobRepository()

	aggregator := extract.NewAggregatorClient(cfg.Extract, nil, time.Now)
	registry := extract.NewRegistry(extract.RegistryConfig{
		UserAgent:         cfg.Extract.UserAgent,
		OEmbedTimeout:     cfg.Extract.OEmbedTimeout,
		AggregatorTimeout: cfg.Extract.AggregatorTimeout,
		ScrapeTimeout:     cfg.Extract.ScrapeTimeout,
	}, aggregator, nil, logger)

	dl := downloader.NewHTTPDownloader(cfg.Download)

	// Speech-to-text stays off unless an API key is configured; caption
	// extraction works either way.
	var stt whisper.Client
	if cfg.Transcript.APIKey != "" {
		stt = whisper.NewClient(whisper.Config{
			APIKey:  cfg.Transcript.APIKey,
			BaseURL: cfg.Transcript.BaseURL,
			Model:   cfg.Transcript.Model,
			Timeout: cfg.Transcript.Timeout,
		})
	}
	captions := transcript.NewCaptionFetcher(cfg.Extract.UserAgent, cfg.Extract.ScrapeTimeout, nil)
	transcripts := transcript.NewExtractor(captions, stt, dl, cfg.Transcript, logger)

	var model llm.Client
	if cfg.LLM.APIKey != "" {
		model = llm.NewClient(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		})
	}
	enricher := enrich.New(model, logger)

	svc := ingest.NewService(itemRepo, jobRepo, registry, transcripts, enricher, cfg.Worker, logger)
	profiles := extract.NewProfileExtractor(aggregator, 30, logger)

	itemHandler := handler.NewItemHandler(svc, logger)
	profileHandler := handler.NewProfileHandler(profiles, logger)
	healthHandler := handler.NewHealthHandler(jobRepo)

	router := api.NewRouter(itemHandler, profileHandler, healthHandler, cfg.Server.APIKey, logger)

	// Items left pending or processing by a previous run go back on the
	// queue before workers start polling.
	if _, err := svc.RecoverUnfinished(context.Background()); err != nil {
		logger.Error("failed to recover unfinished items", "error", err)
		os.Exit(1)
	}

	pool := worker.NewPool(
		worker.Config{
			Workers:      cfg.Worker.Count,
			PollInterval: cfg.Worker.PollInterval,
		},
		jobRepo,
		svc,
		logger,
	)
	pool.Start()

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Allow in-flight extraction jobs to finish
	if err := pool.Stop(25 * time.Second); err != nil {
		logger.Error("worker pool shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
