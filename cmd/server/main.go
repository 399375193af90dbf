package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"retrieval-pipeline/internal/adapter/httpapi"
	"retrieval-pipeline/internal/adapter/provider"
	"retrieval-pipeline/internal/adapter/repository"
	"retrieval-pipeline/internal/cache"
	"retrieval-pipeline/internal/infra"
	"retrieval-pipeline/internal/infra/config"
	"retrieval-pipeline/internal/infra/httpclient"
	"retrieval-pipeline/internal/infra/logger"
	"retrieval-pipeline/internal/usecase"
	"retrieval-pipeline/internal/usecase/analytics"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	// 2. Initialize Logger
	log := logger.NewWithOTel(cfg.EnableOTelLogs)
	slog.SetDefault(log)

	// 3. Initialize DB
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	dbPool, err := infra.NewPostgresDB(context.Background(), dsn)
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 4. Initialize Adapters
	chunkRepo := repository.NewChunkRepository(dbPool)
	metadataRepo := repository.NewMetadataRepository(dbPool)

	embedder := provider.NewEmbedder(
		cfg.EmbedderURL, cfg.EmbeddingModel,
		time.Duration(cfg.EmbedTimeout)*time.Second, log,
		httpclient.NewPooledClient(time.Duration(cfg.EmbedTimeout)*time.Second))
	lexical := provider.NewLexicalClient(
		cfg.LexicalIndexURL,
		time.Duration(cfg.LexicalIndexTimeout)*time.Second,
		httpclient.NewPooledClient(time.Duration(cfg.LexicalIndexTimeout)*time.Second))
	reranker := provider.NewRerankerClient(
		cfg.RerankerURL, cfg.RerankModel,
		time.Duration(cfg.RerankTimeout)*time.Second,
		cfg.RerankRateLimit, log,
		httpclient.NewPooledClient(time.Duration(cfg.RerankTimeout)*time.Second))

	source := provider.NewHybridCandidateSource(embedder, chunkRepo, lexical, log)

	// 5. Initialize Analytics & Cache
	tracker := analytics.NewTracker(analytics.Config{
		SamplingRate:   cfg.SamplingRate,
		FlushInterval:  time.Duration(cfg.FlushInterval) * time.Second,
		FlushThreshold: cfg.FlushThreshold,
	}, metadataRepo, log)
	tracker.Start()
	defer tracker.Stop()

	results := cache.New[*usecase.SearchPipelineOutput](
		cfg.CacheSize, time.Duration(cfg.CacheTTLSecs)*time.Second)

	// 6. Initialize Usecase
	pipeline := usecase.NewSearchPipelineUsecase(source, reranker, tracker, results, log)

	// 7. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())

	handler := httpapi.NewHandler(pipeline)
	handler.Register(e)

	// 8. Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
