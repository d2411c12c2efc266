// Command nutriqa serves the question answering API over an already
// ingested corpus.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aliment-labs/nutriqa/internal/config"
	"github.com/aliment-labs/nutriqa/internal/db"
	redisdb "github.com/aliment-labs/nutriqa/internal/db/redis"
	"github.com/aliment-labs/nutriqa/internal/logger"
	"github.com/aliment-labs/nutriqa/internal/metrics"
	"github.com/aliment-labs/nutriqa/internal/repository/index"
	chiTransport "github.com/aliment-labs/nutriqa/internal/transport/chi"
	openaiTransport "github.com/aliment-labs/nutriqa/internal/transport/openai"
	queryuc "github.com/aliment-labs/nutriqa/internal/usecase/query"
	"github.com/aliment-labs/nutriqa/internal/version"
)

func main() {
	env := config.GetEnv()
	cfg := config.MustLoad(env)

	log, err := logger.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting nutriqa",
		zap.String("env", env),
		zap.String("version", version.Version),
		zap.String("commit", version.Commit))

	metrics.RegisterEmbeddingMetrics()

	store, err := redisdb.NewStore(redisdb.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		log.Fatal("failed to create redis store", zap.Error(err))
	}
	defer store.Close()

	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(context.Background(), readiness); err != nil {
		log.Fatal("redis not ready", zap.Error(err))
	}

	embedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     log,
	})

	genKey := cfg.Generation.APIKey
	if genKey == "" {
		genKey = cfg.Embedding.APIKey
	}
	generator := openaiTransport.NewGenerator(&openaiTransport.Config{
		APIKey:  genKey,
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
		Logger:  log,
	})

	indexRepo := index.New(store, index.Config{
		Name:         cfg.Index.Name,
		KeyPrefix:    cfg.Index.KeyPrefix,
		Dimension:    cfg.Embedding.Dimensions,
		Metric:       db.DistanceMetric(cfg.Index.Metric),
		ReadyTimeout: time.Duration(cfg.Index.ReadyTimeoutSec) * time.Second,
	})

	querySvc := queryuc.New(embedder, indexRepo, generator, queryuc.Options{
		TopK:        cfg.Retrieval.TopK,
		Temperature: *cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxOutputTokens,
	}, log)

	server := chiTransport.NewServer(querySvc, store, log)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	log.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}

	log.Info("server stopped gracefully")
}
