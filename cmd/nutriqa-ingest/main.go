// Command nutriqa-ingest runs the offline pipeline once: extract, chunk,
// embed, and index every document in the corpus directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aliment-labs/nutriqa/internal/chunker"
	"github.com/aliment-labs/nutriqa/internal/config"
	"github.com/aliment-labs/nutriqa/internal/db"
	redisdb "github.com/aliment-labs/nutriqa/internal/db/redis"
	"github.com/aliment-labs/nutriqa/internal/extract"
	"github.com/aliment-labs/nutriqa/internal/logger"
	"github.com/aliment-labs/nutriqa/internal/metrics"
	"github.com/aliment-labs/nutriqa/internal/repository/index"
	openaiTransport "github.com/aliment-labs/nutriqa/internal/transport/openai"
	embeddinguc "github.com/aliment-labs/nutriqa/internal/usecase/embedding"
	ingestuc "github.com/aliment-labs/nutriqa/internal/usecase/ingest"
	"github.com/aliment-labs/nutriqa/internal/version"
)

func main() {
	corpusFlag := flag.String("corpus", "", "corpus directory (overrides config)")
	flag.Parse()

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	log, err := logger.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting ingestion",
		zap.String("env", env),
		zap.String("version", version.Version))

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIngestMetrics()

	corpusDir := cfg.Ingest.CorpusDir
	if *corpusFlag != "" {
		corpusDir = *corpusFlag
	}

	store, err := redisdb.NewStore(redisdb.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		log.Fatal("failed to create redis store", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
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

	batcher := embeddinguc.NewBatcher(
		embedder,
		cfg.Embedding.BatchSize,
		time.Duration(cfg.Embedding.GroupPauseMs)*time.Millisecond,
		log,
	)

	indexRepo := index.New(store, index.Config{
		Name:            cfg.Index.Name,
		KeyPrefix:       cfg.Index.KeyPrefix,
		Dimension:       cfg.Embedding.Dimensions,
		Metric:          db.DistanceMetric(cfg.Index.Metric),
		HNSWM:           cfg.Index.HNSWM,
		HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
		UpsertBatchSize: cfg.Ingest.UpsertBatchSize,
		ReadyTimeout:    time.Duration(cfg.Index.ReadyTimeoutSec) * time.Second,
	})

	extractor := extract.New(log,
		extract.NewTextLayer(),
		extract.NewPaged(log),
		extract.NewOCR(""),
	)

	svc := ingestuc.New(ingestuc.Config{
		Extractor:      extractor,
		Embedder:       batcher,
		Index:          indexRepo,
		Chunker:        chunker.New(cfg.Ingest.ChunkSize, *cfg.Ingest.ChunkOverlap),
		Progress:       ingestuc.LogProgress{Logger: log},
		CheckpointPath: cfg.Ingest.CheckpointPath,
		Logger:         log,
	})

	sum, err := svc.Run(ctx, corpusDir)
	if err != nil {
		log.Error("ingestion failed", zap.Error(err))
		os.Exit(1)
	}

	log.Info("ingestion complete",
		zap.Int("documents", sum.Documents),
		zap.Int("skipped", sum.Skipped),
		zap.Int("chunks", sum.Chunks))
}
