package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/campus-rag-assistant/internal/config"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
	"github.com/kirillkom/campus-rag-assistant/internal/core/usecase"
	"github.com/kirillkom/campus-rag-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/campus-rag-assistant/internal/infrastructure/extractor"
	"github.com/kirillkom/campus-rag-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/campus-rag-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/campus-rag-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/campus-rag-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/campus-rag-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/campus-rag-assistant/internal/infrastructure/vector/qdrant"
)

// Observer receives query and lexical index outcomes; the api passes its
// prometheus metrics, other binaries pass nil.
type Observer interface {
	usecase.QueryObserver
	usecase.LexicalIndexObserver
}

// Query is the retrieval and answering core. It needs only Qdrant and Ollama,
// so the cli and the mcp server run it without Postgres or NATS.
type Query struct {
	QueryUC *usecase.QueryUseCase
	Health  ports.HealthChecker

	Store     ports.ChunkStore
	Embedder  ports.Embedder
	Generator ports.Generator
}

func NewQuery(cfg config.Config, logger *slog.Logger, observer Observer) *Query {
	if logger == nil {
		logger = slog.Default()
	}
	executor := resilience.NewExecutor(resilienceConfig(cfg), logger)

	store := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewCachedEmbedder(ollama.NewEmbedder(ollamaClient), cfg.EmbedCacheSize)
	generator := ollama.NewGenerator(ollamaClient)

	indexOpts := []usecase.LexicalIndexOption{
		usecase.WithLexicalPageSize(cfg.LexicalPageSize),
		usecase.WithLexicalLogger(logger),
	}
	queryOpts := usecase.QueryOptions{
		TopK:                 cfg.RAGTopK,
		HopTopK:              cfg.RAGHopTopK,
		RRFK:                 cfg.RAGFusionRRFK,
		HistoryTurns:         cfg.RAGHistoryTurns,
		MinAnswerChars:       cfg.RAGMinAnswerChars,
		VectorScoreThreshold: cfg.RAGVectorScoreThreshold,
		Logger:               logger,
	}
	if observer != nil {
		indexOpts = append(indexOpts, usecase.WithLexicalObserver(observer))
		queryOpts.Observer = observer
	}
	index := usecase.NewLexicalIndex(store, indexOpts...)

	return &Query{
		QueryUC:   usecase.NewQueryUseCase(index, embedder, store, generator, queryOpts),
		Health:    usecase.NewHealthUseCase(store, generator),
		Store:     store,
		Embedder:  embedder,
		Generator: generator,
	}
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Documents ports.DocumentReader
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	QueryUC   ports.DocumentQueryService
	Health    ports.HealthChecker

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, observer Observer) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	core := NewQuery(cfg, logger, observer)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		IndexedSubject:     cfg.NATSIndexedSubject,
		ResilienceExecutor: resilience.NewExecutor(resilienceConfig(cfg), logger),
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	processUC, err := usecase.NewProcessDocumentUseCase(
		repo,
		extractor.NewComposite(storage),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		core.Embedder,
		core.Store,
		queue,
		usecase.ProcessOptions{
			EmbedBatchSize: cfg.WorkerEmbedBatch,
			EmbedWorkers:   cfg.WorkerEmbedWorkers,
			Logger:         logger,
		},
	)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init document processor: %w", err)
	}

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Documents: usecase.NewDocumentCatalogUseCase(repo),
		IngestUC:  usecase.NewIngestDocumentUseCase(repo, storage, queue),
		ProcessUC: processUC,
		QueryUC:   core.QueryUC,
		Health:    core.Health,

		closeFn: func() {
			processUC.Release()
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	rc.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerMinRequests > 0 {
		rc.BreakerMinRequests = uint32(cfg.ResilienceBreakerMinRequests)
	}
	if cfg.ResilienceBreakerFailureRatio > 0 {
		rc.BreakerFailureRatio = cfg.ResilienceBreakerFailureRatio
	}
	if cfg.ResilienceBreakerOpenTimeoutSec > 0 {
		rc.BreakerOpenTimeout = time.Duration(cfg.ResilienceBreakerOpenTimeoutSec) * time.Second
	}
	return rc
}
