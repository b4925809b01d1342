package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
)

const (
	defaultEmbedBatchSize = 16
	defaultEmbedWorkers   = 2
)

type ProcessOptions struct {
	EmbedBatchSize int
	EmbedWorkers   int
	Logger         *slog.Logger
}

type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	store     ports.ChunkStore
	queue     ports.MessageQueue
	pool      *ants.Pool
	batchSize int
	logger    *slog.Logger
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	store ports.ChunkStore,
	queue ports.MessageQueue,
	opts ProcessOptions,
) (*ProcessDocumentUseCase, error) {
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = defaultEmbedBatchSize
	}
	if opts.EmbedWorkers <= 0 {
		opts.EmbedWorkers = defaultEmbedWorkers
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	pool, err := ants.NewPool(opts.EmbedWorkers)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}

	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		queue:     queue,
		pool:      pool,
		batchSize: opts.EmbedBatchSize,
		logger:    opts.Logger,
	}, nil
}

// Release stops the embedding pool.
func (uc *ProcessDocumentUseCase) Release() {
	uc.pool.Release()
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	chunkCount, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.MarkReady(ctx, documentID, chunkCount); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	// The document is already searchable by vector; a lost event only delays
	// the lexical reload until the next ingestion or explicit reload.
	if err := uc.queue.PublishDocumentIndexed(ctx, documentID); err != nil {
		uc.logger.Warn("publish_indexed_failed", "document_id", documentID, "error", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (int, error) {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}

	text, err := uc.extractText(ctx, doc)
	if err != nil {
		return 0, err
	}

	chunks, err := uc.chunk(doc, text)
	if err != nil {
		return 0, err
	}

	vectors, err := uc.embed(ctx, chunks)
	if err != nil {
		return 0, err
	}

	if err := uc.index(ctx, chunks, vectors); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, doc *domain.Document) (string, error) {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *ProcessDocumentUseCase) chunk(doc *domain.Document, text string) ([]domain.Chunk, error) {
	parts := uc.chunker.Split(text)
	if len(parts) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}
	chunks := make([]domain.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, domain.Chunk{
			ID:         ChunkID(doc.ID, i),
			DocumentID: doc.ID,
			SourceFile: doc.Filename,
			ChunkIndex: i,
			Text:       part,
		})
	}
	return chunks, nil
}

// ChunkID is stable per (document, position) so reprocessing overwrites
// points instead of duplicating them.
func ChunkID(documentID string, chunkIndex int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(documentID+"#"+strconv.Itoa(chunkIndex))).String()
}

// embed splits chunks into batches and embeds them on the worker pool. Batch
// order is preserved in the result.
func (uc *ProcessDocumentUseCase) embed(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for start := 0; start < len(chunks); start += uc.batchSize {
		end := min(start+uc.batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		wg.Add(1)
		submitErr := uc.pool.Submit(func() {
			defer wg.Done()
			batch, err := uc.embedder.Embed(ctx, texts)
			if err != nil {
				setErr(fmt.Errorf("embed chunks [%d:%d]: %w", start, end, err))
				return
			}
			if len(batch) != len(texts) {
				setErr(domain.WrapError(
					domain.ErrInvalidInput,
					"embed chunks",
					fmt.Errorf("vectors/chunks mismatch: %d/%d", len(batch), len(texts)),
				))
				return
			}
			copy(vectors[start:end], batch)
		})
		if submitErr != nil {
			wg.Done()
			setErr(fmt.Errorf("submit embedding batch: %w", submitErr))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}

func (uc *ProcessDocumentUseCase) index(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "index chunks", errors.New("empty embedding vector"))
	}
	if err := uc.store.EnsureCollection(ctx, len(vectors[0])); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	if err := uc.store.Upsert(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
