package ports

import (
	"context"
	"io"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
)

// ChunkStore is the document/vector store holding embedded chunks.
type ChunkStore interface {
	// ListAll returns one page of stored chunks. An empty nextCursor marks the last page.
	ListAll(ctx context.Context, cursor string, limit int) (chunks []domain.Chunk, nextCursor string, err error)
	Search(ctx context.Context, queryVector []float32, limit int, scoreThreshold float64) ([]domain.ScoredChunk, error)
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	EnsureCollection(ctx context.Context, vectorSize int) error
	Ping(ctx context.Context) error
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator is the text-completion service used for decomposition and synthesis.
type Generator interface {
	Complete(ctx context.Context, messages []domain.ChatMessage, temperature float64) (string, error)
	Ping(ctx context.Context) error
}

// DocumentRepository persists and reads ingestion bookkeeping.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, limit, offset int) ([]domain.Document, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	MarkReady(ctx context.Context, id string, chunkCount int) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue carries ingestion events between api and worker.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
	PublishDocumentIndexed(ctx context.Context, documentID string) error
	SubscribeDocumentIndexed(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits text into retrievable chunks.
type Chunker interface {
	Split(text string) []string
}
