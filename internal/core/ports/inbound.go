package ports

import (
	"context"
	"io"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentQueryService is the inbound contract for hybrid retrieval and answering.
type DocumentQueryService interface {
	RetrieveHybrid(ctx context.Context, query string, topK int) ([]domain.EvidenceChunk, error)
	DecomposeQuery(ctx context.Context, question string) (domain.Decomposition, error)
	AnswerSingleHop(ctx context.Context, question string, history []domain.HistoryMessage) (*domain.Answer, error)
	AnswerMultiHop(ctx context.Context, question string, history []domain.HistoryMessage) (*domain.Answer, error)
	ReloadIndex(ctx context.Context) (domain.LexicalIndexStats, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, limit, offset int) ([]domain.Document, int, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// HealthChecker reports reachability of the external collaborators.
type HealthChecker interface {
	CheckStore(ctx context.Context) error
	CheckGenerator(ctx context.Context) error
}
