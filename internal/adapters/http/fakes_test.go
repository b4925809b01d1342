package httpadapter

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/kirillkom/campus-rag-assistant/internal/config"
	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
)

type ingestFake struct {
	err error
}

func (f ingestFake) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}

	now := time.Now().UTC()
	return &domain.Document{
		ID:          "doc-1",
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: "doc-1_" + filename,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type queryFake struct {
	err        error
	lastTopK   int
	lastQuery  string
	history    []domain.HistoryMessage
	evidence   []domain.EvidenceChunk
	stats      domain.LexicalIndexStats
	decomposed domain.Decomposition
}

func (f *queryFake) RetrieveHybrid(_ context.Context, query string, topK int) ([]domain.EvidenceChunk, error) {
	f.lastQuery, f.lastTopK = query, topK
	return f.evidence, f.err
}

func (f *queryFake) DecomposeQuery(_ context.Context, question string) (domain.Decomposition, error) {
	f.lastQuery = question
	return f.decomposed, f.err
}

func (f *queryFake) AnswerSingleHop(_ context.Context, question string, history []domain.HistoryMessage) (*domain.Answer, error) {
	return f.answer(domain.ModeSingleHop, question, history)
}

func (f *queryFake) AnswerMultiHop(_ context.Context, question string, history []domain.HistoryMessage) (*domain.Answer, error) {
	return f.answer(domain.ModeMultiHop, question, history)
}

func (f *queryFake) answer(mode domain.AnswerMode, question string, history []domain.HistoryMessage) (*domain.Answer, error) {
	f.lastQuery, f.history = question, history
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Answer{
		Text: "Syarat yudisium adalah lulus semua mata kuliah [#1].",
		Sources: []domain.CitedSource{{
			Ref:        "[#1]",
			RefID:      1,
			ChunkID:    "c-1",
			SourceFile: "panduan.pdf",
			Text:       "Syarat yudisium",
			FusedScore: 0.03,
		}},
		Diagnostics: domain.AnswerDiagnostics{Mode: mode, Attempts: 1},
	}, nil
}

func (f *queryFake) ReloadIndex(context.Context) (domain.LexicalIndexStats, error) {
	return f.stats, f.err
}

type docsFake struct {
	err         error
	docs        []domain.Document
	limit, offs int
}

func (f *docsFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: id, Filename: "a.txt", MimeType: "text/plain", StoragePath: "a", Status: domain.StatusReady}, nil
}

func (f *docsFake) List(_ context.Context, limit, offset int) ([]domain.Document, int, error) {
	f.limit, f.offs = limit, offset
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.docs, len(f.docs), nil
}

type healthFake struct {
	storeErr, generatorErr error
}

func (f healthFake) CheckStore(context.Context) error     { return f.storeErr }
func (f healthFake) CheckGenerator(context.Context) error { return f.generatorErr }

func newTestHandler(t *testing.T, cfg config.Config, deps Dependencies) http.Handler {
	t.Helper()
	if deps.Ingestor == nil {
		deps.Ingestor = ingestFake{}
	}
	if deps.Query == nil {
		deps.Query = &queryFake{}
	}
	if deps.Documents == nil {
		deps.Documents = &docsFake{}
	}
	handler, err := NewRouter(cfg, deps).Handler()
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	return handler
}

func testConfig() config.Config {
	return config.Config{RAGTopK: 8, APIValidateRequests: true}
}
