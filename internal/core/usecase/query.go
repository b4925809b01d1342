package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
)

const defaultSingleHopTopK = 8

// QueryObserver receives per-request outcomes, typically for metrics.
type QueryObserver interface {
	QualityGateObserver
	ObserveDecomposition(fallback bool)
	ObserveAnswer(mode domain.AnswerMode, sources int, noEvidence bool, duration time.Duration)
}

type QueryOptions struct {
	TopK                 int
	HopTopK              int
	RRFK                 int
	HistoryTurns         int
	MinAnswerChars       int
	VectorScoreThreshold float64
	Logger               *slog.Logger
	Observer             QueryObserver
}

// QueryUseCase exposes hybrid retrieval, decomposition and both answering
// modes over one shared lexical index.
type QueryUseCase struct {
	index       *LexicalIndex
	retriever   *HybridRetriever
	decomposer  *QueryDecomposer
	synthesizer *AnswerSynthesizer
	topK        int
	hopTopK     int
	logger      *slog.Logger
	observer    QueryObserver
}

func NewQueryUseCase(
	index *LexicalIndex,
	embedder ports.Embedder,
	store ports.ChunkStore,
	generator ports.Generator,
	opts QueryOptions,
) *QueryUseCase {
	if opts.TopK <= 0 {
		opts.TopK = defaultSingleHopTopK
	}
	if opts.HopTopK <= 0 {
		opts.HopTopK = defaultHopTopK
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &QueryUseCase{
		index: index,
		retriever: NewHybridRetriever(index, embedder, store, HybridOptions{
			RRFK:                 opts.RRFK,
			VectorScoreThreshold: opts.VectorScoreThreshold,
		}),
		decomposer: NewQueryDecomposer(generator, opts.Logger),
		synthesizer: NewAnswerSynthesizer(generator, SynthesizerOptions{
			HistoryTurns:   opts.HistoryTurns,
			MinAnswerChars: opts.MinAnswerChars,
			Logger:         opts.Logger,
			Observer:       opts.Observer,
		}),
		topK:     opts.TopK,
		hopTopK:  opts.HopTopK,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
}

func (uc *QueryUseCase) RetrieveHybrid(ctx context.Context, query string, topK int) ([]domain.EvidenceChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve hybrid", errors.New("query is required"))
	}
	if topK <= 0 {
		topK = uc.topK
	}
	evidence, err := uc.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, classifyUpstream("retrieve hybrid", err)
	}
	return evidence, nil
}

func (uc *QueryUseCase) DecomposeQuery(ctx context.Context, question string) (domain.Decomposition, error) {
	if strings.TrimSpace(question) == "" {
		return domain.Decomposition{}, domain.WrapError(domain.ErrInvalidInput, "decompose query", errors.New("question is required"))
	}
	d := uc.decomposer.Decompose(ctx, question)
	if uc.observer != nil {
		uc.observer.ObserveDecomposition(d.Fallback)
	}
	return d, nil
}

func (uc *QueryUseCase) AnswerSingleHop(ctx context.Context, question string, history []domain.HistoryMessage) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer single hop", errors.New("question is required"))
	}
	start := time.Now()

	evidence, err := uc.retriever.Retrieve(ctx, question, uc.topK)
	if err != nil {
		return nil, classifyUpstream("answer single hop", err)
	}

	answer, err := uc.synthesizer.Synthesize(ctx, domain.ModeSingleHop, question, history, evidence)
	if err != nil {
		return nil, classifyUpstream("answer single hop", err)
	}
	uc.observeAnswer(answer, start)
	return answer, nil
}

func (uc *QueryUseCase) AnswerMultiHop(ctx context.Context, question string, history []domain.HistoryMessage) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer multi hop", errors.New("question is required"))
	}
	start := time.Now()

	// Load once up front so the four hops do not race on the first reload.
	if err := uc.index.EnsureLoaded(ctx); err != nil {
		return nil, classifyUpstream("answer multi hop", err)
	}

	decomposition, err := uc.DecomposeQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	hops, err := retrieveHops(ctx, uc.retriever, decomposition.SubQuestions, uc.hopTopK)
	if err != nil {
		return nil, classifyUpstream("answer multi hop", err)
	}
	uc.logger.Debug("multi_hop_retrieved",
		"evidence", len(hops.evidence),
		"hops_found", hops.hopsFound,
		"decomposition_fallback", decomposition.Fallback,
	)

	answer, err := uc.synthesizer.Synthesize(ctx, domain.ModeMultiHop, question, history, hops.evidence)
	if err != nil {
		return nil, classifyUpstream("answer multi hop", err)
	}

	subQuestions := decomposition.SubQuestions
	answer.Diagnostics.SubQuestions = &subQuestions
	answer.Diagnostics.DecompositionFallback = decomposition.Fallback
	answer.Diagnostics.HopsFound = hops.hopsFound

	uc.observeAnswer(answer, start)
	return answer, nil
}

func (uc *QueryUseCase) ReloadIndex(ctx context.Context) (domain.LexicalIndexStats, error) {
	stats, err := uc.index.Reload(ctx)
	if err != nil {
		return stats, classifyUpstream("reload index", err)
	}
	return stats, nil
}

func (uc *QueryUseCase) observeAnswer(answer *domain.Answer, start time.Time) {
	if uc.observer == nil {
		return
	}
	uc.observer.ObserveAnswer(answer.Diagnostics.Mode, len(answer.Sources), answer.Diagnostics.NoEvidence, time.Since(start))
}

// classifyUpstream keeps kinds assigned by adapters and tags everything else
// as a transport failure. Cancellations pass through untouched.
func classifyUpstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	for _, kind := range []error{domain.ErrTransport, domain.ErrTemporary, domain.ErrInvalidInput, domain.ErrUnauthorized} {
		if domain.IsKind(err, kind) {
			return err
		}
	}
	return domain.WrapError(domain.ErrTransport, op, err)
}
