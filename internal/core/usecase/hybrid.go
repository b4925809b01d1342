package usecase

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
)

const defaultHybridTopK = 6

type HybridOptions struct {
	RRFK                 int
	VectorScoreThreshold float64
}

// HybridRetriever fuses vector and BM25 rankings for one query string.
type HybridRetriever struct {
	index  *LexicalIndex
	vector *vectorRetriever
	rrfK   int
}

func NewHybridRetriever(
	index *LexicalIndex,
	embedder ports.Embedder,
	store ports.ChunkStore,
	opts HybridOptions,
) *HybridRetriever {
	if opts.RRFK <= 0 {
		opts.RRFK = defaultRRFK
	}
	return &HybridRetriever{
		index: index,
		vector: &vectorRetriever{
			embedder:       embedder,
			store:          store,
			scoreThreshold: opts.VectorScoreThreshold,
		},
		rrfK: opts.RRFK,
	}
}

// Retrieve returns at most topK evidence chunks ordered by fused score. An
// empty result is a valid outcome; only transport failures are errors.
func (r *HybridRetriever) Retrieve(ctx context.Context, queryText string, topK int) ([]domain.EvidenceChunk, error) {
	if topK <= 0 {
		topK = defaultHybridTopK
	}
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return []domain.EvidenceChunk{}, nil
	}

	if err := r.index.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	candidates := topK * 2

	var (
		vectorHits []domain.ScoredChunk
		lexical    []lexicalCandidate
		snap       = r.index.snapshot()
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := r.vector.search(gctx, queryText, candidates)
		if err != nil {
			return err
		}
		vectorHits = hits
		return nil
	})
	g.Go(func() error {
		lexical = scoreLexical(snap, queryText, candidates)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	payloads := make(map[string]domain.Chunk, len(vectorHits)+len(lexical))
	vectorIDs := make([]string, 0, len(vectorHits))
	for _, hit := range vectorHits {
		vectorIDs = append(vectorIDs, hit.ID)
		if _, ok := payloads[hit.ID]; !ok {
			payloads[hit.ID] = hit.Chunk
		}
	}
	lexicalIDs := make([]string, 0, len(lexical))
	for _, c := range lexical {
		chunk := snap.entries[c.chunkIndex].chunk
		lexicalIDs = append(lexicalIDs, chunk.ID)
		if _, ok := payloads[chunk.ID]; !ok {
			payloads[chunk.ID] = chunk
		}
	}

	fused := trimFused(fuseRRF(r.rrfK, rankChunkIDs(vectorIDs), rankChunkIDs(lexicalIDs)), topK)

	out := make([]domain.EvidenceChunk, 0, len(fused))
	for _, f := range fused {
		chunk, ok := payloads[f.chunkID]
		if !ok || strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		out = append(out, domain.EvidenceChunk{Chunk: chunk, Score: f.score})
	}
	return out, nil
}
