package usecase

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chunkStoreFake is an in-memory ChunkStore. Search ranks stored vectors by
// cosine similarity unless searchHits is set.
type chunkStoreFake struct {
	mu         sync.Mutex
	chunks     []domain.Chunk
	vectors    map[string][]float32
	listErr    error
	searchErr  error
	searchHits []domain.ScoredChunk
	listCalls  int
	searches   []int
	ensuredDim int
	upserted   []domain.Chunk
	listGate   chan struct{}
}

func (f *chunkStoreFake) ListAll(ctx context.Context, cursor string, limit int) ([]domain.Chunk, string, error) {
	if f.listGate != nil {
		select {
		case <-f.listGate:
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, "", f.listErr
	}

	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", err
		}
		offset = n
	}
	if offset >= len(f.chunks) {
		return nil, "", nil
	}
	end := min(offset+limit, len(f.chunks))
	page := append([]domain.Chunk(nil), f.chunks[offset:end]...)
	next := ""
	if end < len(f.chunks) {
		next = strconv.Itoa(end)
	}
	return page, next, nil
}

func (f *chunkStoreFake) Search(_ context.Context, vector []float32, limit int, threshold float64) ([]domain.ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, limit)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.searchHits != nil {
		return append([]domain.ScoredChunk(nil), f.searchHits...), nil
	}

	out := make([]domain.ScoredChunk, 0, len(f.chunks))
	for _, c := range f.chunks {
		score := cosine(vector, f.vectors[c.ID])
		if score <= 0 || score < threshold {
			continue
		}
		out = append(out, domain.ScoredChunk{Chunk: c, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *chunkStoreFake) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.vectors == nil {
		f.vectors = make(map[string][]float32)
	}
	for i, c := range chunks {
		f.upserted = append(f.upserted, c)
		f.chunks = append(f.chunks, c)
		f.vectors[c.ID] = vectors[i]
	}
	return nil
}

func (f *chunkStoreFake) EnsureCollection(_ context.Context, dim int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensuredDim = dim
	return nil
}

func (f *chunkStoreFake) Ping(context.Context) error { return nil }

func (f *chunkStoreFake) setChunks(chunks []domain.Chunk) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = chunks
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// vocabEmbedder maps text to term counts over a fixed vocabulary, so texts
// sharing no vocabulary word are orthogonal.
type vocabEmbedder struct {
	mu      sync.Mutex
	vocab   map[string]int
	queries []string
	err     error
}

func newVocabEmbedder(corpus ...string) *vocabEmbedder {
	e := &vocabEmbedder{vocab: make(map[string]int)}
	for _, text := range corpus {
		for _, tok := range analyze(text) {
			if _, ok := e.vocab[tok]; !ok {
				e.vocab[tok] = len(e.vocab)
			}
		}
	}
	return e
}

func (e *vocabEmbedder) vector(text string) []float32 {
	v := make([]float32, len(e.vocab))
	for _, tok := range analyze(text) {
		if i, ok := e.vocab[tok]; ok {
			v[i]++
		}
	}
	return v
}

func (e *vocabEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, e.vector(t))
	}
	return out, nil
}

func (e *vocabEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.queries = append(e.queries, text)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

// indexedStore builds a store holding chunks embedded by embedder.
func indexedStore(embedder *vocabEmbedder, chunks ...domain.Chunk) *chunkStoreFake {
	store := &chunkStoreFake{vectors: make(map[string][]float32)}
	for _, c := range chunks {
		store.chunks = append(store.chunks, c)
		store.vectors[c.ID] = embedder.vector(c.Text)
	}
	return store
}

type generatorCall struct {
	messages    []domain.ChatMessage
	temperature float64
}

// generatorFake replays scripted responses in order; the last one repeats.
type generatorFake struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     []generatorCall
	respond   func(messages []domain.ChatMessage) (string, error)
}

func (g *generatorFake) Complete(_ context.Context, messages []domain.ChatMessage, temperature float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := len(g.calls)
	g.calls = append(g.calls, generatorCall{messages: messages, temperature: temperature})

	if g.respond != nil {
		return g.respond(messages)
	}
	if idx < len(g.errs) && g.errs[idx] != nil {
		return "", g.errs[idx]
	}
	if len(g.responses) == 0 {
		return "", nil
	}
	if idx >= len(g.responses) {
		idx = len(g.responses) - 1
	}
	return g.responses[idx], nil
}

func (g *generatorFake) Ping(context.Context) error { return nil }

func (g *generatorFake) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func isDecomposePrompt(messages []domain.ChatMessage) bool {
	return len(messages) == 1 && strings.Contains(messages[0].Content, "sub-pertanyaan pencarian")
}
