package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
)

const (
	defaultLexicalPageSize = 256
	lexicalLoadTimeout     = 2 * time.Minute
)

type lexicalEntry struct {
	chunk    domain.Chunk
	tokens   []string
	termFreq map[string]int
}

// lexicalSnapshot is immutable once published.
type lexicalSnapshot struct {
	loadedAt time.Time
	entries  []lexicalEntry
	byID     map[string]int
}

func newLexicalSnapshot(loadedAt time.Time, chunks []domain.Chunk) *lexicalSnapshot {
	snap := &lexicalSnapshot{
		loadedAt: loadedAt,
		entries:  make([]lexicalEntry, 0, len(chunks)),
		byID:     make(map[string]int, len(chunks)),
	}
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		if _, dup := snap.byID[c.ID]; dup {
			continue
		}
		tokens := analyze(c.Text)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		snap.byID[c.ID] = len(snap.entries)
		snap.entries = append(snap.entries, lexicalEntry{chunk: c, tokens: tokens, termFreq: tf})
	}
	return snap
}

func (s *lexicalSnapshot) size() int {
	return len(s.entries)
}

// LexicalIndexObserver receives reload outcomes, typically for metrics.
type LexicalIndexObserver interface {
	ObserveLexicalReload(points int, duration time.Duration, err error)
}

// LexicalIndex keeps a tokenized snapshot of the whole chunk store. Readers
// score against whatever snapshot is current; Reload builds a replacement off
// to the side and publishes it with a single pointer swap.
type LexicalIndex struct {
	store    ports.ChunkStore
	pageSize int
	logger   *slog.Logger
	observer LexicalIndexObserver

	current  atomic.Pointer[lexicalSnapshot]
	reloadMu sync.Mutex
	group    singleflight.Group
	now      func() time.Time
}

type LexicalIndexOption func(*LexicalIndex)

func WithLexicalPageSize(n int) LexicalIndexOption {
	return func(ix *LexicalIndex) {
		if n > 0 {
			ix.pageSize = n
		}
	}
}

func WithLexicalLogger(logger *slog.Logger) LexicalIndexOption {
	return func(ix *LexicalIndex) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

func WithLexicalObserver(observer LexicalIndexObserver) LexicalIndexOption {
	return func(ix *LexicalIndex) {
		ix.observer = observer
	}
}

func NewLexicalIndex(store ports.ChunkStore, opts ...LexicalIndexOption) *LexicalIndex {
	ix := &LexicalIndex{
		store:    store,
		pageSize: defaultLexicalPageSize,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.current.Store(newLexicalSnapshot(time.Time{}, nil))
	return ix
}

func (ix *LexicalIndex) snapshot() *lexicalSnapshot {
	return ix.current.Load()
}

// Stats describes the currently published snapshot.
func (ix *LexicalIndex) Stats() domain.LexicalIndexStats {
	snap := ix.snapshot()
	return domain.LexicalIndexStats{Points: snap.size(), LoadedAt: snap.loadedAt}
}

// EnsureLoaded reloads synchronously when the published snapshot is empty.
// Concurrent callers share a single in-flight reload. The shared reload is
// detached from any one caller's cancellation; a caller whose ctx ends stops
// waiting without failing the others.
func (ix *LexicalIndex) EnsureLoaded(ctx context.Context) error {
	if ix.snapshot().size() > 0 {
		return nil
	}
	ch := ix.group.DoChan("reload", func() (any, error) {
		if ix.snapshot().size() > 0 {
			return nil, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lexicalLoadTimeout)
		defer cancel()
		return nil, ix.reload(loadCtx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload rebuilds the snapshot from the store. On failure the previous
// snapshot stays published.
func (ix *LexicalIndex) Reload(ctx context.Context) (domain.LexicalIndexStats, error) {
	if err := ix.reload(ctx); err != nil {
		return ix.Stats(), err
	}
	return ix.Stats(), nil
}

func (ix *LexicalIndex) reload(ctx context.Context) error {
	ix.reloadMu.Lock()
	defer ix.reloadMu.Unlock()

	start := time.Now()
	chunks, err := ix.fetchAll(ctx)
	if err != nil {
		ix.logger.Error("lexical_index_reload_failed",
			"error", err,
			"stale_points", ix.snapshot().size(),
		)
		ix.observe(ix.snapshot().size(), time.Since(start), err)
		return fmt.Errorf("reload lexical index: %w", err)
	}

	snap := newLexicalSnapshot(ix.now(), chunks)
	ix.current.Store(snap)

	ix.logger.Info("lexical_index_reloaded",
		"count", snap.size(),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	ix.observe(snap.size(), time.Since(start), nil)
	return nil
}

func (ix *LexicalIndex) fetchAll(ctx context.Context) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, 0, ix.pageSize)
	cursor := ""
	for {
		page, next, err := ix.store.ListAll(ctx, cursor, ix.pageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if next == "" || next == cursor {
			return out, nil
		}
		cursor = next
	}
}

func (ix *LexicalIndex) observe(points int, duration time.Duration, err error) {
	if ix.observer != nil {
		ix.observer.ObserveLexicalReload(points, duration, err)
	}
}
