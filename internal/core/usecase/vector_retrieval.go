package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
)

type vectorRetriever struct {
	embedder       ports.Embedder
	store          ports.ChunkStore
	scoreThreshold float64
}

// search embeds queryText and returns up to limit nearest chunks, closest first.
func (v *vectorRetriever) search(ctx context.Context, queryText string, limit int) ([]domain.ScoredChunk, error) {
	queryVector, err := v.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := v.store.Search(ctx, queryVector, limit, v.scoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("search vector store: %w", err)
	}
	return hits, nil
}
