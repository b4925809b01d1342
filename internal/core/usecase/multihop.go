package usecase

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
)

const (
	defaultHopTopK  = 4
	multiHopWorkers = 4
)

type hopRetriever interface {
	Retrieve(ctx context.Context, queryText string, topK int) ([]domain.EvidenceChunk, error)
}

// multiHopRetrieval holds the merged evidence of one multi-hop fan-out.
type multiHopRetrieval struct {
	evidence  []domain.EvidenceChunk
	hopsFound map[domain.Hop]bool
}

// retrieveHops runs one hybrid retrieval per aspect concurrently and merges
// the results in the fixed hop order. Any retrieval error fails the whole
// fan-out.
func retrieveHops(ctx context.Context, retriever hopRetriever, set domain.SubQuestionSet, topK int) (multiHopRetrieval, error) {
	if topK <= 0 {
		topK = defaultHopTopK
	}

	results := make([][]domain.EvidenceChunk, len(domain.HopOrder))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(multiHopWorkers)
	for i, hop := range domain.HopOrder {
		g.Go(func() error {
			chunks, err := retriever.Retrieve(gctx, set.ForHop(hop), topK)
			if err != nil {
				return fmt.Errorf("retrieve hop %s: %w", hop, err)
			}
			results[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return multiHopRetrieval{}, err
	}

	return mergeHops(results), nil
}

// mergeHops dedups by chunk id keeping the first hop that surfaced a chunk.
// results is indexed like domain.HopOrder.
func mergeHops(results [][]domain.EvidenceChunk) multiHopRetrieval {
	out := multiHopRetrieval{hopsFound: make(map[domain.Hop]bool, len(domain.HopOrder))}
	seen := make(map[string]struct{})
	for i, hop := range domain.HopOrder {
		var chunks []domain.EvidenceChunk
		if i < len(results) {
			chunks = results[i]
		}
		out.hopsFound[hop] = len(chunks) > 0
		for _, c := range chunks {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			c.Hop = hop
			out.evidence = append(out.evidence, c)
		}
	}
	return out
}
