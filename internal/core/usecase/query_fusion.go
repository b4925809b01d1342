package usecase

import (
	"sort"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
)

const defaultRRFK = 60

type fusedID struct {
	chunkID string
	score   float64
}

// fuseRRF merges rank-only lists with reciprocal rank fusion. Raw scores are
// never consulted, so methods with incomparable scales can be combined. Ties
// keep first-seen order across the lists in argument order.
func fuseRRF(rrfK int, rankings ...[]domain.RankedHit) []fusedID {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	capacity := 0
	for _, r := range rankings {
		capacity += len(r)
	}
	position := make(map[string]int, capacity)
	out := make([]fusedID, 0, capacity)

	for _, ranking := range rankings {
		for _, hit := range ranking {
			if hit.Rank <= 0 {
				continue
			}
			idx, ok := position[hit.ChunkID]
			if !ok {
				idx = len(out)
				position[hit.ChunkID] = idx
				out = append(out, fusedID{chunkID: hit.ChunkID})
			}
			out[idx].score += 1.0 / float64(rrfK+hit.Rank)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}

func trimFused(fused []fusedID, limit int) []fusedID {
	if limit <= 0 || len(fused) <= limit {
		return fused
	}
	return fused[:limit]
}

func rankChunkIDs(ids []string) []domain.RankedHit {
	out := make([]domain.RankedHit, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, domain.RankedHit{ChunkID: id, Rank: len(out) + 1})
	}
	return out
}
