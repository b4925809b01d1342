package usecase

import (
	"math"
	"sort"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

type termStats struct {
	documentFrequency map[string]int
	averageLength     float64
	n                 int
}

// computeTermStats derives corpus statistics from a snapshot. It is cheap
// enough to run per query and keeps scoring free of incremental state.
func computeTermStats(snap *lexicalSnapshot) termStats {
	stats := termStats{
		documentFrequency: make(map[string]int, 1024),
		n:                 len(snap.entries),
	}
	if stats.n == 0 {
		return stats
	}

	total := 0
	for _, e := range snap.entries {
		total += len(e.tokens)
		for term := range e.termFreq {
			stats.documentFrequency[term]++
		}
	}
	stats.averageLength = float64(total) / float64(stats.n)
	return stats
}

func (s termStats) idf(term string) float64 {
	df := float64(s.documentFrequency[term])
	return math.Log(1 + (float64(s.n)-df+0.5)/(df+0.5))
}

func bm25Score(queryTokens []string, e lexicalEntry, stats termStats) float64 {
	dl := len(e.tokens)
	if dl == 0 || len(queryTokens) == 0 {
		return 0
	}

	avgdl := stats.averageLength
	if avgdl <= 0 {
		avgdl = 1
	}
	norm := bm25K1 * (1 - bm25B + bm25B*(float64(dl)/avgdl))

	score := 0.0
	for _, q := range queryTokens {
		f := float64(e.termFreq[q])
		if f == 0 {
			continue
		}
		score += stats.idf(q) * (f * (bm25K1 + 1)) / (f + norm)
	}
	return score
}

type lexicalCandidate struct {
	chunkIndex int
	score      float64
}

// scoreLexical ranks the snapshot against queryText. Only strictly positive
// scores survive; ties keep snapshot insertion order.
func scoreLexical(snap *lexicalSnapshot, queryText string, limit int) []lexicalCandidate {
	queryTokens := analyze(queryText)
	if len(queryTokens) == 0 || len(snap.entries) == 0 {
		return nil
	}

	stats := computeTermStats(snap)
	out := make([]lexicalCandidate, 0, 32)
	for i, e := range snap.entries {
		if score := bm25Score(queryTokens, e, stats); score > 0 {
			out = append(out, lexicalCandidate{chunkIndex: i, score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
