package domain

import "time"

// Chunk is one segment of an ingested document as stored in the vector collection.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id,omitempty"`
	SourceFile string `json:"source_file"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

// ScoredChunk is a vector search hit with its raw similarity.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// RankedHit is a 1-based position of a chunk in one retrieval method's ranking.
type RankedHit struct {
	ChunkID string
	Rank    int
}

type Hop string

const (
	HopOverview Hop = "overview"
	HopDetail   Hop = "detail"
	HopAturan   Hop = "aturan"
	HopPenutup  Hop = "penutup"
)

// HopOrder is the fixed merge order for multi-hop evidence.
var HopOrder = []Hop{HopOverview, HopDetail, HopAturan, HopPenutup}

// EvidenceChunk is a retrieved chunk with its fused score and, in multi-hop
// mode, the first hop that surfaced it.
type EvidenceChunk struct {
	Chunk
	Score float64 `json:"score"`
	Hop   Hop     `json:"hop,omitempty"`
}

type SubQuestionSet struct {
	Overview string `json:"overview"`
	Detail   string `json:"detail"`
	Aturan   string `json:"aturan"`
	Penutup  string `json:"penutup"`
}

// ForHop returns the sub-question for the given aspect.
func (s SubQuestionSet) ForHop(hop Hop) string {
	switch hop {
	case HopOverview:
		return s.Overview
	case HopDetail:
		return s.Detail
	case HopAturan:
		return s.Aturan
	case HopPenutup:
		return s.Penutup
	default:
		return ""
	}
}

type Decomposition struct {
	SubQuestions SubQuestionSet `json:"sub_questions"`
	Fallback     bool           `json:"fallback"`
}

type LexicalIndexStats struct {
	Points   int       `json:"points"`
	LoadedAt time.Time `json:"loaded_at"`
}
