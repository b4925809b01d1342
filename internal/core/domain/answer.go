package domain

type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatMessage is one turn sent to the generation service.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AnswerMode string

const (
	ModeSingleHop AnswerMode = "single_hop"
	ModeMultiHop  AnswerMode = "multi_hop"
)

// CitedSource exposes an evidence chunk under the ordinal used by the
// citation markers in the answer text.
type CitedSource struct {
	Ref        string  `json:"ref"`
	RefID      int     `json:"ref_id"`
	ChunkID    string  `json:"id"`
	DocumentID string  `json:"document_id,omitempty"`
	SourceFile string  `json:"source_file"`
	ChunkIndex int     `json:"chunk_index"`
	Hop        Hop     `json:"hop,omitempty"`
	Text       string  `json:"text"`
	FusedScore float64 `json:"fused_score"`
}

type AnswerDiagnostics struct {
	Mode                  AnswerMode      `json:"mode"`
	Attempts              int             `json:"attempts"`
	Repaired              bool            `json:"repaired"`
	CitationBackstop      bool            `json:"citation_backstop"`
	NoEvidence            bool            `json:"no_evidence"`
	SubQuestions          *SubQuestionSet `json:"sub_questions,omitempty"`
	DecompositionFallback bool            `json:"decomposition_fallback,omitempty"`
	HopsFound             map[Hop]bool    `json:"hops_found,omitempty"`
}

type Answer struct {
	Text        string            `json:"answer"`
	Sources     []CitedSource     `json:"sources"`
	Diagnostics AnswerDiagnostics `json:"debug"`
}
