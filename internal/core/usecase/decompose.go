package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
)

const decomposeTemperature = 0.1

// QueryDecomposer splits a question into the four retrieval aspects. It never
// fails: unusable generation output falls back to a local template.
type QueryDecomposer struct {
	generator ports.Generator
	logger    *slog.Logger
}

func NewQueryDecomposer(generator ports.Generator, logger *slog.Logger) *QueryDecomposer {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryDecomposer{generator: generator, logger: logger}
}

func (d *QueryDecomposer) Decompose(ctx context.Context, question string) domain.Decomposition {
	question = strings.TrimSpace(question)

	raw, err := d.generator.Complete(ctx, []domain.ChatMessage{
		{Role: "user", Content: buildDecomposePrompt(question)},
	}, decomposeTemperature)
	if err != nil {
		d.logger.Warn("decompose_fallback", "reason", "generation_error", "error", err)
		return domain.Decomposition{SubQuestions: fallbackSubQuestions(question), Fallback: true}
	}

	set, ok := parseSubQuestions(raw)
	if !ok {
		d.logger.Warn("decompose_fallback", "reason", "malformed_output", "raw_len", len(raw))
		return domain.Decomposition{SubQuestions: fallbackSubQuestions(question), Fallback: true}
	}
	return domain.Decomposition{SubQuestions: set}
}

func buildDecomposePrompt(question string) string {
	return `Kamu adalah sistem pemecah pertanyaan untuk pencarian dokumen.
Tugasmu: ubah pertanyaan pengguna menjadi 4 sub-pertanyaan pencarian:
1) overview/definisi
2) detail/poin utama/langkah
3) batasan/syarat/pengecualian (aturan)
4) closure/kesimpulan/tindak lanjut (penutup)

ATURAN:
- Output HARUS JSON valid dengan kunci: "overview","detail","aturan","penutup"
- Tiap nilai adalah 1 kalimat tanya, bahasa Indonesia
- Jangan menambahkan fakta di luar pertanyaan pengguna
- Tetap fokus pada topik yang ditanyakan

Pertanyaan pengguna:
` + question
}

// parseSubQuestions accepts only an object carrying all four keys as
// non-empty strings.
func parseSubQuestions(raw string) (domain.SubQuestionSet, bool) {
	obj, ok := parseJSONObject(raw)
	if !ok {
		return domain.SubQuestionSet{}, false
	}

	field := func(key string) (string, bool) {
		v, ok := obj[key].(string)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	var set domain.SubQuestionSet
	var okO, okD, okA, okP bool
	set.Overview, okO = field("overview")
	set.Detail, okD = field("detail")
	set.Aturan, okA = field("aturan")
	set.Penutup, okP = field("penutup")
	if !(okO && okD && okA && okP) {
		return domain.SubQuestionSet{}, false
	}
	return set, true
}

// parseJSONObject tries a strict parse, then the span between the first '{'
// and the last '}'.
func parseJSONObject(raw string) (map[string]any, bool) {
	s := strings.TrimSpace(raw)
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil && obj != nil {
		return obj, true
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	obj = nil
	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func fallbackSubQuestions(question string) domain.SubQuestionSet {
	return domain.SubQuestionSet{
		Overview: "Apa definisi dan konteks umum tentang: " + question,
		Detail:   "Apa langkah-langkah atau poin utama terkait: " + question,
		Aturan:   "Apa syarat, batasan, atau pengecualian terkait: " + question,
		Penutup:  "Apa kesimpulan atau tindak lanjut yang disarankan terkait: " + question,
	}
}
