package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
)

const (
	defaultHistoryTurns   = 6
	defaultMinAnswerChars = 50

	generateTemperature = 0.2
	repairTemperature   = 0.1

	repairInstruction = "CRITICAL: JAWABAN TERLALU PENDEK ATAU KURANG SITASI. ULANGI DENGAN LEBIH LENGKAP DAN SERTAKAN SITASI [#]."
)

const synthesisSystemPrompt = `Kamu adalah asisten kampus Universitas Teknologi Nusantara (UTN).

ATURAN MUTLAK (STRICT):
1. SCOPE KAMPUS SAJA: Kamu hanya boleh menjawab hal-hal yang berkaitan dengan Dokumen Kampus UTN.
2. TOLAK TOKOH UMUM: Jika user bertanya tentang Presiden, Politik, Selebriti, atau Sejarah Umum yang TIDAK ADA di dokumen, JAWAB: "` + OutOfScopeAnswer + `" (JANGAN GUNAKAN PENGETAHUAN LUAR).
3. JAWABAN TUNGGAL: Buat satu narasi padu ringkas.
4. JANGAN REPEAT: Jangan menulis ulang pertanyaan.
5. SITASI WAJIB: Akhiri setiap fakta dengan [#NOMOR].

Jika tidak ada di CONTEXT, katakan: "` + NotFoundAnswer + `"`

// QualityGateObserver receives the outcome of each synthesis.
type QualityGateObserver interface {
	ObserveQualityGate(mode domain.AnswerMode, repaired, citationBackstop bool)
}

type SynthesizerOptions struct {
	HistoryTurns   int
	MinAnswerChars int
	Logger         *slog.Logger
	Observer       QualityGateObserver
}

// AnswerSynthesizer turns evidence into a cited answer. It generates once,
// repairs at most once, and always finalizes a non-empty text.
type AnswerSynthesizer struct {
	generator      ports.Generator
	historyTurns   int
	minAnswerChars int
	logger         *slog.Logger
	observer       QualityGateObserver
}

func NewAnswerSynthesizer(generator ports.Generator, opts SynthesizerOptions) *AnswerSynthesizer {
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = defaultHistoryTurns
	}
	if opts.MinAnswerChars <= 0 {
		opts.MinAnswerChars = defaultMinAnswerChars
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &AnswerSynthesizer{
		generator:      generator,
		historyTurns:   opts.HistoryTurns,
		minAnswerChars: opts.MinAnswerChars,
		logger:         opts.Logger,
		observer:       opts.Observer,
	}
}

// Synthesize runs the quality gate over the supplied evidence. Empty evidence
// short-circuits to the fixed not-found answer without calling the generator.
func (s *AnswerSynthesizer) Synthesize(
	ctx context.Context,
	mode domain.AnswerMode,
	question string,
	history []domain.HistoryMessage,
	evidence []domain.EvidenceChunk,
) (*domain.Answer, error) {
	if len(evidence) == 0 {
		return notFoundAnswer(mode), nil
	}

	userPrompt := buildSynthesisUserPrompt(question, evidence, mode == domain.ModeMultiHop)
	diag := domain.AnswerDiagnostics{Mode: mode, Attempts: 1}

	raw, err := s.generator.Complete(ctx, s.composeMessages(userPrompt, history), generateTemperature)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	text := SanitizeAnswer(raw)

	if !s.accept(text) {
		diag.Attempts = 2
		diag.Repaired = true
		s.logger.Info("quality_gate_repair",
			"mode", string(mode),
			"answer_len", utf8.RuneCountInString(text),
			"has_citations", hasCitations(text),
		)

		repairRaw, err := s.generator.Complete(ctx, []domain.ChatMessage{
			{Role: "system", Content: synthesisSystemPrompt + "\n\n" + repairInstruction},
			{Role: "user", Content: userPrompt},
		}, repairTemperature)
		if err != nil {
			return nil, fmt.Errorf("repair answer: %w", err)
		}
		if strings.TrimSpace(repairRaw) != "" {
			text = SanitizeAnswer(repairRaw)
		}
	}

	text, diag.CitationBackstop = EnsureCitations(text)
	if s.observer != nil {
		s.observer.ObserveQualityGate(mode, diag.Repaired, diag.CitationBackstop)
	}

	return &domain.Answer{
		Text:        text,
		Sources:     citedSources(evidence),
		Diagnostics: diag,
	}, nil
}

func (s *AnswerSynthesizer) accept(text string) bool {
	if utf8.RuneCountInString(text) < s.minAnswerChars {
		return false
	}
	return hasCitations(text) || isRefusal(text)
}

func (s *AnswerSynthesizer) composeMessages(userPrompt string, history []domain.HistoryMessage) []domain.ChatMessage {
	recent := recentHistory(history, s.historyTurns)
	messages := make([]domain.ChatMessage, 0, len(recent)+2)
	messages = append(messages, domain.ChatMessage{Role: "system", Content: synthesisSystemPrompt})
	messages = append(messages, recent...)
	messages = append(messages, domain.ChatMessage{Role: "user", Content: userPrompt})
	return messages
}

// recentHistory keeps the last n user/assistant turns; other roles are dropped
// so callers cannot inject system instructions.
func recentHistory(history []domain.HistoryMessage, n int) []domain.ChatMessage {
	filtered := make([]domain.ChatMessage, 0, len(history))
	for _, m := range history {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != "user" && role != "assistant" {
			continue
		}
		filtered = append(filtered, domain.ChatMessage{Role: role, Content: m.Content})
	}
	if len(filtered) > n {
		filtered = filtered[len(filtered)-n:]
	}
	return filtered
}

func buildSynthesisUserPrompt(question string, evidence []domain.EvidenceChunk, withHops bool) string {
	blocks := make([]string, 0, len(evidence))
	for i, e := range evidence {
		header := fmt.Sprintf("[#%d]", i+1)
		if withHops && e.Hop != "" {
			header += " (" + string(e.Hop) + ")"
		}
		blocks = append(blocks, header+"\n"+e.Text)
	}

	var b strings.Builder
	b.WriteString("PERTANYAAN:\n\"")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\"\n\nCONTEXT:\n")
	b.WriteString(strings.Join(blocks, "\n\n---\n\n"))
	b.WriteString("\n\nINSTRUKSI: Jawab pertanyaan berdasarkan CONTEXT di atas. Jangan mengulang pertanyaan.")
	return b.String()
}

func citedSources(evidence []domain.EvidenceChunk) []domain.CitedSource {
	out := make([]domain.CitedSource, 0, len(evidence))
	for i, e := range evidence {
		out = append(out, domain.CitedSource{
			Ref:        fmt.Sprintf("#%d", i+1),
			RefID:      i + 1,
			ChunkID:    e.ID,
			DocumentID: e.DocumentID,
			SourceFile: e.SourceFile,
			ChunkIndex: e.ChunkIndex,
			Hop:        e.Hop,
			Text:       e.Text,
			FusedScore: e.Score,
		})
	}
	return out
}

func notFoundAnswer(mode domain.AnswerMode) *domain.Answer {
	return &domain.Answer{
		Text:    NotFoundAnswer,
		Sources: []domain.CitedSource{},
		Diagnostics: domain.AnswerDiagnostics{
			Mode:       mode,
			NoEvidence: true,
		},
	}
}
