package mcpadapter

import (
	"fmt"
	"strings"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
)

const snippetRunes = 300

// FormatAnswer renders an answer and its numbered sources as markdown.
func FormatAnswer(answer *domain.Answer) string {
	if answer == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(answer.Text)
	sb.WriteString("\n")
	if len(answer.Sources) == 0 {
		return sb.String()
	}

	sb.WriteString("\n## Sources\n\n")
	for _, src := range answer.Sources {
		sb.WriteString(fmt.Sprintf("%s **%s** (chunk %d", src.Ref, src.SourceFile, src.ChunkIndex))
		if src.Hop != "" {
			sb.WriteString(fmt.Sprintf(", %s", src.Hop))
		}
		sb.WriteString(")\n")
		sb.WriteString(fmt.Sprintf("> %s\n\n", snippet(src.Text)))
	}
	return sb.String()
}

// FormatSearchResults renders fused retrieval results as markdown.
func FormatSearchResults(query string, results []domain.EvidenceChunk) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Search Results for \"%s\"\n\n", query))
	sb.WriteString(fmt.Sprintf("Found %d result", len(results)))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("### %d. %s (chunk %d)\n\n", i+1, r.SourceFile, r.ChunkIndex))
		sb.WriteString(fmt.Sprintf("**Score:** %.4f\n\n", r.Score))
		sb.WriteString(snippet(r.Text))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= snippetRunes {
		return text
	}
	return string(runes[:snippetRunes]) + "..."
}
