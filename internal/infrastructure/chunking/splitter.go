package chunking

import (
	"regexp"
	"strings"
)

const (
	DefaultChunkSize = 1200
	DefaultOverlap   = 200
)

var (
	trailingBlanks = regexp.MustCompile(`[ \t]+\n`)
	extraNewlines  = regexp.MustCompile(`\n{3,}`)
)

type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Normalize drops carriage returns and trailing blanks and collapses runs of
// blank lines to a single paragraph break.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = trailingBlanks.ReplaceAllString(text, "\n")
	text = extraNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Split cuts normalized text into windows of ChunkSize runes, each starting
// Overlap runes before the previous window ended.
func (s *Splitter) Split(text string) []string {
	runes := []rune(Normalize(text))
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
