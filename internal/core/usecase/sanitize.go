package usecase

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	NotFoundAnswer   = "Tidak ditemukan informasi yang relevan di dokumen."
	OutOfScopeAnswer = "Maaf, topik ini di luar konteks dokumen kampus."

	unverifiedClaimNote = "(Catatan: Beberapa klaim angka spesifik mungkin perlu verifikasi manual jika tidak disertai sitasi)."
	defaultCitation     = "[#1]"
)

// metaPatterns flag sentences that leak instructions, roles or inferred
// conclusions instead of stating document facts.
var metaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)jawaban`),
	regexp.MustCompile(`(?i)chatbot`),
	regexp.MustCompile(`(?i)context`),
	regexp.MustCompile(`(?i)konteks`),
	regexp.MustCompile(`(?i)policy`),
	regexp.MustCompile(`(?i)instruksi`),
	regexp.MustCompile(`(?i)aturan keras`),
	regexp.MustCompile(`(?i)sistem`),
	regexp.MustCompile(`(?i)prompt`),
	regexp.MustCompile(`(?i)kami sarankan`),
	regexp.MustCompile(`(?i)cari sumber lain`),
	regexp.MustCompile(`(?i)sumber lain`),
	regexp.MustCompile(`(?i)dapat disimpulkan`),
	regexp.MustCompile(`(?i)kesimpulan`),
	regexp.MustCompile(`(?i)inferensi`),
	regexp.MustCompile(`(?i)berdasarkan isi dokumen`),
	regexp.MustCompile(`(?i)dokumen ini hanya berisi`),
	regexp.MustCompile(`(?i)teks yang berulang`),
	regexp.MustCompile(`(?i)tidak memberikan informasi`),
	regexp.MustCompile(`(?i)lebih relevan dan akurat`),
}

var (
	citationPattern        = regexp.MustCompile(`\[#?\d+\]|#\d+`)
	bareLabelPattern       = regexp.MustCompile(`(?i)^(jawaban|aturan)\b`)
	unverifiedClaimPattern = regexp.MustCompile(`(?i)\d+\s*(hari|minggu|bulan|tahun|jam)\b`)
)

func hasCitations(text string) bool {
	return citationPattern.MatchString(text)
}

// isRefusalSentence reports whether a single sentence is exactly one of the
// fixed refusals, ignoring case, surrounding whitespace and quotes.
func isRefusalSentence(sentence string) bool {
	s := strings.Trim(strings.TrimSpace(sentence), `"'`)
	return strings.EqualFold(s, NotFoundAnswer) || strings.EqualFold(s, OutOfScopeAnswer)
}

// isRefusal reports whether text consists only of fixed refusal sentences.
// A factual answer that merely mentions "tidak ditemukan" is not a refusal.
func isRefusal(text string) bool {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return false
	}
	for _, s := range sentences {
		if !isRefusalSentence(s) {
			return false
		}
	}
	return true
}

// splitSentences splits after '.', '!' or '?' when followed by whitespace.
// Sentences are returned trimmed; empty ones are dropped.
func splitSentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// isMetaSentence reports whether a sentence leaks meta content. The fixed
// refusal sentences mention "konteks" but are never stripped.
func isMetaSentence(sentence string) bool {
	if isRefusalSentence(sentence) {
		return false
	}
	for _, p := range metaPatterns {
		if p.MatchString(sentence) {
			return true
		}
	}
	return false
}

// stripMetaSentences removes whole sentences matching the meta pattern table.
func stripMetaSentences(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	sentences := splitSentences(text)
	kept := sentences[:0]
	for _, s := range sentences {
		if isMetaSentence(s) {
			continue
		}
		kept = append(kept, s)
	}
	out := strings.TrimSpace(strings.Join(kept, " "))
	if bareLabelPattern.MatchString(out) && utf8.RuneCountInString(out) < 15 {
		return ""
	}
	return out
}

// containsUnverifiedClaim flags uncited drafts stating specific time spans,
// the claims most often hallucinated.
func containsUnverifiedClaim(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || hasCitations(text) || isRefusal(text) {
		return false
	}
	return unverifiedClaimPattern.MatchString(text)
}

// SanitizeAnswer is the text-in/text-out cleanup applied after every
// generation. It never returns an empty string.
func SanitizeAnswer(raw string) string {
	out := stripMetaSentences(raw)
	if out == "" {
		return NotFoundAnswer
	}
	if containsUnverifiedClaim(out) {
		out += "\n\n" + unverifiedClaimNote
	}
	return out
}

// EnsureCitations appends the default marker to every non-refusal sentence of
// an uncited, non-refusal answer. Cited answers and refusals pass through.
func EnsureCitations(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" || hasCitations(text) || isRefusal(text) {
		return text, false
	}

	body, note := text, ""
	if idx := strings.Index(text, unverifiedClaimNote); idx >= 0 {
		body = strings.TrimSpace(text[:idx])
		note = unverifiedClaimNote
	}

	sentences := splitSentences(body)
	for i, s := range sentences {
		if isRefusalSentence(s) {
			continue
		}
		sentences[i] = s + " " + defaultCitation
	}
	out := strings.Join(sentences, " ")
	if note != "" {
		out += "\n\n" + note
	}
	return out, true
}
