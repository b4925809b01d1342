package usecase

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const minTokenRunes = 2

var indonesianStopwords = map[string]struct{}{
	"yang": {}, "dan": {}, "atau": {}, "di": {}, "ke": {}, "dari": {}, "pada": {}, "untuk": {},
	"dengan": {}, "adalah": {}, "itu": {}, "ini": {}, "dalam": {}, "sebagai": {}, "oleh": {},
	"agar": {}, "bagi": {}, "setiap": {}, "akan": {}, "dapat": {}, "tidak": {}, "harus": {},
	"kami": {}, "kamu": {}, "anda": {}, "para": {}, "jika": {}, "maka": {}, "saat": {},
	"ketika": {}, "lebih": {}, "kurang": {},
}

// normalizeText lowercases s and replaces every rune that is not a letter,
// digit or whitespace with a space, collapsing runs of whitespace.
func normalizeText(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

func tokenize(s string) []string {
	normalized := normalizeText(s)
	if normalized == "" {
		return nil
	}
	fields := strings.Fields(normalized)
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenRunes {
			out = append(out, f)
		}
	}
	return out
}

func filterStopwords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, stop := indonesianStopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// analyze is the full lexical pipeline shared by queries and chunks.
func analyze(s string) []string {
	return filterStopwords(tokenize(s))
}
