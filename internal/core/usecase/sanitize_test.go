package usecase

import (
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	got := splitSentences("IPK minimal 3.50 wajib. Apakah ada ujian?  Ya!Tidak ada spasi")
	want := []string{"IPK minimal 3.50 wajib.", "Apakah ada ujian?", "Ya!Tidak ada spasi"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("splitSentences() = %q, want %q", got, want)
	}
}

func TestSanitizeRemovesWholeMetaSentences(t *testing.T) {
	raw := "Berdasarkan context yang diberikan, berikut informasinya. Mahasiswa wajib lulus seluruh mata kuliah [#1]. Dapat disimpulkan bahwa syaratnya jelas. Tugas akhir harus disetujui pembimbing [#2]."
	got := SanitizeAnswer(raw)
	want := "Mahasiswa wajib lulus seluruh mata kuliah [#1]. Tugas akhir harus disetujui pembimbing [#2]."
	if got != want {
		t.Fatalf("SanitizeAnswer() = %q, want %q", got, want)
	}
}

func TestSanitizeKeepsRefusalSentences(t *testing.T) {
	if got := SanitizeAnswer(OutOfScopeAnswer); got != OutOfScopeAnswer {
		t.Fatalf("expected out-of-scope refusal to survive, got %q", got)
	}
	if got := SanitizeAnswer(NotFoundAnswer); got != NotFoundAnswer {
		t.Fatalf("expected not-found refusal to survive, got %q", got)
	}
}

func TestSanitizeEmptyResultBecomesNotFound(t *testing.T) {
	for _, raw := range []string{"", "   ", "Sebagai chatbot, saya mengikuti instruksi sistem.", "Jawaban:"} {
		if got := SanitizeAnswer(raw); got != NotFoundAnswer {
			t.Fatalf("SanitizeAnswer(%q) = %q, want not-found", raw, got)
		}
	}
}

func TestSanitizeFlagsUncitedTimeClaims(t *testing.T) {
	got := SanitizeAnswer("Pendaftaran wisuda ditutup 14 hari sebelum upacara.")
	if !strings.HasSuffix(got, unverifiedClaimNote) {
		t.Fatalf("expected verification note, got %q", got)
	}

	cited := SanitizeAnswer("Pendaftaran wisuda ditutup 14 hari sebelum upacara [#2].")
	if strings.Contains(cited, unverifiedClaimNote) {
		t.Fatalf("expected no note on cited claim, got %q", cited)
	}
}

func TestHasCitations(t *testing.T) {
	for text, want := range map[string]bool{
		"fakta [#1].":       true,
		"fakta [2].":        true,
		"lihat #3":          true,
		"tanpa sitasi.":     false,
		"nomor [#a] salah.": false,
	} {
		if got := hasCitations(text); got != want {
			t.Fatalf("hasCitations(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestEnsureCitationsAppendsToEverySentence(t *testing.T) {
	got, changed := EnsureCitations("Mahasiswa wajib lulus seluruh mata kuliah. Tugas akhir harus disetujui.")
	if !changed {
		t.Fatalf("expected backstop to apply")
	}
	want := "Mahasiswa wajib lulus seluruh mata kuliah. [#1] Tugas akhir harus disetujui. [#1]"
	if got != want {
		t.Fatalf("EnsureCitations() = %q, want %q", got, want)
	}
}

func TestEnsureCitationsSkipsVerificationNote(t *testing.T) {
	draft := SanitizeAnswer("Pendaftaran wisuda ditutup 14 hari sebelum upacara.")
	got, changed := EnsureCitations(draft)
	if !changed {
		t.Fatalf("expected backstop to apply")
	}
	if !strings.HasSuffix(got, "\n\n"+unverifiedClaimNote) {
		t.Fatalf("expected note to stay uncited at the end, got %q", got)
	}
	if !strings.HasPrefix(got, "Pendaftaran wisuda ditutup 14 hari sebelum upacara. [#1]") {
		t.Fatalf("expected cited claim, got %q", got)
	}
}

func TestEnsureCitationsLeavesRefusalsAndCitedTextAlone(t *testing.T) {
	for _, text := range []string{NotFoundAnswer, OutOfScopeAnswer, "Sudah ada sitasi [#2]. Kalimat lain."} {
		got, changed := EnsureCitations(text)
		if changed || got != text {
			t.Fatalf("EnsureCitations(%q) = %q changed=%v", text, got, changed)
		}
	}
}

func TestIsRefusalRequiresOnlyFixedSentences(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{NotFoundAnswer, true},
		{OutOfScopeAnswer, true},
		{"  \"" + OutOfScopeAnswer + "\"  ", true},
		{NotFoundAnswer + " " + OutOfScopeAnswer, true},
		{"Informasi biaya yudisium tidak ditemukan.", false},
		{"Yudisium diadakan tiap semester. " + NotFoundAnswer, false},
		{"Topik ini di luar konteks dokumen, tetapi wisuda diadakan setiap Oktober.", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isRefusal(tc.text); got != tc.want {
			t.Fatalf("isRefusal(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestEnsureCitationsMixedAnswerCitesFactsOnly(t *testing.T) {
	got, changed := EnsureCitations("Yudisium diadakan setiap akhir semester. " + NotFoundAnswer)
	if !changed {
		t.Fatalf("expected backstop to apply")
	}
	want := "Yudisium diadakan setiap akhir semester. [#1] " + NotFoundAnswer
	if got != want {
		t.Fatalf("EnsureCitations() = %q, want %q", got, want)
	}
}

func TestSanitizeStripsLeakedSentenceMentioningNotFound(t *testing.T) {
	got := SanitizeAnswer("Wisuda diadakan setiap bulan Oktober [#1]. Data ini tidak ditemukan dalam konteks sistem.")
	if got != "Wisuda diadakan setiap bulan Oktober [#1]." {
		t.Fatalf("SanitizeAnswer() = %q", got)
	}
}
