package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
)

func assertFallback(t *testing.T, d domain.Decomposition, question string) {
	t.Helper()
	if !d.Fallback {
		t.Fatalf("expected fallback decomposition")
	}
	for _, hop := range domain.HopOrder {
		sub := d.SubQuestions.ForHop(hop)
		if strings.TrimSpace(sub) == "" {
			t.Fatalf("expected non-empty %s sub-question", hop)
		}
		if !strings.HasSuffix(sub, question) {
			t.Fatalf("expected %s to embed the question, got %q", hop, sub)
		}
	}
}

func TestDecomposeParsesStrictJSON(t *testing.T) {
	gen := &generatorFake{responses: []string{
		`{"overview":"Apa itu yudisium?","detail":"Apa saja tahapan yudisium?","aturan":"Apa syarat yudisium?","penutup":"Apa tindak lanjut setelah yudisium?"}`,
	}}
	d := NewQueryDecomposer(gen, discardLogger()).Decompose(context.Background(), "Apa syarat yudisium?")

	if d.Fallback {
		t.Fatalf("expected parsed decomposition")
	}
	if d.SubQuestions.Aturan != "Apa syarat yudisium?" {
		t.Fatalf("unexpected aturan: %q", d.SubQuestions.Aturan)
	}
	if len(gen.calls) != 1 || gen.calls[0].temperature != 0.1 {
		t.Fatalf("expected one call at temperature 0.1, got %+v", gen.calls)
	}
	if !strings.Contains(gen.calls[0].messages[0].Content, "Apa syarat yudisium?") {
		t.Fatalf("expected prompt to carry the question")
	}
}

func TestDecomposeExtractsEmbeddedObject(t *testing.T) {
	gen := &generatorFake{responses: []string{
		"Berikut hasilnya:\n```json\n{\"overview\":\"O?\",\"detail\":\"D?\",\"aturan\":\"A?\",\"penutup\":\"P?\"}\n```",
	}}
	d := NewQueryDecomposer(gen, discardLogger()).Decompose(context.Background(), "q")
	if d.Fallback {
		t.Fatalf("expected embedded object to parse")
	}
	if d.SubQuestions.Penutup != "P?" {
		t.Fatalf("unexpected penutup: %q", d.SubQuestions.Penutup)
	}
}

func TestDecomposeFallsBackOnMissingKey(t *testing.T) {
	gen := &generatorFake{responses: []string{`{"overview":"O?","detail":"D?","aturan":""}`}}
	q := "Bagaimana prosedur cuti akademik?"
	assertFallback(t, NewQueryDecomposer(gen, discardLogger()).Decompose(context.Background(), q), q)
}

func TestDecomposeFallsBackOnNonStringValue(t *testing.T) {
	gen := &generatorFake{responses: []string{`{"overview":"O?","detail":["D?"],"aturan":"A?","penutup":"P?"}`}}
	assertFallback(t, NewQueryDecomposer(gen, discardLogger()).Decompose(context.Background(), "q"), "q")
}

func TestDecomposeFallsBackOnTruncatedOutput(t *testing.T) {
	for _, raw := range []string{"", `{"overview":"O?","detail":"D`, "bukan json sama sekali"} {
		gen := &generatorFake{responses: []string{raw}}
		assertFallback(t, NewQueryDecomposer(gen, discardLogger()).Decompose(context.Background(), "q"), "q")
	}
}

func TestDecomposeFallsBackOnGenerationError(t *testing.T) {
	gen := &generatorFake{errs: []error{errors.New("ollama down")}}
	q := "Apa syarat yudisium?"
	d := NewQueryDecomposer(gen, discardLogger()).Decompose(context.Background(), q)
	assertFallback(t, d, q)
	if d.SubQuestions.Overview != "Apa definisi dan konteks umum tentang: "+q {
		t.Fatalf("unexpected overview template: %q", d.SubQuestions.Overview)
	}
}
