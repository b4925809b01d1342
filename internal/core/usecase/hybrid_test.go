package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
)

var campusCorpus = []domain.Chunk{
	{ID: "c-yudisium", DocumentID: "doc-1", SourceFile: "panduan_akademik.pdf", ChunkIndex: 0,
		Text: "Syarat yudisium: mahasiswa wajib menyelesaikan seluruh mata kuliah, tugas akhir telah disetujui pembimbing, dan bebas tanggungan perpustakaan."},
	{ID: "c-wisuda", DocumentID: "doc-1", SourceFile: "panduan_akademik.pdf", ChunkIndex: 1,
		Text: "Pendaftaran wisuda dibuka setelah yudisium melalui portal akademik paling lambat dua minggu sebelum upacara."},
	{ID: "c-beasiswa", DocumentID: "doc-2", SourceFile: "beasiswa.txt", ChunkIndex: 0,
		Text: "Beasiswa prestasi diberikan kepada mahasiswa dengan IPK minimal 3,50 setiap semester."},
}

func newCampusFixture() (*vocabEmbedder, *chunkStoreFake) {
	texts := make([]string, 0, len(campusCorpus))
	for _, c := range campusCorpus {
		texts = append(texts, c.Text)
	}
	embedder := newVocabEmbedder(texts...)
	return embedder, indexedStore(embedder, campusCorpus...)
}

func TestHybridRetrieveEmptyCorpusReturnsEmptySlice(t *testing.T) {
	store := &chunkStoreFake{}
	embedder := newVocabEmbedder()
	ix := NewLexicalIndex(store, WithLexicalLogger(discardLogger()))
	r := NewHybridRetriever(ix, embedder, store, HybridOptions{})

	got, err := r.Retrieve(context.Background(), "syarat yudisium", 4)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
}

func TestHybridRetrieveFusesBothMethods(t *testing.T) {
	embedder, store := newCampusFixture()
	ix := NewLexicalIndex(store, WithLexicalLogger(discardLogger()))
	r := NewHybridRetriever(ix, embedder, store, HybridOptions{})

	got, err := r.Retrieve(context.Background(), "Apa syarat yudisium?", 4)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) < 2 {
		t.Fatalf("expected at least 2 evidence chunks, got %d", len(got))
	}
	if got[0].ID != "c-yudisium" {
		t.Fatalf("expected yudisium chunk first, got %s", got[0].ID)
	}
	if got[0].SourceFile != "panduan_akademik.pdf" || got[0].Text == "" {
		t.Fatalf("expected resolved payload, got %+v", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("expected descending fused scores, got %+v", got)
		}
	}
	if len(store.searches) != 1 || store.searches[0] != 8 {
		t.Fatalf("expected vector limit 2*topK=8, got %v", store.searches)
	}
}

func TestHybridRetrieveTrimsToTopK(t *testing.T) {
	embedder, store := newCampusFixture()
	ix := NewLexicalIndex(store, WithLexicalLogger(discardLogger()))
	r := NewHybridRetriever(ix, embedder, store, HybridOptions{})

	got, err := r.Retrieve(context.Background(), "mahasiswa yudisium wisuda beasiswa", 1)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 evidence chunk, got %d", len(got))
	}
}

func TestHybridRetrieveResolvesVectorOnlyHitsAndDropsEmptyText(t *testing.T) {
	store := &chunkStoreFake{
		searchHits: []domain.ScoredChunk{
			{Chunk: domain.Chunk{ID: "v-only", SourceFile: "kalender.pdf", Text: "Kalender akademik semester ganjil."}, Score: 0.9},
			{Chunk: domain.Chunk{ID: "v-empty", SourceFile: "kosong.pdf", Text: ""}, Score: 0.8},
		},
	}
	ix := NewLexicalIndex(store, WithLexicalLogger(discardLogger()))
	r := NewHybridRetriever(ix, newVocabEmbedder(), store, HybridOptions{})

	got, err := r.Retrieve(context.Background(), "kalender", 4)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "v-only" {
		t.Fatalf("expected only the vector hit with text, got %+v", got)
	}
	if want := 1.0 / 61; got[0].Score != want {
		t.Fatalf("expected single-list fused score %f, got %f", want, got[0].Score)
	}
}

func TestHybridRetrieveVectorFailureIsError(t *testing.T) {
	embedder, store := newCampusFixture()
	store.searchErr = errors.New("qdrant down")
	ix := NewLexicalIndex(store, WithLexicalLogger(discardLogger()))
	r := NewHybridRetriever(ix, embedder, store, HybridOptions{})

	if _, err := r.Retrieve(context.Background(), "syarat yudisium", 4); err == nil {
		t.Fatalf("expected error on vector store failure")
	}
}

func TestHybridRetrieveBlankQuerySkipsCollaborators(t *testing.T) {
	embedder, store := newCampusFixture()
	ix := NewLexicalIndex(store, WithLexicalLogger(discardLogger()))
	r := NewHybridRetriever(ix, embedder, store, HybridOptions{})

	got, err := r.Retrieve(context.Background(), "   ", 4)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v err=%v", got, err)
	}
	if store.listCalls != 0 || len(embedder.queries) != 0 {
		t.Fatalf("expected no store or embedder calls")
	}
}
