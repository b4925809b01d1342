package localfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
)

func TestSaveAndOpen(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := store.Save(context.Background(), "doc-1_panduan.txt", strings.NewReader("isi panduan")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rc, err := store.Open(context.Background(), "doc-1_panduan.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	raw, _ := io.ReadAll(rc)
	if string(raw) != "isi panduan" {
		t.Fatalf("unexpected content %q", raw)
	}
}

func TestOpenMissingIsNotFound(t *testing.T) {
	store, _ := New(t.TempDir())
	if _, err := store.Open(context.Background(), "missing.txt"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRejectsPathTraversal(t *testing.T) {
	store, _ := New(t.TempDir())
	if err := store.Save(context.Background(), "../escape.txt", strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid key, got %v", err)
	}
}
