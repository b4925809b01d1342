package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

var documentColumns = []string{"id", "filename", "mime_type", "storage_path", "chunk_count", "status", "error_message", "created_at", "updated_at"}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDScansDocument(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, filename").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow("doc-1", "panduan.pdf", "application/pdf", "doc-1_panduan.pdf", 12, "ready", "", now, now))

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.ChunkCount != 12 || doc.Status != domain.StatusReady || doc.Filename != "panduan.pdf" {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestListReturnsPageAndTotal(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs(2, 1).
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow("doc-2", "kalender.txt", "text/plain", "doc-2_kalender.txt", 4, "ready", "", now, now).
			AddRow("doc-3", "beasiswa.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "doc-3_beasiswa.xlsx", 0, "failed", "extract failed", now, now))

	docs, total, err := repo.List(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(docs) != 2 {
		t.Fatalf("expected 2 of 3 documents, got %d of %d", len(docs), total)
	}
	if docs[1].Status != domain.StatusFailed || docs[1].Error != "extract failed" {
		t.Fatalf("unexpected second document %+v", docs[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", string(domain.StatusProcessing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing, "")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkReadyStoresChunkCount(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", string(domain.StatusReady), 7, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkReady(context.Background(), "doc-1", 7); err != nil {
		t.Fatalf("MarkReady() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
