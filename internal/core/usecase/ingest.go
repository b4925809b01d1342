package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
)

const fallbackStorageName = "document.bin"

// IngestDocumentUseCase stores an upload, records its metadata and hands it
// to the worker through the ingest queue.
type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	now     func() time.Time
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		now:     time.Now,
	}
}

func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Document, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("filename is required"))
	}
	if !SupportedDocument(filename, mimeType) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document",
			fmt.Errorf("unsupported document type %q (%s)", filepath.Ext(filename), mimeType))
	}

	now := uc.now().UTC()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Filename:  filename,
		MimeType:  mimeType,
		Status:    domain.StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	doc.StoragePath = doc.ID + "_" + storageName(filename)

	if err := uc.storage.Save(ctx, doc.StoragePath, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}
	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	// A document nobody will process must not stay "uploaded" forever.
	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		msg := "ingest queue unavailable: " + err.Error()
		if statusErr := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusFailed, msg); statusErr != nil {
			err = errors.Join(err, statusErr)
		}
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}
	return doc, nil
}

// storageName keeps ASCII letters, digits, dot, dash and underscore from the
// base name; everything else becomes an underscore.
func storageName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return fallbackStorageName
	}
	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var supportedExtensions = map[string]struct{}{
	".txt":  {},
	".md":   {},
	".pdf":  {},
	".xlsx": {},
}

// SupportedDocument reports whether the worker can extract text from the file.
func SupportedDocument(filename, mimeType string) bool {
	if _, ok := supportedExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return true
	}
	mimeType = strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	return strings.HasPrefix(mimeType, "text/") ||
		mimeType == "application/pdf" ||
		mimeType == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
