package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
)

const (
	defaultDocumentPageSize = 50
	maxDocumentPageSize     = 500
)

type DocumentCatalogUseCase struct {
	repo ports.DocumentRepository
}

func NewDocumentCatalogUseCase(repo ports.DocumentRepository) *DocumentCatalogUseCase {
	return &DocumentCatalogUseCase{repo: repo}
}

func (uc *DocumentCatalogUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get document", errors.New("id is required"))
	}
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (uc *DocumentCatalogUseCase) List(ctx context.Context, limit, offset int) ([]domain.Document, int, error) {
	if limit <= 0 {
		limit = defaultDocumentPageSize
	}
	if limit > maxDocumentPageSize {
		limit = maxDocumentPageSize
	}
	if offset < 0 {
		return nil, 0, domain.WrapError(domain.ErrInvalidInput, "list documents", errors.New("offset must be >= 0"))
	}
	docs, total, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	return docs, total, nil
}
