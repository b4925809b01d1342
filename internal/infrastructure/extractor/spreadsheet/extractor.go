package spreadsheet

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

// Extract renders every sheet as a heading followed by one line per
// non-empty row, cells separated by " | ".
func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	book, err := excelize.OpenReader(reader)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract xlsx", fmt.Errorf("%s: %w", doc.Filename, err))
	}
	defer book.Close()

	return Render(book)
}

func Render(book *excelize.File) (string, error) {
	var sb strings.Builder
	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}

		wroteHeading := false
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if c := strings.TrimSpace(cell); c != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) == 0 {
				continue
			}
			if !wroteHeading {
				if sb.Len() > 0 {
					sb.WriteString("\n\n")
				}
				sb.WriteString("# ")
				sb.WriteString(sheet)
				wroteHeading = true
			}
			sb.WriteString("\n")
			sb.WriteString(strings.Join(cells, " | "))
		}
	}
	return sb.String(), nil
}
