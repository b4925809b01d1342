package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
	"github.com/kirillkom/campus-rag-assistant/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/campus-rag-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/campus-rag-assistant/internal/infrastructure/extractor/spreadsheet"
)

type Format string

const (
	FormatText        Format = "text"
	FormatPDF         Format = "pdf"
	FormatSpreadsheet Format = "xlsx"
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Detect picks the format by extension first and falls back to the MIME type.
func Detect(filename, mimeType string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, true
	case ".xlsx":
		return FormatSpreadsheet, true
	case ".txt", ".md":
		return FormatText, true
	}

	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch {
	case mimeType == "application/pdf":
		return FormatPDF, true
	case mimeType == xlsxMime:
		return FormatSpreadsheet, true
	case strings.HasPrefix(mimeType, "text/"):
		return FormatText, true
	}
	return "", false
}

// Composite routes each document to the extractor for its format.
type Composite struct {
	byFormat map[Format]ports.TextExtractor
}

func NewComposite(storage ports.ObjectStorage) *Composite {
	return &Composite{byFormat: map[Format]ports.TextExtractor{
		FormatText:        plaintext.NewExtractor(storage),
		FormatPDF:         pdftext.NewExtractor(storage),
		FormatSpreadsheet: spreadsheet.NewExtractor(storage),
	}}
}

func (c *Composite) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	format, ok := Detect(doc.Filename, doc.MimeType)
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("unsupported document %q (%s)", doc.Filename, doc.MimeType))
	}
	return c.byFormat[format].Extract(ctx, doc)
}
