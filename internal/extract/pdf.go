package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/sagerock/google-drive-to-qdrant/internal/drive"
)

// PDF extracts the plain text of every page, one page per line group.
type PDF struct{}

func (PDF) Kind() Kind { return KindPDF }

func (PDF) MimeTypes() []string { return []string{drive.MimeTypePDF} }

func (PDF) Extract(ctx context.Context, _ drive.Item, raw []byte) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimRight(content, "\n"))
	}
	return strings.Join(pages, "\n"), nil
}
