package extract

import (
	"context"

	"github.com/sagerock/google-drive-to-qdrant/internal/drive"
)

// PlainText passes text files and exported Google Docs through as UTF-8.
type PlainText struct{}

func (PlainText) Kind() Kind { return KindPlainText }

func (PlainText) MimeTypes() []string {
	return []string{drive.MimeTypePlain, drive.MimeTypeGoogleDoc}
}

func (PlainText) Extract(_ context.Context, _ drive.Item, raw []byte) (string, error) {
	return string(raw), nil
}
