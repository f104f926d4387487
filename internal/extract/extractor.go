// Package extract turns downloaded Drive files into plain text ready for chunking.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sagerock/google-drive-to-qdrant/internal/drive"
)

// Kind is the extraction variant selected for a MIME type.
type Kind string

const (
	KindPlainText    Kind = "plain"
	KindRichDocument Kind = "docx"
	KindPDF          Kind = "pdf"
	KindImage        Kind = "image"
	KindHTML         Kind = "html"
	KindJSON         Kind = "json"
	KindMarkdown     Kind = "markdown"
)

// Structured kinds keep a file-identity line when extraction fails;
// the others degrade to empty text and are skipped downstream.
var failureLabels = map[Kind]string{
	KindImage:    "IMAGE",
	KindHTML:     "HTML",
	KindJSON:     "JSON",
	KindMarkdown: "MARKDOWN",
}

// Handler extracts text for one family of MIME types.
type Handler interface {
	Kind() Kind
	MimeTypes() []string
	Extract(ctx context.Context, item drive.Item, raw []byte) (string, error)
}

// Document is the normalised text of one source item.
type Document struct {
	Item drive.Item
	Kind Kind
	Text string
}

// Empty reports whether there is nothing worth chunking.
func (d Document) Empty() bool {
	return strings.TrimSpace(d.Text) == ""
}

// Extractor dispatches to the registered handler for an item's MIME type.
type Extractor struct {
	handlers map[string]Handler
}

func New(handlers ...Handler) *Extractor {
	e := &Extractor{handlers: make(map[string]Handler)}
	for _, h := range handlers {
		e.Register(h)
	}
	return e
}

// Register adds h for every MIME type it declares, replacing earlier handlers.
func (e *Extractor) Register(h Handler) {
	for _, mt := range h.MimeTypes() {
		e.handlers[mt] = h
	}
}

// Extract never fails: handler errors and panics degrade to fallback text.
func (e *Extractor) Extract(ctx context.Context, item drive.Item, raw []byte) (doc Document) {
	doc = Document{Item: item}

	h, ok := e.handlers[item.MimeType]
	if !ok {
		slog.WarnContext(ctx, "unsupported mime type for content extraction", "file", item.Name, "mime_type", item.MimeType)
		return doc
	}
	doc.Kind = h.Kind()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			slog.ErrorContext(ctx, "extraction panicked", "file", item.Name, "error", err)
			doc.Text = fallbackText(doc.Kind, item.Name, err)
		}
	}()

	text, err := h.Extract(ctx, item, raw)
	if err != nil {
		slog.ErrorContext(ctx, "error extracting content", "file", item.Name, "kind", doc.Kind, "error", err)
		doc.Text = fallbackText(doc.Kind, item.Name, err)
		return doc
	}

	doc.Text = strings.ToValidUTF8(text, "�")
	slog.DebugContext(ctx, "extraction completed", "file", item.Name, "kind", doc.Kind, "chars", len(doc.Text))
	return doc
}

func fallbackText(kind Kind, name string, err error) string {
	label, ok := failureLabels[kind]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s FILE: %s (extraction failed: %v)", label, name, err)
}

// Options configures the default handler set.
type Options struct {
	EnableOCR    bool
	OCRLanguage  string
	OCR          Recognizer
	EnableVision bool
	VisionPrompt string
	Vision       Describer
}

// NewDefault registers a handler for every supported Drive MIME type.
func NewDefault(opts Options) *Extractor {
	return New(
		PlainText{},
		Docx{},
		PDF{},
		&Image{
			EnableOCR:    opts.EnableOCR && opts.OCR != nil,
			Language:     opts.OCRLanguage,
			OCR:          opts.OCR,
			EnableVision: opts.EnableVision && opts.Vision != nil,
			Prompt:       opts.VisionPrompt,
			Vision:       opts.Vision,
		},
		HTML{},
		JSON{},
		Markdown{},
	)
}
