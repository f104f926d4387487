package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"strings"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/sagerock/google-drive-to-qdrant/internal/drive"
)

const jpegQuality = 85

// Recognizer runs optical character recognition over an encoded image.
type Recognizer interface {
	Recognize(ctx context.Context, img []byte, language string) (string, error)
}

// Describer asks a vision model to describe a JPEG image.
type Describer interface {
	Describe(ctx context.Context, jpeg []byte, prompt string) (string, error)
}

// Image combines OCR text and a vision description under labelled sections.
// Each pass is best effort; the item always yields some text.
type Image struct {
	EnableOCR bool
	Language  string
	OCR       Recognizer

	EnableVision bool
	Prompt       string
	Vision       Describer
}

func (*Image) Kind() Kind { return KindImage }

func (*Image) MimeTypes() []string {
	return []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/bmp", "image/tiff", "image/webp"}
}

func (h *Image) Extract(ctx context.Context, item drive.Item, raw []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Sprintf("IMAGE FILE: %s (analysis failed: %v)", item.Name, err), nil
	}
	bounds := img.Bounds()
	w, ht := bounds.Dx(), bounds.Dy()
	slog.InfoContext(ctx, "processing image", "file", item.Name, "width", w, "height", ht)

	var parts []string

	if h.EnableOCR {
		text, err := h.OCR.Recognize(ctx, raw, h.Language)
		text = strings.TrimSpace(text)
		switch {
		case err != nil:
			slog.WarnContext(ctx, "ocr extraction failed", "file", item.Name, "error", err)
		case text == "":
			slog.InfoContext(ctx, "no text found in image via ocr", "file", item.Name)
		default:
			parts = append(parts, "EXTRACTED TEXT:\n"+text)
			slog.InfoContext(ctx, "ocr extracted text", "file", item.Name, "chars", len(text))
		}
	}

	if h.EnableVision {
		desc, err := h.describe(ctx, img)
		if err != nil {
			slog.WarnContext(ctx, "vision analysis failed", "file", item.Name, "error", err)
			parts = append(parts, fmt.Sprintf("VISUAL DESCRIPTION:\nImage file: %s (%dx%d pixels, %s mode)", item.Name, w, ht, colorMode(img)))
		} else if desc != "" {
			parts = append(parts, "VISUAL DESCRIPTION:\n"+desc)
		}
	}

	if len(parts) == 0 {
		return fmt.Sprintf("IMAGE FILE: %s (%dx%d pixels)", item.Name, w, ht), nil
	}
	return fmt.Sprintf("IMAGE ANALYSIS - %s\n", item.Name) + strings.Join(parts, "\n\n"), nil
}

func (h *Image) describe(ctx context.Context, img image.Image) (string, error) {
	encoded, err := EncodeJPEG(img, jpegQuality)
	if err != nil {
		return "", err
	}
	desc, err := h.Vision.Describe(ctx, encoded, h.Prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(desc), nil
}

// EncodeJPEG re-encodes img as JPEG. Alpha is flattened onto white.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func flatten(img image.Image) image.Image {
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64, *image.Paletted:
	default:
		return img
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			// composite over white
			inv := 0xffff - a
			out.Set(x, y, color.RGBA64{
				R: uint16(r + inv),
				G: uint16(g + inv),
				B: uint16(bl + inv),
				A: 0xffff,
			})
		}
	}
	return out
}

func colorMode(img image.Image) string {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return "L"
	case *image.Paletted:
		return "P"
	case *image.CMYK:
		return "CMYK"
	case *image.YCbCr:
		return "RGB"
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return "RGBA"
	default:
		return "RGB"
	}
}
