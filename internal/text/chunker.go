package text

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Separators are tried in order: paragraph, line, word, character.
var Separators = []string{"\n\n", "\n", " ", ""}

// Chunk is one bounded segment of a document.
//
// StartLine and EndLine come from a running cursor over the document's lines
// and do not account for character overlap between neighbouring chunks. They
// are monotonic and clamped to [1, total lines], not an exact source map.
type Chunk struct {
	Text      string
	Index     int
	StartLine int
	EndLine   int
	PageIndex int
	Metadata  map[string]any
}

type Chunker struct {
	size     int
	overlap  int
	splitter textsplitter.RecursiveCharacter
}

func NewChunker(size, overlap int) *Chunker {
	return &Chunker{
		size:    size,
		overlap: overlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(Separators),
		),
	}
}

// Chunk splits text and stamps every chunk with a copy of metadata plus its
// line range. Empty or whitespace-only text yields no chunks.
func (c *Chunker) Chunk(ctx context.Context, text string, metadata map[string]any) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		slog.InfoContext(ctx, "empty document, nothing to chunk", "file", metadata["fileName"])
		return nil, nil
	}

	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}

	ranges := LineRanges(text, parts)
	chunks := make([]Chunk, 0, len(parts))
	for i, part := range parts {
		r := ranges[i]
		chunks = append(chunks, Chunk{
			Text:      part,
			Index:     i,
			StartLine: r.From,
			EndLine:   r.To,
			PageIndex: 0,
			Metadata:  chunkMetadata(metadata, r),
		})
	}

	slog.DebugContext(ctx, "document chunked", "file", metadata["fileName"], "chunks", len(chunks))
	return chunks, nil
}

// LineRange is an inclusive, 1-based span of lines.
type LineRange struct {
	From int
	To   int
}

// LineRanges assigns each part a span starting where the previous one ended.
func LineRanges(text string, parts []string) []LineRange {
	total := strings.Count(text, "\n") + 1
	cursor := 1

	out := make([]LineRange, len(parts))
	for i, part := range parts {
		lines := strings.Count(part, "\n") + 1
		start := min(cursor, total)
		end := min(start+lines-1, total)
		out[i] = LineRange{From: start, To: end}
		cursor = end + 1
	}
	return out
}

func chunkMetadata(base map[string]any, r LineRange) map[string]any {
	md := make(map[string]any, len(base)+3)
	for k, v := range base {
		md[k] = v
	}
	md["totalPages"] = 1
	md["pageIndex"] = 0
	md["loc"] = map[string]any{
		"lines": map[string]any{
			"from": r.From,
			"to":   r.To,
		},
	}
	return md
}
