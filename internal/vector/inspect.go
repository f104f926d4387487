package vector

import (
	"cmp"
	"context"
	"fmt"
	"slices"
)

const DefaultInspectLimit = 1000

// DocumentStats counts the chunks stored for one source file.
type DocumentStats struct {
	FileID   string
	FileName string
	MimeType string
	Chunks   int
}

type Inspection struct {
	Info CollectionInfo
	// Sampled is the number of points read; at most the inspect limit.
	Sampled   int
	Documents []DocumentStats
}

// Inspect reads up to limit points with payload and groups them by file,
// largest documents first.
func Inspect(ctx context.Context, store Store, collection string, limit int) (Inspection, error) {
	if limit <= 0 {
		limit = DefaultInspectLimit
	}
	info, err := store.Info(ctx, collection)
	if err != nil {
		return Inspection{}, err
	}
	out := Inspection{Info: info}

	byFile := make(map[string]*DocumentStats)
	offset := ""
	for out.Sampled < limit {
		page, err := store.Scroll(ctx, collection, ScrollRequest{
			Offset:      offset,
			Limit:       min(DefaultClearPageSize, limit-out.Sampled),
			WithPayload: true,
		})
		if err != nil {
			return out, fmt.Errorf("scroll %s: %w", collection, err)
		}
		for _, p := range page.Points {
			meta, _ := p.Payload["metadata"].(map[string]any)
			id, _ := meta["fileId"].(string)
			doc, ok := byFile[id]
			if !ok {
				doc = &DocumentStats{FileID: id}
				doc.FileName, _ = meta["fileName"].(string)
				doc.MimeType, _ = meta["mimeType"].(string)
				byFile[id] = doc
			}
			doc.Chunks++
		}
		out.Sampled += len(page.Points)
		if page.Next == "" || len(page.Points) == 0 {
			break
		}
		offset = page.Next
	}

	for _, d := range byFile {
		out.Documents = append(out.Documents, *d)
	}
	slices.SortFunc(out.Documents, func(a, b DocumentStats) int {
		if c := cmp.Compare(b.Chunks, a.Chunks); c != 0 {
			return c
		}
		return cmp.Compare(a.FileName, b.FileName)
	})
	return out, nil
}
