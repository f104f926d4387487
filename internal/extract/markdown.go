package extract

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/sagerock/google-drive-to-qdrant/internal/drive"
)

// Markdown prepends a heading outline to the full document text.
type Markdown struct{}

func (Markdown) Kind() Kind { return KindMarkdown }

func (Markdown) MimeTypes() []string {
	return []string{drive.MimeTypeMarkdown, drive.MimeTypeXMarkdown}
}

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()

func (Markdown) Extract(_ context.Context, item drive.Item, raw []byte) (string, error) {
	src := []byte(strings.ToValidUTF8(string(raw), ""))

	parts := []string{"MARKDOWN CONTENT - " + item.Name}
	if outline := Outline(src); len(outline) > 0 {
		parts = append(parts, "DOCUMENT STRUCTURE:\n"+strings.Join(outline, "\n"))
	}

	lines := strings.Split(string(src), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	parts = append(parts, "FULL CONTENT:\n"+strings.Join(lines, "\n"))
	return strings.Join(parts, "\n\n"), nil
}

// Outline returns one bullet per heading, indented two spaces per level below 1.
func Outline(src []byte) []string {
	doc := markdownParser.Parse(gmtext.NewReader(src))

	var headers []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		headers = append(headers, strings.Repeat("  ", h.Level-1)+"• "+inlineText(h, src))
		return ast.WalkSkipChildren, nil
	})
	return headers
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
