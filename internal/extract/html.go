package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sagerock/google-drive-to-qdrant/internal/drive"
)

// HTML drops script and style content, keeps the title apart and flattens
// the remaining text one line per text run.
type HTML struct{}

func (HTML) Kind() Kind { return KindHTML }

func (HTML) MimeTypes() []string { return []string{drive.MimeTypeHTML} }

func (HTML) Extract(_ context.Context, item drive.Item, raw []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var title string
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			case atom.Title:
				if title == "" {
					title = strings.TrimSpace(textOf(n))
				}
			}
		}
		if n.Type == html.TextNode {
			for _, line := range strings.Split(n.Data, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var b strings.Builder
	fmt.Fprintf(&b, "HTML CONTENT - %s\n\n", item.Name)
	if title != "" {
		fmt.Fprintf(&b, "TITLE: %s\n\n", title)
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String(), nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		} else {
			b.WriteString(textOf(c))
		}
	}
	return b.String()
}
