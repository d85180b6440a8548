package reader

import (
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// MarkdownFormat implements Format for Markdown files.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

// Extract parses the file with goldmark and splits chapters at headings.
// Text before the first heading becomes an untitled leading chapter.
func (f *MarkdownFormat) Extract(filename string) (*Document, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	root := md.Parser().Parse(gmtext.NewReader(src))

	doc := &Document{Title: docTitle(filename)}

	current := Chapter{Title: doc.Title}
	var blocks []string

	flush := func() {
		current.Text = strings.Join(blocks, "\n\n")
		if strings.TrimSpace(current.Text) != "" {
			doc.Chapters = append(doc.Chapters, current)
		}
		blocks = nil
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			flush()
			current = Chapter{Title: nodeText(h, src)}
			continue
		}
		if t := nodeText(n, src); t != "" {
			blocks = append(blocks, t)
		}
	}
	flush()

	return doc, nil
}

// nodeText collects the plain text beneath a block node.
func nodeText(n ast.Node, src []byte) string {
	var out strings.Builder
	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			out.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				out.WriteByte(' ')
			}
		case *ast.String:
			out.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(out.String())
}
