package parser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dgallion1/docdiff/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. The rendered HTML is parsed
// into the same tree shape as HTML input so both compare on equal terms.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var out bytes.Buffer
	if err := md.Renderer().Render(&out, src, doc); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	root, err := ParseMarkup(out.String())
	if err != nil {
		return nil, err
	}

	tree := &doctree.DocTree{
		Title: trimExt(filename, ".md", ".markdown"),
		Root:  root,
	}
	if title := firstHeading(doc, src); title != "" {
		tree.Title = title
	}
	return tree, nil
}

// firstHeading returns the text of the first level-1 heading, if any.
func firstHeading(doc ast.Node, src []byte) string {
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			return extractText(h, src)
		}
	}
	return ""
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
		} else {
			buf.WriteString(extractText(c, src))
		}
	}
	return buf.String()
}
