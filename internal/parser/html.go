package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docdiff/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser handles HTML files and markup fragments.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	tree := &doctree.DocTree{
		Title: trimExt(filename, ".html", ".htm"),
	}

	// Full documents keep only their <body>; anything else is treated as a fragment.
	if looksLikeDocument(src) {
		doc, err := html.Parse(strings.NewReader(string(src)))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		if title := findTitle(doc); title != "" {
			tree.Title = title
		}
		root := doctree.NewRoot()
		if body := findBody(doc); body != nil {
			for _, c := range doctree.Children(body) {
				body.RemoveChild(c)
				root.AppendChild(c)
			}
		}
		tree.Root = root
		return tree, nil
	}

	root, err := ParseMarkup(string(src))
	if err != nil {
		return nil, err
	}
	tree.Root = root
	return tree, nil
}

// ParseMarkup parses an HTML fragment into a synthetic root <div>. Attribute order and
// whitespace-only text nodes are preserved.
func ParseMarkup(markup string) (*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	root := doctree.NewRoot()
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

func looksLikeDocument(src []byte) bool {
	head := strings.ToLower(strings.TrimSpace(string(src[:min(len(src), 512)])))
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return strings.TrimSpace(doctree.TextContent(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
