package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docdiff/internal/doctree"
	"golang.org/x/net/html"
)

// TextParser handles plain text files. Each blank-line separated paragraph becomes a <p>.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	paragraphs, err := splitParagraphs(r)
	if err != nil {
		return nil, err
	}

	tree := &doctree.DocTree{
		Title: trimExt(filename, ".txt"),
		Root:  doctree.NewRoot(),
	}
	for _, para := range paragraphs {
		tree.Root.AppendChild(paragraph(para))
	}
	return tree, nil
}

func splitParagraphs(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return paragraphs, nil
}

func paragraph(text string) *html.Node {
	p := doctree.NewElement("p")
	p.AppendChild(doctree.NewText(text))
	return p
}
