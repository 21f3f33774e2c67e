package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/docdiff/internal/doctree"
	"golang.org/x/net/html"
)

// CSVParser handles CSV files. The first row becomes a header row of <th> cells.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{
		Title: trimExt(filename, ".csv"),
		Root:  doctree.NewRoot(),
	}

	if len(records) == 0 {
		return tree, nil
	}

	table := doctree.NewElement("table")
	thead := doctree.NewElement("thead")
	thead.AppendChild(row("th", records[0]))
	table.AppendChild(thead)

	tbody := doctree.NewElement("tbody")
	for _, rec := range records[1:] {
		tbody.AppendChild(row("td", rec))
	}
	table.AppendChild(tbody)
	tree.Root.AppendChild(table)

	return tree, nil
}

func row(cellTag string, cells []string) *html.Node {
	tr := doctree.NewElement("tr")
	for _, cell := range cells {
		c := doctree.NewElement(cellTag)
		if cell != "" {
			c.AppendChild(doctree.NewText(cell))
		}
		tr.AppendChild(c)
	}
	return tr
}
