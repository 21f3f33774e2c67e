// Command docdiff compares two documents from the command line.
//
// Usage:
//
//	docdiff diff OLD NEW [--format text|json] [--ignore attr ...] [--dump] [--verify]
//	docdiff sync SOURCE DEST [--out FILE]
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sanity-io/litter"
	"golang.org/x/net/html"

	"github.com/dgallion1/docdiff/internal/doctree"
	"github.com/dgallion1/docdiff/internal/marksync"
	"github.com/dgallion1/docdiff/internal/parser"
	"github.com/dgallion1/docdiff/internal/patch"
	"github.com/dgallion1/docdiff/internal/preprocess"
	"github.com/dgallion1/docdiff/internal/treediff"
)

// CLI defines the command-line interface for docdiff.
var CLI struct {
	Diff DiffCmd `cmd:"" help:"Print the patches turning OLD into NEW"`
	Sync SyncCmd `cmd:"" help:"Copy new highlight markers from SOURCE into DEST"`
}

// DiffCmd diffs two documents of any supported format.
type DiffCmd struct {
	From string `arg:"" help:"Original document" type:"existingfile"`
	To   string `arg:"" help:"Changed document" type:"existingfile"`

	Format      string   `enum:"text,json" default:"text" help:"Output format (text, json)"`
	Ignore      []string `help:"Additional attributes to ignore" sep:","`
	MaxDepth    int      `name:"max-depth" default:"512" help:"Maximum nesting depth to diff"`
	Dump        bool     `help:"Dump the raw patch views instead of a report"`
	PDFFallback bool     `name:"pdf-fallback" help:"Use pdftotext when PDF extraction yields no text"`
	Verify      bool     `help:"Fail unless reverting the patches on NEW rebuilds OLD"`
}

func (c *DiffCmd) Run(ctx *kong.Context) error {
	popts := parser.Options{PDFFallbackPdftotext: c.PDFFallback}
	from, err := parseFile(c.From, popts)
	if err != nil {
		return err
	}
	to, err := parseFile(c.To, popts)
	if err != nil {
		return err
	}

	opts := treediff.DefaultOptions().Merge(c.Ignore...)
	opts.MaxDepth = c.MaxDepth
	opts.InPlace = true
	original := doctree.Clone(from.Root)
	res := treediff.Diff(from.Root, to.Root, opts)
	views := patch.Encode(res.Patches)

	switch {
	case c.Dump:
		dumper := litter.Options{HidePrivateFields: true, StripPackageNames: true}
		fmt.Fprintln(ctx.Stdout, dumper.Sdump(views))
	case c.Format == "json":
		enc := json.NewEncoder(ctx.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{"patches": views, "truncated": res.Truncated}); err != nil {
			return fmt.Errorf("encode patches: %w", err)
		}
	default:
		writeReport(ctx.Stdout, from.Title, to.Title, views, res.Truncated)
	}

	if c.Verify {
		return verify(original, res, opts)
	}
	return nil
}

// verify reverts res and compares the outcome with the original tree. Ignored
// attributes are left out of the comparison since no patch describes them.
func verify(original *html.Node, res treediff.Result, opts treediff.Options) error {
	if res.Truncated {
		return errors.New("verify: diff was truncated by --max-depth")
	}
	preprocess.Prepare(original)
	reverted := treediff.Revert(res)
	dropAttrs(original, opts.IgnoredAttributes)
	dropAttrs(reverted, opts.IgnoredAttributes)
	if !doctree.Equal(original, reverted) {
		return errors.New("verify: reverting the patches does not rebuild the original document")
	}
	return nil
}

func dropAttrs(n *html.Node, names mapset.Set[string]) {
	for _, name := range names.ToSlice() {
		doctree.RemoveAttr(n, name)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		dropAttrs(c, names)
	}
}

// SyncCmd propagates highlight markers between two markup files.
type SyncCmd struct {
	Source string `arg:"" help:"Markup carrying the new markers" type:"existingfile"`
	Dest   string `arg:"" help:"Markup to receive them" type:"existingfile"`
	Out    string `help:"Write the result here instead of stdout" type:"path"`
}

func (c *SyncCmd) Run(ctx *kong.Context) error {
	source, err := os.ReadFile(c.Source)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	dest, err := os.ReadFile(c.Dest)
	if err != nil {
		return fmt.Errorf("read destination: %w", err)
	}

	result, err := marksync.Sync(string(source), string(dest))
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if c.Out == "" {
		fmt.Fprintln(ctx.Stdout, result)
		return nil
	}
	if err := os.WriteFile(c.Out, []byte(result), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.Out, err)
	}
	return nil
}

func parseFile(path string, opts parser.Options) (*doctree.DocTree, error) {
	p, err := parser.ForFile(path, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tree, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return tree, nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("docdiff"),
		kong.Description("Structural diff for HTML, Markdown, text, CSV, DOCX and PDF documents"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
