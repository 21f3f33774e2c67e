package treediff

import (
	"testing"

	"github.com/dgallion1/docdiff/internal/doctree"
	"github.com/dgallion1/docdiff/internal/parser"
	"github.com/dgallion1/docdiff/internal/patch"
	"github.com/dgallion1/docdiff/internal/preprocess"
	"github.com/google/go-cmp/cmp"
)

func diffMarkup(t *testing.T, from, to string, opts Options) Result {
	t.Helper()
	res, err := DiffMarkup(from, to, opts)
	if err != nil {
		t.Fatalf("DiffMarkup: %v", err)
	}
	return res
}

func actions(patches []*patch.Patch) []patch.Action {
	out := make([]patch.Action, 0, len(patches))
	for _, p := range patches {
		out = append(out, p.Action)
	}
	return out
}

func TestDiff_IdenticalTreesProduceNoPatches(t *testing.T) {
	docs := []string{
		`<p>Hello world</p>`,
		`<h1 id="top">Title</h1><p>first</p><p>second</p>`,
		`<ul><li>A</li><li>B</li></ul><img src="a.png" width="10">`,
		`<table><tbody><tr><th>Name</th><td>Value</td></tr></tbody></table>`,
		``,
	}
	for _, doc := range docs {
		res := diffMarkup(t, doc, doc, DefaultOptions())
		if len(res.Patches) != 0 {
			t.Errorf("%q: expected no patches, got %v", doc, actions(res.Patches))
		}
	}
}

func TestDiff_ModifiedText(t *testing.T) {
	res := diffMarkup(t, `<p>Hello world</p>`, `<p>Hello there</p>`, DefaultOptions())
	if len(res.Patches) != 1 {
		t.Fatalf("expected 1 patch, got %v", actions(res.Patches))
	}
	p := res.Patches[0]
	if p.Action != patch.ModifyText {
		t.Fatalf("expected %s, got %s", patch.ModifyText, p.Action)
	}
	if p.OldValue != "Hello world" || p.NewValue != "Hello there" {
		t.Errorf("unexpected values %q -> %q", p.OldValue, p.NewValue)
	}
}

func TestDiff_ImageSizeChangeReplaces(t *testing.T) {
	res := diffMarkup(t, `<div><img src="a.png" width="10"></div>`, `<div><img src="a.png" width="20"></div>`, DefaultOptions())
	if diff := cmp.Diff([]patch.Action{patch.Replace}, actions(res.Patches)); diff != "" {
		t.Fatalf("actions mismatch (-want +got):\n%s", diff)
	}
	if got := doctree.AttrOr(res.Patches[0].Node, "width"); got != "20" {
		t.Errorf("expected replacement to carry new width, got %q", got)
	}
	if got := doctree.AttrOr(res.Patches[0].Old, "width"); got != "10" {
		t.Errorf("expected replaced node to carry old width, got %q", got)
	}
}

func TestDiff_LinkTargetChangeReplaces(t *testing.T) {
	res := diffMarkup(t, `<p><a href="/a">docs</a></p>`, `<p><a href="/b">docs</a></p>`, DefaultOptions())
	if diff := cmp.Diff([]patch.Action{patch.Replace}, actions(res.Patches)); diff != "" {
		t.Fatalf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestDiff_RemovedListItemAnchorsBeforeSurvivor(t *testing.T) {
	res := diffMarkup(t, `<ul><li>A</li><li>B</li></ul>`, `<ul><li>B</li></ul>`, DefaultOptions())
	if len(res.Patches) != 1 {
		t.Fatalf("expected 1 patch, got %v", actions(res.Patches))
	}
	p := res.Patches[0]
	if p.Action != patch.RemoveElement {
		t.Fatalf("expected %s, got %s", patch.RemoveElement, p.Action)
	}
	if got := doctree.OuterHTML(p.Node); got != "<li>A</li>" {
		t.Errorf("expected removed <li>A</li>, got %s", got)
	}
	if p.Anchor.Kind != patch.AnchorBefore || doctree.OuterHTML(p.Anchor.Node) != "<li>B</li>" {
		t.Errorf("expected anchor before <li>B</li>, got %s", p.Anchor.Kind)
	}
	if p.Anchor.Node.Parent == nil || p.Anchor.Node.Parent.Data != "ul" {
		t.Error("expected anchor to be a node of the changed tree")
	}
}

func TestDiff_RemovedTrailingNodeAnchorsAfter(t *testing.T) {
	res := diffMarkup(t, `<p>one</p><p>two</p>`, `<p>one</p>`, DefaultOptions())
	if len(res.Patches) != 1 {
		t.Fatalf("expected 1 patch, got %v", actions(res.Patches))
	}
	p := res.Patches[0]
	if p.Action != patch.RemoveElement || p.Anchor.Kind != patch.AnchorAfter {
		t.Fatalf("expected removal anchored after, got %s %s", p.Action, p.Anchor.Kind)
	}
	if got := doctree.OuterHTML(p.Anchor.Node); got != "<p>one</p>" {
		t.Errorf("unexpected anchor %s", got)
	}
}

func TestDiff_EverythingRemoved(t *testing.T) {
	res := diffMarkup(t, `<p>x</p>`, ``, DefaultOptions())
	if len(res.Patches) != 1 {
		t.Fatalf("expected 1 patch, got %v", actions(res.Patches))
	}
	if got := res.Patches[0].Anchor.Kind; got != patch.AnchorNone {
		t.Errorf("expected no anchor at the root, got %s", got)
	}

	res = diffMarkup(t, `<div><p>x</p></div>`, `<div></div>`, DefaultOptions())
	if len(res.Patches) != 1 {
		t.Fatalf("expected 1 patch, got %v", actions(res.Patches))
	}
	p := res.Patches[0]
	if p.Anchor.Kind != patch.AnchorIn || p.Anchor.Node.Data != "div" {
		t.Errorf("expected removal inside the emptied div, got %s", p.Anchor.Kind)
	}
}

func TestDiff_InsertionBetweenMatches(t *testing.T) {
	res := diffMarkup(t, `<p>one</p><p>three</p>`, `<p>one</p><p>two</p><p>three</p>`, DefaultOptions())
	if diff := cmp.Diff([]patch.Action{patch.AddElement}, actions(res.Patches)); diff != "" {
		t.Fatalf("actions mismatch (-want +got):\n%s", diff)
	}
	if got := doctree.OuterHTML(res.Patches[0].Node); got != "<p>two</p>" {
		t.Errorf("unexpected inserted node %s", got)
	}
}

func TestDiff_AppendedNode(t *testing.T) {
	res := diffMarkup(t, `<p>one</p>`, `<p>one</p><p>two</p>`, DefaultOptions())
	if diff := cmp.Diff([]patch.Action{patch.AddElement}, actions(res.Patches)); diff != "" {
		t.Fatalf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestDiff_HeaderCellBecomesDataCell(t *testing.T) {
	res := diffMarkup(t,
		`<table><tbody><tr><th>X</th></tr></tbody></table>`,
		`<table><tbody><tr><td>X</td></tr></tbody></table>`,
		DefaultOptions())
	if len(res.Patches) != 1 {
		t.Fatalf("expected 1 patch, got %v", actions(res.Patches))
	}
	p := res.Patches[0]
	if p.Action != patch.TagChanged || p.OldTag != "th" || p.NewTag != "td" {
		t.Errorf("unexpected patch %s %s -> %s", p.Action, p.OldTag, p.NewTag)
	}
}

func TestDiff_TextWrappedInElement(t *testing.T) {
	res := diffMarkup(t, `hello`, `<b>hello</b>`, DefaultOptions())
	if len(res.Patches) != 1 {
		t.Fatalf("expected 1 patch, got %v", actions(res.Patches))
	}
	p := res.Patches[0]
	if p.Action != patch.TagChanged || p.OldTag != "#text" || p.NewTag != "b" {
		t.Errorf("unexpected patch %s %s -> %s", p.Action, p.OldTag, p.NewTag)
	}
}

func TestDiff_AttributeChanges(t *testing.T) {
	res := diffMarkup(t, `<p class="a" style="color:#ff0000">x</p>`, `<p class="b" style="color: rgb(255, 0, 0)">x</p>`, DefaultOptions())
	if len(res.Patches) != 1 {
		t.Fatalf("expected 1 patch, got %v", actions(res.Patches))
	}
	p := res.Patches[0]
	if p.Action != patch.ModifyAttribute || p.Name != "class" {
		t.Errorf("unexpected patch %s %s", p.Action, p.Name)
	}
}

func TestDiff_IgnoredAttributesNeverReported(t *testing.T) {
	res := diffMarkup(t,
		`<table><tbody><tr><td colspan="1" rowspan="2" colwidth="10">x</td></tr></tbody></table>`,
		`<table><tbody><tr><td colspan="3" rowspan="1" colwidth="40">x</td></tr></tbody></table>`,
		DefaultOptions())
	if len(res.Patches) != 0 {
		t.Fatalf("expected ignored attributes to be skipped, got %v", actions(res.Patches))
	}

	from, to := `<p class="a">x</p>`, `<p class="b">x</p>`
	if res := diffMarkup(t, from, to, DefaultOptions()); len(res.Patches) != 1 {
		t.Fatalf("expected class change to be reported, got %v", actions(res.Patches))
	}
	if res := diffMarkup(t, from, to, DefaultOptions().Merge("class")); len(res.Patches) != 0 {
		t.Fatalf("expected merged ignore-list to suppress class, got %v", actions(res.Patches))
	}
}

func TestDiff_MarkersAreTransparent(t *testing.T) {
	res := diffMarkup(t,
		`<p>foo <span data-highlight-id="1">bar</span> baz</p>`,
		`<p>foo bar baz</p>`,
		DefaultOptions())
	if len(res.Patches) != 0 {
		t.Fatalf("expected markers to be stripped before diffing, got %v", actions(res.Patches))
	}
}

func TestDiff_DoesNotMutateInputs(t *testing.T) {
	from, err := parser.ParseMarkup(`<p>a <span data-highlight-id="1">b</span></p>`)
	if err != nil {
		t.Fatal(err)
	}
	to, err := parser.ParseMarkup(`<p>a c</p>`)
	if err != nil {
		t.Fatal(err)
	}
	beforeFrom, beforeTo := doctree.InnerHTML(from), doctree.InnerHTML(to)

	res := Diff(from, to, DefaultOptions())
	if len(res.Patches) == 0 {
		t.Fatal("expected patches")
	}
	if res.Origin == from || res.Changed == to {
		t.Error("expected Diff to work on copies")
	}
	if got := doctree.InnerHTML(from); got != beforeFrom {
		t.Errorf("origin mutated: %s", got)
	}
	if got := doctree.InnerHTML(to); got != beforeTo {
		t.Errorf("changed mutated: %s", got)
	}
}

func TestDiff_MaxDepthTruncates(t *testing.T) {
	from := `<div><div><p>a</p></div></div>`
	to := `<div><div><p>b</p></div></div>`

	opts := DefaultOptions()
	opts.MaxDepth = 1
	res := diffMarkup(t, from, to, opts)
	if !res.Truncated {
		t.Error("expected truncated result")
	}
	if len(res.Patches) != 0 {
		t.Errorf("expected no patches below the depth limit, got %v", actions(res.Patches))
	}

	res = diffMarkup(t, from, to, DefaultOptions())
	if res.Truncated || len(res.Patches) != 1 {
		t.Errorf("expected one patch without truncation, got %v (truncated=%v)", actions(res.Patches), res.Truncated)
	}
}

func TestOptions_Merge(t *testing.T) {
	base := DefaultOptions()
	merged := base.Merge("class")
	if !merged.IgnoredAttributes.Contains("class") || !merged.IgnoredAttributes.Contains("colspan") {
		t.Error("expected merged set to hold defaults and extras")
	}
	if base.IgnoredAttributes.Contains("class") {
		t.Error("Merge must not modify the receiver's set")
	}

	var zero Options
	if !zero.Merge("x").IgnoredAttributes.Contains("data-highlight-id") {
		t.Error("expected zero options to start from the default ignore-list")
	}
}

func TestDiff_SiblingAlignment(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		want     []patch.Action
		nodes    []string
	}{
		{
			name: "skipping one sibling wanted later inserts instead",
			from: `<p>alpha beta gamma</p><p>delta epsilon zeta</p>`,
			to:   `<p>delta epsilon zetas</p><p>alpha beta gamma</p>`,
			want: []patch.Action{patch.RemoveElement, patch.AddElement},
			nodes: []string{
				`<p>delta epsilon zeta</p>`,
				`<p>delta epsilon zetas</p>`,
			},
		},
		{
			name: "skipping several siblings pairs with the first",
			from: `<p>first original paragraph</p><p>alpha beta gamma</p><p>delta epsilon zeta</p>`,
			to:   `<p>delta epsilon zetas</p><p>alpha beta gamma</p>`,
			want: []patch.Action{patch.RemoveElement, patch.ModifyText},
			nodes: []string{
				`<p>delta epsilon zeta</p>`,
				`delta epsilon zetas`,
			},
		},
		{
			name:  "weak match yields to an exact next sibling",
			from:  `<p>alpha beta gamma</p>`,
			to:    `<p>alpha beta gamma!!</p><p>alpha beta gamma</p>`,
			want:  []patch.Action{patch.AddElement},
			nodes: []string{`<p>alpha beta gamma!!</p>`},
		},
		{
			name:  "unmatched node falls back to the first remaining sibling",
			from:  `<p>alpha beta gamma</p><h2>Tail</h2>`,
			to:    `<p>completely different words</p><h2>Tail</h2>`,
			want:  []patch.Action{patch.ModifyText},
			nodes: []string{`completely different words`},
		},
		{
			name: "fallback yields when a later node claims the sibling",
			from: `<p>alpha beta gamma</p>`,
			to:   `<p>completely different words</p><p>alpha beta gamma!</p>`,
			want: []patch.Action{patch.AddElement, patch.ModifyText},
			nodes: []string{
				`<p>completely different words</p>`,
				`alpha beta gamma!`,
			},
		},
		{
			name: "trailing removals come first, leading ones keep their order",
			from: `<p>keep one</p><h2>x1</h2><h3>x2</h3><p>keep two</p><h4>y1</h4><h5>y2</h5>`,
			to:   `<p>keep one</p><p>keep two</p>`,
			want: []patch.Action{patch.RemoveElement, patch.RemoveElement, patch.RemoveElement, patch.RemoveElement},
			nodes: []string{
				`<h5>y2</h5>`,
				`<h4>y1</h4>`,
				`<h2>x1</h2>`,
				`<h3>x2</h3>`,
			},
		},
		{
			name: "removal next to an insertion becomes a modification",
			from: `<h1>A</h1><p>hello world ones</p><p>hello world one</p>`,
			to:   `<h1>A</h1><p class="n">brand new text</p><p>hello world one</p>`,
			want: []patch.Action{patch.AddAttribute, patch.ModifyText},
			nodes: []string{
				`<p class="n">brand new text</p>`,
				`brand new text`,
			},
		},
		{
			name: "merged removal and insertion with different tags report the retag",
			from: `<h1>A</h1><p>hello world ones</p><p>hello world one</p>`,
			to:   `<h1>A</h1><ul><li>x</li></ul><p>hello world one</p>`,
			want: []patch.Action{patch.TagChanged, patch.Replace},
			nodes: []string{
				`<ul><li>x</li></ul>`,
				`<li>x</li>`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := diffMarkup(t, tt.from, tt.to, DefaultOptions())
			if diff := cmp.Diff(tt.want, actions(res.Patches)); diff != "" {
				t.Fatalf("actions mismatch (-want +got):\n%s", diff)
			}
			var nodes []string
			for _, p := range res.Patches {
				nodes = append(nodes, doctree.OuterHTML(p.Node))
			}
			if diff := cmp.Diff(tt.nodes, nodes); diff != "" {
				t.Errorf("patch nodes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiff_RemovalAnchorsFollowSurvivors(t *testing.T) {
	res := diffMarkup(t,
		`<p>keep one</p><h2>x1</h2><h3>x2</h3><p>keep two</p><h4>y1</h4><h5>y2</h5>`,
		`<p>keep one</p><p>keep two</p>`,
		DefaultOptions())
	want := []patch.AnchorKind{patch.AnchorAfter, patch.AnchorAfter, patch.AnchorBefore, patch.AnchorBefore}
	var got []patch.AnchorKind
	for _, p := range res.Patches {
		got = append(got, p.Anchor.Kind)
		if s := doctree.OuterHTML(p.Anchor.Node); s != "<p>keep two</p>" {
			t.Errorf("expected removals anchored on <p>keep two</p>, got %s", s)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("anchor kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestDiff_MergedRetagNamesBothTags(t *testing.T) {
	res := diffMarkup(t,
		`<h1>A</h1><p>hello world ones</p><p>hello world one</p>`,
		`<h1>A</h1><ul><li>x</li></ul><p>hello world one</p>`,
		DefaultOptions())
	if len(res.Patches) == 0 {
		t.Fatal("expected patches")
	}
	p := res.Patches[0]
	if p.Action != patch.TagChanged || p.OldTag != "p" || p.NewTag != "ul" {
		t.Errorf("unexpected patch %s %s -> %s", p.Action, p.OldTag, p.NewTag)
	}
}

func TestRevert_RebuildsOriginal(t *testing.T) {
	pairs := [][2]string{
		{`<p>Hello world</p>`, `<p>Hello there</p>`},
		{`<div><img src="a.png" width="10"></div>`, `<div><img src="a.png" width="20"></div>`},
		{`<ul><li>A</li><li>B</li></ul>`, `<ul><li>B</li></ul>`},
		{`<p>x</p>`, ``},
		{`<div><p>x</p></div>`, `<div></div>`},
		{`<p>one</p><p>three</p>`, `<p>one</p><p>two</p><p>three</p>`},
		{`<table><tbody><tr><th>X</th></tr></tbody></table>`, `<table><tbody><tr><td>X</td></tr></tbody></table>`},
		{`hello`, `<b>hello</b>`},
		{`<p class="a" title="t">x</p>`, `<p class="b" lang="en">x</p>`},
		{`<p><a href="/a">docs</a></p>`, `<p><a href="/b">docs</a></p>`},
		{`<p>alpha beta gamma</p><p>delta epsilon zeta</p>`, `<p>delta epsilon zetas</p><p>alpha beta gamma</p>`},
		{`<p>first original paragraph</p><p>alpha beta gamma</p><p>delta epsilon zeta</p>`, `<p>delta epsilon zetas</p><p>alpha beta gamma</p>`},
		{`<p>alpha beta gamma</p>`, `<p>alpha beta gamma!!</p><p>alpha beta gamma</p>`},
		{`<p>keep one</p><h2>x1</h2><h3>x2</h3><p>keep two</p><h4>y1</h4><h5>y2</h5>`, `<p>keep one</p><p>keep two</p>`},
		{`<h1>A</h1><p>hello world ones</p><p>hello world one</p>`, `<h1>A</h1><p class="n">brand new text</p><p>hello world one</p>`},
		{`<h1>A</h1><p>hello world ones</p><p>hello world one</p>`, `<h1>A</h1><ul><li>x</li></ul><p>hello world one</p>`},
	}
	for _, pair := range pairs {
		for _, dir := range [][2]string{{pair[0], pair[1]}, {pair[1], pair[0]}} {
			from, to := dir[0], dir[1]
			want, err := parser.ParseMarkup(from)
			if err != nil {
				t.Fatal(err)
			}
			preprocess.Prepare(want)

			res := diffMarkup(t, from, to, DefaultOptions())
			n := len(res.Patches)
			if got := Revert(res); !doctree.Equal(want, got) {
				t.Errorf("%q -> %q: reverting %d patches gave %s", from, to, n, doctree.InnerHTML(got))
			}
		}
	}
}
