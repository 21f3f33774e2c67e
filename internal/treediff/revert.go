package treediff

import (
	"github.com/dgallion1/docdiff/internal/doctree"
	"github.com/dgallion1/docdiff/internal/patch"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Revert undoes res.Patches on res.Changed and returns it, now holding the content of
// the original tree. Removed and replaced nodes are moved out of res.Origin, so neither
// tree of res should be used afterwards.
//
// Attributes named in the ignore-list and nodes below a truncated depth are not
// restored, since no patch describes them.
func Revert(res Result) *html.Node {
	var swaps, added []*patch.Patch
	for _, p := range res.Patches {
		switch {
		case p.IsRemoval():
			restore(res.Changed, p)
		case p.IsAttribute():
			revertAttribute(p)
		case p.Action == patch.ModifyText:
			p.Node.Data = p.OldValue
		case p.Action == patch.Replace, p.Action == patch.TagChanged:
			swaps = append(swaps, p)
		case p.Action == patch.AddText, p.Action == patch.AddElement:
			added = append(added, p)
		}
	}

	// Removal anchors may name nodes swapped out here, so swaps run after every
	// removal is back in place.
	for _, p := range swaps {
		switch {
		case p.Action == patch.Replace:
			doctree.Replace(p.Node, detach(p.Old))
		case p.OldTag == "#text":
			doctree.Replace(p.Node, doctree.NewText(doctree.TextContent(p.Node)))
		default:
			p.Node.Data = p.OldTag
			p.Node.DataAtom = atom.Lookup([]byte(p.OldTag))
		}
	}
	for _, p := range added {
		detach(p.Node)
	}
	return res.Changed
}

// restore puts a removed node back at its anchor. Removals sharing an After or In
// anchor arrive last-first, so each is inserted directly at the anchor.
func restore(root *html.Node, p *patch.Patch) {
	n := detach(p.Node)
	a := p.Anchor
	switch a.Kind {
	case patch.AnchorBefore:
		a.Node.Parent.InsertBefore(n, a.Node)
	case patch.AnchorAfter:
		a.Node.Parent.InsertBefore(n, a.Node.NextSibling)
	case patch.AnchorIn:
		a.Node.InsertBefore(n, a.Node.FirstChild)
	default:
		root.InsertBefore(n, root.FirstChild)
	}
}

func revertAttribute(p *patch.Patch) {
	switch p.Action {
	case patch.AddAttribute:
		doctree.RemoveAttr(p.Node, p.Name)
	case patch.RemoveAttribute:
		doctree.SetAttr(p.Node, p.Name, p.Value)
	case patch.ModifyAttribute:
		doctree.SetAttr(p.Node, p.Name, p.OldValue)
	}
}

func detach(n *html.Node) *html.Node {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	return n
}
