// Package preprocess prepares markup trees for comparison: it hides nodes that carry
// no content (comments, column groups) and strips inline annotation markers.
package preprocess

import (
	"github.com/dgallion1/docdiff/internal/doctree"
	"golang.org/x/net/html"
)

const (
	// MarkerAttr identifies a highlight marker span.
	MarkerAttr = "data-highlight-id"
	// MarkerClass identifies an inline comment marker span.
	MarkerClass = "inline-comment-marker"
)

// groupingTags never take part in comparison.
var groupingTags = map[string]bool{
	"colgroup": true,
}

// UsefulChildren returns the children of n that are neither comments nor grouping tags.
func UsefulChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if IsUseful(c) {
			out = append(out, c)
		}
	}
	return out
}

// IsUseful reports whether n counts as content.
func IsUseful(n *html.Node) bool {
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return false
	case html.ElementNode:
		return !groupingTags[n.Data]
	}
	return true
}

// IsMarker reports whether n is an annotation span: a highlight with a non-empty id or
// an inline comment marker.
func IsMarker(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Data != "span" {
		return false
	}
	return doctree.AttrOr(n, MarkerAttr) != "" || doctree.HasClass(n, MarkerClass)
}

// IsHighlight reports whether n is a span carrying the highlight attribute at all.
func IsHighlight(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Data != "span" {
		return false
	}
	_, ok := doctree.Attr(n, MarkerAttr)
	return ok
}

// StripMarkers unwraps every marker span below root and merges the text it leaves behind.
// The tree is modified in place.
func StripMarkers(root *html.Node) {
	stripChildren(root)
	doctree.Normalize(root)
}

func stripChildren(n *html.Node) {
	for _, c := range doctree.Children(n) {
		c = unwrap(c)
		if c != nil {
			stripChildren(c)
		}
	}
}

// unwrap replaces a marker with a copy of its first child, repeating while the
// replacement is itself a marker. Childless markers are removed. It returns the node
// now occupying the position, or nil when it was removed.
func unwrap(n *html.Node) *html.Node {
	for IsMarker(n) {
		if n.FirstChild == nil {
			n.Parent.RemoveChild(n)
			return nil
		}
		first := doctree.Clone(n.FirstChild)
		doctree.Replace(n, first)
		n = first
	}
	return n
}

// Prepare strips markers from root and normalizes its text nodes.
func Prepare(root *html.Node) {
	doctree.Normalize(root)
	StripMarkers(root)
}
