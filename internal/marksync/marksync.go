// Package marksync copies newly added highlight markers from one markup tree into an
// independently edited version of it.
//
// Markers are placed by text occurrence rather than by position: the n-th occurrence
// of a marker's text in the source is wrapped at the n-th occurrence in the destination.
// Placement is best effort. A marker whose surroundings cannot be aligned is dropped.
package marksync

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dgallion1/docdiff/internal/doctree"
	"github.com/dgallion1/docdiff/internal/match"
	"github.com/dgallion1/docdiff/internal/parser"
	"github.com/dgallion1/docdiff/internal/preprocess"
	"golang.org/x/net/html"
)

// Sync returns dest with every highlight marker of source whose id dest lacks.
// dest is returned verbatim when no marker could be placed. Otherwise the whole of
// dest is re-rendered, so entities and void tags come back in serializer form.
func Sync(source, dest string) (string, error) {
	if source == dest {
		return dest, nil
	}

	src, err := parser.ParseMarkup(source)
	if err != nil {
		return "", err
	}
	srcMarks := highlights(src)
	if len(srcMarks) == 0 {
		return dest, nil
	}

	dst, err := parser.ParseMarkup(dest)
	if err != nil {
		return "", err
	}

	known := mapset.NewThreadUnsafeSet[string]()
	for _, m := range highlights(dst) {
		known.Add(doctree.AttrOr(m, preprocess.MarkerAttr))
	}
	fresh := mapset.NewThreadUnsafeSet[string]()
	for _, m := range srcMarks {
		if id := doctree.AttrOr(m, preprocess.MarkerAttr); id != "" && !known.Contains(id) {
			fresh.Add(id)
		}
	}
	if fresh.IsEmpty() {
		return dest, nil
	}

	doctree.Normalize(src)
	doctree.Normalize(dst)

	s := &syncer{matcher: match.Default(), fresh: fresh}
	s.align(src, dst)
	if s.placed == 0 {
		return dest, nil
	}
	return doctree.InnerHTML(dst), nil
}

type syncer struct {
	matcher *match.Matcher
	fresh   mapset.Set[string]
	placed  int
}

func (s *syncer) align(source, dest *html.Node) {
	sourceKids := preprocess.UsefulChildren(source)

	for _, c := range sourceKids {
		if preprocess.IsHighlight(c) {
			for _, m := range highlights(source) {
				if s.isFresh(m) {
					s.place(source, dest, m)
				}
			}
			return
		}
	}

	destKids := preprocess.UsefulChildren(dest)
	used := mapset.NewThreadUnsafeSet[*html.Node]()
	for _, n := range sourceKids {
		if !doctree.IsElement(n) {
			continue
		}

		var similar *html.Node
		if match.SingleChild(sourceKids, destKids) {
			similar = destKids[0]
		} else {
			var candidates []*html.Node
			for _, d := range destKids {
				if !used.Contains(d) {
					candidates = append(candidates, d)
				}
			}
			similar = s.matcher.Find(n, candidates).Node
		}
		if similar == nil {
			continue
		}
		used.Add(similar)

		if doctree.NodeName(n) != doctree.NodeName(similar) || !s.containsFresh(n) {
			continue
		}
		s.align(n, similar)
	}
}

// place wraps the occurrence of marker's text in dest that corresponds to marker's
// occurrence in source. Destination occurrences are counted per text node, so one
// split across inline elements is not seen.
func (s *syncer) place(source, dest, marker *html.Node) {
	needle := doctree.TextContent(marker)
	if needle == "" {
		return
	}
	want := strings.Count(textBefore(source, marker), needle)

	// seen is the index of the last occurrence passed so far.
	seen := -1
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		for _, c := range preprocess.UsefulChildren(n) {
			switch {
			case doctree.IsText(c):
				count := strings.Count(c.Data, needle)
				if seen+count >= want {
					splice(c, needle, want-seen-1, marker)
					s.placed++
					return true
				}
				seen += count
			case doctree.IsElement(c):
				count := strings.Count(doctree.TextContent(c), needle)
				if seen+count < want {
					seen += count
					continue
				}
				// The occurrence is already covered by another marker.
				if preprocess.IsHighlight(c) {
					return true
				}
				if walk(c) {
					return true
				}
			}
		}
		return false
	}
	walk(dest)
}

// splice replaces text node t by the same text with its local-th occurrence of needle
// wrapped in a copy of marker.
func splice(t *html.Node, needle string, local int, marker *html.Node) {
	parts := strings.Split(t.Data, needle)
	pre := strings.Join(parts[:local+1], needle)
	post := strings.Join(parts[local+1:], needle)

	parent := t.Parent
	if pre != "" {
		parent.InsertBefore(doctree.NewText(pre), t)
	}
	parent.InsertBefore(doctree.Clone(marker), t)
	if post != "" {
		parent.InsertBefore(doctree.NewText(post), t)
	}
	parent.RemoveChild(t)
}

func (s *syncer) isFresh(n *html.Node) bool {
	id := doctree.AttrOr(n, preprocess.MarkerAttr)
	return id != "" && s.fresh.Contains(id)
}

func (s *syncer) containsFresh(n *html.Node) bool {
	for _, m := range highlights(n) {
		if s.isFresh(m) {
			return true
		}
	}
	return false
}

// highlights returns the highlight spans below n in document order.
func highlights(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if preprocess.IsHighlight(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// textBefore concatenates the text of root that precedes stop in document order.
func textBefore(root, stop *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c == stop {
				return true
			}
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return b.String()
}
