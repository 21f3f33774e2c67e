// Package treediff computes an ordered list of patches turning one markup tree into
// another.
//
// Sibling lists are aligned left to right: every node of the changed list is matched
// against the not yet consumed remainder of the original list, so matches never cross.
// Matched pairs are diffed recursively; unmatched changed nodes become insertions and
// unconsumed original nodes become removals anchored to their surviving neighbours.
package treediff

import (
	"slices"

	"github.com/dgallion1/docdiff/internal/attrdiff"
	"github.com/dgallion1/docdiff/internal/doctree"
	"github.com/dgallion1/docdiff/internal/match"
	"github.com/dgallion1/docdiff/internal/parser"
	"github.com/dgallion1/docdiff/internal/patch"
	"github.com/dgallion1/docdiff/internal/preprocess"
	"golang.org/x/net/html"
)

// Result holds the patches of a diff together with the trees they reference.
type Result struct {
	Patches []*patch.Patch
	// Origin and Changed are the trees the patches point into. Unless InPlace was
	// requested these are private copies of the inputs.
	Origin  *html.Node
	Changed *html.Node
	// Truncated is set when MaxDepth stopped the diff from descending further.
	Truncated bool
}

// identityAttrs lists, per tag, attributes that define what an element is. A change to
// any of them replaces the element rather than patching it.
var identityAttrs = map[string][]string{
	"img": {"src", "width", "height"},
	"a":   {"href"},
}

// Diff compares origin with changed. Both are treated as container nodes; only their
// children are aligned.
func Diff(origin, changed *html.Node, opts Options) Result {
	opts = opts.withDefaults()
	if !opts.InPlace {
		origin = doctree.Clone(origin)
		changed = doctree.Clone(changed)
	}
	preprocess.Prepare(origin)
	preprocess.Prepare(changed)

	r := &run{
		opts:    opts,
		matcher: match.New(opts.Thresholds),
		memo:    make(map[*html.Node]*html.Node),
	}
	patches := r.diffChildren(origin, changed, 0)
	return Result{
		Patches:   patches,
		Origin:    origin,
		Changed:   changed,
		Truncated: r.truncated,
	}
}

// DiffMarkup parses both fragments and diffs them.
func DiffMarkup(from, to string, opts Options) (Result, error) {
	origin, err := parser.ParseMarkup(from)
	if err != nil {
		return Result{}, err
	}
	changed, err := parser.ParseMarkup(to)
	if err != nil {
		return Result{}, err
	}
	opts.InPlace = true
	return Diff(origin, changed, opts), nil
}

// run is the state of a single Diff call.
type run struct {
	opts    Options
	matcher *match.Matcher
	// memo maps a changed node to the original node a lookahead reserved for it.
	memo      map[*html.Node]*html.Node
	truncated bool
}

// level tracks consumption of one original sibling list.
type level struct {
	frontier int                // highest consumed original index, -1 before any
	consumed []int              // consumed indexes, descending
	pairedTo map[int]*html.Node // consumed original index -> changed node
}

func (l *level) consume(i int, to *html.Node) {
	l.consumed = append(l.consumed, i)
	slices.SortFunc(l.consumed, func(a, b int) int { return b - a })
	l.frontier = l.consumed[0]
	l.pairedTo[i] = to
}

// previous returns the highest consumed index below i.
func (l *level) previous(i int) (int, bool) {
	for _, c := range l.consumed {
		if c < i {
			return c, true
		}
	}
	return 0, false
}

func (r *run) diffChildren(origin, changed *html.Node, depth int) []*patch.Patch {
	if depth > r.opts.MaxDepth {
		r.truncated = true
		return nil
	}

	t := r.opts.Thresholds
	originKids := preprocess.UsefulChildren(origin)
	changedKids := preprocess.UsefulChildren(changed)
	lv := &level{frontier: -1, pairedTo: make(map[int]*html.Node)}

	var patches []*patch.Patch

	for idx := range changedKids {
		to := changedKids[idx]
		start := lv.frontier + 1
		window := originKids[min(start, len(originKids)):]
		later := changedKids[idx+1:]

		var similar *html.Node
		insertion := false

		if match.SingleChild(originKids, changedKids) {
			similar = originKids[0]
		} else if reserved, ok := r.memo[to]; ok {
			similar = reserved
		} else {
			res := r.matcher.Find(to, window)
			similar = res.Node
			lookahead := true

			// A skip over window[0] is only accepted if no skipped node is wanted
			// more strongly by a later changed node.
			if similar != nil && similar != window[0] {
				at := slices.Index(originKids, similar)
				for i := start; i < at; i++ {
					if r.matcher.FindAbove(originKids[i], later, res.Score+1).Node == nil {
						continue
					}
					if i > start {
						similar = window[0]
						lookahead = false
					} else {
						similar = nil
						insertion = true
					}
					break
				}
			}

			// A weak match yields to the next changed node if that one is an exact fit.
			if lookahead && similar != nil && res.Score < t.NearExact && len(later) > 0 {
				if better := r.matcher.FindAbove(similar, later[:1], t.Exact); better.Node != nil {
					r.memo[better.Node] = similar
					similar = nil
					insertion = true
				}
			}
		}

		// Fall back to positional pairing unless a later node claims window[0].
		if !insertion && similar == nil && len(window) > 0 {
			if r.matcher.FindAbove(window[0], later, t.High).Node == nil {
				similar = window[0]
			}
		}

		current := -1
		if similar != nil {
			if i := slices.Index(window, similar); i >= 0 {
				current = start + i
			} else {
				similar = nil
			}
		}
		if current >= 0 {
			lv.consume(current, to)
		}

		if similar == nil {
			patches = append(patches, patch.Add(to))
			continue
		}

		switch {
		case doctree.NodeName(to) == doctree.NodeName(similar):
			patches = append(patches, r.diffPair(similar, to, depth)...)
		case match.EquivalentTags(to, similar):
			patches = append(patches, patch.Retag(doctree.NodeName(similar), doctree.NodeName(to), to))
			patches = append(patches, r.diffPair(similar, to, depth)...)
		case (doctree.IsText(similar) || doctree.IsText(to)) &&
			doctree.TextContent(similar) == doctree.TextContent(to):
			newTag := doctree.NodeName(to)
			if doctree.IsText(to) {
				span := doctree.NewElement("span")
				doctree.Wrap(to, span)
				to = span
				changedKids[idx] = span
				lv.pairedTo[current] = span
			}
			patches = append(patches, patch.Retag(doctree.NodeName(similar), newTag, to))
		default:
			patches = append(patches, patch.ReplaceNode(similar, to))
		}
	}

	return r.sweepRemovals(patches, originKids, changedKids, changed, lv, depth)
}

// sweepRemovals emits a removal for every original node that was never consumed.
func (r *run) sweepRemovals(patches []*patch.Patch, originKids, changedKids []*html.Node, changed *html.Node, lv *level, depth int) []*patch.Patch {
	for i, n := range originKids {
		if _, ok := lv.pairedTo[i]; ok {
			continue
		}

		var before *html.Node
		for j := i + 1; j < len(originKids); j++ {
			if m, ok := lv.pairedTo[j]; ok {
				before = m
				break
			}
		}

		var removal *patch.Patch
		switch {
		case before != nil:
			removal = patch.Remove(n, patch.Before(before))
			patches = append(patches, removal)
		case len(changedKids) == 0:
			anchor := patch.In(changed)
			if doctree.IsRoot(changed) {
				anchor = patch.None()
			}
			removal = patch.Remove(n, anchor)
			patches = slices.Insert(patches, 0, removal)
		default:
			if prev, ok := lv.previous(i); ok {
				removal = patch.Remove(n, patch.After(lv.pairedTo[prev]))
				patches = slices.Insert(patches, 0, removal)
			} else {
				removal = patch.Remove(n, patch.Before(changedKids[0]))
				patches = append(patches, removal)
			}
		}

		patches = r.coalesce(patches, removal, depth)
	}
	return patches
}

// coalesce folds a removed element and an inserted element sitting where it used to
// be into a single modification.
func (r *run) coalesce(patches []*patch.Patch, removal *patch.Patch, depth int) []*patch.Patch {
	if removal.Action != patch.RemoveElement {
		return patches
	}
	var neighbour *html.Node
	switch removal.Anchor.Kind {
	case patch.AnchorBefore:
		neighbour = removal.Anchor.Node.PrevSibling
	case patch.AnchorAfter:
		neighbour = removal.Anchor.Node.NextSibling
	}
	if neighbour == nil {
		return patches
	}
	at := slices.IndexFunc(patches, func(p *patch.Patch) bool {
		return p.Action == patch.AddElement && p.Node == neighbour
	})
	if at < 0 {
		return patches
	}
	added := patches[at]
	patches = slices.DeleteFunc(patches, func(p *patch.Patch) bool {
		return p == added || p == removal
	})
	if from, to := doctree.NodeName(removal.Node), doctree.NodeName(added.Node); from != to {
		patches = append(patches, patch.Retag(from, to, added.Node))
	}
	return append(patches, r.diffPair(removal.Node, added.Node, depth)...)
}

// diffPair compares two matched nodes of the same (or equivalent) kind.
func (r *run) diffPair(similar, to *html.Node, depth int) []*patch.Patch {
	if doctree.IsText(to) {
		if doctree.IsText(similar) && to.Data != similar.Data {
			return []*patch.Patch{patch.Modify(similar, to)}
		}
		return nil
	}

	if attrs, ok := identityAttrs[to.Data]; ok {
		for _, name := range attrs {
			if doctree.AttrOr(similar, name) != doctree.AttrOr(to, name) {
				return []*patch.Patch{patch.ReplaceNode(similar, to)}
			}
		}
	}

	patches := attrdiff.Diff(similar, to, r.opts.IgnoredAttributes)
	if doctree.InnerHTML(similar) != doctree.InnerHTML(to) {
		patches = append(patches, r.diffChildren(similar, to, depth+1)...)
	}
	return patches
}
