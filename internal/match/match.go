// Package match scores how likely two markup nodes are versions of one another and
// picks the best candidate for a target node.
//
// A score starts at 100 and is adjusted in stages: node identity (tag, image source,
// id), attribute similarity, child signature similarity and text similarity. Later
// stages are skipped as soon as the score falls below the acceptance threshold.
package match

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docdiff/internal/doctree"
	"github.com/dgallion1/docdiff/internal/preprocess"
	"github.com/dgallion1/docdiff/internal/similarity"
	"golang.org/x/net/html"
)

// Thresholds holds every tunable constant of the scoring pipeline.
type Thresholds struct {
	Minimum   float64 // default acceptance threshold
	High      float64 // threshold used when checking whether a later node claims a candidate
	Exact     float64 // threshold for the "better match" lookahead
	NearExact float64 // scores at or above this skip the lookahead

	Identity float64 // bonus/penalty for identity signals

	AttrRatio     float64
	ChildrenRatio float64
	TextRatio     float64

	TieFloor float64 // both top scores must reach this for the locality tie-break
	TieBand  float64 // maximum gap between the top two scores for the tie-break

	LengthSlack   int     // allowed rune-length difference before the threshold is relaxed
	LengthPenalty float64 // amount the threshold is relaxed by
}

// DefaultThresholds returns the standard scoring constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Minimum:       60,
		High:          80,
		Exact:         100,
		NearExact:     95,
		Identity:      70,
		AttrRatio:     0.3,
		ChildrenRatio: 0.5,
		TextRatio:     0.8,
		TieFloor:      85,
		TieBand:       10,
		LengthSlack:   3,
		LengthPenalty: 15,
	}
}

// Result is the outcome of Find. Node is nil when nothing reached the threshold.
type Result struct {
	Node  *html.Node
	Score float64
}

// Matcher scores candidate pairs. The zero value is not usable; call New.
type Matcher struct {
	T Thresholds

	// Text compares child signatures and text content.
	Text similarity.Metric
	// Attr compares the values of attributes present on both nodes.
	Attr similarity.Metric
}

// New returns a Matcher using t with case-insensitive text and case-sensitive
// attribute comparison.
func New(t Thresholds) *Matcher {
	return &Matcher{T: t, Text: similarity.Ratio, Attr: similarity.RatioSensitive}
}

// Default returns a Matcher with DefaultThresholds.
func Default() *Matcher {
	return New(DefaultThresholds())
}

// SingleChild reports whether both sibling lists hold exactly one node, in which case
// the two nodes are paired without scoring.
func SingleChild(a, b []*html.Node) bool {
	return len(a) == 1 && len(b) == 1
}

// Find returns the candidate most similar to target under the default threshold.
func (m *Matcher) Find(target *html.Node, candidates []*html.Node) Result {
	return m.FindAbove(target, candidates, m.T.Minimum)
}

// FindAbove returns the candidate most similar to target, provided it scores at least
// minimum (after the length relaxation).
func (m *Matcher) FindAbove(target *html.Node, candidates []*html.Node, minimum float64) Result {
	if len(candidates) == 0 {
		return Result{}
	}

	// Only the first candidate is consulted for the length relaxation.
	targetLen := utf8.RuneCountInString(innerText(target))
	firstLen := utf8.RuneCountInString(innerText(candidates[0]))
	if abs(targetLen-firstLen) > m.T.LengthSlack {
		minimum -= m.T.LengthPenalty
	}

	type scored struct {
		score float64
		node  *html.Node
	}
	results := make([]scored, 0, len(candidates))
	for _, from := range candidates {
		results = append(results, scored{score: m.score(from, target, minimum), node: from})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	if len(results) >= 2 &&
		results[1].score >= m.T.TieFloor &&
		results[0].score-results[1].score <= m.T.TieBand {
		self := doctree.SiblingIndex(target)
		first := doctree.SiblingIndex(results[0].node)
		second := doctree.SiblingIndex(results[1].node)
		if abs(second-self) < abs(first-self) {
			results[0], results[1] = results[1], results[0]
		}
	}

	if results[0].score < minimum {
		return Result{}
	}
	return Result{Node: results[0].node, Score: results[0].score}
}

// Score computes the similarity of from and to against the default threshold.
func (m *Matcher) Score(from, to *html.Node) float64 {
	return m.score(from, to, m.T.Minimum)
}

func (m *Matcher) score(from, to *html.Node, minimum float64) float64 {
	score := 100.0
	if doctree.NodeName(to) != doctree.NodeName(from) && !EquivalentTags(to, from) {
		score -= m.T.Identity
	}
	score = m.identity(from, to, score)

	if score >= minimum {
		score = blend(score, m.T.AttrRatio, m.attributeScore(from, to))
	}
	if score >= minimum {
		score = blend(score, m.T.ChildrenRatio, 100*m.Text(ChildSignature(from), ChildSignature(to)))
	}
	if score >= minimum {
		score = blend(score, m.T.TextRatio, 100*m.Text(innerText(from), innerText(to)))
	}
	return score
}

// blend mixes part (0..100) into score at the given weight. Results are rounded to
// 1e-9 so that identical nodes land exactly on whole-number thresholds.
func blend(score, ratio, part float64) float64 {
	mixed := score*(1-ratio) + score*ratio*(part/100)
	return math.Round(mixed*1e9) / 1e9
}

// identity applies bonuses and penalties for attributes that name a node.
func (m *Matcher) identity(from, to *html.Node, score float64) float64 {
	if doctree.IsText(from) || doctree.IsText(to) {
		return score
	}

	if isImage(from) && isImage(to) {
		if doctree.AttrOr(from, "src") == doctree.AttrOr(to, "src") {
			return score + m.T.Identity
		}
		if doctree.AttrOr(from, "width") == doctree.AttrOr(to, "width") &&
			doctree.AttrOr(from, "height") == doctree.AttrOr(to, "height") {
			return score + m.T.Identity/2
		}
	}

	fromID := doctree.AttrOr(from, "id")
	toID := doctree.AttrOr(to, "id")
	switch {
	case fromID != "" && fromID == toID:
		return score + m.T.Identity
	case fromID != "" && toID != "" && fromID != toID:
		return score - m.T.Identity
	}
	return score
}

func (m *Matcher) attributeScore(from, to *html.Node) float64 {
	score := 100.0
	if doctree.IsText(from) || doctree.IsText(to) {
		return score
	}

	fromNames := doctree.AttrNames(from)
	toNames := doctree.AttrNames(to)
	var common []string
	for _, name := range fromNames {
		if _, ok := doctree.Attr(to, name); ok {
			common = append(common, name)
		}
	}
	unshared := len(fromNames) + len(toNames) - 2*len(common)
	score -= math.Min(15, float64(3*unshared))

	if len(common) == 0 {
		return score
	}
	perAttr := score / float64(len(common))
	for _, name := range common {
		score -= perAttr * (1 - m.Attr(doctree.AttrOr(from, name), doctree.AttrOr(to, name)))
	}
	return score
}

var textRun = regexp.MustCompile(`#text(\s#text)+`)

// ChildSignature summarises the useful children of n as space separated node names.
// Text and marker spans read as "#text", whitespace-only text is dropped and runs of
// "#text" collapse into one.
func ChildSignature(n *html.Node) string {
	var names []string
	for _, c := range preprocess.UsefulChildren(n) {
		switch {
		case doctree.IsText(c):
			if c.Data != "" && strings.TrimSpace(c.Data) == "" {
				continue
			}
			names = append(names, "#text")
		case preprocess.IsMarker(c):
			names = append(names, "#text")
		default:
			names = append(names, doctree.NodeName(c))
		}
	}
	return textRun.ReplaceAllString(strings.Join(names, " "), "#text")
}

// EquivalentTags reports whether a and b are table header and data cells, which are
// treated as the same element with a changed tag.
func EquivalentTags(a, b *html.Node) bool {
	an, bn := doctree.NodeName(a), doctree.NodeName(b)
	return (an == "th" && bn == "td") || (an == "td" && bn == "th")
}

func isImage(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "img"
}

func innerText(n *html.Node) string {
	return doctree.TextContent(n)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
