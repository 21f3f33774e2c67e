// Package attrdiff compares the attributes of two matched elements.
package attrdiff

import (
	"fmt"
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dgallion1/docdiff/internal/doctree"
	"github.com/dgallion1/docdiff/internal/patch"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/net/html"
)

// DefaultIgnored lists attributes never reported: the highlight marker id and table
// cell geometry managed by the editor.
var DefaultIgnored = []string{"data-highlight-id", "colwidth", "rowspan", "colspan"}

// DefaultIgnoredSet returns a fresh set holding DefaultIgnored.
func DefaultIgnoredSet() mapset.Set[string] {
	return mapset.NewThreadUnsafeSet(DefaultIgnored...)
}

var (
	declSeparator = regexp.MustCompile(`;\s*`)
	emptyDecl     = regexp.MustCompile(`:\s*$`)
	propSeparator = regexp.MustCompile(`:\s*`)
	hexColorDecl  = regexp.MustCompile(`(?i):\s*(#[0-9a-f]{3}|#[0-9a-f]{6})$`)
)

// Format returns the comparable form of an attribute value. Only style is rewritten:
// empty declarations are dropped and hex colours become rgb().
func Format(name, value string) string {
	if name != "style" {
		return value
	}
	var decls []string
	for _, decl := range declSeparator.Split(value, -1) {
		decl = strings.TrimSpace(decl)
		if decl == "" || emptyDecl.MatchString(decl) {
			continue
		}
		if hexColorDecl.MatchString(decl) {
			parts := propSeparator.Split(decl, 2)
			if c, err := colorful.Hex(strings.TrimSpace(parts[1])); err == nil {
				r, g, b := c.RGB255()
				decl = fmt.Sprintf("%s: rgb(%d, %d, %d)", strings.TrimSpace(parts[0]), r, g, b)
			}
		}
		decls = append(decls, decl)
	}
	return strings.Join(decls, "; ")
}

// Diff emits attribute patches turning from's attributes into to's. Names in ignored
// are skipped. Patches reference to.
func Diff(from, to *html.Node, ignored mapset.Set[string]) []*patch.Patch {
	var patches []*patch.Patch

	fromNames := filter(doctree.AttrNames(from), ignored)
	toNames := filter(doctree.AttrNames(to), ignored)
	fromSet := mapset.NewThreadUnsafeSet(fromNames...)
	toSet := mapset.NewThreadUnsafeSet(toNames...)

	for _, name := range fromNames {
		if toSet.Contains(name) {
			continue
		}
		value := doctree.AttrOr(from, name)
		if Format(name, value) != "" {
			patches = append(patches, &patch.Patch{Action: patch.RemoveAttribute, Node: to, Name: name, Value: value})
		}
	}
	for _, name := range toNames {
		if fromSet.Contains(name) {
			continue
		}
		value := doctree.AttrOr(to, name)
		if Format(name, value) != "" {
			patches = append(patches, &patch.Patch{Action: patch.AddAttribute, Node: to, Name: name, Value: value})
		}
	}
	for _, name := range fromNames {
		if !toSet.Contains(name) {
			continue
		}
		oldValue := Format(name, doctree.AttrOr(from, name))
		newValue := Format(name, doctree.AttrOr(to, name))
		if oldValue != newValue {
			patches = append(patches, &patch.Patch{
				Action:   patch.ModifyAttribute,
				Node:     to,
				Name:     name,
				OldValue: oldValue,
				NewValue: newValue,
			})
		}
	}
	return patches
}

func filter(names []string, ignored mapset.Set[string]) []string {
	out := names[:0:0]
	for _, n := range names {
		if ignored != nil && ignored.Contains(n) {
			continue
		}
		out = append(out, n)
	}
	return out
}
