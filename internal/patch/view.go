package patch

import (
	"github.com/dgallion1/docdiff/internal/doctree"
	"golang.org/x/net/html"
)

// View is a JSON-safe rendering of a Patch. Paths are child indexes from the root of
// the tree the node lives in; removed nodes carry their path in the original tree.
type View struct {
	Action   Action `json:"action"`
	Path     []int  `json:"path"`
	HTML     string `json:"html,omitempty"`
	OldHTML  string `json:"old_html,omitempty"`
	OldValue string `json:"old_value,omitempty"`
	NewValue string `json:"new_value,omitempty"`
	Name     string `json:"name,omitempty"`
	Value    string `json:"value,omitempty"`
	OldTag   string `json:"old_tag,omitempty"`
	NewTag   string `json:"new_tag,omitempty"`

	Anchor     AnchorKind `json:"anchor,omitempty"`
	AnchorPath []int      `json:"anchor_path,omitempty"`
}

// Encode converts patches into their views.
func Encode(patches []*Patch) []View {
	views := make([]View, 0, len(patches))
	for _, p := range patches {
		views = append(views, p.View())
	}
	return views
}

// View renders p for transport.
func (p *Patch) View() View {
	v := View{
		Action:   p.Action,
		Path:     doctree.Path(p.Node),
		OldValue: p.OldValue,
		NewValue: p.NewValue,
		Name:     p.Name,
		Value:    p.Value,
		OldTag:   p.OldTag,
		NewTag:   p.NewTag,
	}
	if v.Path == nil {
		v.Path = []int{}
	}
	switch p.Action {
	case AddText, AddElement, RemoveText, RemoveElement, Replace:
		v.HTML = outer(p.Node)
	}
	if p.Old != nil {
		v.OldHTML = outer(p.Old)
	}
	if p.IsRemoval() {
		v.Anchor = p.Anchor.Kind
		if p.Anchor.Node != nil {
			v.AnchorPath = doctree.Path(p.Anchor.Node)
		}
	}
	return v
}

func outer(n *html.Node) string {
	if n == nil {
		return ""
	}
	return doctree.OuterHTML(n)
}
