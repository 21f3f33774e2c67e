package doctree

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DocTree is the root of a parsed document.
type DocTree struct {
	Title string     // Document title (from metadata or filename)
	Root  *html.Node // Synthetic <div> holding the document content; Root.Parent is nil
}

// NewRoot returns an empty synthetic root element.
func NewRoot() *html.Node {
	return NewElement("div")
}

// NewElement creates a detached element node.
func NewElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// NewText creates a detached text node.
func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// IsText reports whether n is a text node.
func IsText(n *html.Node) bool {
	return n != nil && n.Type == html.TextNode
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// IsRoot reports whether n has no parent, which is the case for a synthetic root.
func IsRoot(n *html.Node) bool {
	return n.Parent == nil
}

// NodeName mirrors the DOM nodeName: the tag for elements, "#text" and "#comment" otherwise.
func NodeName(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return "#text"
	case html.CommentNode:
		return "#comment"
	case html.ElementNode:
		return n.Data
	}
	return "#document"
}

// Children returns the direct children of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// SiblingIndex counts every preceding sibling of n, comments and whitespace included.
func SiblingIndex(n *html.Node) int {
	i := 0
	for p := n.PrevSibling; p != nil; p = p.PrevSibling {
		i++
	}
	return i
}

// Path returns the child indexes leading from the top-most ancestor to n.
func Path(n *html.Node) []int {
	var path []int
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		path = append(path, SiblingIndex(cur))
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// TextContent concatenates every descendant text node of n.
func TextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

// Attr returns the value of the named attribute and whether it is present.
func Attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or "" when absent.
func AttrOr(n *html.Node, name string) string {
	v, _ := Attr(n, name)
	return v
}

// AttrNames lists attribute names in document order.
func AttrNames(n *html.Node) []string {
	names := make([]string, 0, len(n.Attr))
	for _, a := range n.Attr {
		names = append(names, a.Key)
	}
	return names
}

// SetAttr sets or replaces an attribute, keeping its position when it already exists.
func SetAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr drops the named attribute if present.
func RemoveAttr(n *html.Node, name string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != name {
			out = append(out, a)
		}
	}
	n.Attr = out
}

// HasClass reports whether the class attribute contains the given token.
func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(AttrOr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// Clone deep-copies n. The copy is detached from any parent.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(Clone(ch))
	}
	return c
}

// Replace puts repl where old sits in its parent. old is detached afterwards.
func Replace(old, repl *html.Node) {
	p := old.Parent
	if p == nil {
		return
	}
	p.InsertBefore(repl, old)
	p.RemoveChild(old)
}

// Wrap replaces n with wrapper and moves n inside it.
func Wrap(n, wrapper *html.Node) {
	Replace(n, wrapper)
	wrapper.AppendChild(n)
}

// Equal reports whether a and b hold the same markup once adjacent text nodes are
// merged. Attribute order is not significant. Neither tree is modified.
func Equal(a, b *html.Node) bool {
	a, b = Clone(a), Clone(b)
	Normalize(a)
	Normalize(b)
	return equal(a, b)
}

func equal(a, b *html.Node) bool {
	if a.Type != b.Type || a.Data != b.Data || len(a.Attr) != len(b.Attr) {
		return false
	}
	for _, attr := range a.Attr {
		if v, ok := Attr(b, attr.Key); !ok || v != attr.Val {
			return false
		}
	}
	ca, cb := a.FirstChild, b.FirstChild
	for ; ca != nil && cb != nil; ca, cb = ca.NextSibling, cb.NextSibling {
		if !equal(ca, cb) {
			return false
		}
	}
	return ca == nil && cb == nil
}

// Normalize merges adjacent text nodes and removes empty ones, recursively.
func Normalize(n *html.Node) {
	c := n.FirstChild
	for c != nil {
		next := c.NextSibling
		if c.Type == html.TextNode {
			for next != nil && next.Type == html.TextNode {
				c.Data += next.Data
				after := next.NextSibling
				n.RemoveChild(next)
				next = after
			}
			if c.Data == "" {
				n.RemoveChild(c)
			}
		} else {
			Normalize(c)
		}
		c = next
	}
}
