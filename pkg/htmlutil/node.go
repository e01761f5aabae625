package htmlutil

import (
	"strings"

	"golang.org/x/net/html"
)

// Node is a simplified view of an html node: elements carry a tag, class
// tokens and attributes, text nodes carry only Text.
type Node struct {
	Tag      string
	Classes  []string
	Attrs    map[string]string
	Text     string
	Parent   *Node
	Children []*Node
}

func (n *Node) IsText() bool {
	return n.Tag == ""
}

// Parse never fails, unparseable input produces an empty root.
func Parse(markup string) *Node {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return &Node{Tag: "#document"}
	}
	return FromHTML(doc)
}

// FromHTML converts an x/net/html tree. Comments, doctypes and other
// non-content nodes are dropped.
func FromHTML(root *html.Node) *Node {
	out := convert(root, nil)
	if out == nil {
		return &Node{Tag: "#document"}
	}
	return out
}

func convert(n *html.Node, parent *Node) *Node {
	var out *Node
	switch n.Type {
	case html.DocumentNode:
		out = &Node{Tag: "#document", Parent: parent}
	case html.ElementNode:
		out = &Node{
			Tag:    strings.ToLower(n.Data),
			Attrs:  make(map[string]string, len(n.Attr)),
			Parent: parent,
		}
		for _, a := range n.Attr {
			out.Attrs[a.Key] = a.Val
			if a.Key == "class" {
				out.Classes = strings.Fields(a.Val)
			}
		}
	case html.TextNode:
		return &Node{Text: n.Data, Parent: parent}
	default:
		return nil
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		converted := convert(child, out)
		if converted != nil {
			out.Children = append(out.Children, converted)
		}
	}
	return out
}

// Walk visits every descendant of n in document order, n excluded.
// Returning false from visit stops the walk.
func (n *Node) Walk(visit func(*Node) bool) bool {
	for _, child := range n.Children {
		if !visit(child) {
			return false
		}
		if !child.Walk(visit) {
			return false
		}
	}
	return true
}

// FindAll returns the descendants of n matching p in document order.
func (n *Node) FindAll(p Predicate) []*Node {
	var out []*Node
	n.Walk(func(d *Node) bool {
		if p(d) {
			out = append(out, d)
		}
		return true
	})
	return out
}

// FindFirst returns the first descendant of n matching p, or nil.
func (n *Node) FindFirst(p Predicate) *Node {
	var found *Node
	n.Walk(func(d *Node) bool {
		if p(d) {
			found = d
			return false
		}
		return true
	})
	return found
}

func (n *Node) Contains(p Predicate) bool {
	return n.FindFirst(p) != nil
}

// ParentElement returns the closest element ancestor of n.
func (n *Node) ParentElement() *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if !p.IsText() {
			return p
		}
	}
	return nil
}

func (n *Node) strings(out *[]string) {
	if n.IsText() {
		*out = append(*out, n.Text)
		return
	}
	for _, child := range n.Children {
		child.strings(out)
	}
}

// TextContent concatenates every text node below n verbatim.
func (n *Node) TextContent() string {
	var parts []string
	n.strings(&parts)
	return strings.Join(parts, "")
}

// StrippedText trims each text node, drops the empty ones and joins the
// rest with sep.
func (n *Node) StrippedText(sep string) string {
	var parts []string
	n.strings(&parts)
	kept := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
