package htmlutil

import "strings"

// Predicate is a structural test over a Node.
type Predicate func(n *Node) bool

// Tag matches elements with the given (case-insensitive) tag name.
func Tag(name string) Predicate {
	name = strings.ToLower(name)
	return func(n *Node) bool {
		return !n.IsText() && n.Tag == name
	}
}

// ClassContains matches elements with at least one class token
// containing marker as a substring.
func ClassContains(marker string) Predicate {
	return func(n *Node) bool {
		for _, c := range n.Classes {
			if strings.Contains(c, marker) {
				return true
			}
		}
		return false
	}
}

// Has matches nodes with at least one descendant matching p.
func Has(p Predicate) Predicate {
	return func(n *Node) bool {
		return n.Contains(p)
	}
}

// TextMatches matches text nodes whose raw value satisfies match.
func TextMatches(match func(text string) bool) Predicate {
	return func(n *Node) bool {
		return n.IsText() && match(n.Text)
	}
}

func And(preds ...Predicate) Predicate {
	return func(n *Node) bool {
		for _, p := range preds {
			if !p(n) {
				return false
			}
		}
		return true
	}
}

func Or(preds ...Predicate) Predicate {
	return func(n *Node) bool {
		for _, p := range preds {
			if p(n) {
				return true
			}
		}
		return false
	}
}
