package uitree

import "strings"

// MatchesText reports whether the node's text or content description
// contains needle, ignoring case.
func (n *Node) MatchesText(needle string) bool {
	if needle == "" {
		return false
	}
	lower := strings.ToLower(needle)
	return strings.Contains(strings.ToLower(n.Text), lower) ||
		strings.Contains(strings.ToLower(n.ContentDesc), lower)
}

// FindByText returns every node under root matching needle, in document order
func FindByText(root *Node, needle string) []*Node {
	var out []*Node
	Walk(root, func(n *Node) bool {
		if n.MatchesText(needle) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// ClickableAncestor returns n itself if clickable, else its nearest clickable ancestor
func ClickableAncestor(n *Node) *Node {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.Clickable {
			return cur
		}
	}
	return nil
}

// FindNodeByText tries each candidate in order. For a candidate, matching
// nodes are taken in document order and the first one with a clickable
// ancestor-or-self wins. The result is always clickable, or nil.
func FindNodeByText(root *Node, candidates []string) *Node {
	if root == nil {
		return nil
	}
	for _, candidate := range candidates {
		for _, match := range FindByText(root, candidate) {
			if target := ClickableAncestor(match); target != nil {
				return target
			}
		}
	}
	return nil
}

// CollectScrollable returns every scrollable node under root, depth first
func CollectScrollable(root *Node) []*Node {
	var out []*Node
	Walk(root, func(n *Node) bool {
		if n.Scrollable {
			out = append(out, n)
		}
		return true
	})
	return out
}
