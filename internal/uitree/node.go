// Package uitree models the accessibility node tree reported by uiautomator.
package uitree

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Node is one element of a window's accessibility tree.
// Nodes are linked to their parents after parsing and must not be copied.
type Node struct {
	XMLName       xml.Name `xml:"node" json:"-"`
	Index         int      `xml:"index,attr" json:"index"`
	Text          string   `xml:"text,attr" json:"text"`
	ResourceID    string   `xml:"resource-id,attr" json:"resourceId"`
	Class         string   `xml:"class,attr" json:"class"`
	Package       string   `xml:"package,attr" json:"package"`
	ContentDesc   string   `xml:"content-desc,attr" json:"contentDesc"`
	Checkable     bool     `xml:"checkable,attr" json:"checkable"`
	Checked       bool     `xml:"checked,attr" json:"checked"`
	Clickable     bool     `xml:"clickable,attr" json:"clickable"`
	Enabled       bool     `xml:"enabled,attr" json:"enabled"`
	Focused       bool     `xml:"focused,attr" json:"focused"`
	Scrollable    bool     `xml:"scrollable,attr" json:"scrollable"`
	LongClickable bool     `xml:"long-clickable,attr" json:"longClickable"`
	Selected      bool     `xml:"selected,attr" json:"selected"`
	Bounds        string   `xml:"bounds,attr" json:"bounds"`
	Nodes         []Node   `xml:"node" json:"nodes"`

	parent *Node
}

// Hierarchy is the document root of a uiautomator dump. Each top-level node
// is one window.
type Hierarchy struct {
	XMLName  xml.Name `xml:"hierarchy"`
	Rotation int      `xml:"rotation,attr"`
	Nodes    []Node   `xml:"node"`
}

// Parent returns the enclosing node, or nil for a root
func (n *Node) Parent() *Node {
	return n.parent
}

// Label returns the text, falling back to the content description
func (n *Node) Label() string {
	if n.Text != "" {
		return n.Text
	}
	return n.ContentDesc
}

// String is a short description used in logs
func (n *Node) String() string {
	label := n.Label()
	if label == "" {
		label = n.ResourceID
	}
	return fmt.Sprintf("%s[%q %s]", shortClass(n.Class), label, n.Bounds)
}

func shortClass(class string) string {
	if i := strings.LastIndex(class, "."); i >= 0 {
		return class[i+1:]
	}
	return class
}

// Parse decodes a uiautomator dump. Output noise around the XML document is
// stripped and stray ampersands are escaped.
func Parse(raw string) (*Hierarchy, error) {
	content := CleanDump(raw)
	if content == "" {
		return nil, fmt.Errorf("no hierarchy document in dump output")
	}

	var h Hierarchy
	if err := xml.Unmarshal([]byte(content), &h); err != nil {
		return nil, fmt.Errorf("failed to parse UI XML (length: %d): %w", len(content), err)
	}
	for i := range h.Nodes {
		h.Nodes[i].parent = nil
		link(&h.Nodes[i])
	}
	return &h, nil
}

// CleanDump trims adb chatter before <?xml and after the last tag and fixes
// unescaped entities.
func CleanDump(raw string) string {
	start := strings.Index(raw, "<?xml")
	if start == -1 {
		start = strings.Index(raw, "<hierarchy")
	}
	if start == -1 {
		return ""
	}
	content := raw[start:]
	if end := strings.LastIndex(content, ">"); end != -1 {
		content = content[:end+1]
	}

	content = strings.ReplaceAll(content, "&", "&amp;")
	for _, entity := range []string{"amp;", "lt;", "gt;", "quot;", "apos;", "#"} {
		content = strings.ReplaceAll(content, "&amp;"+entity, "&"+entity)
	}
	return content
}

func link(n *Node) {
	for i := range n.Nodes {
		n.Nodes[i].parent = n
		link(&n.Nodes[i])
	}
}

// Windows returns one root per top-level node
func (h *Hierarchy) Windows() []*Node {
	out := make([]*Node, len(h.Nodes))
	for i := range h.Nodes {
		out[i] = &h.Nodes[i]
	}
	return out
}

// Root returns the single top-level node, or a synthetic container that
// holds every window when there are several.
func (h *Hierarchy) Root() *Node {
	switch len(h.Nodes) {
	case 0:
		return nil
	case 1:
		return &h.Nodes[0]
	}

	root := &Node{
		Class:   "android.view.View",
		Package: h.Nodes[0].Package,
		Bounds:  "[0,0][0,0]",
		Nodes:   h.Nodes,
	}
	for i := range root.Nodes {
		root.Nodes[i].parent = root
	}
	return root
}

// ActiveWindow returns the window that holds input focus. A single window,
// or several with no focused node, yields Root.
func (h *Hierarchy) ActiveWindow() *Node {
	if len(h.Nodes) > 1 {
		for _, w := range h.Windows() {
			if !Walk(w, func(n *Node) bool { return !n.Focused }) {
				return w
			}
		}
	}
	return h.Root()
}

// Walk visits n and its descendants in document order until fn returns false
func Walk(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for i := range n.Nodes {
		if !Walk(&n.Nodes[i], fn) {
			return false
		}
	}
	return true
}
