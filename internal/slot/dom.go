package slot

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const hiddenDecl = "display: none"

// ParseDocument parses a full HTML document.
func ParseDocument(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// Render writes the HTML serialization of root to w.
func Render(w io.Writer, root *html.Node) error {
	return html.Render(w, root)
}

// Attr returns the value of the attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets the attribute key on n, replacing any previous value.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes the attribute key from n.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, text string) {
	clearChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return b.String()
}

// AppendHTML parses src as a fragment in the context of n and appends the
// resulting nodes to n.
func AppendHTML(n *html.Node, src string) error {
	ctxNode := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	if n.Type == html.ElementNode {
		ctxNode = &html.Node{
			Type:      html.ElementNode,
			Data:      n.Data,
			DataAtom:  atom.Lookup([]byte(n.Data)),
			Namespace: n.Namespace,
		}
	}
	nodes, err := html.ParseFragment(strings.NewReader(src), ctxNode)
	if err != nil {
		return fmt.Errorf("parse fragment: %w", err)
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

func clearChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// Hide adds the display: none declaration to the style attribute of n,
// keeping its other declarations.
func Hide(n *html.Node) {
	if n == nil {
		return
	}
	decls := withoutDisplayNone(styleDecls(n))
	decls = append(decls, hiddenDecl)
	SetAttr(n, "style", strings.Join(decls, "; "))
}

// Show removes any display: none declaration from the style attribute of n.
// The attribute is dropped when nothing else remains.
func Show(n *html.Node) {
	if n == nil {
		return
	}
	if _, ok := Attr(n, "style"); !ok {
		return
	}
	decls := withoutDisplayNone(styleDecls(n))
	if len(decls) == 0 {
		RemoveAttr(n, "style")
		return
	}
	SetAttr(n, "style", strings.Join(decls, "; "))
}

// IsHidden reports whether the style attribute of n hides it.
func IsHidden(n *html.Node) bool {
	for _, d := range styleDecls(n) {
		if isDisplayNone(d) {
			return true
		}
	}
	return false
}

func styleDecls(n *html.Node) []string {
	style, _ := Attr(n, "style")
	var out []string
	for _, d := range strings.Split(style, ";") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func withoutDisplayNone(decls []string) []string {
	out := decls[:0]
	for _, d := range decls {
		if !isDisplayNone(d) {
			out = append(out, d)
		}
	}
	return out
}

func isDisplayNone(decl string) bool {
	prop, val, ok := strings.Cut(decl, ":")
	if !ok {
		return false
	}
	val = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "!important"))
	return strings.EqualFold(strings.TrimSpace(prop), "display") && strings.EqualFold(val, "none")
}

// ContainerKey returns a stable identity for n: its id attribute when set,
// otherwise its element path from the document root, e.g.
// "/html[1]/body[1]/div[2]".
func ContainerKey(n *html.Node) string {
	if n == nil {
		return ""
	}
	if id, ok := Attr(n, "id"); ok && id != "" {
		return "#" + id
	}

	var parts []string
	for c := n; c != nil && c.Type == html.ElementNode; c = c.Parent {
		idx := 1
		for s := c.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode && s.Data == c.Data {
				idx++
			}
		}
		parts = append(parts, c.Data+"["+strconv.Itoa(idx)+"]")
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

// FindByID returns the first element under root whose id attribute equals
// id, or nil.
func FindByID(root *html.Node, id string) *html.Node {
	if root == nil {
		return nil
	}
	if root.Type == html.ElementNode {
		if v, ok := Attr(root, "id"); ok && v == id {
			return root
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := FindByID(c, id); n != nil {
			return n
		}
	}
	return nil
}
