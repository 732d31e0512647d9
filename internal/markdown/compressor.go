package markdown

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// Fragment is the compressor's output for one subtree: either folded HTML
// or a tree that still contains lazy descendants.
type Fragment struct {
	HTML string // set iff Tree == nil
	Tree Node   // set iff HTML == ""
}

// Section is a <heading, body> pair extracted from a resolved section for
// downstream search indexing.
type Section struct {
	Level   int
	ID      string
	Title   string
	Content string
}

// Compress bottom-up folds every subtree whose descendants are all
// Text/Eager into an HTML string, concatenating adjacent Text siblings,
// and collects Sections along the way.
func Compress(nodes []Node) ([]Fragment, []Section) {
	c := &compressor{}
	frags := c.compressList(nodes)
	return frags, c.sections
}

type compressor struct {
	sections []Section
}

func (c *compressor) compressList(nodes []Node) []Fragment {
	merged := mergeAdjacentText(nodes)
	out := make([]Fragment, 0, len(merged))
	for _, n := range merged {
		out = append(out, c.compressNode(n))
	}
	return out
}

func (c *compressor) compressNode(n Node) Fragment {
	switch v := n.(type) {
	case Text:
		return Fragment{HTML: html.EscapeString(string(v))}

	case *Eager:
		c.collectSection(v)
		childFrags := c.compressList(v.Children)
		if allHTML(childFrags) {
			return Fragment{HTML: renderEager(v.Tag, v.Attrs, childFrags)}
		}
		return Fragment{Tree: &Eager{Tag: v.Tag, Attrs: v.Attrs, Children: fragmentsToNodes(childFrags)}}

	case *Lazy:
		return Fragment{Tree: &Lazy{Keep: v.Keep, Children: fragmentsToNodes(c.compressList(v.Children))}}

	default:
		return Fragment{Tree: n}
	}
}

// collectSection extracts a Section when v is a <section> whose first
// child is a resolved heading.
func (c *compressor) collectSection(v *Eager) {
	if v.Tag != "section" || len(v.Children) == 0 {
		return
	}
	lazy, ok := v.Children[0].(*Lazy)
	if !ok {
		return
	}
	h, ok := lazy.Keep.(ResolvedHeading)
	if !ok {
		return
	}
	c.sections = append(c.sections, Section{
		Level:   h.Level,
		ID:      h.Slug,
		Title:   textContentOf(lazy.Children),
		Content: textContentOf(v.Children[1:]),
	})
}

func allHTML(frags []Fragment) bool {
	for _, f := range frags {
		if f.Tree != nil {
			return false
		}
	}
	return true
}

func fragmentsToNodes(frags []Fragment) []Node {
	out := make([]Node, 0, len(frags))
	for _, f := range frags {
		if f.Tree != nil {
			out = append(out, f.Tree)
		} else {
			out = append(out, Text(f.HTML))
		}
	}
	return out
}

func renderEager(tag string, attrs map[string]string, children []Fragment) string {
	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(tag)
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if attrs[k] == "" {
			continue
		}
		fmt.Fprintf(&sb, ` %s="%s"`, k, html.EscapeString(attrs[k]))
	}
	if isVoidTag(tag) {
		sb.WriteString(" />")
		return sb.String()
	}
	sb.WriteByte('>')
	for _, c := range children {
		sb.WriteString(c.HTML)
	}
	sb.WriteString("</")
	sb.WriteString(tag)
	sb.WriteByte('>')
	return sb.String()
}

func isVoidTag(tag string) bool {
	switch tag {
	case "hr", "br", "img", "input":
		return true
	default:
		return false
	}
}

func mergeAdjacentText(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if t, ok := n.(Text); ok {
			if len(out) > 0 {
				if prev, ok := out[len(out)-1].(Text); ok {
					out[len(out)-1] = prev + t
					continue
				}
			}
		}
		out = append(out, n)
	}
	return out
}
