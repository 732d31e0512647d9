package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	gext "github.com/yuin/goldmark/extension"
	gextast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var gm = goldmark.New(
	goldmark.WithExtensions(gext.GFM, gext.Footnote),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

var alertRE = regexp.MustCompile(`^\[!(NOTE|TIP|IMPORTANT|WARNING|CAUTION)\]\s*`)

// Parse turns markdown source into a raw tree. Footnote
// definitions are harvested into a side map and never emitted in-line.
func Parse(src []byte) (*Tree, error) {
	reader := text.NewReader(src)
	doc := gm.Parser().Parse(reader)

	w := &walker{src: src, footnotes: map[string]string{}, footnoteLabels: footnoteLabelsByIndex(doc)}
	var roots []Node
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		roots = append(roots, w.convertBlock(c)...)
	}
	roots = groupIntoSections(roots)
	return &Tree{Root: roots, Footnotes: w.footnotes}, nil
}

// footnoteLabelsByIndex maps goldmark's sequential FootnoteLink.Index back
// to the source label (Footnote.Ref) it refers to. A reference site only
// ever sees the integer index, but the definition map built during parsing
// is keyed by label, so a FootnoteLink needs this to find its definition.
func footnoteLabelsByIndex(doc gast.Node) map[int]string {
	labels := map[int]string{}
	var walk func(gast.Node)
	walk = func(n gast.Node) {
		if list, ok := n.(*gextast.FootnoteList); ok {
			for c := list.FirstChild(); c != nil; c = c.NextSibling() {
				if fn, ok := c.(*gextast.Footnote); ok {
					labels[fn.Index] = string(fn.Ref)
				}
			}
			return
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(doc)
	return labels
}

type walker struct {
	src            []byte
	footnotes      map[string]string
	footnoteLabels map[int]string
}

func (w *walker) text(n gast.Node) string {
	var sb strings.Builder
	switch v := n.(type) {
	case *gast.Text:
		sb.Write(v.Segment.Value(w.src))
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			sb.WriteString(w.text(c))
		}
	}
	return sb.String()
}

// convertBlock converts one top-level-or-nested block node. Most blocks
// produce exactly one Node; a footnote definition produces none (it is
// harvested into w.footnotes instead).
func (w *walker) convertBlock(n gast.Node) []Node {
	switch v := n.(type) {
	case *gast.Heading:
		id := headingID(v, w.src)
		return []Node{&Lazy{Keep: RawHeading{Level: v.Level, Attrs: map[string]string{"id": id}}, Children: w.convertInlines(n)}}

	case *gast.Paragraph:
		return []Node{&Eager{Tag: "p", Attrs: map[string]string{}, Children: w.convertInlines(n)}}

	case *gast.TextBlock:
		return []Node{&Eager{Tag: "p", Attrs: map[string]string{}, Children: w.convertInlines(n)}}

	case *gast.CodeBlock:
		return []Node{&Lazy{Keep: RawCodeblock{Meta: CodeblockMeta{Attrs: map[string]string{}}}, Children: []Node{Text(string(codeBlockLines(v, w.src)))}}}

	case *gast.FencedCodeBlock:
		info := ""
		if v.Info != nil {
			info = string(v.Info.Segment.Value(w.src))
		}
		return []Node{&Lazy{Keep: RawCodeblock{Meta: parseCodeblockMeta(info)}, Children: []Node{Text(string(codeBlockLines(v, w.src)))}}}

	case *gast.Blockquote:
		if kind, ok := alertKind(v, w.src); ok {
			return []Node{&Lazy{Keep: RawAlert{Kind: kind}, Children: w.convertChildren(n)}}
		}
		return []Node{&Eager{Tag: "blockquote", Attrs: map[string]string{}, Children: w.convertChildren(n)}}

	case *gast.List:
		tag := "ul"
		if v.IsOrdered() {
			tag = "ol"
		}
		return []Node{&Eager{Tag: tag, Attrs: map[string]string{}, Children: w.convertChildren(n)}}

	case *gast.ListItem:
		return []Node{&Eager{Tag: "li", Attrs: map[string]string{}, Children: w.convertChildren(n)}}

	case *gast.ThematicBreak:
		return []Node{&Eager{Tag: "hr", Attrs: map[string]string{}}}

	case *gast.HTMLBlock:
		return []Node{Text(string(htmlBlockBytes(v, w.src)))}

	case *gextast.Table:
		return []Node{w.convertTable(v)}

	case *gextast.FootnoteList:
		w.convertChildren(n) // populates w.footnotes as a side effect
		return nil

	case *gextast.Footnote:
		id := string(v.Ref)
		var sb strings.Builder
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			sb.WriteString(w.text(c))
		}
		w.footnotes[id] = sb.String()
		return nil

	default:
		return []Node{&Eager{Tag: "div", Attrs: map[string]string{}, Children: w.convertChildren(n)}}
	}
}

func (w *walker) convertChildren(n gast.Node) []Node {
	var out []Node
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, w.convertBlock(c)...)
	}
	return out
}

func (w *walker) convertTable(t *gextast.Table) Node {
	var thead, tbody []Node
	row := 0
	for c := t.FirstChild(); c != nil; c = c.NextSibling() {
		switch rowNode := c.(type) {
		case *gextast.TableHeader:
			thead = append(thead, w.convertTableRow(rowNode, t, true))
		case *gextast.TableRow:
			tbody = append(tbody, w.convertTableRow(rowNode, t, false))
		}
		row++
	}
	return &Eager{Tag: "table", Attrs: map[string]string{}, Children: []Node{
		&Eager{Tag: "thead", Attrs: map[string]string{}, Children: thead},
		&Eager{Tag: "tbody", Attrs: map[string]string{}, Children: tbody},
	}}
}

func (w *walker) convertTableRow(row gast.Node, t *gextast.Table, header bool) Node {
	cellTag := "td"
	if header {
		cellTag = "th"
	}
	var cells []Node
	col := 0
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cell, ok := c.(*gextast.TableCell)
		attrs := map[string]string{}
		if ok {
			if align := cell.Alignment; align != gextast.AlignNone {
				attrs["class"] = "align-" + strings.ToLower(fmt.Sprint(align))
			}
		}
		cells = append(cells, &Eager{Tag: cellTag, Attrs: attrs, Children: w.convertInlines(c)})
		col++
	}
	return &Eager{Tag: "tr", Attrs: map[string]string{}, Children: cells}
}

func (w *walker) convertInlines(n gast.Node) []Node {
	var out []Node
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, w.convertInline(c)...)
	}
	return out
}

func (w *walker) convertInline(n gast.Node) []Node {
	switch v := n.(type) {
	case *gast.Text:
		s := string(v.Segment.Value(w.src))
		if v.SoftLineBreak() || v.HardLineBreak() {
			s += "\n"
		}
		return []Node{Text(s)}

	case *gast.String:
		return []Node{Text(string(v.Value))}

	case *gast.CodeSpan:
		return []Node{&Eager{Tag: "code", Attrs: map[string]string{}, Children: []Node{Text(w.text(n))}}}

	case *gast.Emphasis:
		tag := "em"
		if v.Level >= 2 {
			tag = "strong"
		}
		return []Node{&Eager{Tag: tag, Attrs: map[string]string{}, Children: w.convertInlines(n)}}

	case *gextast.Strikethrough:
		return []Node{&Eager{Tag: "del", Attrs: map[string]string{}, Children: w.convertInlines(n)}}

	case *gast.AutoLink:
		url := string(v.URL(w.src))
		return []Node{&Lazy{Keep: RawLink{Type: "autolink", URL: url}, Children: []Node{Text(url)}}}

	case *gast.Link:
		return []Node{&Lazy{Keep: RawLink{Type: "inline", URL: string(v.Destination), Title: string(v.Title)}, Children: w.convertInlines(n)}}

	case *gast.Image:
		alt := w.text(n)
		return []Node{&Lazy{Keep: RawImage{URL: string(v.Destination), Title: string(v.Title), ID: alt}}}

	case *gast.RawHTML:
		var sb strings.Builder
		for i := 0; i < v.Segments.Len(); i++ {
			seg := v.Segments.At(i)
			sb.Write(seg.Value(w.src))
		}
		return []Node{Text(sb.String())}

	case *gextast.TaskCheckBox:
		checked := ""
		if v.IsChecked {
			checked = "checked"
		}
		return []Node{&Eager{Tag: "input", Attrs: map[string]string{"type": "checkbox", "checked": checked}}}

	case *gextast.FootnoteLink:
		label := w.footnoteLabels[v.Index]
		if label == "" {
			label = fmt.Sprint(v.Index)
		}
		return []Node{&Lazy{Keep: RawFootnoteReference{ID: label}}}

	default:
		return []Node{&Eager{Tag: "span", Attrs: map[string]string{}, Children: w.convertInlines(n)}}
	}
}

func headingID(h *gast.Heading, src []byte) string {
	if id, ok := h.AttributeString("id"); ok {
		if b, ok := id.([]byte); ok {
			return string(b)
		}
		return fmt.Sprint(id)
	}
	return slugify(textOfNode(h, src))
}

func textOfNode(n gast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*gast.Text); ok {
			sb.Write(t.Segment.Value(src))
			continue
		}
		sb.WriteString(textOfNode(c, src))
	}
	return sb.String()
}

var slugNonWordRE = regexp.MustCompile(`\s+`)

func slugify(s string) string {
	return strings.ToLower(slugNonWordRE.ReplaceAllString(strings.TrimSpace(s), "-"))
}

func codeBlockLines(n interface {
	Lines() *text.Segments
}, src []byte) []byte {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		sb.Write(lines.At(i).Value(src))
	}
	return []byte(sb.String())
}

func htmlBlockBytes(v *gast.HTMLBlock, src []byte) []byte {
	var sb strings.Builder
	lines := v.Lines()
	for i := 0; i < lines.Len(); i++ {
		sb.Write(lines.At(i).Value(src))
	}
	return []byte(sb.String())
}

// alertKind detects a GFM alert: a blockquote whose first line is
// `[!NOTE]`/`[!TIP]`/etc.
func alertKind(bq *gast.Blockquote, src []byte) (string, bool) {
	first := bq.FirstChild()
	if first == nil {
		return "", false
	}
	head := textOfNode(first, src)
	m := alertRE.FindStringSubmatch(head)
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

// groupIntoSections wraps each heading and the nodes until the next
// heading of equal-or-shallower level into a synthetic `section` eager
// node, via single-step lookahead.
func groupIntoSections(nodes []Node) []Node {
	var out []Node
	i := 0
	for i < len(nodes) {
		lazy, ok := nodes[i].(*Lazy)
		if !ok {
			out = append(out, nodes[i])
			i++
			continue
		}
		h, ok := lazy.Keep.(RawHeading)
		if !ok {
			out = append(out, nodes[i])
			i++
			continue
		}
		section := []Node{nodes[i]}
		j := i + 1
		for j < len(nodes) {
			if nl, ok := nodes[j].(*Lazy); ok {
				if nh, ok := nl.Keep.(RawHeading); ok && nh.Level <= h.Level {
					break
				}
			}
			section = append(section, nodes[j])
			j++
		}
		out = append(out, &Eager{Tag: "section", Attrs: map[string]string{}, Children: section})
		i = j
	}
	return out
}
