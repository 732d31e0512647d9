// Package markdown implements the rich-text pipeline: parse to a raw
// two-level tree, resolve lazy nodes concurrently, then compress
// fully-eager subtrees back to HTML strings.
package markdown

// Node is one element of either the raw or the resolved tree. Resolution
// preserves a node's Go type except for Lazy, whose Keep field is
// replaced in place.
type Node interface {
	node()
}

// Eager is a shape-preserving HTML-equivalent node: a tag, its attributes,
// and children. Eager subtrees are always foldable by the compressor.
type Eager struct {
	Tag      string
	Attrs    map[string]string
	Children []Node
}

func (*Eager) node() {}

// Text is a plain text run.
type Text string

func (Text) node() {}

// Lazy wraps a node whose semantics the renderer must interpret. Keep
// starts as one of the Raw* variants and is replaced by its Resolved*
// counterpart during resolution.
type Lazy struct {
	Keep     Keep
	Children []Node
}

func (*Lazy) node() {}

// Keep is the closed sum of lazy-node payloads, raw and resolved.
type Keep interface {
	keep()
}

// --- Raw variants ---

type RawImage struct {
	URL   string
	Title string
	ID    string
}

func (RawImage) keep() {}

type RawLink struct {
	Type  string // "autolink" | "inline"
	URL   string
	Title string
	ID    string
}

func (RawLink) keep() {}

type RawHeading struct {
	Level int
	Attrs map[string]string
}

func (RawHeading) keep() {}

type RawCodeblock struct {
	Meta CodeblockMeta
}

func (RawCodeblock) keep() {}

type RawAlert struct {
	Kind string
}

func (RawAlert) keep() {}

type RawFootnoteReference struct {
	ID string
}

func (RawFootnoteReference) keep() {}

// --- Resolved variants ---

type ResolvedImage struct {
	// Embed is non-nil for an inline-embedded vector; Ref is non-nil for an
	// uploaded/object-referenced image. Exactly one is set on success; both
	// nil means the source never resolved (placeholder <img> is rendered).
	Embed *EmbeddedSVG
	Ref    *ImageRef
	Alt    string
}

func (ResolvedImage) keep() {}

type EmbeddedSVG struct {
	Width, Height int
	Tree          Node // the raw svg markup as a single Text node; it is not parsed into Eager nodes
}

type ImageRef struct {
	Hash        string
	Pointer     string
	ContentType string
	Width       int
	Height      int
}

type ResolvedLinkCard struct {
	URL         string
	Title       string
	Description string
	Image       string
	Favicon     string
}

func (ResolvedLinkCard) keep() {}

type ResolvedHeading struct {
	Level int
	Slug  string
}

func (ResolvedHeading) keep() {}

type ResolvedCodeblock struct {
	Lang      string
	Title     string
	LineCount int
}

func (ResolvedCodeblock) keep() {}

type ResolvedAlert struct {
	Kind string
}

func (ResolvedAlert) keep() {}

type ResolvedFootnoteReference struct {
	ID      string
	Index   *int
	Content string
}

func (ResolvedFootnoteReference) keep() {}

// Tree is a parsed document: its root nodes and the footnote definitions
// harvested during parsing, keyed by id.
type Tree struct {
	Root      []Node
	Footnotes map[string]string
}
