package storage

// Meta is the closed sum of per-kind object metadata. ToMap returns the
// wire-shaped field set, nested into the ObjectReference map that
// ObjectReference.MarshalJSON hands to oj.Marshal.
type Meta interface {
	isMeta()
	ToMap() map[string]any
}

type ImageMeta struct {
	Width     int
	Height    int
	Blurhash  *string
	DerivedID string
}

func (ImageMeta) isMeta() {}

func (m ImageMeta) ToMap() map[string]any {
	out := map[string]any{
		"width":      m.Width,
		"height":     m.Height,
		"derived_id": m.DerivedID,
	}
	if m.Blurhash != nil {
		out["blurhash"] = *m.Blurhash
	}
	return out
}

type FileMeta struct{}

func (FileMeta) isMeta()              {}
func (FileMeta) ToMap() map[string]any { return map[string]any{} }

type MarkdownMeta struct{}

func (MarkdownMeta) isMeta()              {}
func (MarkdownMeta) ToMap() map[string]any { return map[string]any{} }
