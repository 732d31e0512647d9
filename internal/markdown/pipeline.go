package markdown

import (
	"context"
	"encoding/json"

	"github.com/agentic-research/mache/internal/cmserr"
	"github.com/agentic-research/mache/internal/highlight"
	"github.com/agentic-research/mache/internal/storage"
)

// Document is the compressed, resolved payload a Markdown field's column
// value carries. Frontmatter is attached by the caller, which owns
// the row's already-decoded frontmatter value.
type Document struct {
	Frontmatter json.RawMessage   `json:"frontmatter"`
	Root        []Fragment        `json:"root"`
	Footnotes   map[string]string `json:"footnotes"`
	Sections    []Section         `json:"sections"`
}

// Options configures one field's pass through the pipeline.
type Options struct {
	Ctx               cmserr.Context
	DocumentPath      string
	EmbedSVGThreshold int
	Upload            ImageUploader
	Highlighter       highlight.Highlighter
}

// Process runs parse → resolve → compress and
// returns the resolved fragments, sections, and the image hashes that
// must roll up into the owning row's content hash.
func Process(ctx context.Context, src []byte, opts Options) (fragments []Fragment, footnotes map[string]string, sections []Section, imageHashes []storage.Hash, err error) {
	tree, err := Parse(src)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	resolver := &Resolver{
		Ctx:               opts.Ctx,
		DocumentPath:      opts.DocumentPath,
		EmbedSVGThreshold: opts.EmbedSVGThreshold,
		Upload:            opts.Upload,
		Highlighter:       opts.Highlighter,
	}
	result, err := resolver.Resolve(ctx, tree)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	frags, secs := Compress(result.Root)
	return frags, resolvedFootnoteContents(tree, result), secs, result.ImageHashes, nil
}

// resolvedFootnoteContents walks the resolved root collecting each
// referenced footnote's content, keyed by id, for the Document payload.
func resolvedFootnoteContents(tree *Tree, result *ResolveResult) map[string]string {
	out := make(map[string]string, len(tree.Footnotes))
	var walk func(nodes []Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			lazy, ok := n.(*Lazy)
			if !ok {
				if e, ok := n.(*Eager); ok {
					walk(e.Children)
				}
				continue
			}
			if ref, ok := lazy.Keep.(ResolvedFootnoteReference); ok && ref.Content != "" {
				out[ref.ID] = ref.Content
			}
			walk(lazy.Children)
		}
	}
	walk(result.Root)
	return out
}
