package markdown

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/mache/internal/cmserr"
	"github.com/agentic-research/mache/internal/highlight"
	"github.com/agentic-research/mache/internal/objectload"
	"github.com/agentic-research/mache/internal/storage"
)

// ImageUploader registers one image's bytes for upload and returns the
// resulting object reference, scoped by the caller to the row's
// CompoundId under the configured image table. derivedID is derived from
// the image's src and keeps the keys of distinct images in one document
// apart; images sharing one src are resolved once.
type ImageUploader func(data []byte, derivedID, contentType string, width, height int) (*storage.ObjectReference, error)

// Resolver drives the image, link-card, and footnote analyzers in
// parallel and rewrites the raw tree into its resolved form.
type Resolver struct {
	Ctx               cmserr.Context
	DocumentPath      string
	EmbedSVGThreshold int
	Upload            ImageUploader
	Highlighter       highlight.Highlighter
}

// ResolveResult is the output of one document's resolution pass.
type ResolveResult struct {
	Root          []Node
	ImageHashes   []storage.Hash // for parent-row hash rollup
	FootnoteCount int
}

// Resolve walks t.Root collecting work, fans it out, then rewrites the
// tree in a single pass.
func (r *Resolver) Resolve(ctx context.Context, t *Tree) (*ResolveResult, error) {
	if r.Highlighter == nil {
		r.Highlighter = highlight.Default{}
	}

	imgSrcs := map[string]struct{}{}
	linkURLs := map[string]struct{}{}
	collectWork(t.Root, imgSrcs, linkURLs)

	var (
		mu     sync.Mutex
		images = map[string]resolvedImageWork{}
		cards  = map[string]ResolvedLinkCard{}
		hashes []storage.Hash
	)

	g, _ := errgroup.WithContext(ctx)
	for src := range imgSrcs {
		src := src
		g.Go(func() error {
			res, err := r.resolveImage(src)
			if err != nil {
				log.Printf("markdown: image %q: %v", src, err)
				return nil // best-effort
			}
			mu.Lock()
			images[src] = res
			if res.hash != nil {
				hashes = append(hashes, *res.hash)
			}
			mu.Unlock()
			return nil
		})
	}
	for u := range linkURLs {
		u := u
		g.Go(func() error {
			card, err := fetchLinkCard(u)
			if err != nil {
				log.Printf("markdown: link card %q: %v", u, err)
				return nil // best-effort
			}
			mu.Lock()
			cards[u] = card
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	footnoteIndex := map[string]int{}
	next := 0
	root := r.rewrite(t.Root, t.Footnotes, images, cards, footnoteIndex, &next)

	return &ResolveResult{Root: root, ImageHashes: hashes, FootnoteCount: next}, nil
}

type resolvedImageWork struct {
	embed *EmbeddedSVG
	ref   *ImageRef
	hash  *storage.Hash
}

func (r *Resolver) resolveImage(src string) (resolvedImageWork, error) {
	img, err := objectload.LoadImage(r.Ctx, src, r.DocumentPath)
	if err != nil {
		return resolvedImageWork{}, err
	}

	if img.Kind == objectload.ImageVector && len(img.Body) < r.EmbedSVGThreshold {
		return resolvedImageWork{embed: &EmbeddedSVG{Width: img.Width, Height: img.Height, Tree: Text(string(img.Body))}}, nil
	}

	contentType := "image/png"
	if img.Kind == objectload.ImageVector {
		contentType = "image/svg+xml"
	}
	ref, err := r.Upload(img.Body, img.DerivedID, contentType, img.Width, img.Height)
	if err != nil {
		return resolvedImageWork{}, err
	}
	return resolvedImageWork{
		ref:  &ImageRef{Hash: ref.Hash.String(), Pointer: ref.Pointer.Key(), ContentType: ref.ContentType, Width: img.Width, Height: img.Height},
		hash: &ref.Hash,
	}, nil
}

// collectWork walks the raw tree gathering distinct image srcs and
// isolated-link URLs.
func collectWork(nodes []Node, imgSrcs, linkURLs map[string]struct{}) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *Lazy:
			if img, ok := v.Keep.(RawImage); ok {
				imgSrcs[img.URL] = struct{}{}
			}
			collectWork(v.Children, imgSrcs, linkURLs)
		case *Eager:
			if url, ok := isolatedLinkParagraph(v); ok {
				linkURLs[url] = struct{}{}
			} else {
				collectWork(v.Children, imgSrcs, linkURLs)
			}
		}
	}
}

// isolatedLinkParagraph reports whether e is a paragraph whose sole
// child is an autolink.
func isolatedLinkParagraph(e *Eager) (string, bool) {
	if e.Tag != "p" || len(e.Children) != 1 {
		return "", false
	}
	lazy, ok := e.Children[0].(*Lazy)
	if !ok {
		return "", false
	}
	link, ok := lazy.Keep.(RawLink)
	if !ok || link.Type != "autolink" {
		return "", false
	}
	return link.URL, true
}

func (r *Resolver) rewrite(nodes []Node, footnotes map[string]string, images map[string]resolvedImageWork, cards map[string]ResolvedLinkCard, footnoteIndex map[string]int, next *int) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		switch v := n.(type) {
		case *Eager:
			if url, ok := isolatedLinkParagraph(v); ok {
				if card, found := cards[url]; found {
					out = append(out, &Lazy{Keep: card})
					continue
				}
			}
			out = append(out, &Eager{Tag: v.Tag, Attrs: v.Attrs, Children: r.rewrite(v.Children, footnotes, images, cards, footnoteIndex, next)})
		case Text:
			out = append(out, v)
		case *Lazy:
			out = append(out, r.rewriteLazy(v, footnotes, images, cards, footnoteIndex, next))
		default:
			out = append(out, n)
		}
	}
	return out
}

func (r *Resolver) rewriteLazy(v *Lazy, footnotes map[string]string, images map[string]resolvedImageWork, cards map[string]ResolvedLinkCard, footnoteIndex map[string]int, next *int) Node {
	children := r.rewrite(v.Children, footnotes, images, cards, footnoteIndex, next)
	switch k := v.Keep.(type) {
	case RawImage:
		res, ok := images[k.URL]
		if !ok {
			return &Lazy{Keep: ResolvedImage{Alt: k.ID}, Children: children}
		}
		return &Lazy{Keep: ResolvedImage{Embed: res.embed, Ref: res.ref, Alt: k.ID}, Children: children}

	case RawHeading:
		return &Lazy{Keep: ResolvedHeading{Level: k.Level, Slug: k.Attrs["id"]}, Children: children}

	case RawCodeblock:
		source := textContentOf(children)
		rendered, err := r.Highlighter.Highlight(k.Meta.Lang, source)
		if err != nil {
			rendered = source
		}
		lines := 1
		for _, c := range source {
			if c == '\n' {
				lines++
			}
		}
		return &Lazy{Keep: ResolvedCodeblock{Lang: k.Meta.Lang, Title: k.Meta.Attrs["title"], LineCount: lines}, Children: []Node{Text(rendered)}}

	case RawAlert:
		return &Lazy{Keep: ResolvedAlert{Kind: k.Kind}, Children: children}

	case RawFootnoteReference:
		idx, seen := footnoteIndex[k.ID]
		if !seen {
			idx = *next
			footnoteIndex[k.ID] = idx
			*next++
		}
		content, defined := footnotes[k.ID]
		if !defined {
			return &Lazy{Keep: ResolvedFootnoteReference{ID: k.ID}}
		}
		i := idx
		return &Lazy{Keep: ResolvedFootnoteReference{ID: k.ID, Index: &i, Content: content}}

	case RawLink:
		return &Lazy{Keep: ResolvedLinkCardFallback(k), Children: children}

	default:
		return &Lazy{Keep: v.Keep, Children: children}
	}
}

// ResolvedLinkCardFallback carries an un-collapsed link's original data
// forward as an anchor tag.
type ResolvedLinkCardFallback RawLink

func (ResolvedLinkCardFallback) keep() {}

func textContentOf(nodes []Node) string {
	var out string
	for _, n := range nodes {
		switch v := n.(type) {
		case Text:
			out += string(v)
		case *Eager:
			out += textContentOf(v.Children)
		case *Lazy:
			out += textContentOf(v.Children)
		}
	}
	return out
}

