package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentic-research/mache/internal/highlight"
)

func TestResolve_FootnoteReferenceCarriesDefinedContent(t *testing.T) {
	src := []byte("See[^alpha] and also[^beta].\n\n[^alpha]: First note.\n\n[^beta]: Second note.\n")
	tree, err := Parse(src)
	require.NoError(t, err)

	r := &Resolver{Highlighter: highlight.Default{}}
	result, err := r.Resolve(context.Background(), tree)
	require.NoError(t, err)
	require.Equal(t, 2, result.FootnoteCount)

	refs := collectResolvedFootnoteRefs(t, result.Root)
	require.Equal(t, map[string]string{"alpha": "First note.", "beta": "Second note."}, refs)
}

func TestResolve_UndefinedFootnoteReferenceHasNoContent(t *testing.T) {
	src := []byte("See[^missing].\n")
	tree, err := Parse(src)
	require.NoError(t, err)

	r := &Resolver{Highlighter: highlight.Default{}}
	result, err := r.Resolve(context.Background(), tree)
	require.NoError(t, err)

	refs := collectResolvedFootnoteRefs(t, result.Root)
	require.Equal(t, map[string]string{"missing": ""}, refs)
}

func collectResolvedFootnoteRefs(t *testing.T, nodes []Node) map[string]string {
	t.Helper()
	out := map[string]string{}
	var walk func([]Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			switch v := n.(type) {
			case *Lazy:
				if ref, ok := v.Keep.(ResolvedFootnoteReference); ok {
					out[ref.ID] = ref.Content
				}
				walk(v.Children)
			case *Eager:
				walk(v.Children)
			}
		}
	}
	walk(nodes)
	return out
}
