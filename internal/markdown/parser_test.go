package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_FootnoteReferenceIDMatchesDefinitionLabel(t *testing.T) {
	src := []byte("See[^alpha] and also[^beta].\n\n[^alpha]: First note.\n\n[^beta]: Second note.\n")

	tree, err := Parse(src)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"alpha": "First note.", "beta": "Second note."}, tree.Footnotes)

	refs := collectFootnoteRefs(t, tree.Root)
	require.Equal(t, []string{"alpha", "beta"}, refs)
}

func TestParse_FootnoteDefinitionsAreHarvestedNotEmitted(t *testing.T) {
	src := []byte("Body text[^x].\n\n[^x]: The definition.\n")

	tree, err := Parse(src)
	require.NoError(t, err)

	var walk func(nodes []Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			switch v := n.(type) {
			case Text:
				require.NotContains(t, string(v), "The definition.")
			case *Eager:
				walk(v.Children)
			case *Lazy:
				walk(v.Children)
			}
		}
	}
	walk(tree.Root)
}

func collectFootnoteRefs(t *testing.T, nodes []Node) []string {
	t.Helper()
	var out []string
	var walk func([]Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			switch v := n.(type) {
			case *Lazy:
				if ref, ok := v.Keep.(RawFootnoteReference); ok {
					out = append(out, ref.ID)
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
