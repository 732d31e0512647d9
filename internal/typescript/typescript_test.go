package typescript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentic-research/mache/api"
	"github.com/agentic-research/mache/internal/schema"
)

func compileFixture(t *testing.T) *schema.CollectionSchema {
	t.Helper()
	cfg := api.Collection{
		Name:   "posts",
		Glob:   "posts/**/*.md",
		Table:  "posts",
		Syntax: api.Syntax{Type: api.SyntaxMarkdown, Column: "body"},
		Schema: api.FieldList{
			{Name: "slug", Field: &api.Field{Type: api.FieldID, Required: true}},
			{Name: "title", Field: &api.Field{Type: api.FieldString, Required: true}},
			{Name: "cover", Field: &api.Field{Type: api.FieldImage, Storage: &api.StorageSpec{Kind: api.StorageR2, Bucket: "assets", Prefix: "posts/cover"}}},
			{Name: "body", Field: &api.Field{
				Type:        api.FieldMarkdown,
				BodyConfig:  &api.MarkdownBodySpec{Storage: &api.StorageSpec{Kind: api.StorageR2, Bucket: "assets", Prefix: "posts/body"}},
				ImageConfig: &api.MarkdownImageSpec{Storage: &api.StorageSpec{Kind: api.StorageKv, Namespace: "images"}},
			}},
			{Name: "tags", Field: &api.Field{Type: api.FieldRecords, Table: "tags", Fields: api.FieldList{
				{Name: "name", Field: &api.Field{Type: api.FieldID}},
			}}},
		},
	}
	s, err := schema.Compile(cfg)
	require.NoError(t, err)
	return s
}

func TestGenerateTable_ScalarAndObjectColumns(t *testing.T) {
	s := compileFixture(t)
	posts, ok := s.Table("posts")
	require.True(t, ok)

	var b strings.Builder
	GenerateTable(&b, posts)
	out := b.String()

	require.Contains(t, out, "slug: string;")
	require.Contains(t, out, "title: string;")
	require.Contains(t, out, "cover: CoverColumn | null;")
	require.Contains(t, out, "export type CoverColumn = rudis.ImageReference<rudis.R2StoragePointer>;")
	require.Contains(t, out, "export type BodyKeep =")
	require.Contains(t, out, "rudis.ImageKeep<rudis.KvStoragePointer>")
	require.Contains(t, out, "export type BodyRoot = rudis.MarkdownRoot<BodyKeep>;")
	require.Contains(t, out, "export type BodyDocument = rudis.MarkdownDocument<Frontmatter, BodyKeep>;")
	start := strings.Index(out, "export interface Table {")
	require.GreaterOrEqual(t, start, 0)
	tableIface := out[start:]
	tableIface = tableIface[:strings.Index(tableIface, "}\n")+2]
	require.NotContains(t, tableIface, "tags:")
}

func TestGenerateTable_SubTableImportAndFrontmatter(t *testing.T) {
	s := compileFixture(t)
	posts, ok := s.Table("posts")
	require.True(t, ok)

	var b strings.Builder
	GenerateTable(&b, posts)
	out := b.String()

	require.Contains(t, out, `import * as tags from "./tags.ts";`)
	require.Contains(t, out, "tags: tags.FrontmatterWithMarkdownColumns[];")
}

func TestFileMap_EmitsPerTableFiles(t *testing.T) {
	s := compileFixture(t)
	files := FileMap(s, "generated", false)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	require.Contains(t, paths, "generated/posts.ts")
	require.Contains(t, paths, "generated/tags.ts")
	for _, p := range paths {
		require.False(t, strings.HasSuffix(p, "-valibot.ts"))
	}
}

func TestFileMap_ValibotFilesOnlyWhenEnabled(t *testing.T) {
	s := compileFixture(t)
	files := FileMap(s, "generated", true)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	require.Contains(t, paths, "generated/posts-valibot.ts")
	require.Contains(t, paths, "generated/tags-valibot.ts")
}

func TestGenerateValibot_TableValidatorAndColumns(t *testing.T) {
	s := compileFixture(t)
	posts, ok := s.Table("posts")
	require.True(t, ok)

	var b strings.Builder
	GenerateValibot(&b, posts)
	out := b.String()

	require.Contains(t, out, "export const table = v.object({")
	require.Contains(t, out, "slug: v.string(),")
	require.Contains(t, out, "cover: v.nullable(v.pipe(v.string(), v.parseJson(), coverColumn)),")
	require.Contains(t, out, "export const coverColumn = rudis.imageReference(rudis.r2StoragePointer);")
}
