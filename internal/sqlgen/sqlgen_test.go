package sqlgen

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
		Name:  "posts",
		Glob:  "posts/**/*.yaml",
		Table: "posts",
		Syntax: api.Syntax{Type: api.SyntaxYAML},
		Schema: api.FieldList{
			{Name: "slug", Field: &api.Field{Type: api.FieldID}},
			{Name: "title", Field: &api.Field{Type: api.FieldString, Required: true, Index: true}},
			{Name: "views", Field: &api.Field{Type: api.FieldInteger}},
			{Name: "published_at", Field: &api.Field{Type: api.FieldDate, Index: true}},
			{Name: "cover", Field: &api.Field{Type: api.FieldImage, Index: true, Storage: &api.StorageSpec{Kind: api.StorageR2, Bucket: "assets", Prefix: "posts/cover"}}},
			{Name: "tags", Field: &api.Field{Type: api.FieldRecords, Table: "tags", Fields: api.FieldList{
				{Name: "name", Field: &api.Field{Type: api.FieldID}},
			}}},
		},
	}
	s, err := schema.Compile(cfg)
	require.NoError(t, err)
	return s
}

func TestDDL_PrimaryKeyAndForeignKey(t *testing.T) {
	s := compileFixture(t)
	ddl := DDL(s)

	require.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS posts")
	require.Contains(t, ddl, "PRIMARY KEY (slug)")
	require.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS tags")
	require.Contains(t, ddl, "FOREIGN KEY (slug) REFERENCES posts(slug) ON DELETE CASCADE")
	require.Contains(t, ddl, "PRIMARY KEY (slug, name)")
}

func TestDDL_IndexesExcludeObjectColumns(t *testing.T) {
	s := compileFixture(t)
	ddl := DDL(s)

	require.Contains(t, ddl, "CREATE INDEX IF NOT EXISTS index_posts_title ON posts(title)")
	require.Contains(t, ddl, "CREATE INDEX IF NOT EXISTS index_posts_published_at ON posts(date(published_at))")
	require.NotContains(t, ddl, "index_posts_cover")
}

func TestDDL_ColumnTypes(t *testing.T) {
	s := compileFixture(t)
	ddl := DDL(s)

	require.Contains(t, ddl, "title TEXT NOT NULL")
	require.Contains(t, ddl, "views INTEGER")
	require.Contains(t, ddl, "published_at TEXT")
}

func TestUpsert_OneStatementPerTableInOrder(t *testing.T) {
	s := compileFixture(t)
	stmts := Upsert(s)
	require.Len(t, stmts, 2)
	require.True(t, strings.HasPrefix(stmts[0], "INSERT INTO posts"))
	require.True(t, strings.HasPrefix(stmts[1], "INSERT INTO tags"))
	require.Contains(t, stmts[0], "ON CONFLICT(slug) DO ")
	require.Contains(t, stmts[0], "title = excluded.title")
}

func TestUpsert_IdOnlyTableDoesNothingOnConflict(t *testing.T) {
	s := compileFixture(t)
	stmts := Upsert(s)
	require.Contains(t, stmts[1], "ON CONFLICT(slug, name) DO NOTHING;")
}

func TestCleanup_FiltersByJsonEachMembership(t *testing.T) {
	s := compileFixture(t)
	stmts := Cleanup(s)
	require.Len(t, stmts, 2)
	require.Contains(t, stmts[0], "DELETE FROM posts")
	require.Contains(t, stmts[0], "WHERE (slug) NOT IN (")
	require.Contains(t, stmts[1], "WHERE (slug, name) NOT IN (")
}

func TestFetchObjects_UnionsObjectColumnsOnly(t *testing.T) {
	s := compileFixture(t)
	q := FetchObjects(s)
	require.Contains(t, q, "cover->>'hash'")
	require.NotContains(t, q, "title->>'hash'")
}

func TestDropAll_ChildrenBeforeParents(t *testing.T) {
	s := compileFixture(t)
	stmts := DropAll(s)
	require.Equal(t, "DROP TABLE IF EXISTS tags;\n", stmts[0])
	require.Equal(t, "DROP TABLE IF EXISTS posts;\n", stmts[1])
}
