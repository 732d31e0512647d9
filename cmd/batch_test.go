package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentic-research/mache/internal/localstore"
	"github.com/agentic-research/mache/internal/storage"
)

const batchTestCollection = `
name: posts
glob: "%s/posts/*.yaml"
table: posts
syntax:
  type: yaml
schema:
  slug:
    type: id
    required: true
  title:
    type: string
    required: true
`

func TestRunBatch_UpsertsRowsFromMatchedDocuments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "posts"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "posts", "hello.yaml"),
		[]byte("slug: hello\ntitle: Hello World\n"),
		0o644,
	))

	configFile := filepath.Join(dir, "collection.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(fmt.Sprintf(batchTestCollection, dir)), 0o644))

	old := configPath
	configPath = configFile
	defer func() { configPath = old }()

	ctx := context.Background()
	dbPath := filepath.Join(dir, "db.sqlite")
	storageRoot := filepath.Join(dir, "storage")
	require.NoError(t, runBatch(ctx, dbPath, storageRoot, false))

	db, err := localstore.OpenSqlite(dbPath)
	require.NoError(t, err)
	defer db.Close()

	var titles []string
	require.NoError(t, db.Query(ctx, "SELECT title FROM posts WHERE slug = 'hello'", func(row storage.Row) error {
		var title string
		if err := row.Scan(&title); err != nil {
			return err
		}
		titles = append(titles, title)
		return nil
	}))
	require.Equal(t, []string{"Hello World"}, titles)
}
