package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixture = `
name: posts
glob: "posts/**/*.yaml"
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
    index: true
`

func TestLoad_CompilesValidCollection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "collection.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "posts", loaded.Collection.Table)

	posts, ok := loaded.Schema.Table("posts")
	require.True(t, ok)
	require.Equal(t, "slug", posts.IDName)
	require.NotEmpty(t, loaded.RawBytes)
}

func TestLoad_InvalidYamlReturnsParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
