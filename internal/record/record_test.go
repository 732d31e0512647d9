package record

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentic-research/mache/api"
	"github.com/agentic-research/mache/internal/cmserr"
	"github.com/agentic-research/mache/internal/schema"
	"github.com/agentic-research/mache/internal/upload"
)

func nestedFixture(t *testing.T) *schema.CollectionSchema {
	t.Helper()
	cfg := api.Collection{
		Name:  "posts",
		Glob:  "posts/**/*.yaml",
		Table: "posts",
		Syntax: api.Syntax{Type: api.SyntaxYAML},
		Schema: api.FieldList{
			{Name: "slug", Field: &api.Field{Type: api.FieldID}},
			{Name: "tags", Field: &api.Field{Type: api.FieldRecords, Table: "tags", Fields: api.FieldList{
				{Name: "name", Field: &api.Field{Type: api.FieldID}},
			}}},
		},
	}
	s, err := schema.Compile(cfg)
	require.NoError(t, err)
	return s
}

func newProcessor(t *testing.T) (*Processor, *schema.CollectionSchema) {
	t.Helper()
	s := nestedFixture(t)
	return &Processor{Schema: s, ConfigBytes: []byte("config-v1"), Collector: upload.NewCollector()}, s
}

func TestProcessRow_NestedRecordsRowHashChangesWithDocBytes(t *testing.T) {
	p, s := newProcessor(t)
	root, ok := s.Table("posts")
	require.True(t, ok)

	data := map[string]any{
		"slug": "hello",
		"tags": []any{
			map[string]any{"name": "go"},
		},
	}

	nodeA, err := p.processRow(context.Background(), cmserr.Context{Path: "a.yaml"}, []byte("document one"), root, data, nil)
	require.NoError(t, err)
	nodeB, err := p.processRow(context.Background(), cmserr.Context{Path: "a.yaml"}, []byte("document two"), root, data, nil)
	require.NoError(t, err)

	childA := nodeA.children["tags"]
	childB := nodeB.children["tags"]
	require.Len(t, childA, 1)
	require.Len(t, childB, 1)

	require.NotEqual(t, childA[0].hash, childB[0].hash,
		"nested Records row hash must change when the enclosing document's raw bytes change")
	require.NotEqual(t, nodeA.hash, nodeB.hash)
}

func TestProcessRow_NestedRecordsRowHashStableForIdenticalInput(t *testing.T) {
	p, s := newProcessor(t)
	root, ok := s.Table("posts")
	require.True(t, ok)

	data := map[string]any{
		"slug": "hello",
		"tags": []any{
			map[string]any{"name": "go"},
		},
	}

	nodeA, err := p.processRow(context.Background(), cmserr.Context{Path: "a.yaml"}, []byte("same document"), root, data, nil)
	require.NoError(t, err)
	nodeB, err := p.processRow(context.Background(), cmserr.Context{Path: "a.yaml"}, []byte("same document"), root, data, nil)
	require.NoError(t, err)

	require.Equal(t, nodeA.children["tags"][0].hash, nodeB.children["tags"][0].hash)
	require.Equal(t, nodeA.hash, nodeB.hash)
}
