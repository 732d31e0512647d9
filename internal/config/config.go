// Package config loads the collection YAML document a CLI run is
// invoked against and compiles it, wiring the wire-format decode in
// package api to the validated internal/schema, unmarshalled the same
// way internal/record's frontmatter decoding already uses
// gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/agentic-research/mache/api"
	"github.com/agentic-research/mache/internal/cmserr"
	"github.com/agentic-research/mache/internal/schema"
)

// Loaded pairs the compiled schema with the raw collection config, since
// some CLI paths (the glob used to discover source documents, the output
// table name for `show-schema`) need fields Compile doesn't carry forward
// on its own.
type Loaded struct {
	Collection api.Collection
	Schema     *schema.CollectionSchema
	// RawBytes is the config file's undecoded contents, fed into
	// record.Processor.ConfigBytes so a config change changes every row's
	// content hash.
	RawBytes []byte
}

// Load reads and compiles the collection config at path.
func Load(path string) (*Loaded, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg api.Collection
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, &cmserr.ParseYaml{Ctx: cmserr.Context{Path: path}, Err: err}
	}

	compiled, err := schema.Compile(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: compile %s: %w", path, err)
	}

	return &Loaded{Collection: cfg, Schema: compiled, RawBytes: raw}, nil
}
