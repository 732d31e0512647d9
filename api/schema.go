// Package api defines the wire format of a collection config: the YAML
// document a user hands to the CLI via -c/--config. It is the input to the
// schema compiler (internal/schema), not the compiled schema itself.
package api

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Collection is the top-level YAML document.
type Collection struct {
	Name   string     `yaml:"name"`
	Glob   string     `yaml:"glob"`
	Syntax Syntax     `yaml:"syntax"`
	Table  string     `yaml:"table"`
	Schema FieldList  `yaml:"schema"`
}

// SyntaxKind is the document syntax a Collection ingests.
type SyntaxKind string

const (
	SyntaxYAML     SyntaxKind = "yaml"
	SyntaxTOML     SyntaxKind = "toml"
	SyntaxMarkdown SyntaxKind = "markdown"
)

// Syntax describes how a source document is parsed.
type Syntax struct {
	Type SyntaxKind `yaml:"type"`
	// Column names the body column for markdown documents; required when
	// Type is SyntaxMarkdown, ignored otherwise.
	Column string `yaml:"column,omitempty"`
}

func (s Syntax) Validate() error {
	switch s.Type {
	case SyntaxYAML, SyntaxTOML:
		return nil
	case SyntaxMarkdown:
		if s.Column == "" {
			return fmt.Errorf("syntax: markdown requires a column name")
		}
		return nil
	default:
		return fmt.Errorf("syntax: unknown type %q", s.Type)
	}
}

// FieldKind tags the closed sum of field types.
type FieldKind string

const (
	FieldID       FieldKind = "id"
	FieldHash     FieldKind = "hash"
	FieldString   FieldKind = "string"
	FieldInteger  FieldKind = "integer"
	FieldReal     FieldKind = "real"
	FieldBoolean  FieldKind = "boolean"
	FieldDate     FieldKind = "date"
	FieldDatetime FieldKind = "datetime"
	FieldImage    FieldKind = "image"
	FieldFile     FieldKind = "file"
	FieldMarkdown FieldKind = "markdown"
	FieldRecords  FieldKind = "records"
)

// NamedField pairs a schema's declared field name with its definition.
// A plain Go map cannot preserve declaration order, and field order is
// semantically significant — so the schema map in
// the YAML document is decoded into this ordered slice instead.
type NamedField struct {
	Name  string
	Field *Field
}

// FieldList is an order-preserving decode of a YAML mapping node.
type FieldList []NamedField

func (fl *FieldList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("schema: expected a mapping, got %v", node.Kind)
	}
	out := make(FieldList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		var name string
		if err := keyNode.Decode(&name); err != nil {
			return fmt.Errorf("schema: field key: %w", err)
		}
		var f Field
		if err := valNode.Decode(&f); err != nil {
			return fmt.Errorf("schema: field %q: %w", name, err)
		}
		out = append(out, NamedField{Name: name, Field: &f})
	}
	*fl = out
	return nil
}

// Get returns the field definition registered under name, or nil.
func (fl FieldList) Get(name string) *Field {
	for _, nf := range fl {
		if nf.Name == name {
			return nf.Field
		}
	}
	return nil
}

// Field is the YAML shape of one schema field definition. Unlike the
// compiled internal/schema.Field sum type, this is a single flat struct —
// unused members are simply omitted by the author for a given Type.
type Field struct {
	Type FieldKind `yaml:"type"`

	Required bool `yaml:"required,omitempty"`
	Index    bool `yaml:"index,omitempty"`

	// Image / File
	Storage   *StorageSpec `yaml:"storage,omitempty"`
	Transform *ImageSpec   `yaml:"transform,omitempty"`

	// Markdown
	ImageConfig *MarkdownImageSpec `yaml:"image,omitempty"`
	BodyConfig  *MarkdownBodySpec  `yaml:"body,omitempty"`

	// Records
	Table  string    `yaml:"table,omitempty"`
	Fields FieldList `yaml:"fields,omitempty"`
}

// ImageSpec controls derived-image generation for Image fields.
type ImageSpec struct {
	// MaxWidth is carried into the compiled schema's ImageField; no
	// resizing is applied to images.
	MaxWidth int `yaml:"max_width,omitempty"`
	// EmbedSVGThreshold is carried into the compiled schema's ImageField.
	// Image fields are always uploaded to their storage; the value is not
	// used to embed vectors inline.
	EmbedSVGThreshold int `yaml:"embed_svg_threshold,omitempty"`
}

// MarkdownImageSpec controls how images embedded in a Markdown body are
// stored; it reuses StorageSpec plus the embed threshold.
type MarkdownImageSpec struct {
	Storage           *StorageSpec `yaml:"storage,omitempty"`
	EmbedSVGThreshold int          `yaml:"embed_svg_threshold,omitempty"`
}

// MarkdownBodySpec controls where the compressed markdown document itself
// is stored.
type MarkdownBodySpec struct {
	Storage *StorageSpec `yaml:"storage,omitempty"`
}

// StorageKind tags the closed sum of storage destinations.
type StorageKind string

const (
	StorageR2     StorageKind = "r2"
	StorageAsset  StorageKind = "asset"
	StorageKv     StorageKind = "kv"
	StorageInline StorageKind = "inline"
)

// StorageSpec is the YAML shape of a storage destination.
type StorageSpec struct {
	Kind StorageKind `yaml:"kind"`

	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Dir       string `yaml:"dir,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
}

func (s *StorageSpec) Validate() error {
	if s == nil {
		return fmt.Errorf("storage: missing")
	}
	switch s.Kind {
	case StorageR2:
		if s.Bucket == "" {
			return fmt.Errorf("storage: r2 requires bucket")
		}
	case StorageAsset:
		if s.Dir == "" {
			return fmt.Errorf("storage: asset requires dir")
		}
	case StorageKv:
		if s.Namespace == "" {
			return fmt.Errorf("storage: kv requires namespace")
		}
	case StorageInline:
		// no fields required
	default:
		return fmt.Errorf("storage: unknown kind %q", s.Kind)
	}
	return nil
}
