// Package record implements the per-document processor: frontmatter
// extraction, schema-driven field dispatch, recursive Records-field
// flattening, and the per-row content hash.
package record

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"lukechampine.com/blake3"

	"github.com/agentic-research/mache/internal/cmserr"
	"github.com/agentic-research/mache/internal/highlight"
	"github.com/agentic-research/mache/internal/markdown"
	"github.com/agentic-research/mache/internal/objectload"
	"github.com/agentic-research/mache/internal/schema"
	"github.com/agentic-research/mache/internal/storage"
	"github.com/agentic-research/mache/internal/upload"
)

// Column is one (name, value) pair; Row preserves schema declaration
// order since columns "appear in schema order".
type Column struct {
	Name  string
	Value any
}

type Row []Column

// MarshalJSON renders a row as a JSON object keyed by column name, the
// shape sqlgen's upsert/cleanup statements extract with `value->>'col'`
// after iterating it via json_each.
func (r Row) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			b.WriteByte(',')
		}
		keyJSON, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		b.Write(keyJSON)
		b.WriteByte(':')
		valJSON, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		b.Write(valJSON)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Tables is the flattened per-table row output the executor consumes.
type Tables map[string][]Row

// IDPair is one link in a row's CompoundId chain.
type IDPair struct {
	Name  string
	Value string
}

// Processor processes documents against one compiled schema.
type Processor struct {
	Schema      *schema.CollectionSchema
	ConfigBytes []byte
	Collector   *upload.Collector
	Highlighter highlight.Highlighter
}

// ProcessDocument reads path and processes it into Tables, registering
// any discovered uploads on p.Collector.
func (p *Processor) ProcessDocument(ctx context.Context, path string) (Tables, error) {
	docCtx := cmserr.Context{Path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &cmserr.ReadDocument{Ctx: docCtx, Err: err}
	}

	data, body, err := extractFrontmatter(docCtx, p.Schema.Syntax, raw)
	if err != nil {
		return nil, err
	}
	if p.Schema.Syntax.Type == "markdown" {
		if data == nil {
			data = map[string]any{}
		}
		data[p.Schema.Syntax.Column] = body
	}

	root, ok := p.Schema.Table(p.Schema.Tables[0].Name)
	if !ok {
		return nil, fmt.Errorf("record: root table %q not found", p.Schema.Tables[0].Name)
	}

	node, err := p.processRow(ctx, docCtx, raw, root, data, nil)
	if err != nil {
		return nil, err
	}

	tables := Tables{}
	flatten(node, tables)
	return tables, nil
}

// rowNode is an intermediate, pre-flattening representation of one row.
type rowNode struct {
	table      *schema.TableSchema
	compoundID []IDPair
	fields     []Column
	hash       storage.Hash
	children   map[string][]*rowNode
}

func (p *Processor) processRow(ctx context.Context, baseCtx cmserr.Context, docBytes []byte, table *schema.TableSchema, data map[string]any, parentPrefix []IDPair) (*rowNode, error) {
	idRaw, ok := data[table.IDName]
	if !ok {
		return nil, &cmserr.MissingField{Ctx: baseCtx, Field: table.IDName}
	}
	idVal, ok := idRaw.(string)
	if !ok {
		return nil, &cmserr.TypeMismatch{Ctx: baseCtx, Field: table.IDName, Expected: "string", Got: fmt.Sprintf("%T", idRaw)}
	}
	rowCtx := cmserr.Context{Path: baseCtx.Path, ID: idVal}

	compoundID := append(append([]IDPair{}, parentPrefix...), IDPair{Name: table.IDName, Value: idVal})

	h := blake3.New(32, nil)
	h.Write(p.ConfigBytes)
	h.Write(docBytes)

	fields := make([]Column, 0, len(table.Fields))
	children := map[string][]*rowNode{}

	for _, f := range table.Fields {
		switch f.Kind() {
		case "id", "hash":
			if f.Kind() == "hash" {
				if _, present := data[f.Name()]; present {
					return nil, &cmserr.FoundComputedField{Ctx: rowCtx, Field: f.Name()}
				}
			}
			continue
		}

		h.Write([]byte(f.Name()))
		val, contrib, childRows, err := p.dispatchField(ctx, rowCtx, table, f, data[f.Name()], compoundID, data, docBytes)
		if err != nil {
			return nil, err
		}
		if childRows != nil {
			children[f.Name()] = childRows
			continue
		}
		fields = append(fields, Column{Name: f.Name(), Value: val})
		h.Write(contrib)
	}

	var hash storage.Hash
	copy(hash[:], h.Sum(nil))

	return &rowNode{table: table, compoundID: compoundID, fields: fields, hash: hash, children: children}, nil
}

// dispatchField resolves one field's value. It
// returns either (value, hashContribution, nil) for a column-bearing
// field, or (nil, nil, childRows) for a Records field, which never
// produces a column in the parent row.
func (p *Processor) dispatchField(ctx context.Context, rowCtx cmserr.Context, table *schema.TableSchema, f schema.Field, raw any, compoundID []IDPair, frontmatter map[string]any, docBytes []byte) (any, []byte, []*rowNode, error) {
	switch field := f.(type) {
	case schema.StringField:
		v, err := requireString(rowCtx, field, raw)
		return v, nil, nil, err

	case schema.IntegerField:
		v, err := requireInt(rowCtx, field, raw)
		return v, nil, nil, err

	case schema.RealField:
		v, err := requireFloat(rowCtx, field, raw)
		return v, nil, nil, err

	case schema.BooleanField:
		v, err := requireBool(rowCtx, field, raw)
		return v, nil, nil, err

	case schema.DateField:
		v, err := requireDate(rowCtx, field, raw)
		return v, nil, nil, err

	case schema.DatetimeField:
		v, err := requireDatetime(rowCtx, field, raw)
		return v, nil, nil, err

	case schema.ImageField:
		return p.dispatchImage(rowCtx, field, raw, compoundID)

	case schema.FileField:
		return p.dispatchFile(rowCtx, field, raw, compoundID)

	case schema.MarkdownField:
		return p.dispatchMarkdown(ctx, rowCtx, field, raw, compoundID, frontmatter)

	case schema.RecordsField:
		rows, err := p.dispatchRecords(ctx, rowCtx, field, raw, compoundID, docBytes)
		return nil, nil, rows, err

	default:
		return nil, nil, nil, fmt.Errorf("record: unhandled field kind %v", f.Kind())
	}
}

func requireString(ctx cmserr.Context, f schema.StringField, raw any) (any, error) {
	if raw == nil {
		if f.IsRequired() {
			return nil, &cmserr.MissingField{Ctx: ctx, Field: f.Name()}
		}
		return nil, nil
	}
	v, ok := raw.(string)
	if !ok {
		return nil, &cmserr.TypeMismatch{Ctx: ctx, Field: f.Name(), Expected: "string", Got: fmt.Sprintf("%T", raw)}
	}
	return v, nil
}

func requireInt(ctx cmserr.Context, f schema.IntegerField, raw any) (any, error) {
	if raw == nil {
		if f.IsRequired() {
			return nil, &cmserr.MissingField{Ctx: ctx, Field: f.Name()}
		}
		return nil, nil
	}
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return nil, &cmserr.TypeMismatch{Ctx: ctx, Field: f.Name(), Expected: "integer", Got: fmt.Sprintf("%T", raw)}
	}
}

func requireFloat(ctx cmserr.Context, f schema.RealField, raw any) (any, error) {
	if raw == nil {
		if f.IsRequired() {
			return nil, &cmserr.MissingField{Ctx: ctx, Field: f.Name()}
		}
		return nil, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return nil, &cmserr.TypeMismatch{Ctx: ctx, Field: f.Name(), Expected: "real", Got: fmt.Sprintf("%T", raw)}
	}
}

func requireBool(ctx cmserr.Context, f schema.BooleanField, raw any) (any, error) {
	if raw == nil {
		if f.IsRequired() {
			return nil, &cmserr.MissingField{Ctx: ctx, Field: f.Name()}
		}
		return nil, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return nil, &cmserr.TypeMismatch{Ctx: ctx, Field: f.Name(), Expected: "boolean", Got: fmt.Sprintf("%T", raw)}
	}
	return v, nil
}

func requireDate(ctx cmserr.Context, f schema.DateField, raw any) (any, error) {
	if raw == nil {
		if f.IsRequired() {
			return nil, &cmserr.MissingField{Ctx: ctx, Field: f.Name()}
		}
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, &cmserr.TypeMismatch{Ctx: ctx, Field: f.Name(), Expected: "date", Got: fmt.Sprintf("%T", raw)}
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return nil, &cmserr.InvalidDate{Ctx: ctx, Field: f.Name(), Value: s}
	}
	return s, nil
}

func requireDatetime(ctx cmserr.Context, f schema.DatetimeField, raw any) (any, error) {
	if raw == nil {
		if f.IsRequired() {
			return nil, &cmserr.MissingField{Ctx: ctx, Field: f.Name()}
		}
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, &cmserr.TypeMismatch{Ctx: ctx, Field: f.Name(), Expected: "datetime", Got: fmt.Sprintf("%T", raw)}
	}
	if _, err := time.Parse(time.RFC3339, s); err != nil {
		return nil, &cmserr.InvalidDatetime{Ctx: ctx, Field: f.Name(), Value: s}
	}
	return s, nil
}

func (p *Processor) dispatchImage(ctx cmserr.Context, f schema.ImageField, raw any, compoundID []IDPair) (any, []byte, []*rowNode, error) {
	ref, err := p.loadAndBuild(ctx, raw, f.Name(), f.IsRequired(), f.Storage, compoundID, "image")
	if err != nil || ref == nil {
		return nil, nil, nil, err
	}
	return ref, ref.Hash[:], nil, nil
}

func (p *Processor) dispatchFile(ctx cmserr.Context, f schema.FileField, raw any, compoundID []IDPair) (any, []byte, []*rowNode, error) {
	ref, err := p.loadAndBuild(ctx, raw, f.Name(), f.IsRequired(), f.Storage, compoundID, "application/octet-stream")
	if err != nil || ref == nil {
		return nil, nil, nil, err
	}
	return ref, ref.Hash[:], nil, nil
}

func (p *Processor) loadAndBuild(ctx cmserr.Context, raw any, fieldName string, required bool, dest schema.StorageKind, compoundID []IDPair, contentType string) (*storage.ObjectReference, error) {
	if raw == nil {
		if required {
			return nil, &cmserr.MissingField{Ctx: ctx, Field: fieldName}
		}
		return nil, nil
	}
	src, ok := raw.(string)
	if !ok {
		return nil, &cmserr.TypeMismatch{Ctx: ctx, Field: fieldName, Expected: "string", Got: fmt.Sprintf("%T", raw)}
	}

	obj, err := objectload.Load(ctx, src, ctx.Path)
	if err != nil {
		return nil, err
	}

	rowID := compoundKey(compoundID)
	ref, err := storage.Build(obj.Body, rowID, contentType, storage.FileMeta{}, dest, obj.DerivedID)
	if err != nil {
		return nil, err
	}
	p.Collector.Add(ref, obj.Body)
	return ref, nil
}

func (p *Processor) dispatchMarkdown(ctx context.Context, rowCtx cmserr.Context, f schema.MarkdownField, raw any, compoundID []IDPair, frontmatter map[string]any) (any, []byte, []*rowNode, error) {
	src, _ := raw.(string)

	fmJSON, err := json.Marshal(frontmatterWithoutBody(frontmatter, f.Name()))
	if err != nil {
		return nil, nil, nil, err
	}

	rowID := compoundKey(compoundID)
	uploader := func(data []byte, derivedID, contentType string, width, height int) (*storage.ObjectReference, error) {
		meta := storage.ImageMeta{Width: width, Height: height, DerivedID: derivedID}
		ref, err := storage.Build(data, rowID, contentType, meta, f.ImageStorage, derivedID)
		if err != nil {
			return nil, err
		}
		p.Collector.Add(ref, data)
		return ref, nil
	}

	fragments, footnotes, sections, imageHashes, err := markdown.Process(ctx, []byte(src), markdown.Options{
		Ctx:               rowCtx,
		DocumentPath:      rowCtx.Path,
		EmbedSVGThreshold: f.EmbedSVGThreshold,
		Upload:            uploader,
		Highlighter:       p.Highlighter,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	doc := markdown.Document{
		Frontmatter: fmJSON,
		Root:        fragments,
		Footnotes:   footnotes,
		Sections:    sections,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, nil, err
	}

	hashContrib := make([]byte, 0, len(imageHashes)*32)
	for _, h := range imageHashes {
		hashContrib = append(hashContrib, h[:]...)
	}

	if _, ok := f.Storage.(schema.InlineStorage); ok {
		return json.RawMessage(payload), hashContrib, nil, nil
	}

	ref, err := storage.Build(payload, rowID, "application/json", storage.MarkdownMeta{}, f.Storage, "")
	if err != nil {
		return nil, nil, nil, err
	}
	p.Collector.Add(ref, payload)
	return ref, append(hashContrib, ref.Hash[:]...), nil, nil
}

func (p *Processor) dispatchRecords(ctx context.Context, rowCtx cmserr.Context, f schema.RecordsField, raw any, compoundID []IDPair, docBytes []byte) ([]*rowNode, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, &cmserr.TypeMismatch{Ctx: rowCtx, Field: f.Name(), Expected: "array", Got: fmt.Sprintf("%T", raw)}
	}

	childTable, ok := p.Schema.Table(f.Table)
	if !ok {
		return nil, fmt.Errorf("record: field %q references unknown table %q", f.Name(), f.Table)
	}

	var rows []*rowNode
	for _, item := range items {
		var childData map[string]any
		switch v := item.(type) {
		case string:
			childData = map[string]any{childTable.IDName: v}
		case map[string]any:
			childData = v
		default:
			return nil, &cmserr.TypeMismatch{Ctx: rowCtx, Field: f.Name(), Expected: "string or object", Got: fmt.Sprintf("%T", item)}
		}
		child, err := p.processRow(ctx, rowCtx, docBytes, childTable, childData, compoundID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, child)
	}
	return rows, nil
}

func compoundKey(ids []IDPair) string {
	s := ""
	for i, p := range ids {
		if i > 0 {
			s += "/"
		}
		s += p.Value
	}
	return s
}

// frontmatterWithoutBody copies frontmatter, dropping the markdown field's
// own body column so the embedded Document.Frontmatter doesn't duplicate
// the full body text it already carries as Root.
func frontmatterWithoutBody(frontmatter map[string]any, bodyColumn string) map[string]any {
	out := make(map[string]any, len(frontmatter))
	for k, v := range frontmatter {
		if k == bodyColumn {
			continue
		}
		out[k] = v
	}
	return out
}

// flatten appends n and its descendants into tables, materializing
// compound-id and hash columns onto each row.
func flatten(n *rowNode, tables Tables) {
	row := make(Row, 0, len(n.compoundID)+len(n.fields)+1)
	for _, id := range n.compoundID {
		row = append(row, Column{Name: id.Name, Value: id.Value})
	}
	row = append(row, n.fields...)
	if n.table.HashName != "" {
		row = append(row, Column{Name: n.table.HashName, Value: n.hash.String()})
	}
	tables[n.table.Name] = append(tables[n.table.Name], row)

	for _, children := range n.children {
		for _, child := range children {
			flatten(child, tables)
		}
	}
}
