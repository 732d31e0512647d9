// Package schema compiles a user-supplied api.Collection config into a
// CollectionSchema: the closed, ordered, validated representation the rest
// of the pipeline (record processing, SQL generation, the executor) walks.
// Schemas are created once at startup and are immutable afterward.
package schema

import (
	"fmt"

	"github.com/agentic-research/mache/api"
	"github.com/agentic-research/mache/internal/cmserr"
)

// Field is the closed sum of declarable field types. Each variant
// is a distinct struct; Kind recovers the tag without a type switch at
// every call site.
type Field interface {
	Name() string
	Kind() api.FieldKind
	IsRequired() bool
	RequiresIndex() bool
	// IsObjectField is true for Image/File/Markdown: fields whose column
	// value is an object-reference with a content hash, eligible for GC.
	IsObjectField() bool
}

type baseField struct {
	name     string
	required bool
	index    bool
}

func (f baseField) Name() string        { return f.name }
func (f baseField) IsRequired() bool    { return f.required }
func (f baseField) RequiresIndex() bool { return f.index }
func (f baseField) IsObjectField() bool { return false }

type IDField struct{ baseField }

func (IDField) Kind() api.FieldKind { return api.FieldID }

type HashField struct{ baseField }

func (HashField) Kind() api.FieldKind { return api.FieldHash }

type StringField struct{ baseField }

func (StringField) Kind() api.FieldKind { return api.FieldString }

type IntegerField struct{ baseField }

func (IntegerField) Kind() api.FieldKind { return api.FieldInteger }

type RealField struct{ baseField }

func (RealField) Kind() api.FieldKind { return api.FieldReal }

type BooleanField struct{ baseField }

func (BooleanField) Kind() api.FieldKind { return api.FieldBoolean }

type DateField struct{ baseField }

func (DateField) Kind() api.FieldKind { return api.FieldDate }

type DatetimeField struct{ baseField }

func (DatetimeField) Kind() api.FieldKind { return api.FieldDatetime }

// ImageField stores an object-reference to an uploaded/embedded image.
type ImageField struct {
	baseField
	Storage           StorageKind
	MaxWidth          int
	EmbedSVGThreshold int
}

func (ImageField) Kind() api.FieldKind { return api.FieldImage }
func (ImageField) IsObjectField() bool { return true }

// FileField stores an object-reference to an uploaded file blob.
type FileField struct {
	baseField
	Storage StorageKind
}

func (FileField) Kind() api.FieldKind { return api.FieldFile }
func (FileField) IsObjectField() bool { return true }

// MarkdownField stores either an inline JSON blob (StorageInline) or an
// object-reference to the compressed markdown payload.
type MarkdownField struct {
	baseField
	Storage           StorageKind // for the compressed document payload
	ImageStorage      StorageKind // per-image storage, scoped by row CompoundId
	EmbedSVGThreshold int
}

func (MarkdownField) Kind() api.FieldKind { return api.FieldMarkdown }
func (MarkdownField) IsObjectField() bool { return true }

// RecordsField expands into a child table at compile time; it never
// produces a column of its own in the parent table.
type RecordsField struct {
	baseField
	Table string
}

func (RecordsField) Kind() api.FieldKind { return api.FieldRecords }

// StorageKind is the closed sum of storage destinations.
type StorageKind interface {
	isStorageKind()
}

type R2Storage struct {
	Bucket string
	Prefix string
}

type AssetStorage struct {
	Dir string
}

type KvStorage struct {
	Namespace string
	Prefix    string
}

type InlineStorage struct{}

func (R2Storage) isStorageKind()     {}
func (AssetStorage) isStorageKind()  {}
func (KvStorage) isStorageKind()     {}
func (InlineStorage) isStorageKind() {}

// ParentRef names a table's parent for Records-derived child tables.
type ParentRef struct {
	Table string
	// IDNames is the parent's full compound-id field-name chain, inherited
	// verbatim as a prefix of the child's InheritIDs.
	IDNames []string
}

// TableSchema is one table's compiled definition.
type TableSchema struct {
	Name       string
	Fields     []Field // ordered; dispatch and SQL column order follow this
	IDName     string
	HashName   string // empty if the table has no Hash field
	InheritIDs []string
	Parent     *ParentRef
}

// Field looks up a field by name, or nil.
func (t *TableSchema) Field(name string) Field {
	for _, f := range t.Fields {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// CompoundKeyNames returns InheritIDs followed by this table's own id name —
// the full ordered primary-key column list.
func (t *TableSchema) CompoundKeyNames() []string {
	out := make([]string, 0, len(t.InheritIDs)+1)
	out = append(out, t.InheritIDs...)
	out = append(out, t.IDName)
	return out
}

// CollectionSchema is an ordered mapping from table name to TableSchema.
// Order is preserved (parent tables precede the children Records flattening
// produced from them) so SQL emission is deterministic and respects FK
// dependency order.
type CollectionSchema struct {
	Name   string
	Glob   string
	Syntax api.Syntax
	Tables []*TableSchema

	byName map[string]*TableSchema
}

func (s *CollectionSchema) Table(name string) (*TableSchema, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// Compile validates an api.Collection and produces its CollectionSchema,
// flattening nested Records fields into sibling table entries.
func Compile(cfg api.Collection) (*CollectionSchema, error) {
	if err := cfg.Syntax.Validate(); err != nil {
		return nil, err
	}

	out := &CollectionSchema{
		Name:   cfg.Name,
		Glob:   cfg.Glob,
		Syntax: cfg.Syntax,
		byName: make(map[string]*TableSchema),
	}

	root, err := compileTable(cfg.Table, cfg.Schema, nil)
	if err != nil {
		return nil, err
	}
	if err := appendTable(out, root); err != nil {
		return nil, err
	}
	if err := flattenRecords(out, root, cfg.Schema); err != nil {
		return nil, err
	}
	return out, nil
}

func appendTable(out *CollectionSchema, t *TableSchema) error {
	if _, exists := out.byName[t.Name]; exists {
		return fmt.Errorf("duplicate table name %q", t.Name)
	}
	out.Tables = append(out.Tables, t)
	out.byName[t.Name] = t
	return nil
}

// compileTable compiles one table's field list without recursing into
// Records children (the caller flattens those separately via
// flattenRecords, so table order stays a simple append — parent always
// precedes its children).
func compileTable(name string, def api.FieldList, parent *ParentRef) (*TableSchema, error) {
	t := &TableSchema{Name: name, Parent: parent}
	if parent != nil {
		t.InheritIDs = append([]string{}, parent.IDNames...)
	}

	for _, nf := range def {
		f, err := compileField(nf.Name, nf.Field)
		if err != nil {
			return nil, err
		}
		t.Fields = append(t.Fields, f)
		switch f.Kind() {
		case api.FieldID:
			if t.IDName != "" {
				return nil, fmt.Errorf("table %q has more than one Id field", name)
			}
			t.IDName = f.Name()
		case api.FieldHash:
			if t.HashName != "" {
				return nil, fmt.Errorf("table %q has more than one Hash field", name)
			}
			t.HashName = f.Name()
		}
	}

	if t.IDName == "" {
		return nil, &cmserr.IdUndefined{Table: name}
	}
	return t, nil
}

func compileField(name string, def *api.Field) (Field, error) {
	if def == nil {
		return nil, fmt.Errorf("field %q: missing definition", name)
	}
	base := baseField{name: name, required: def.Required, index: def.Index}
	switch def.Type {
	case api.FieldID:
		return IDField{base}, nil
	case api.FieldHash:
		return HashField{base}, nil
	case api.FieldString:
		return StringField{base}, nil
	case api.FieldInteger:
		return IntegerField{base}, nil
	case api.FieldReal:
		return RealField{base}, nil
	case api.FieldBoolean:
		return BooleanField{base}, nil
	case api.FieldDate:
		return DateField{base}, nil
	case api.FieldDatetime:
		return DatetimeField{base}, nil
	case api.FieldImage:
		st, err := compileStorage(def.Storage)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		f := ImageField{baseField: base, Storage: st}
		if def.Transform != nil {
			f.MaxWidth = def.Transform.MaxWidth
			f.EmbedSVGThreshold = def.Transform.EmbedSVGThreshold
		}
		return f, nil
	case api.FieldFile:
		st, err := compileStorage(def.Storage)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		return FileField{baseField: base, Storage: st}, nil
	case api.FieldMarkdown:
		mf := MarkdownField{baseField: base, Storage: InlineStorage{}}
		if def.BodyConfig != nil && def.BodyConfig.Storage != nil {
			st, err := compileStorage(def.BodyConfig.Storage)
			if err != nil {
				return nil, fmt.Errorf("field %q: body: %w", name, err)
			}
			mf.Storage = st
		}
		if def.ImageConfig != nil {
			mf.EmbedSVGThreshold = def.ImageConfig.EmbedSVGThreshold
			if def.ImageConfig.Storage != nil {
				st, err := compileStorage(def.ImageConfig.Storage)
				if err != nil {
					return nil, fmt.Errorf("field %q: image: %w", name, err)
				}
				mf.ImageStorage = st
			}
		}
		return mf, nil
	case api.FieldRecords:
		if def.Table == "" {
			return nil, fmt.Errorf("field %q: records requires table", name)
		}
		return RecordsField{baseField: base, Table: def.Table}, nil
	default:
		return nil, fmt.Errorf("field %q: unknown type %q", name, def.Type)
	}
}

func compileStorage(spec *api.StorageSpec) (StorageKind, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Kind {
	case api.StorageR2:
		return R2Storage{Bucket: spec.Bucket, Prefix: spec.Prefix}, nil
	case api.StorageAsset:
		return AssetStorage{Dir: spec.Dir}, nil
	case api.StorageKv:
		return KvStorage{Namespace: spec.Namespace, Prefix: spec.Prefix}, nil
	case api.StorageInline:
		return InlineStorage{}, nil
	default:
		return nil, fmt.Errorf("storage: unknown kind %q", spec.Kind)
	}
}

// flattenRecords walks a table's RecordsField members and compiles each as
// a sibling table, recursively flattening grandchildren. Each child table's
// InheritIDs is parent.InheritIDs ++ [parent.IDName].
func flattenRecords(out *CollectionSchema, parent *TableSchema, parentDef api.FieldList) error {
	for _, f := range parent.Fields {
		rf, ok := f.(RecordsField)
		if !ok {
			continue
		}
		childDef := parentDef.Get(rf.Name())
		if childDef == nil || childDef.Fields == nil {
			return fmt.Errorf("records field %q: missing child field list", rf.Name())
		}
		pref := &ParentRef{Table: parent.Name, IDNames: parent.CompoundKeyNames()}
		child, err := compileTable(rf.Table, childDef.Fields, pref)
		if err != nil {
			return err
		}
		if err := appendTable(out, child); err != nil {
			return err
		}
		if err := flattenRecords(out, child, childDef.Fields); err != nil {
			return err
		}
	}
	return nil
}
