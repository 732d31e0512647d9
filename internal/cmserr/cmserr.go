// Package cmserr defines a typed error taxonomy. Every kind is a
// concrete struct implementing error so callers can recover structured
// fields with errors.As while higher layers keep wrapping with
// fmt.Errorf's %w, the same sentinel-error idiom as graph.ErrNotFound.
package cmserr

import "fmt"

// Context enriches a document/typing error with the path and, once known,
// the row id.
type Context struct {
	Path string
	ID   string // empty until the id field has been resolved
}

func (c Context) String() string {
	if c.ID == "" {
		return c.Path
	}
	return fmt.Sprintf("%s (id=%s)", c.Path, c.ID)
}

// Configuration errors.

type IdUndefined struct{ Table string }

func (e *IdUndefined) Error() string {
	return fmt.Sprintf("table %q has no Id field", e.Table)
}

type HashUndefined struct{ Table string }

func (e *HashUndefined) Error() string {
	return fmt.Sprintf("table %q references a Hash field that is not defined", e.Table)
}

// Document errors.

type ReadDocument struct {
	Ctx Context
	Err error
}

func (e *ReadDocument) Error() string { return fmt.Sprintf("read document %s: %v", e.Ctx, e.Err) }
func (e *ReadDocument) Unwrap() error { return e.Err }

type ParseToml struct {
	Ctx Context
	Err error
}

func (e *ParseToml) Error() string { return fmt.Sprintf("parse toml %s: %v", e.Ctx, e.Err) }
func (e *ParseToml) Unwrap() error { return e.Err }

type ParseYaml struct {
	Ctx Context
	Err error
}

func (e *ParseYaml) Error() string { return fmt.Sprintf("parse yaml %s: %v", e.Ctx, e.Err) }
func (e *ParseYaml) Unwrap() error { return e.Err }

type UnclosedFrontmatter struct{ Ctx Context }

func (e *UnclosedFrontmatter) Error() string {
	return fmt.Sprintf("unclosed frontmatter in %s", e.Ctx)
}

// Typing errors.

type TypeMismatch struct {
	Ctx      Context
	Field    string
	Expected string
	Got      string
}

func (e *TypeMismatch) Error() string {
	return fmt.Sprintf("%s: field %q: expected %s, got %s", e.Ctx, e.Field, e.Expected, e.Got)
}

type MissingField struct {
	Ctx   Context
	Field string
}

func (e *MissingField) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Ctx, e.Field)
}

type InvalidDate struct {
	Ctx   Context
	Field string
	Value string
}

func (e *InvalidDate) Error() string {
	return fmt.Sprintf("%s: field %q: invalid date %q (want YYYY-MM-DD)", e.Ctx, e.Field, e.Value)
}

type InvalidDatetime struct {
	Ctx   Context
	Field string
	Value string
}

func (e *InvalidDatetime) Error() string {
	return fmt.Sprintf("%s: field %q: invalid datetime %q (want RFC3339)", e.Ctx, e.Field, e.Value)
}

type FoundComputedField struct {
	Ctx   Context
	Field string
}

func (e *FoundComputedField) Error() string {
	return fmt.Sprintf("%s: field %q is computed and may not be set by the author", e.Ctx, e.Field)
}

type InvalidParentIdNames struct {
	Ctx   Context
	Table string
}

func (e *InvalidParentIdNames) Error() string {
	return fmt.Sprintf("%s: table %q has an invalid parent id chain", e.Ctx, e.Table)
}

// Asset errors.

type Load struct {
	Ctx    Context
	Origin string
	Err    error
}

func (e *Load) Error() string { return fmt.Sprintf("%s: load %s: %v", e.Ctx, e.Origin, e.Err) }
func (e *Load) Unwrap() error { return e.Err }

type LoadImage struct {
	Ctx    Context
	Origin string
	Err    error
}

func (e *LoadImage) Error() string {
	return fmt.Sprintf("%s: load image %s: %v", e.Ctx, e.Origin, e.Err)
}
func (e *LoadImage) Unwrap() error { return e.Err }

type ParentPathNotFound struct {
	Ctx    Context
	Origin string
}

func (e *ParentPathNotFound) Error() string {
	return fmt.Sprintf("%s: parent path for %s not found", e.Ctx, e.Origin)
}

type CanonicalizePath struct {
	Ctx    Context
	Origin string
	Err    error
}

func (e *CanonicalizePath) Error() string {
	return fmt.Sprintf("%s: canonicalize %s: %v", e.Ctx, e.Origin, e.Err)
}
func (e *CanonicalizePath) Unwrap() error { return e.Err }

// Storage errors.

type ObjectStorage struct{ Err error }

func (e *ObjectStorage) Error() string { return fmt.Sprintf("object storage: %v", e.Err) }
func (e *ObjectStorage) Unwrap() error { return e.Err }

type Kv struct{ Err error }

func (e *Kv) Error() string { return fmt.Sprintf("kv: %v", e.Err) }
func (e *Kv) Unwrap() error { return e.Err }

type Asset struct{ Err error }

func (e *Asset) Error() string { return fmt.Sprintf("asset: %v", e.Err) }
func (e *Asset) Unwrap() error { return e.Err }

// Database errors.

type Database struct{ Err error }

func (e *Database) Error() string { return fmt.Sprintf("database: %v", e.Err) }
func (e *Database) Unwrap() error { return e.Err }

// NotImplemented marks an external-collaborator boundary: a backend whose
// wire protocol this module documents but does not speak.
type NotImplemented struct {
	Backend   string // "d1" | "kv" | "r2" | "assets"
	Operation string
}

func (e *NotImplemented) Error() string {
	return fmt.Sprintf("%s: %s not implemented (external collaborator boundary)", e.Backend, e.Operation)
}
