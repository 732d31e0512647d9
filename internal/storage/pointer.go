// Package storage defines the canonical identity of a stored blob (a
// Pointer), the content-hash rule that derives its identity, the
// ObjectReference column value, and the four backend contracts the
// executor depends on.
package storage

import (
	"fmt"
	"path"
)

// Pointer is the closed sum of "where a byte blob lives".
// Its structure alone determines routing of upload/delete.
type Pointer interface {
	// kindTag is the fixed byte tag mixed into the content hash ahead of
	// the locator fields.
	kindTag() []byte
	// locatorFields returns the locator fields in the fixed order the
	// hash rule requires.
	locatorFields() []string
	// Key is a human-readable identity of the storage location; the
	// executor's delete mask is keyed on it.
	Key() string
}

type R2Pointer struct {
	Bucket string
	Key_   string
}

func (p R2Pointer) kindTag() []byte          { return []byte("r2") }
func (p R2Pointer) locatorFields() []string  { return []string{p.Bucket, p.Key_} }
func (p R2Pointer) Key() string              { return "r2://" + p.Bucket + "/" + p.Key_ }

type AssetPointer struct {
	Path string
}

func (p AssetPointer) kindTag() []byte         { return []byte("asset") }
func (p AssetPointer) locatorFields() []string { return []string{p.Path} }
func (p AssetPointer) Key() string             { return "asset://" + p.Path }

type KvPointer struct {
	Namespace string
	Key_      string
}

func (p KvPointer) kindTag() []byte         { return []byte("kv") }
func (p KvPointer) locatorFields() []string { return []string{p.Namespace, p.Key_} }
func (p KvPointer) Key() string              { return "kv://" + p.Namespace + "/" + p.Key_ }

// InlinePointer carries the (possibly base64-encoded) payload itself; it
// never reaches a backend driver — the upload collector drops inline uploads and
// the record processor embeds the content directly into the column value.
type InlinePointer struct {
	Content []byte
	Base64  bool
}

func (p InlinePointer) kindTag() []byte { return []byte("inline") }
func (p InlinePointer) locatorFields() []string {
	if p.Base64 {
		return []string{"b64", string(p.Content)}
	}
	return []string{"raw", string(p.Content)}
}
func (p InlinePointer) Key() string {
	n := len(p.Content)
	if n > 8 {
		n = 8
	}
	return "inline://" + fmt.Sprintf("%x", p.Content[:n])
}

// joinKey builds "{prefix?/}{id}{/suffix?}" — the shared key-construction
// rule used by R2, Kv and Asset storage.
func joinKey(prefix, id, suffix string) string {
	parts := make([]string, 0, 3)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, id)
	if suffix != "" {
		parts = append(parts, suffix)
	}
	return path.Join(parts...)
}
