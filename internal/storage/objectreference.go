package storage

import (
	"encoding/base64"
	"fmt"

	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/mache/internal/schema"
)

// ObjectReference is a typed database value serialized into a single
// column: { hash, size, content_type, meta, pointer }.
type ObjectReference struct {
	Hash        Hash
	Size        int64
	ContentType string
	Meta        Meta
	Pointer     Pointer
}

// Build computes a Pointer and content Hash deterministically from its
// inputs.
func Build(data []byte, id, contentType string, meta Meta, dest schema.StorageKind, suffix string) (*ObjectReference, error) {
	p, err := buildPointer(id, dest, suffix, data)
	if err != nil {
		return nil, err
	}
	return &ObjectReference{
		Hash:        contentHash(data, p),
		Size:        int64(len(data)),
		ContentType: contentType,
		Meta:        meta,
		Pointer:     p,
	}, nil
}

func buildPointer(id string, dest schema.StorageKind, suffix string, data []byte) (Pointer, error) {
	switch d := dest.(type) {
	case schema.R2Storage:
		return R2Pointer{Bucket: d.Bucket, Key_: joinKey(d.Prefix, id, suffix)}, nil
	case schema.AssetStorage:
		return AssetPointer{Path: joinKey(d.Dir, id, suffix)}, nil
	case schema.KvStorage:
		return KvPointer{Namespace: d.Namespace, Key_: joinKey(d.Prefix, id, suffix)}, nil
	case schema.InlineStorage:
		return InlinePointer{Content: data, Base64: true}, nil
	default:
		return nil, fmt.Errorf("storage: unsupported destination %T", dest)
	}
}

// --- JSON wire encoding ---
//
// Marshaling goes through ojg/oj rather than stdlib encoding/json: unlike
// encoding/json, oj.Marshal does not sort map keys by default (it trades
// that for speed), so every call here passes &oj.Options{Sort: true}
// explicitly. The payload is built as a plain map[string]any tree so
// sorting applies recursively to the nested meta/pointer objects too —
// the payload stays byte-identical across runs, which the pointer- and
// hash-determinism properties depend on.

var sortedJSON = &oj.Options{Sort: true}

func pointerToMap(p Pointer) (map[string]any, error) {
	switch v := p.(type) {
	case R2Pointer:
		return map[string]any{"kind": "r2", "bucket": v.Bucket, "key": v.Key_}, nil
	case AssetPointer:
		return map[string]any{"kind": "asset", "path": v.Path}, nil
	case KvPointer:
		return map[string]any{"kind": "kv", "namespace": v.Namespace, "key": v.Key_}, nil
	case InlinePointer:
		content := string(v.Content)
		if v.Base64 {
			content = base64.StdEncoding.EncodeToString(v.Content)
		}
		return map[string]any{"kind": "inline", "content": content, "base64": v.Base64}, nil
	default:
		return nil, fmt.Errorf("storage: unknown pointer type %T", p)
	}
}

func pointerFromMap(obj map[string]any) (Pointer, error) {
	str := func(k string) string {
		s, _ := obj[k].(string)
		return s
	}
	kind, _ := obj["kind"].(string)
	switch kind {
	case "r2":
		return R2Pointer{Bucket: str("bucket"), Key_: str("key")}, nil
	case "asset":
		return AssetPointer{Path: str("path")}, nil
	case "kv":
		return KvPointer{Namespace: str("namespace"), Key_: str("key")}, nil
	case "inline":
		base64Flag, _ := obj["base64"].(bool)
		content := []byte(str("content"))
		if base64Flag {
			decoded, err := base64.StdEncoding.DecodeString(str("content"))
			if err != nil {
				return nil, fmt.Errorf("storage: decode inline pointer: %w", err)
			}
			content = decoded
		}
		return InlinePointer{Content: content, Base64: base64Flag}, nil
	default:
		return nil, fmt.Errorf("storage: unknown pointer kind %q", kind)
	}
}

// ParsePointer decodes a pointer's JSON wire form (as read back from the
// fetch-objects query or a DB column).
func ParsePointer(raw []byte) (Pointer, error) {
	parsed, err := oj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("storage: parse pointer: %w", err)
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("storage: parse pointer: not a JSON object")
	}
	return pointerFromMap(obj)
}

func (r *ObjectReference) MarshalJSON() ([]byte, error) {
	ptrMap, err := pointerToMap(r.Pointer)
	if err != nil {
		return nil, err
	}
	obj := map[string]any{
		"hash":         r.Hash.String(),
		"size":         r.Size,
		"content_type": r.ContentType,
		"meta":         r.Meta.ToMap(),
		"pointer":      ptrMap,
	}
	return oj.Marshal(obj, sortedJSON)
}

func (r *ObjectReference) UnmarshalJSON(raw []byte) error {
	parsed, err := oj.Parse(raw)
	if err != nil {
		return fmt.Errorf("storage: parse object reference: %w", err)
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return fmt.Errorf("storage: parse object reference: not a JSON object")
	}

	hashStr, _ := obj["hash"].(string)
	h, err := ParseHash(hashStr)
	if err != nil {
		return fmt.Errorf("storage: parse object reference hash: %w", err)
	}

	ptrObj, _ := obj["pointer"].(map[string]any)
	p, err := pointerFromMap(ptrObj)
	if err != nil {
		return err
	}

	r.Hash = h
	r.Size = toInt64(obj["size"])
	r.ContentType, _ = obj["content_type"].(string)
	r.Pointer = p
	// Meta's concrete type cannot be recovered without knowing the field
	// kind; callers that need it decode obj["meta"] themselves via the
	// field schema. Leave Meta nil here.
	r.Meta = nil
	return nil
}

// toInt64 normalizes the numeric type oj.Parse hands back for a JSON
// number (int64 for integral literals, float64 otherwise) into int64.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}
