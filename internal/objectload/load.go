// Package objectload resolves an Image/File field's source string to its
// bytes: a remote URL, a data: URL, or a path relative to
// the document that referenced it.
package objectload

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"

	"github.com/agentic-research/mache/internal/cmserr"
)

// OriginKind tags where an Object's bytes came from.
type OriginKind int

const (
	OriginRemote OriginKind = iota
	OriginLocal
	OriginDataURL
)

// Object is the loaded payload plus enough provenance to derive a stable id.
type Object struct {
	Body      []byte
	DerivedID string
	Hash      [32]byte
	Origin    OriginKind
	URL       string // set for OriginRemote
	Path      string // set for OriginLocal
}

// HTTPClient lets callers swap in a test double; defaults to http.DefaultClient.
var HTTPClient = http.DefaultClient

// Load resolves src against documentPath (the file the reference appeared
// in; empty for a bare path).
func Load(ctx cmserr.Context, src string, documentPath string) (*Object, error) {
	if u, ok := parseHTTPURL(src); ok {
		body, err := loadRemote(u)
		if err != nil {
			return nil, &cmserr.Load{Ctx: ctx, Origin: src, Err: err}
		}
		return &Object{
			Body:      body,
			DerivedID: deriveIDFromURL(src),
			Hash:      blake3.Sum256(body),
			Origin:    OriginRemote,
			URL:       src,
		}, nil
	}

	if body, ok := decodeDataURL(src); ok {
		return &Object{
			Body:      body,
			DerivedID: deriveIDFromURL(src),
			Hash:      blake3.Sum256(body),
			Origin:    OriginDataURL,
		}, nil
	}

	path := src
	if documentPath != "" {
		abs, err := filepath.Abs(documentPath)
		if err != nil {
			return nil, &cmserr.Load{Ctx: ctx, Origin: src, Err: &cmserr.CanonicalizePath{Ctx: ctx, Origin: documentPath, Err: err}}
		}
		parent := filepath.Dir(abs)
		if parent == "" || parent == abs {
			return nil, &cmserr.Load{Ctx: ctx, Origin: src, Err: &cmserr.ParentPathNotFound{Ctx: ctx, Origin: documentPath}}
		}
		path = filepath.Join(parent, src)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, &cmserr.Load{Ctx: ctx, Origin: src, Err: err}
	}
	return &Object{
		Body:      body,
		DerivedID: deriveIDFromPath(src),
		Hash:      blake3.Sum256(body),
		Origin:    OriginLocal,
		Path:      src,
	}, nil
}

func loadRemote(u *url.URL) ([]byte, error) {
	resp, err := HTTPClient.Get(u.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("remote fetch %s: status %d", u, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func parseHTTPURL(src string) (*url.URL, bool) {
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, false
	}
	return u, true
}

func decodeDataURL(src string) ([]byte, bool) {
	if !strings.HasPrefix(src, "data:") {
		return nil, false
	}
	comma := strings.IndexByte(src, ',')
	if comma < 0 {
		return nil, false
	}
	meta, payload := src[5:comma], src[comma+1:]
	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, false
		}
		return decoded, true
	}
	unescaped, err := url.QueryUnescape(payload)
	if err != nil {
		return nil, false
	}
	return []byte(unescaped), true
}

func deriveIDFromPath(p string) string {
	id := strings.TrimPrefix(p, "./")
	id = strings.TrimPrefix(id, "/")
	id = strings.TrimSuffix(id, "/")
	return id
}

func deriveIDFromURL(u string) string {
	return url.QueryEscape(u)
}
