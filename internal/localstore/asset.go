package localstore

import (
	"context"
	"os"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/agentic-research/mache/internal/storage"
)

// Asset implements storage.Asset against a go-billy filesystem rooted at
// a local directory, used directly as a plain local-disk filesystem.
type Asset struct {
	fs billy.Filesystem
}

func NewAsset(root string) *Asset {
	return &Asset{fs: osfs.New(root)}
}

func (a *Asset) Put(ctx context.Context, path string, body []byte) error {
	if err := a.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := a.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(body); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (a *Asset) Delete(ctx context.Context, path string) error {
	err := a.fs.Remove(path)
	if os.IsNotExist(err) {
		return nil // delete of an absent key is not an error
	}
	return err
}

var _ storage.Asset = (*Asset)(nil)
