package localstore

import (
	"context"
	"os"
	"path"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/agentic-research/mache/internal/storage"
)

// Kv implements storage.Kv by laying each namespace out as a subdirectory
// and each key as a file — the same go-billy filesystem primitive Asset
// uses, so `dump` needs only one filesystem root for
// both Asset and Kv traffic.
type Kv struct {
	fs billy.Filesystem
}

func NewKv(root string) *Kv {
	return &Kv{fs: osfs.New(root)}
}

func (k *Kv) WriteMultiple(ctx context.Context, namespace string, pairs map[string][]byte) error {
	dir := namespace
	if err := k.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for key, val := range pairs {
		f, err := k.fs.OpenFile(path.Join(dir, key), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		if _, err := f.Write(val); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (k *Kv) DeleteMultiple(ctx context.Context, namespace string, keys []string) error {
	for _, key := range keys {
		err := k.fs.Remove(path.Join(namespace, key))
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

var _ storage.Kv = (*Kv)(nil)

// ObjectStore implements storage.ObjectStore the same way, one bucket per
// subdirectory; content-type is not recoverable from the filesystem so
// local/dump runs lose it on read (acceptable: the executor never reads
// object bytes back, only the fetch-objects ledger rows).
type ObjectStore struct {
	fs billy.Filesystem
}

func NewObjectStore(root string) *ObjectStore {
	return &ObjectStore{fs: osfs.New(root)}
}

func (o *ObjectStore) Put(ctx context.Context, bucket, key, contentType string, body []byte) error {
	dir := path.Join(bucket, path.Dir(key))
	if err := o.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := o.fs.OpenFile(path.Join(bucket, key), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(body); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (o *ObjectStore) Delete(ctx context.Context, bucket, key string) error {
	err := o.fs.Remove(path.Join(bucket, key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

var _ storage.ObjectStore = (*ObjectStore)(nil)
