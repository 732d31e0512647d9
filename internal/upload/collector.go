// Package upload collects the blobs a batch run produces and fans their
// writes out across the storage backends.
package upload

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/mache/internal/storage"
)

// Item pairs an object reference with the bytes it points at.
type Item struct {
	Ref  *storage.ObjectReference
	Data []byte
}

// Collector deduplicates blobs by content hash as the record processor
// discovers them, then uploads the survivors concurrently. The roaring
// bitmap is a cheap membership prefilter over a hash's leading 32 bits:
// a miss there proves "never seen" without touching the exact map; a hit
// still falls through to the map to rule out a false positive.
type Collector struct {
	mu        sync.Mutex
	prefilter *roaring.Bitmap
	seen      map[storage.Hash]struct{}
	items     []Item
}

func NewCollector() *Collector {
	return &Collector{
		prefilter: roaring.New(),
		seen:      make(map[storage.Hash]struct{}),
	}
}

// Add registers a blob destined for upload. It reports whether the blob
// was newly added; a false return means the pointer is inline (nothing
// to upload) or an identical hash was already queued, and the caller's
// bytes were dropped.
func (c *Collector) Add(ref *storage.ObjectReference, data []byte) bool {
	if _, isInline := ref.Pointer.(storage.InlinePointer); isInline {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := hashPrefix(ref.Hash)
	if c.prefilter.Contains(prefix) {
		if _, dup := c.seen[ref.Hash]; dup {
			return false
		}
	}
	c.prefilter.Add(prefix)
	c.seen[ref.Hash] = struct{}{}
	c.items = append(c.items, Item{Ref: ref, Data: data})
	return true
}

// Hashes returns every distinct hash queued so far. The executor does not
// use it; it takes the "appeared" side of its sync from fetch-objects.
func (c *Collector) Hashes() map[storage.Hash]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[storage.Hash]struct{}, len(c.seen))
	for h := range c.seen {
		out[h] = struct{}{}
	}
	return out
}

func hashPrefix(h storage.Hash) uint32 {
	return binary.BigEndian.Uint32(h[:4])
}

// Backends bundles the destinations a Flush may need; a driver wiring only
// some of them up is fine, as long as no collected item routes to a nil one.
type Backends struct {
	Objects storage.ObjectStore
	Kv      storage.Kv
	Assets  storage.Asset
}

// Items returns a snapshot of every blob queued so far.
func (c *Collector) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Flush uploads every queued item concurrently and returns on the first
// failure, canceling the rest.
func (c *Collector) Flush(ctx context.Context, backends Backends) error {
	return FlushItems(ctx, backends, c.Items())
}

// FlushItems uploads an arbitrary item set concurrently, multiplexed by
// pointer kind. The executor calls this directly
// with a hash-filtered subset of a collector's items rather than the
// collector's own (unfiltered) queue.
func FlushItems(ctx context.Context, backends Backends, items []Item) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, item := range items {
		item := item
		g.Go(func() error {
			return uploadOne(ctx, backends, item)
		})
	}
	return g.Wait()
}

func uploadOne(ctx context.Context, b Backends, item Item) error {
	switch p := item.Ref.Pointer.(type) {
	case storage.R2Pointer:
		return b.Objects.Put(ctx, p.Bucket, p.Key_, item.Ref.ContentType, item.Data)
	case storage.KvPointer:
		return b.Kv.WriteMultiple(ctx, p.Namespace, map[string][]byte{p.Key_: item.Data})
	case storage.AssetPointer:
		return b.Assets.Put(ctx, p.Path, item.Data)
	default:
		return nil // inline pointers never reach here (filtered in Add)
	}
}
