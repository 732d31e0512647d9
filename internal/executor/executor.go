// Package executor implements the sync core: a single public operation,
// Batch, that uploads new blobs, upserts and cleans up the database in
// parent-before-child order, and garbage-collects objects that no
// longer have a referencing row.
package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/mache/internal/record"
	"github.com/agentic-research/mache/internal/schema"
	"github.com/agentic-research/mache/internal/sqlgen"
	"github.com/agentic-research/mache/internal/storage"
	"github.com/agentic-research/mache/internal/upload"
)

// Executor bundles the four backend contracts a batch run depends on
//; the schema drives every statement it builds.
type Executor struct {
	Schema  *schema.CollectionSchema
	Sqlite  storage.Sqlite
	Objects storage.ObjectStore
	Kv      storage.Kv
	Assets  storage.Asset
}

func (e *Executor) backends() upload.Backends {
	return upload.Backends{Objects: e.Objects, Kv: e.Kv, Assets: e.Assets}
}

// objectSnapshot is {hash -> pointer}, as read back from fetch-objects
//.
type objectSnapshot map[storage.Hash]storage.Pointer

// Batch runs the full three-way sync: upload-new, full-sync the database,
// delete-orphans. tables is the already-flattened output of
// one or more record.Processor runs; uploads is the corresponding
// upload.Collector holding every blob those runs discovered.
func (e *Executor) Batch(ctx context.Context, tables record.Tables, uploads *upload.Collector, force bool) error {
	if err := e.createTables(ctx); err != nil {
		return fmt.Errorf("executor: create tables: %w", err)
	}

	present, err := e.fetchObjects(ctx)
	if err != nil {
		return fmt.Errorf("executor: snapshot present objects: %w", err)
	}

	items := uploads.Items()
	deleteMask := make(map[string]struct{}, len(items))
	for _, it := range items {
		deleteMask[it.Ref.Pointer.Key()] = struct{}{}
	}

	toUpload := items
	if !force {
		toUpload = filterByPresence(items, present)
	}

	if err := upload.FlushItems(ctx, e.backends(), toUpload); err != nil {
		return fmt.Errorf("executor: upload: %w", err)
	}

	if err := e.syncTables(ctx, tables); err != nil {
		return fmt.Errorf("executor: sync database: %w", err)
	}

	appeared, err := e.fetchObjects(ctx)
	if err != nil {
		return fmt.Errorf("executor: snapshot appeared objects: %w", err)
	}

	orphans := computeOrphans(present, appeared, deleteMask)
	if err := e.deleteOrphans(ctx, orphans); err != nil {
		return fmt.Errorf("executor: delete orphans: %w", err)
	}
	return nil
}

// filterByPresence drops every upload whose hash is already present.
// Batch skips this filter when force is set.
func filterByPresence(items []upload.Item, present objectSnapshot) []upload.Item {
	out := make([]upload.Item, 0, len(items))
	for _, it := range items {
		if _, ok := present[it.Ref.Hash]; ok {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (e *Executor) createTables(ctx context.Context) error {
	for _, stmt := range sqlgen.DDLStatements(e.Schema) {
		if err := e.Sqlite.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// fetchObjects runs the UNION ALL fetch-objects query and parses each row
// into its hash/pointer pair.
func (e *Executor) fetchObjects(ctx context.Context) (objectSnapshot, error) {
	out := objectSnapshot{}
	var scanErr error
	err := e.Sqlite.Query(ctx, sqlgen.FetchObjects(e.Schema), func(row storage.Row) error {
		var hashHex, pointerJSON string
		if err := row.Scan(&hashHex, &pointerJSON); err != nil {
			return err
		}
		h, err := storage.ParseHash(hashHex)
		if err != nil {
			scanErr = fmt.Errorf("fetch-objects: parse hash %q: %w", hashHex, err)
			return scanErr
		}
		p, err := storage.ParsePointer([]byte(pointerJSON))
		if err != nil {
			scanErr = fmt.Errorf("fetch-objects: parse pointer: %w", err)
			return scanErr
		}
		out[h] = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, scanErr
}

// syncTables runs upsert then cleanup per table in parent-before-child
// (schema declaration) order, passing the JSON-serialized tables blob as
// the sole parameter to every statement.
func (e *Executor) syncTables(ctx context.Context, tables record.Tables) error {
	blob, err := json.Marshal(tables)
	if err != nil {
		return err
	}

	upserts := sqlgen.Upsert(e.Schema)
	cleanups := sqlgen.Cleanup(e.Schema)
	for i := range e.Schema.Tables {
		if err := e.Sqlite.Exec(ctx, upserts[i], json.RawMessage(blob)); err != nil {
			return err
		}
		if err := e.Sqlite.Exec(ctx, cleanups[i], json.RawMessage(blob)); err != nil {
			return err
		}
	}
	return nil
}

// computeOrphans finds present objects that did not reappear and whose
// pointer isn't protected by this run's delete mask
// (it is about to be, or was just, rewritten under that pointer).
func computeOrphans(present, appeared objectSnapshot, deleteMask map[string]struct{}) objectSnapshot {
	out := objectSnapshot{}
	for h, p := range present {
		if _, ok := appeared[h]; ok {
			continue
		}
		if _, ok := deleteMask[p.Key()]; ok {
			continue
		}
		out[h] = p
	}
	return out
}

func (e *Executor) deleteOrphans(ctx context.Context, orphans objectSnapshot) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range orphans {
		p := p
		g.Go(func() error {
			switch v := p.(type) {
			case storage.R2Pointer:
				return e.Objects.Delete(ctx, v.Bucket, v.Key_)
			case storage.KvPointer:
				return e.Kv.DeleteMultiple(ctx, v.Namespace, []string{v.Key_})
			case storage.AssetPointer:
				return e.Assets.Delete(ctx, v.Path)
			default:
				return nil // inline content lives in the row itself; there is no backend object to delete
			}
		})
	}
	return g.Wait()
}
