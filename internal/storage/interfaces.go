package storage

import "context"

// Sqlite is the local-database contract the executor and sqlgen-produced
// statements run against. Query hands each result row to the scan
// callback, which scans it into its own variables.
type Sqlite interface {
	Exec(ctx context.Context, statement string, params ...any) error
	Query(ctx context.Context, statement string, scan func(row Row) error, params ...any) error
}

// Row is the narrow slice of *sql.Rows that Query's scan callbacks need.
type Row interface {
	Scan(dest ...any) error
}

// Kv is the key-value backend contract: bulk writes and
// bulk deletes, scoped by namespace.
type Kv interface {
	WriteMultiple(ctx context.Context, namespace string, pairs map[string][]byte) error
	DeleteMultiple(ctx context.Context, namespace string, keys []string) error
}

// ObjectStore is the bucket-object backend contract.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key, contentType string, body []byte) error
	Delete(ctx context.Context, bucket, key string) error
}

// Asset is the filesystem-backed backend contract.
type Asset interface {
	Put(ctx context.Context, path string, body []byte) error
	Delete(ctx context.Context, path string) error
}
