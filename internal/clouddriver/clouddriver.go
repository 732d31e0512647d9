// Package clouddriver documents the Cloudflare-backed deployment target
// (D1 for SQLite, KV, R2, and Pages Assets) without implementing it — a
// real Cloudflare driver is an explicit external collaborator, and this
// package only recognizes the environment variables and exposes a
// storage.* driver shape a future implementation would fill in: account_id
// + token for D1/KV (bearer auth against the Cloudflare REST API),
// account_id + access_key_id + secret_access_key for R2 (S3-compatible
// credentials against the account's R2 endpoint).
package clouddriver

import (
	"context"
	"os"

	"github.com/agentic-research/mache/internal/cmserr"
	"github.com/agentic-research/mache/internal/storage"
)

// Config is read from the environment the same five variables the
// original deploy config required per backend.
type Config struct {
	AccountID     string
	APIToken      string
	D1DatabaseID  string
	R2AccessKeyID string
	R2SecretKey   string
}

// ConfigFromEnv reads CF_ACCOUNT_ID, CF_API_TOKEN, CF_D1_DATABASE_ID,
// R2_ACCESS_KEY_ID, and R2_SECRET_ACCESS_KEY.
func ConfigFromEnv() Config {
	return Config{
		AccountID:     os.Getenv("CF_ACCOUNT_ID"),
		APIToken:      os.Getenv("CF_API_TOKEN"),
		D1DatabaseID:  os.Getenv("CF_D1_DATABASE_ID"),
		R2AccessKeyID: os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretKey:   os.Getenv("R2_SECRET_ACCESS_KEY"),
	}
}

// D1 stands in for a Cloudflare D1 storage.Sqlite driver (grounded on
// src/backend/cloudflare/d1.rs's bearer-authenticated POST against
// api.cloudflare.com/.../d1/database/{id}/query).
type D1 struct{ cfg Config }

func NewD1(cfg Config) *D1 { return &D1{cfg: cfg} }

func (d *D1) Exec(ctx context.Context, statement string, params ...any) error {
	return &cmserr.NotImplemented{Backend: "d1", Operation: "exec"}
}

func (d *D1) Query(ctx context.Context, statement string, scan func(row storage.Row) error, params ...any) error {
	return &cmserr.NotImplemented{Backend: "d1", Operation: "query"}
}

var _ storage.Sqlite = (*D1)(nil)

// KV stands in for a Cloudflare Workers KV storage.Kv driver (grounded on
// src/cloudflare/kv.rs's account-scoped bulk write/delete endpoints).
type KV struct{ cfg Config }

func NewKV(cfg Config) *KV { return &KV{cfg: cfg} }

func (k *KV) WriteMultiple(ctx context.Context, namespace string, pairs map[string][]byte) error {
	return &cmserr.NotImplemented{Backend: "kv", Operation: "write_multiple"}
}

func (k *KV) DeleteMultiple(ctx context.Context, namespace string, keys []string) error {
	return &cmserr.NotImplemented{Backend: "kv", Operation: "delete_multiple"}
}

var _ storage.Kv = (*KV)(nil)

// R2 stands in for a Cloudflare R2 storage.ObjectStore driver (grounded
// on src/deploy/cloudflare/r2.rs's S3-compatible client against
// {account_id}.r2.cloudflarestorage.com).
type R2 struct{ cfg Config }

func NewR2(cfg Config) *R2 { return &R2{cfg: cfg} }

func (r *R2) Put(ctx context.Context, bucket, key, contentType string, body []byte) error {
	return &cmserr.NotImplemented{Backend: "r2", Operation: "put"}
}

func (r *R2) Delete(ctx context.Context, bucket, key string) error {
	return &cmserr.NotImplemented{Backend: "r2", Operation: "delete"}
}

var _ storage.ObjectStore = (*R2)(nil)

// Assets stands in for a Cloudflare Pages deployment's asset upload API
// (grounded on src/deploy/cloudflare/asset.rs).
type Assets struct{ cfg Config }

func NewAssets(cfg Config) *Assets { return &Assets{cfg: cfg} }

func (a *Assets) Put(ctx context.Context, path string, body []byte) error {
	return &cmserr.NotImplemented{Backend: "assets", Operation: "put"}
}

func (a *Assets) Delete(ctx context.Context, path string) error {
	return &cmserr.NotImplemented{Backend: "assets", Operation: "delete"}
}

var _ storage.Asset = (*Assets)(nil)
