package clouddriver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentic-research/mache/internal/cmserr"
	"github.com/agentic-research/mache/internal/storage"
)

func TestConfigFromEnv_ReadsAllFiveVariables(t *testing.T) {
	t.Setenv("CF_ACCOUNT_ID", "acct")
	t.Setenv("CF_API_TOKEN", "tok")
	t.Setenv("CF_D1_DATABASE_ID", "db")
	t.Setenv("R2_ACCESS_KEY_ID", "key")
	t.Setenv("R2_SECRET_ACCESS_KEY", "secret")

	cfg := ConfigFromEnv()
	require.Equal(t, Config{
		AccountID:     "acct",
		APIToken:      "tok",
		D1DatabaseID:  "db",
		R2AccessKeyID: "key",
		R2SecretKey:   "secret",
	}, cfg)
}

func TestBackends_EveryMethodReturnsNotImplemented(t *testing.T) {
	ctx := context.Background()
	cfg := Config{}

	var notImpl *cmserr.NotImplemented

	require.True(t, errors.As(NewD1(cfg).Exec(ctx, "select 1"), &notImpl))
	require.True(t, errors.As(NewD1(cfg).Query(ctx, "select 1", func(storage.Row) error { return nil }), &notImpl))
	require.True(t, errors.As(NewKV(cfg).WriteMultiple(ctx, "ns", nil), &notImpl))
	require.True(t, errors.As(NewKV(cfg).DeleteMultiple(ctx, "ns", nil), &notImpl))
	require.True(t, errors.As(NewR2(cfg).Put(ctx, "bucket", "key", "text/plain", nil), &notImpl))
	require.True(t, errors.As(NewR2(cfg).Delete(ctx, "bucket", "key"), &notImpl))
	require.True(t, errors.As(NewAssets(cfg).Put(ctx, "path", nil), &notImpl))
	require.True(t, errors.As(NewAssets(cfg).Delete(ctx, "path"), &notImpl))
}
