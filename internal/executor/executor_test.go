package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentic-research/mache/internal/storage"
	"github.com/agentic-research/mache/internal/upload"
)

func ref(hash byte, bucket, key string) *storage.ObjectReference {
	var h storage.Hash
	h[0] = hash
	return &storage.ObjectReference{Hash: h, Pointer: storage.R2Pointer{Bucket: bucket, Key_: key}}
}

func TestFilterByPresence_DropsHashesAlreadyStored(t *testing.T) {
	present := objectSnapshot{}
	existing := ref(1, "assets", "a")
	present[existing.Hash] = existing.Pointer

	items := []upload.Item{
		{Ref: existing, Data: []byte("x")},
		{Ref: ref(2, "assets", "b"), Data: []byte("y")},
	}

	out := filterByPresence(items, present)
	require.Len(t, out, 1)
	require.Equal(t, "b", out[0].Ref.Pointer.(storage.R2Pointer).Key_)
}

func TestComputeOrphans_DropsReappearedAndProtected(t *testing.T) {
	stale := ref(1, "assets", "stale")
	reappeared := ref(2, "assets", "still-here")
	rewritten := ref(3, "assets", "rewritten")

	present := objectSnapshot{
		stale.Hash:      stale.Pointer,
		reappeared.Hash: reappeared.Pointer,
		rewritten.Hash:  rewritten.Pointer,
	}
	appeared := objectSnapshot{
		reappeared.Hash: reappeared.Pointer,
	}
	deleteMask := map[string]struct{}{
		rewritten.Pointer.Key(): {},
	}

	orphans := computeOrphans(present, appeared, deleteMask)
	require.Len(t, orphans, 1)
	_, ok := orphans[stale.Hash]
	require.True(t, ok)
}

func TestComputeOrphans_EmptyWhenEverythingReappears(t *testing.T) {
	r := ref(1, "assets", "a")
	present := objectSnapshot{r.Hash: r.Pointer}
	appeared := objectSnapshot{r.Hash: r.Pointer}

	orphans := computeOrphans(present, appeared, nil)
	require.Empty(t, orphans)
}
