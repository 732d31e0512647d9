package storage

import (
	"testing"

	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/require"
)

func TestObjectReference_MarshalJSONIsDeterministicAcrossRuns(t *testing.T) {
	ref := &ObjectReference{
		Hash:        Hash{1, 2, 3},
		Size:        42,
		ContentType: "image/png",
		Meta:        ImageMeta{Width: 10, Height: 20, DerivedID: "d1"},
		Pointer:     R2Pointer{Bucket: "assets", Key_: "a/b"},
	}

	first, err := ref.MarshalJSON()
	require.NoError(t, err)
	second, err := ref.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.JSONEq(t, `{"content_type":"image/png","hash":"0102030000000000000000000000000000000000000000000000000000000000","meta":{"derived_id":"d1","height":20,"width":10},"pointer":{"bucket":"assets","kind":"r2","key":"a/b"},"size":42}`, string(first))
}

func TestObjectReference_RoundTripsThroughMarshalUnmarshal(t *testing.T) {
	ref := &ObjectReference{
		Hash:        Hash{9, 9, 9},
		Size:        7,
		ContentType: "application/json",
		Meta:        MarkdownMeta{},
		Pointer:     KvPointer{Namespace: "ns", Key_: "k"},
	}

	raw, err := ref.MarshalJSON()
	require.NoError(t, err)

	var out ObjectReference
	require.NoError(t, out.UnmarshalJSON(raw))
	require.Equal(t, ref.Hash, out.Hash)
	require.Equal(t, ref.Size, out.Size)
	require.Equal(t, ref.ContentType, out.ContentType)
	require.Equal(t, ref.Pointer, out.Pointer)
	require.Nil(t, out.Meta)
}

func TestParsePointer_RoundTripsEveryKind(t *testing.T) {
	cases := []Pointer{
		R2Pointer{Bucket: "b", Key_: "k"},
		AssetPointer{Path: "p/q"},
		KvPointer{Namespace: "ns", Key_: "k"},
		InlinePointer{Content: []byte("hello"), Base64: true},
	}
	for _, p := range cases {
		raw, err := pointerToMap(p)
		require.NoError(t, err)
		encoded, err := oj.Marshal(raw, sortedJSON)
		require.NoError(t, err)
		got, err := ParsePointer(encoded)
		require.NoError(t, err)
		require.Equal(t, p, got)
	}
}
