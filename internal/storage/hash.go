package storage

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Hash is a 32-byte blake3 digest, always carried on the wire as lowercase
// 64-char hex.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// ParseHash decodes a lowercase 64-char hex digest.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, errShortHash
	}
	copy(h[:], b)
	return h, nil
}

var errShortHash = shortHashError{}

type shortHashError struct{}

func (shortHashError) Error() string { return "storage: hash must be 32 bytes" }

// contentHash implements the blob identity rule:
//
//	h := blake3_hasher()
//	h.update(blake3(bytes))
//	h.update(kind_tag_bytes)
//	h.update(pointer_locator_fields_in_fixed_order)
//	finalize()
//
// Finalize is called exactly once.
func contentHash(data []byte, p Pointer) Hash {
	inner := blake3.Sum256(data)

	h := blake3.New(32, nil)
	h.Write(inner[:])
	h.Write(p.kindTag())
	for _, f := range p.locatorFields() {
		h.Write([]byte{0}) // field separator, avoids "ab"+"c" == "a"+"bc" collisions
		h.Write([]byte(f))
	}

	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
