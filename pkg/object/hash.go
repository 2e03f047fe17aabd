package object

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/blake2b"
)

// IDSize is the width of an object id in bytes.
const IDSize = blake2b.Size256

// ID is a BLAKE2b-256 digest identifying an object by its content.
type ID [IDSize]byte

// ZeroID is the sentinel meaning "no object".
var ZeroID ID

var errBadID = errors.New("invalid object id")

// IsZero reports whether id is the sentinel.
func (id ID) IsZero() bool {
	return id == ZeroID
}

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the first 8 hex characters, for display.
func (id ID) Short() string {
	return id.String()[:8]
}

// ParseID parses a 64-character hex id.
func ParseID(s string) (ID, error) {
	var id ID
	if len(s) != hex.EncodedLen(IDSize) {
		return ZeroID, fmt.Errorf("%w: length %d, want %d", errBadID, len(s), hex.EncodedLen(IDSize))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return ZeroID, fmt.Errorf("%w: %v", errBadID, err)
	}
	return id, nil
}

// IDFromBytes copies a raw 32-byte id.
func IDFromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != IDSize {
		return ZeroID, fmt.Errorf("%w: %d bytes, want %d", errBadID, len(b), IDSize)
	}
	copy(id[:], b)
	return id, nil
}

// HashObject computes the id of an object from the envelope
// "kind len\0content", so that a tree and a file with identical bytes
// never share an id.
func HashObject(kind Kind, data []byte) ID {
	h := NewHasher(kind, int64(len(data)))
	h.Write(data)
	return h.Sum()
}

// Hasher computes an object id incrementally. The size must be known up
// front because it is part of the envelope.
type Hasher struct {
	h hash.Hash
}

// NewHasher starts hashing an object of the given kind and size.
func NewHasher(kind Kind, size int64) *Hasher {
	// New256 only fails for oversized keys.
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%s %d\x00", kind, size)
	return &Hasher{h: h}
}

func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Sum returns the id of everything written so far.
func (h *Hasher) Sum() ID {
	var id ID
	copy(id[:], h.h.Sum(nil))
	return id
}

// HashReader hashes size bytes of r as an object of the given kind.
func HashReader(kind Kind, r io.Reader, size int64) (ID, error) {
	h := NewHasher(kind, size)
	n, err := io.Copy(h, io.LimitReader(r, size))
	if err != nil {
		return ZeroID, fmt.Errorf("hash %s: %w", kind, err)
	}
	if n != size {
		return ZeroID, fmt.Errorf("hash %s: short read (%d of %d bytes)", kind, n, size)
	}
	return h.Sum(), nil
}
