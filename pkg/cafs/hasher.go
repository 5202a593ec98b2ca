package cafs

import (
	"crypto/sha256"
	"hash"
	"io"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// Hasher computes a Key over the bytes written to it
type Hasher struct {
	h hash.Hash
	n int64
}

// NewHasher builds a sha256 hasher
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

func (h *Hasher) Write(p []byte) (int, error) {
	n, err := h.h.Write(p)
	h.n += int64(n)
	return n, err
}

// Key returns the digest of everything written so far
func (h *Hasher) Key() Key {
	return MustNewKey(h.h.Sum(nil))
}

// Size returns the number of bytes hashed so far
func (h *Hasher) Size() int64 {
	return h.n
}

// KeyFromReader consumes a reader and returns the digest of its content
func KeyFromReader(r io.Reader) (Key, int64, error) {
	h := NewHasher()
	if _, err := io.Copy(h, r); err != nil {
		return Key{}, h.Size(), err
	}
	return h.Key(), h.Size(), nil
}

// KeyFromBytes returns the digest of a buffer
func KeyFromBytes(data []byte) Key {
	return Key(sha256.Sum256(data))
}

// KeyFromFile returns the digest of a file's content
func KeyFromFile(fs afero.Fs, name string) (key Key, err error) {
	f, err := fs.Open(name)
	if err != nil {
		return Key{}, err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	key, _, err = KeyFromReader(f)
	return key, err
}

// IdentifierKey returns the key under which an identifier (e.g. a cache id) is looked up.
//
// The key is the digest of the identifier string itself, not of any content.
func IdentifierKey(id string) Key {
	return KeyFromBytes([]byte(id))
}
