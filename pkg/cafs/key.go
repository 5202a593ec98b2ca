package cafs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/oneconcern/cachetransporter/pkg/errors"
)

const (
	// KeySize for sha256 digests
	KeySize = sha256.Size

	// KeySizeHex for hex representation of a key
	KeySizeHex = 2 * KeySize
)

// ErrInvalidKey is returned when a key string is not a lowercase hex SHA-256 digest
var ErrInvalidKey = errors.New("invalid key format")

// Key type for content addressed keys
type Key [KeySize]byte

// NewKey creates a new key from a raw digest
func NewKey(data []byte) (Key, error) {
	var k Key
	if len(data) != KeySize {
		return Key{}, &BadKeySize{Key: data}
	}
	copy(k[:], data)
	return k, nil
}

// MustNewKey creates a new key from data but panics if there is an error
func MustNewKey(data []byte) Key {
	k, e := NewKey(data)
	if e != nil {
		panic(e.Error())
	}
	return k
}

// KeyFromString parses the text form of a key.
//
// Only exactly 64 lowercase hexadecimal characters are accepted: uppercase digits
// are rejected, so that a given digest maps to exactly one storage path.
func KeyFromString(s string) (Key, error) {
	if !IsValidKey(s) {
		return Key{}, ErrInvalidKey.Detail("%q", s)
	}
	var k Key
	if _, err := hex.Decode(k[:], []byte(s)); err != nil {
		return Key{}, ErrInvalidKey.Wrap(err)
	}
	return k, nil
}

// IsValidKey tells if s has the shape of a key: ^[a-f0-9]{64}$
func IsValidKey(s string) bool {
	if len(s) != KeySizeHex {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// BadKeySize is an error that's returned when the key to create has an invalid size.
type BadKeySize struct {
	Key []byte
}

func (b *BadKeySize) Error() string {
	return fmt.Sprintf("%x has invalid size of %d, expected %d", b.Key, len(b.Key), KeySize)
}
