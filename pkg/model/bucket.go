package model

import (
	"path"

	"github.com/oneconcern/cachetransporter/pkg/cafs"
	"github.com/oneconcern/cachetransporter/pkg/errors"
)

// ErrUnknownBucket is returned when parsing a bucket name other than cas or ac
var ErrUnknownBucket = errors.New("unknown bucket")

// Bucket identifies one of the two namespaces of the storage server
type Bucket string

const (
	// CAS holds archives, keyed by the digest of their content
	CAS Bucket = "cas"

	// AC holds metadata records, keyed by the digest of the cache id
	AC Bucket = "ac"
)

// Buckets lists all known buckets
func Buckets() []Bucket {
	return []Bucket{CAS, AC}
}

// ParseBucket resolves a bucket name
func ParseBucket(name string) (Bucket, error) {
	switch b := Bucket(name); b {
	case CAS, AC:
		return b, nil
	default:
		return "", ErrUnknownBucket.Detail("%q", name)
	}
}

func (b Bucket) String() string {
	return string(b)
}

// ContentAddressed tells if keys in this bucket are digests of the stored bytes,
// in which case stored content must be checked against its key.
func (b Bucket) ContentAddressed() bool {
	return b == CAS
}

// StoragePath is the path of an object relative to the storage root, e.g. cas/{hash}
func (b Bucket) StoragePath(key cafs.Key) string {
	return path.Join(string(b), key.String())
}
