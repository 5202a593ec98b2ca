// Package status exports errors produced by the core package.
package status

import (
	"github.com/oneconcern/cachetransporter/pkg/errors"
	storagestatus "github.com/oneconcern/cachetransporter/pkg/storage/status"
)

var (
	// ErrNoPaths indicates that save was called without any path to archive
	ErrNoPaths = errors.New("at least one path is required")

	// ErrMissingArchive indicates that the local archive of a cache id does not exist
	ErrMissingArchive = errors.New("archive file not found")

	// ErrMissingMetadata indicates that the local metadata record of a cache id does not exist
	ErrMissingMetadata = errors.New("metadata file not found")

	// ErrNoTransport indicates that an operation requiring a server was attempted without a client
	ErrNoTransport = errors.New("no server configured")

	// ErrHashMismatch indicates that an archive does not hash to the digest recorded in its metadata.
	// It is the same sentinel as the one reported by storage.
	ErrHashMismatch = storagestatus.ErrHashMismatch
)
