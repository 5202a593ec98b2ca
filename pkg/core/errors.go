package core

import (
	"github.com/oneconcern/cachetransporter/pkg/archive"
	"github.com/oneconcern/cachetransporter/pkg/core/status"
)

// Errors returned by cache operations
var (
	ErrNoPaths         = status.ErrNoPaths
	ErrMissingArchive  = status.ErrMissingArchive
	ErrMissingMetadata = status.ErrMissingMetadata
	ErrNoTransport     = status.ErrNoTransport
	ErrHashMismatch    = status.ErrHashMismatch
	ErrUnreadablePath  = archive.ErrUnreadablePath
)
