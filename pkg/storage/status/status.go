// Copyright © 2018 One Concern

// Package status declares error constants returned by
// implementations of the Store interface.
//
// NOTE: such constants are located in a separate package to avoid
// creating undue cyclical dependencies between pkg/storage and one
// of its implementations.
package status

import "github.com/oneconcern/cachetransporter/pkg/errors"

var (
	// Sentinel errors returned by implementations of the interface defined by storage

	// ErrNotFound indicates that the fetched object does not exist on storage
	ErrNotFound = errors.New("not found")

	// ErrInvalidResource indicates that the storage resource has an invalid name
	ErrInvalidResource = errors.New("invalid storage resource name")

	// ErrHashMismatch indicates that stored content does not hash to the key it was written under
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrStorageAPI indicates any other storage error
	ErrStorageAPI = errors.New("storage error")
)
