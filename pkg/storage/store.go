// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
	"sync"

	"github.com/oneconcern/cachetransporter/pkg/cafs"
	"github.com/oneconcern/cachetransporter/pkg/storage/status"
)

// Sentinel errors, re-exported from status
var (
	ErrNotFound        = status.ErrNotFound
	ErrInvalidResource = status.ErrInvalidResource
	ErrHashMismatch    = status.ErrHashMismatch
)

// Store implementations know how to write entries to a K/V model.
//
// Typically this is something file system-like.
// Implementations of this interface are assumed to be fairly simple.
type Store interface {
	String() string
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader, ...PutOption) error
}

// Verifier inspects the content of an object once it is fully written, before it becomes visible.
// Returning an error aborts the Put and discards the written content.
type Verifier func(io.Reader) error

// PutOptions collects the options of a Put
type PutOptions struct {
	Verify Verifier
}

// PutOption is a functor to set options on a Put
type PutOption func(*PutOptions)

// WithVerifier checks the written content before publishing it
func WithVerifier(v Verifier) PutOption {
	return func(o *PutOptions) {
		o.Verify = v
	}
}

// ApplyPutOptions resolves a list of options
func ApplyPutOptions(opts []PutOption) PutOptions {
	var o PutOptions
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// VerifyKey is a Verifier which checks that the content hashes to key
func VerifyKey(key cafs.Key) Verifier {
	return func(r io.Reader) error {
		actual, _, err := cafs.KeyFromReader(r)
		if err != nil {
			return status.ErrStorageAPI.Wrap(err)
		}
		if actual != key {
			return ErrHashMismatch.Detail("expected %s, got %s", key, actual)
		}
		return nil
	}
}

// copyBufferSize bounds the memory used by a single transfer
const copyBufferSize = 1024 * 1024

var copyBuffers = sync.Pool{
	New: func() interface{} {
		b := make([]byte, copyBufferSize)
		return &b
	},
}

// PipeIO copies a reader into a writer through a bounded, pooled buffer.
//
// The writer is never handed more than copyBufferSize bytes at a time, so a slow
// writer applies back-pressure on the reader.
func PipeIO(writer io.Writer, reader io.Reader) (int64, error) {
	bp := copyBuffers.Get().(*[]byte)
	defer copyBuffers.Put(bp)
	return io.CopyBuffer(onlyWriter{writer}, onlyReader{reader}, *bp)
}

// onlyWriter and onlyReader hide ReaderFrom / WriterTo so that io.CopyBuffer uses the bounded buffer
type onlyWriter struct{ io.Writer }

type onlyReader struct{ io.Reader }
