// Package server exposes a two bucket object store over HTTP.
//
// Objects are addressed as /{bucket}/{hash}, where hash is a lowercase hex sha256 digest:
//   - cas: content addressed, a PUT body must hash to the key
//   - ac: keyed by the digest of a cache id, bodies are opaque
//
// Malformed hashes are rejected before any storage access.
package server

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/oneconcern/cachetransporter/pkg/cafs"
	"github.com/oneconcern/cachetransporter/pkg/errors"
	"github.com/oneconcern/cachetransporter/pkg/model"
	"github.com/oneconcern/cachetransporter/pkg/storage"
	"go.uber.org/zap"
)

// Server owns the storage of both buckets
type Server struct {
	store    storage.Store
	l        *zap.Logger
	metrics  *metrics
	settings settings
}

// New storage server backed by store
func New(store storage.Store, opts ...Option) *Server {
	s := &Server{
		store:    store,
		settings: defaultSettings(),
	}
	for _, apply := range opts {
		apply(&s.settings)
	}
	s.l = s.settings.l
	s.metrics = newMetrics(s.settings.registry)
	return s
}

// Put stores the content of r under bucket/key.
//
// For the content addressed bucket, the content is verified against the key once fully received:
// on mismatch, ErrHashMismatch is returned and the content is discarded, never becoming visible.
// Other buckets accept any content.
func (s *Server) Put(ctx context.Context, bucket model.Bucket, key cafs.Key, r io.Reader) error {
	var opts []storage.PutOption
	if bucket.ContentAddressed() {
		opts = append(opts, storage.WithVerifier(storage.VerifyKey(key)))
	}

	counter := &countingReader{r: r}
	err := s.store.Put(ctx, bucket.StoragePath(key), counter, opts...)
	if err != nil {
		if errors.Is(err, storage.ErrHashMismatch) {
			s.metrics.hashMismatch.Inc()
			s.l.Warn("rejected content not matching its key",
				zap.Stringer("bucket", bucket), zap.Stringer("key", key), zap.Int64("received", counter.Count()))
		}
		return err
	}
	s.metrics.bytesWritten.WithLabelValues(bucket.String()).Add(float64(counter.Count()))
	return nil
}

// Get returns the content stored under bucket/key, or storage.ErrNotFound
func (s *Server) Get(ctx context.Context, bucket model.Bucket, key cafs.Key) (io.ReadCloser, error) {
	return s.store.Get(ctx, bucket.StoragePath(key))
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	atomic.AddInt64(&c.n, int64(n))
	return n, err
}

func (c *countingReader) Count() int64 {
	return atomic.LoadInt64(&c.n)
}
