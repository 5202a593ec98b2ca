// Package core implements the cache operations: save a set of trees as an archive,
// upload it to a cache server, download it on another host and restore it at the
// same position relative to the working directory.
//
// Archive and metadata working copies live in a temp directory, as
// {temp}/{cache-id}.tgz and {temp}/{cache-id}.json.
package core

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oneconcern/cachetransporter/pkg/cafs"
	"github.com/oneconcern/cachetransporter/pkg/errors"
	"github.com/oneconcern/cachetransporter/pkg/model"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	defaultTempDir = "/tmp"

	// maxMetadataSize bounds the size of a metadata record fetched from the server
	maxMetadataSize = 1024 * 1024
)

// Transport knows how to move objects to and from the server buckets
type Transport interface {
	Put(ctx context.Context, bucket model.Bucket, key cafs.Key, body io.Reader, size int64) error
	Get(ctx context.Context, bucket model.Bucket, key cafs.Key) (io.ReadCloser, error)
}

// Cache runs cache operations against a local temp directory and a remote server.
//
// Operations are single-shot: nothing is retried internally.
// Concurrent operations on the same cache id are not coordinated.
type Cache struct {
	fs               afero.Fs
	tempDir          string
	workingDir       string
	client           Transport
	l                *zap.Logger
	progressInterval time.Duration
}

// New cache runner
func New(opts ...Option) *Cache {
	c := &Cache{
		fs:               afero.NewOsFs(),
		tempDir:          defaultTempDir,
		l:                zap.NewNop(),
		progressInterval: defaultProgressInterval,
	}
	for _, apply := range opts {
		apply(c)
	}
	return c
}

// LocalPaths returns the location of the working copies for a cache id
func (c *Cache) LocalPaths(cacheID string) (model.LocalPaths, error) {
	return model.GetLocalPaths(c.tempDir, cacheID)
}

func (c *Cache) cwd() (string, error) {
	if c.workingDir != "" {
		return filepath.Abs(c.workingDir)
	}
	return os.Getwd()
}

func (c *Cache) transport() (Transport, error) {
	if c.client == nil {
		return nil, ErrNoTransport
	}
	return c.client, nil
}

// exists reports a missing file with the provided sentinel
func (c *Cache) exists(name string, missing *errors.Error) (os.FileInfo, error) {
	info, err := c.fs.Stat(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, missing.Detail("%s", name)
		}
		return nil, err
	}
	return info, nil
}
