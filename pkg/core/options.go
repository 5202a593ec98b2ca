package core

import (
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const defaultProgressInterval = time.Second

// Option is a functor to build a Cache with some options
type Option func(*Cache)

// Fs sets the file system holding the local archive and metadata files. The default is the OS file system.
func Fs(fs afero.Fs) Option {
	return func(c *Cache) {
		if fs != nil {
			c.fs = fs
		}
	}
}

// TempDir sets the directory holding the local archive and metadata files
func TempDir(dir string) Option {
	return func(c *Cache) {
		c.tempDir = dir
	}
}

// WorkingDir sets the directory against which relative paths resolve, and from which
// archives are restored. The default is the process working directory at the time of the operation.
func WorkingDir(dir string) Option {
	return func(c *Cache) {
		c.workingDir = dir
	}
}

// Client sets the transport to the cache server
func Client(t Transport) Option {
	return func(c *Cache) {
		c.client = t
	}
}

// Logger sets the logger for cache operations
func Logger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.l = l
		}
	}
}

// ProgressInterval sets the minimum interval between two progress reports
func ProgressInterval(d time.Duration) Option {
	return func(c *Cache) {
		c.progressInterval = d
	}
}
