// Copyright © 2018 One Concern

package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/oneconcern/cachetransporter/pkg/storage"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

/* thread-safe local storage implementation.
 * Put()s are atomic via afero.Fs.Rename(): content is written to a uniquely named
 * file in a staging area, optionally verified, then Rename()d into place. Readers
 * never observe a partially written or rejected object.
 */

const (
	nestedPutStageName = ".put-stage"
	dirPermissions     = 0700
	filePermissions    = 0600
)

// New creates a new local file system backed storage model.
//
// The staging area lives within fs itself, so that renames never cross devices.
func New(fs afero.Fs) (storage.Store, error) {
	if fs == nil {
		return nil, fmt.Errorf("a file system is required")
	}
	if err := fs.MkdirAll(nestedPutStageName, dirPermissions); err != nil {
		return nil, fmt.Errorf("ensuring put staging directory for %q: %v", nestedPutStageName, err)
	}
	return &localFS{fs: fs}, nil
}

// NewAt creates a store rooted at dir on the OS file system, creating dir as needed
func NewAt(dir string) (storage.Store, error) {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating storage directory %q: %v", dir, err)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

type localFS struct {
	fs afero.Fs
}

func invalidKey(key string) error {
	if key == "" || path.IsAbs(key) || strings.ContainsRune(key, '\\') {
		return storage.ErrInvalidResource.Detail("%q", key)
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return storage.ErrInvalidResource.Detail("%q", key)
	}
	if strings.Split(clean, "/")[0] == nestedPutStageName {
		return storage.ErrInvalidResource.Detail("key %q conflicts with put staging area name %q", key, nestedPutStageName)
	}
	return nil
}

func (l *localFS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := invalidKey(key); err != nil {
		return nil, err
	}
	f, err := l.fs.Open(key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound.Detail("%q", key)
		}
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		return nil, multierr.Append(err, f.Close())
	}
	if fi.IsDir() {
		_ = f.Close()
		return nil, storage.ErrNotFound.Detail("%q", key)
	}
	return f, nil
}

func (l *localFS) Put(ctx context.Context, key string, source io.Reader, opts ...storage.PutOption) (err error) {
	if err = invalidKey(key); err != nil {
		return err
	}
	options := storage.ApplyPutOptions(opts)

	staged, err := l.stage(ctx, key, source)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = l.fs.Remove(staged)
		}
	}()

	if options.Verify != nil {
		if err = l.verify(staged, options.Verify); err != nil {
			return err
		}
	}

	/* Rename() doesn't create directories automatically */
	if dir := path.Dir(key); dir != "." {
		if err = l.fs.MkdirAll(dir, dirPermissions); err != nil {
			return fmt.Errorf("ensuring directories for %q: %v", key, err)
		}
	}
	if err = l.fs.Rename(staged, key); err != nil {
		return fmt.Errorf("publishing record for %q: %v", key, err)
	}
	return nil
}

// stage writes the source to a unique file in the staging area and returns its name
func (l *localFS) stage(ctx context.Context, key string, source io.Reader) (string, error) {
	target, err := afero.TempFile(l.fs, nestedPutStageName, path.Base(key)+"-*")
	if err != nil {
		return "", fmt.Errorf("create record for %q: %v", key, err)
	}
	name := target.Name()
	if _, err = storage.PipeIO(target, contextReader{ctx: ctx, r: source}); err != nil {
		err = fmt.Errorf("write record for %q: %w", key, err)
	}
	if err == nil {
		err = target.Sync()
	}
	if cerr := target.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		_ = l.fs.Remove(name)
		return "", err
	}
	return name, nil
}

func (l *localFS) verify(staged string, verify storage.Verifier) (err error) {
	f, err := l.fs.Open(staged)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return verify(f)
}

func (l *localFS) String() string {
	const localfs = "localfs"
	switch fs := l.fs.(type) {
	case *afero.BasePathFs:
		pp, err := fs.RealPath("")
		if err != nil {
			return localfs
		}
		return localfs + "@" + pp
	default:
		return localfs
	}
}

// contextReader stops a copy once its context is cancelled
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
