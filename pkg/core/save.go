package core

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"

	units "github.com/docker/go-units"
	"github.com/oneconcern/cachetransporter/pkg/archive"
	"github.com/oneconcern/cachetransporter/pkg/cafs"
	"github.com/oneconcern/cachetransporter/pkg/model"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const writeBufferSize = 1024 * 1024

// SaveResult describes a saved archive
type SaveResult struct {
	Paths    model.LocalPaths
	Metadata model.Metadata
	Stats    archive.Stats
}

// Save archives paths relative to their common ancestor and writes the archive and its metadata record
// to the temp directory, replacing any previous save with the same cache id.
//
// Relative paths resolve against the working directory. When the common ancestor is a file
// or a symlink, its parent directory is the archive base. Any unreadable path aborts the operation and
// leaves no archive behind.
func (c *Cache) Save(ctx context.Context, cacheID string, paths []string) (SaveResult, error) {
	local, err := c.LocalPaths(cacheID)
	if err != nil {
		return SaveResult{}, err
	}
	if len(paths) == 0 {
		return SaveResult{}, ErrNoPaths
	}
	wd, err := c.cwd()
	if err != nil {
		return SaveResult{}, err
	}

	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(wd, p)
		}
		resolved = append(resolved, filepath.Clean(p))
	}
	base, err := CommonAncestor(resolved...)
	if err != nil {
		return SaveResult{}, err
	}
	// a symlink is archived as a link, like any other member: its parent is the base
	info, err := os.Lstat(base)
	if err != nil {
		return SaveResult{}, ErrUnreadablePath.Detail("%s", base).Wrap(err)
	}
	if !info.IsDir() {
		base = filepath.Dir(base)
	}

	if err = c.fs.MkdirAll(c.tempDir, 0755); err != nil {
		return SaveResult{}, err
	}
	if err = c.fs.Remove(local.ArchiveFile); err != nil && !os.IsNotExist(err) {
		return SaveResult{}, err
	}

	members, stats, err := archive.Members(ctx, base, resolved, archive.WithLogger(c.l))
	if err != nil {
		return SaveResult{}, err
	}
	c.l.Info("Number of files found", zap.Int("files", stats.Entries))
	c.l.Info("Total bytes", zap.Int64("bytes", stats.Bytes), zap.String("size", units.HumanSize(float64(stats.Bytes))))

	c.l.Info("Creating archive", zap.String("archive", local.ArchiveFile), zap.String("base", base))
	progress := NewProgress(c.l, "Archiving", "Archived", c.progressInterval)
	key, err := c.writeArchive(ctx, local.ArchiveFile, members, progress)
	if err != nil {
		return SaveResult{}, err
	}
	progress.Finalize()

	md := model.Metadata{
		CacheID: cacheID,
		Cwd:     wd,
		Base:    base,
		Hash:    key.String(),
	}
	if err = model.WriteMetadata(c.fs, local.MetadataFile, md); err != nil {
		return SaveResult{}, err
	}
	c.l.Info("Wrote metadata", zap.String("metadata", local.MetadataFile), zap.String("hash", md.Hash))

	return SaveResult{Paths: local, Metadata: md, Stats: stats}, nil
}

// writeArchive packs the members and returns the digest of exactly the bytes written.
// The archive is removed on failure.
func (c *Cache) writeArchive(ctx context.Context, name string, members []archive.Member, progress *Progress) (key cafs.Key, err error) {
	f, err := c.fs.Create(name)
	if err != nil {
		return cafs.Key{}, err
	}
	defer func() {
		if err != nil {
			_ = c.fs.Remove(name)
		}
	}()

	hasher := cafs.NewHasher()
	w := bufio.NewWriterSize(io.MultiWriter(f, hasher), writeBufferSize)
	err = archive.Pack(ctx, w, members, archive.WithLogger(c.l), archive.OnEntry(progress.Tick))
	if err == nil {
		err = w.Flush()
	}
	if err = multierr.Append(err, f.Close()); err != nil {
		return cafs.Key{}, err
	}
	return hasher.Key(), nil
}
