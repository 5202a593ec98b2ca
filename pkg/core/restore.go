package core

import (
	"bufio"
	"context"
	"os"

	"github.com/oneconcern/cachetransporter/pkg/archive"
	"github.com/oneconcern/cachetransporter/pkg/cafs"
	"github.com/oneconcern/cachetransporter/pkg/model"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const readBufferSize = 1024 * 1024

// Restore expands the local archive of a cache id at the same position relative to the working
// directory as it occupied relative to the working directory at save time.
//
// The archive is verified against its metadata before any extraction.
// Unsafe or unsupported entries are reported as warnings and do not abort the restore.
func (c *Cache) Restore(ctx context.Context, cacheID string) (res archive.Result, err error) {
	local, err := c.LocalPaths(cacheID)
	if err != nil {
		return res, err
	}
	if _, err = c.exists(local.MetadataFile, ErrMissingMetadata); err != nil {
		return res, err
	}
	if _, err = c.exists(local.ArchiveFile, ErrMissingArchive); err != nil {
		return res, err
	}
	md, err := model.ReadMetadata(c.fs, local.MetadataFile)
	if err != nil {
		return res, err
	}
	key, err := md.Key()
	if err != nil {
		return res, err
	}

	actual, err := cafs.KeyFromFile(c.fs, local.ArchiveFile)
	if err != nil {
		return res, err
	}
	if actual != key {
		return res, ErrHashMismatch.Detail("local archive %s: expected %s, got %s", local.ArchiveFile, key, actual)
	}

	wd, err := c.cwd()
	if err != nil {
		return res, err
	}
	target, err := RestoreTarget(md.Cwd, md.Base, wd)
	if err != nil {
		return res, err
	}
	if err = os.MkdirAll(target, 0755); err != nil {
		return res, err
	}

	c.l.Info("Unarchiving", zap.String("archive", local.ArchiveFile))
	c.l.Info("Target", zap.String("saved from", md.Cwd), zap.String("base", md.Base), zap.String("target", target))
	progress := NewProgress(c.l, "Unarchiving", "Unarchived", c.progressInterval)

	f, err := c.fs.Open(local.ArchiveFile)
	if err != nil {
		return res, err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	res, err = archive.Unpack(ctx, bufio.NewReaderSize(f, readBufferSize), target,
		archive.WithLogger(c.l), archive.OnEntry(progress.Tick))
	if err != nil {
		return res, err
	}
	progress.Finalize()
	if len(res.Warnings) > 0 {
		c.l.Warn("Restored with warnings", zap.Int("warnings", len(res.Warnings)))
	}
	return res, nil
}
