package core

import (
	"bytes"
	"context"

	"github.com/oneconcern/cachetransporter/pkg/cafs"
	"github.com/oneconcern/cachetransporter/pkg/model"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Upload publishes the local archive of a cache id under its content hash, then its metadata
// record under the hash of the cache id.
//
// The archive always goes first: a reader able to fetch the metadata can always fetch the archive.
func (c *Cache) Upload(ctx context.Context, cacheID string) error {
	local, err := c.LocalPaths(cacheID)
	if err != nil {
		return err
	}
	info, err := c.exists(local.ArchiveFile, ErrMissingArchive)
	if err != nil {
		return err
	}
	if _, err = c.exists(local.MetadataFile, ErrMissingMetadata); err != nil {
		return err
	}
	client, err := c.transport()
	if err != nil {
		return err
	}

	raw, err := afero.ReadFile(c.fs, local.MetadataFile)
	if err != nil {
		return err
	}
	md, err := model.UnmarshalMetadata(raw)
	if err != nil {
		return err
	}
	if md.CacheID != cacheID {
		return model.ErrInvalidMetadata.Detail("%s records cache id %q", local.MetadataFile, md.CacheID)
	}
	key, err := md.Key()
	if err != nil {
		return err
	}

	c.l.Info("Uploading archive", zap.String("archive", local.ArchiveFile), zap.Stringer("key", key), zap.Int64("size", info.Size()))
	if err = c.putFile(ctx, client, key, local.ArchiveFile, info.Size()); err != nil {
		return err
	}

	c.l.Info("Uploading metadata", zap.String("metadata", local.MetadataFile))
	if err = client.Put(ctx, model.AC, cafs.IdentifierKey(cacheID), bytes.NewReader(raw), int64(len(raw))); err != nil {
		return err
	}
	c.l.Info("Uploaded", zap.String("cacheId", cacheID))
	return nil
}

func (c *Cache) putFile(ctx context.Context, client Transport, key cafs.Key, name string, size int64) (err error) {
	f, err := c.fs.Open(name)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return client.Put(ctx, model.CAS, key, f, size)
}
