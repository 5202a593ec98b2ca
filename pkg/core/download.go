package core

import (
	"context"
	"io"

	"github.com/oneconcern/cachetransporter/pkg/cafs"
	"github.com/oneconcern/cachetransporter/pkg/model"
	"github.com/oneconcern/cachetransporter/pkg/storage"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Download fetches the metadata record of a cache id, then the archive it points to, into the temp directory.
//
// The received archive is hashed while written. On mismatch with the recorded digest the archive is
// removed and ErrHashMismatch is returned.
func (c *Cache) Download(ctx context.Context, cacheID string) (model.Metadata, error) {
	local, err := c.LocalPaths(cacheID)
	if err != nil {
		return model.Metadata{}, err
	}
	client, err := c.transport()
	if err != nil {
		return model.Metadata{}, err
	}

	c.l.Info("Downloading metadata", zap.String("cacheId", cacheID))
	raw, err := c.fetchMetadata(ctx, client, cacheID)
	if err != nil {
		return model.Metadata{}, err
	}
	md, err := model.UnmarshalMetadata(raw)
	if err != nil {
		return model.Metadata{}, err
	}
	if md.CacheID != cacheID {
		return model.Metadata{}, model.ErrInvalidMetadata.Detail("server returned a record for cache id %q", md.CacheID)
	}
	key, err := md.Key()
	if err != nil {
		return model.Metadata{}, err
	}

	if err = c.fs.MkdirAll(c.tempDir, 0755); err != nil {
		return model.Metadata{}, err
	}
	if err = afero.WriteFile(c.fs, local.MetadataFile, raw, 0644); err != nil {
		return model.Metadata{}, err
	}
	c.l.Info("Wrote metadata", zap.String("metadata", local.MetadataFile))

	c.l.Info("Downloading archive", zap.Stringer("key", key), zap.String("archive", local.ArchiveFile))
	actual, size, err := c.fetchArchive(ctx, client, key, local.ArchiveFile)
	if err != nil {
		return model.Metadata{}, err
	}
	if actual != key {
		_ = c.fs.Remove(local.ArchiveFile)
		return model.Metadata{}, ErrHashMismatch.Detail("archive for %q: expected %s, got %s", cacheID, key, actual)
	}
	c.l.Info("Downloaded", zap.String("archive", local.ArchiveFile), zap.Int64("size", size))
	return md, nil
}

func (c *Cache) fetchMetadata(ctx context.Context, client Transport, cacheID string) (raw []byte, err error) {
	rc, err := client.Get(ctx, model.AC, cafs.IdentifierKey(cacheID))
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, rc.Close())
	}()
	raw, err = io.ReadAll(io.LimitReader(rc, maxMetadataSize+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > maxMetadataSize {
		return nil, model.ErrInvalidMetadata.Detail("record for %q exceeds %d bytes", cacheID, maxMetadataSize)
	}
	return raw, nil
}

// fetchArchive streams the remote archive to a local file and returns the digest of the received bytes
func (c *Cache) fetchArchive(ctx context.Context, client Transport, key cafs.Key, name string) (actual cafs.Key, size int64, err error) {
	rc, err := client.Get(ctx, model.CAS, key)
	if err != nil {
		return cafs.Key{}, 0, err
	}
	defer func() {
		_ = rc.Close()
	}()

	f, err := c.fs.Create(name)
	if err != nil {
		return cafs.Key{}, 0, err
	}
	hasher := cafs.NewHasher()
	size, err = storage.PipeIO(io.MultiWriter(f, hasher), rc)
	if err = multierr.Append(err, f.Close()); err != nil {
		_ = c.fs.Remove(name)
		return cafs.Key{}, 0, err
	}
	return hasher.Key(), size, nil
}
