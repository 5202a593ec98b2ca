package core

import (
	"context"

	"github.com/oneconcern/cachetransporter/pkg/archive"
)

// Push saves then uploads
func (c *Cache) Push(ctx context.Context, cacheID string, paths []string) (SaveResult, error) {
	res, err := c.Save(ctx, cacheID, paths)
	if err != nil {
		return res, err
	}
	return res, c.Upload(ctx, cacheID)
}

// Pull downloads then restores
func (c *Cache) Pull(ctx context.Context, cacheID string) (archive.Result, error) {
	if _, err := c.Download(ctx, cacheID); err != nil {
		return archive.Result{}, err
	}
	return c.Restore(ctx, cacheID)
}
