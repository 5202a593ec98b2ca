package model

import (
	"path/filepath"
	"strings"

	"github.com/oneconcern/cachetransporter/pkg/errors"
)

const (
	archiveExt  = ".tgz"
	metadataExt = ".json"
)

// ErrInvalidCacheID is returned for cache ids that cannot safely name local files
var ErrInvalidCacheID = errors.New("invalid cache id")

// LocalPaths locates the working copies of the archive and metadata of a cache id
type LocalPaths struct {
	ArchiveFile  string
	MetadataFile string
}

// GetLocalPaths returns {dir}/{cacheID}.tgz and {dir}/{cacheID}.json
func GetLocalPaths(dir, cacheID string) (LocalPaths, error) {
	if err := ValidateCacheID(cacheID); err != nil {
		return LocalPaths{}, err
	}
	return LocalPaths{
		ArchiveFile:  filepath.Join(dir, cacheID+archiveExt),
		MetadataFile: filepath.Join(dir, cacheID+metadataExt),
	}, nil
}

// ValidateCacheID rejects cache ids which would escape the temp directory when used as a file name
func ValidateCacheID(cacheID string) error {
	switch {
	case cacheID == "":
		return ErrInvalidCacheID.Detail("cache id is empty")
	case cacheID == "." || cacheID == "..":
		return ErrInvalidCacheID.Detail("%q", cacheID)
	case strings.ContainsAny(cacheID, "/\\\x00"):
		return ErrInvalidCacheID.Detail("%q contains a path separator or NUL", cacheID)
	}
	return nil
}
