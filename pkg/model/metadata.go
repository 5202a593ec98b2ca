package model

import (
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/oneconcern/cachetransporter/pkg/cafs"
	"github.com/oneconcern/cachetransporter/pkg/errors"
	"github.com/spf13/afero"
)

// ErrInvalidMetadata is returned when a metadata record cannot be decoded or is incomplete
var ErrInvalidMetadata = errors.New("invalid metadata")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Metadata ties a cache id to the original location and content hash of its archive.
type Metadata struct {
	CacheID string `json:"cacheId" yaml:"cacheId"`
	Cwd     string `json:"cwd" yaml:"cwd"`   // absolute working directory at save time
	Base    string `json:"base" yaml:"base"` // absolute common ancestor of the archived paths
	Hash    string `json:"hash" yaml:"hash"` // lowercase hex sha256 of the archive
}

// Validate checks that all fields are present and well formed
func (m Metadata) Validate() error {
	if err := ValidateCacheID(m.CacheID); err != nil {
		return ErrInvalidMetadata.Wrap(err)
	}
	if !filepath.IsAbs(m.Cwd) {
		return ErrInvalidMetadata.Detail("cwd must be an absolute path: %q", m.Cwd)
	}
	if !filepath.IsAbs(m.Base) {
		return ErrInvalidMetadata.Detail("base must be an absolute path: %q", m.Base)
	}
	if !cafs.IsValidKey(m.Hash) {
		return ErrInvalidMetadata.Detail("hash is not a sha256 hex digest: %q", m.Hash)
	}
	return nil
}

// Key returns the content key of the archive
func (m Metadata) Key() (cafs.Key, error) {
	return cafs.KeyFromString(m.Hash)
}

// MarshalMetadata renders a metadata record as indented JSON
func MarshalMetadata(m Metadata) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// UnmarshalMetadata decodes and validates a metadata record
func UnmarshalMetadata(data []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, ErrInvalidMetadata.Wrap(err)
	}
	if err := m.Validate(); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// WriteMetadata persists a metadata record, replacing any previous one
func WriteMetadata(fs afero.Fs, name string, m Metadata) error {
	b, err := MarshalMetadata(m)
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, name, b, 0644)
}

// ReadMetadata loads and validates a metadata record
func ReadMetadata(fs afero.Fs, name string) (Metadata, error) {
	b, err := afero.ReadFile(fs, name)
	if err != nil {
		return Metadata{}, err
	}
	return UnmarshalMetadata(b)
}
