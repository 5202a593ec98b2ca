package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/oneconcern/cachetransporter/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrCorruptArchive indicates that an archive cannot be decoded
var ErrCorruptArchive = errors.New("corrupt archive")

// Result of an extraction
type Result struct {
	Target   string
	Entries  int
	Warnings []string
}

type extractor struct {
	settings
	target string
	res    Result
	dirs   []*tar.Header
}

// Unpack expands a gzip compressed tar stream below target, creating it as needed.
//
// Entries which would land outside of target, hard links pointing outside of target
// and unsupported entry types are reported as warnings and skipped.
// File modes and modification times are restored. Existing files are replaced.
func Unpack(ctx context.Context, r io.Reader, target string, opts ...Option) (res Result, err error) {
	x := &extractor{
		settings: defaultSettings(opts),
		target:   filepath.Clean(target),
	}
	x.res.Target = x.target

	if err = os.MkdirAll(x.target, 0755); err != nil {
		return x.res, err
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		return x.res, ErrCorruptArchive.Wrap(err)
	}
	defer func() {
		err = multierr.Append(err, gz.Close())
	}()

	tr := tar.NewReader(gz)
	for {
		if err = ctx.Err(); err != nil {
			return x.res, err
		}
		hdr, e := tr.Next()
		if e == io.EOF {
			break
		}
		if e != nil {
			return x.res, ErrCorruptArchive.Wrap(e)
		}
		if err = x.extract(hdr, tr); err != nil {
			return x.res, err
		}
	}

	// directories are finalized last, since writing their content updates their mtime
	for i := len(x.dirs) - 1; i >= 0; i-- {
		hdr := x.dirs[i]
		dest := x.dest(path.Clean(hdr.Name))
		if err = os.Chmod(dest, hdr.FileInfo().Mode().Perm()); err != nil {
			return x.res, err
		}
		if err = os.Chtimes(dest, hdr.ModTime, hdr.ModTime); err != nil {
			return x.res, err
		}
	}
	return x.res, nil
}

func (x *extractor) warn(msg string, hdr *tar.Header) {
	x.res.Warnings = append(x.res.Warnings, fmt.Sprintf("%s: %s", msg, hdr.Name))
	x.l.Warn(msg, zap.String("entry", hdr.Name))
}

func (x *extractor) dest(clean string) string {
	return filepath.Join(x.target, filepath.FromSlash(clean))
}

// inside tells if a cleaned, slash separated name stays below the target
func inside(clean string) bool {
	return !path.IsAbs(clean) && clean != ".." && !strings.HasPrefix(clean, "../")
}

// throughSymlink tells if one of the parents of clean below the target is a symbolic link
func (x *extractor) throughSymlink(clean string) bool {
	parts := strings.Split(clean, "/")
	current := x.target
	for _, part := range parts[:len(parts)-1] {
		current = filepath.Join(current, part)
		info, err := os.Lstat(current)
		if err != nil {
			return false
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return true
		}
	}
	return false
}

func (x *extractor) extract(hdr *tar.Header, r io.Reader) error {
	clean := path.Clean(hdr.Name)
	if !inside(clean) {
		x.warn("skipping entry outside of target", hdr)
		return nil
	}
	if x.throughSymlink(clean) {
		x.warn("skipping entry below a symbolic link", hdr)
		return nil
	}
	dest := x.dest(clean)

	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(dest, 0700); err != nil {
			return err
		}
		x.dirs = append(x.dirs, hdr)

	case tar.TypeReg:
		if err := x.prepare(dest); err != nil {
			return err
		}
		if err := writeFile(dest, hdr, r); err != nil {
			return err
		}

	case tar.TypeSymlink:
		if err := x.prepare(dest); err != nil {
			return err
		}
		if err := os.Symlink(hdr.Linkname, dest); err != nil {
			return err
		}

	case tar.TypeLink:
		linked := path.Clean(hdr.Linkname)
		if !inside(linked) || x.throughSymlink(linked) {
			x.warn("skipping hard link outside of target", hdr)
			return nil
		}
		if err := x.prepare(dest); err != nil {
			return err
		}
		if err := os.Link(x.dest(linked), dest); err != nil {
			return err
		}

	default:
		x.warn(fmt.Sprintf("skipping unsupported entry type %q", hdr.Typeflag), hdr)
		return nil
	}

	x.res.Entries++
	x.onEntry(hdr.Name)
	return nil
}

// prepare creates the parents of dest and removes any entry already there
func (x *extractor) prepare(dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func writeFile(dest string, hdr *tar.Header, r io.Reader) (err error) {
	mode := hdr.FileInfo().Mode().Perm()
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
		if err == nil {
			err = os.Chmod(dest, mode)
		}
		if err == nil {
			err = os.Chtimes(dest, hdr.ModTime, hdr.ModTime)
		}
	}()

	if _, err = io.Copy(f, r); err != nil {
		return ErrCorruptArchive.Detail("%s", hdr.Name).Wrap(err)
	}
	return nil
}
