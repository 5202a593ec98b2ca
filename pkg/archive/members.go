// Package archive builds and expands the gzip compressed tar archives exchanged
// with the remote cache.
//
// Member names are always relative to a base directory and prefixed with "./",
// so that an archive is portable across machines with a different layout.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	units "github.com/docker/go-units"
	"github.com/karrick/godirwalk"
	"github.com/oneconcern/cachetransporter/pkg/errors"
	"go.uber.org/zap"
)

var (
	// ErrUnreadablePath indicates that a path selected for archiving cannot be read
	ErrUnreadablePath = errors.New("unreadable path")

	// ErrOutsideBase indicates that a path selected for archiving is not below the archive base
	ErrOutsideBase = errors.New("path is not below the archive base")
)

// Member is a file system entry selected for archiving
type Member struct {
	// Name of the entry in the archive, e.g. "./dist/index.js"
	Name string
	// Path is the absolute path of the entry on the local file system
	Path string
	Info os.FileInfo
}

// Stats summarizes a list of members
type Stats struct {
	Entries int
	Bytes   int64
}

// MemberName returns the archive name of rel, a slash or OS separated path relative to the base
func MemberName(rel string) string {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." {
		return "./"
	}
	return "./" + rel
}

// Members enumerates every entry reachable under each root, hidden entries
// included, without following symbolic links.
//
// Roots are absolute paths below base. The result is de-duplicated and sorted by name,
// so that directories always precede their content.
// Entries which are neither directories, regular files nor symbolic links are
// skipped with a warning.
func Members(ctx context.Context, base string, roots []string, opts ...Option) ([]Member, Stats, error) {
	s := defaultSettings(opts)
	seen := make(map[string]struct{})
	var (
		members []Member
		stats   Stats
	)

	add := func(pth string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(base, pth)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return ErrOutsideBase.Detail("%s not in %s", pth, base)
		}
		name := MemberName(rel)
		if _, ok := seen[name]; ok {
			return nil
		}
		seen[name] = struct{}{}

		info, err := os.Lstat(pth)
		if err != nil {
			return ErrUnreadablePath.Detail("%s", pth).Wrap(err)
		}
		mode := info.Mode()
		if !mode.IsDir() && !mode.IsRegular() && mode&os.ModeSymlink == 0 {
			s.l.Warn("skipping unsupported file type", zap.String("path", pth), zap.String("mode", mode.String()))
			return nil
		}
		if mode.IsRegular() {
			stats.Bytes += info.Size()
		}
		stats.Entries++
		members = append(members, Member{Name: name, Path: pth, Info: info})
		return nil
	}

	for _, root := range roots {
		info, err := os.Lstat(root)
		if err != nil {
			return nil, Stats{}, ErrUnreadablePath.Detail("%s", root).Wrap(err)
		}
		if !info.IsDir() {
			if err = add(root); err != nil {
				return nil, Stats{}, err
			}
			continue
		}
		err = godirwalk.Walk(root, &godirwalk.Options{
			Callback: func(osPathname string, _ *godirwalk.Dirent) error {
				return add(osPathname)
			},
			ErrorCallback: func(_ string, _ error) godirwalk.ErrorAction {
				return godirwalk.Halt
			},
			FollowSymbolicLinks: false,
		})
		if err != nil {
			if errors.Is(err, ErrOutsideBase) || errors.Is(err, ErrUnreadablePath) || ctx.Err() != nil {
				return nil, Stats{}, err
			}
			return nil, Stats{}, ErrUnreadablePath.Detail("%s", root).Wrap(err)
		}
	}

	sort.Slice(members, func(i, j int) bool {
		return members[i].Name < members[j].Name
	})
	return members, stats, nil
}

func (s Stats) String() string {
	return fmt.Sprintf("%d entries, %s", s.Entries, units.HumanSize(float64(s.Bytes)))
}
