package core

import (
	"path/filepath"
	"strings"
)

// CommonAncestor returns the deepest directory which is an ancestor of, or equal to, all paths.
//
// Paths are expected to be absolute. They are compared as text: symbolic links are not resolved.
// Paths without any common ancestor, such as paths on different volumes, are not detected.
func CommonAncestor(paths ...string) (string, error) {
	if len(paths) == 0 {
		return "", ErrNoPaths
	}
	acc := filepath.Clean(paths[0])
	for _, p := range paths[1:] {
		rel, err := filepath.Rel(acc, filepath.Clean(p))
		if err != nil {
			return "", err
		}
		for _, segment := range strings.Split(rel, string(filepath.Separator)) {
			if segment != ".." {
				break
			}
			acc = filepath.Dir(acc)
		}
	}
	return acc, nil
}

// RestoreTarget returns the directory into which an archive saved from cwd with the given base expands,
// when restored from workingDir.
//
// The archive lands at the same position relative to workingDir as it occupied relative to cwd.
func RestoreTarget(cwd, base, workingDir string) (string, error) {
	rel, err := filepath.Rel(cwd, base)
	if err != nil {
		return "", err
	}
	return filepath.Join(workingDir, rel), nil
}
