package fsutil

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrNoMatch is returned by Latest when the pattern matches no file.
var ErrNoMatch = errors.New("no file matches")

// Latest returns the most recently modified regular file matching pattern.
// Ties are broken by name so the result is stable.
func Latest(fsys FileSystem, pattern string) (string, error) {
	names, err := fsys.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("glob %q: %w", pattern, err)
	}

	var best string
	var bestInfo fileInfo
	for _, name := range names {
		info, err := fsys.Stat(name)
		if err != nil || info.IsDir() {
			continue
		}
		cur := fileInfo{name: name, mod: info.ModTime().UnixNano()}
		if best == "" || cur.newer(bestInfo) {
			best, bestInfo = name, cur
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w %s", ErrNoMatch, filepath.ToSlash(pattern))
	}
	return best, nil
}

type fileInfo struct {
	name string
	mod  int64
}

func (a fileInfo) newer(b fileInfo) bool {
	if a.mod != b.mod {
		return a.mod > b.mod
	}
	return a.name > b.name
}
