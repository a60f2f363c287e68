// Package files turns local paths into upload handles.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

// Open stats path and returns a handle that opens it lazily.
// Directories are rejected; size and type checks are left to the
// upload coordinator so every entry point reports them the same way.
func Open(path string) (domain.FileHandle, error) {
	path = expandHome(path)
	info, err := os.Stat(path)
	if err != nil {
		return domain.FileHandle{}, fmt.Errorf("open %s: %w", path, err)
	}
	if info.IsDir() {
		return domain.FileHandle{}, &domain.ValidationError{Filename: filepath.Base(path), Reason: "is a directory"}
	}

	return domain.FileHandle{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// OpenAll opens every path, stopping at the first failure.
func OpenAll(paths []string) ([]domain.FileHandle, error) {
	handles := make([]domain.FileHandle, 0, len(paths))
	for _, p := range paths {
		h, err := Open(p)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// ParsePaths splits pasted or dragged text into paths. Terminals deliver
// dropped files either quoted ('a b.pdf', "a b.pdf") or with escaped
// spaces (a\ b.pdf); both forms are accepted.
func ParsePaths(input string) []string {
	var (
		paths   []string
		current strings.Builder
		quote   rune
		escaped bool
		started bool
	)

	flush := func() {
		if started {
			paths = append(paths, current.String())
		}
		current.Reset()
		started = false
	}

	for _, r := range input {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\\':
			escaped = true
			started = true
		case r == '\'' || r == '"':
			quote = r
			started = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			current.WriteRune(r)
			started = true
		}
	}
	flush()
	return paths
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
