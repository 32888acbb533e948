package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const tempPattern = "**/" + TempFilePrefix + "*"

func isTempFile(name string) bool {
	return strings.HasPrefix(filepath.Base(name), TempFilePrefix)
}

// Sweep removes temporary files left behind by writes that were interrupted
// before their rename. It returns the removed paths relative to the store.
func (s *Store) Sweep(ctx context.Context) ([]string, error) {
	if s.config.ReadOnly {
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(s.Path), tempPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to scan for leftovers: %w", err)
	}

	var removed []string
	for _, rel := range matches {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.Remove(filepath.Join(s.Path, filepath.FromSlash(rel))); err != nil && !os.IsNotExist(err) {
			s.config.Logger.Warn("failed to remove leftover", "path", rel, "error", err)
			continue
		}
		removed = append(removed, rel)
	}
	if len(removed) > 0 {
		s.config.Logger.Info("removed interrupted writes", "count", len(removed))
	}
	return removed, nil
}
