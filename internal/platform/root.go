package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// LocalDirName is the name of a project-local data directory.
const LocalDirName = ".tack"

// FindRoot looks upwards from startDir for a project-local data directory
// and returns its absolute path.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		candidate := filepath.Join(dir, LocalDirName)
		if isDir(candidate) {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("no %s directory above %s", LocalDirName, abs)
}

// DefaultDataDir returns ~/.tack, or .tack in the working directory when the
// home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return LocalDirName
	}
	return filepath.Join(home, LocalDirName)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
