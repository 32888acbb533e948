package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/tack/pkg/core"
)

// File names inside the data directory.
const (
	NotesFile     = "notes.json"
	PositionsFile = "positions.json"
	StateFile     = "state.json"
	ImagesDir     = "images"
)

// Store implements core.Storage on a data directory holding one JSON file
// per resource and an image directory.
type Store struct {
	Path   string
	config Config
	images *Images
	writes *fingerprints

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	mu            sync.RWMutex
	watcherActive bool
	lastWrite     map[string]time.Time
}

// Config holds the configuration for the filesystem store.
type Config struct {
	Path         string
	MustExist    bool
	ReadOnly     bool
	Logger       *slog.Logger
	ErrorHandler func(error) // receives watcher errors
	// Debounce is how long the watcher waits for a file to settle.
	Debounce time.Duration
}

// NewStore creates a store rooted at config.Path. It does no I/O.
func NewStore(config Config) *Store {
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Debounce <= 0 {
		config.Debounce = 100 * time.Millisecond
	}
	return &Store{
		Path:      config.Path,
		config:    config,
		images:    newImages(filepath.Join(config.Path, ImagesDir), config.ReadOnly, config.Logger),
		writes:    newFingerprints(),
		locks:     make(map[string]*sync.Mutex),
		lastWrite: make(map[string]time.Time),
	}
}

// Images returns the content-addressed image store.
func (s *Store) Images() *Images {
	return s.images
}

// Initialize creates the data and image directories.
func (s *Store) Initialize(ctx context.Context) error {
	if s.config.MustExist || s.config.ReadOnly {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			if s.config.ReadOnly {
				return nil
			}
			return fmt.Errorf("data directory does not exist: %s", s.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("data path is not a directory: %s", s.Path)
		}
		if s.config.ReadOnly {
			return nil
		}
	}

	if err := os.MkdirAll(s.images.root, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// File returns the path of the file backing a resource.
func (s *Store) File(resource string) (string, error) {
	switch resource {
	case core.ResourceNotes:
		return filepath.Join(s.Path, NotesFile), nil
	case core.ResourceGeometry:
		return filepath.Join(s.Path, PositionsFile), nil
	case core.ResourceSession:
		return filepath.Join(s.Path, StateFile), nil
	}
	return "", fmt.Errorf("%w: resource %q", core.ErrNotFound, resource)
}

// Quarantine renames a resource file to "<name>.corrupt-<timestamp>".
// A missing file is not an error and yields an empty path.
func (s *Store) Quarantine(ctx context.Context, resource string) (string, error) {
	if s.config.ReadOnly {
		return "", core.ErrReadOnly
	}
	path, err := s.File(resource)
	if err != nil {
		return "", err
	}

	lock := s.lock(path)
	lock.Lock()
	defer lock.Unlock()

	backup := fmt.Sprintf("%s.corrupt-%s", path, time.Now().UTC().Format("20060102T150405"))
	if err := os.Rename(path, backup); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %w", core.ErrWriteFailure, err)
	}
	s.config.Logger.Warn("quarantined corrupt file", "path", path, "backup", backup)
	return backup, nil
}

func (s *Store) lock(path string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

// readJSON decodes path into v. It reports false when the file does not
// exist. Undecodable content is ErrCorruptStore.
func (s *Store) readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, fmt.Errorf("%w: %s is empty", core.ErrCorruptStore, filepath.Base(path))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", core.ErrCorruptStore, filepath.Base(path), err)
	}
	return true, nil
}

// writeJSON encodes v and replaces path atomically. Writes to the same
// path are serialized.
func (s *Store) writeJSON(path string, v any) error {
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	lock := s.lock(path)
	lock.Lock()
	defer lock.Unlock()

	if err := writeFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %w", core.ErrWriteFailure, err)
	}
	s.writes.Set(filepath.Base(path), data)
	s.recordWrite(filepath.Base(path))
	return nil
}

func (s *Store) recordWrite(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastWrite[name] = time.Now()
}

func (s *Store) setWatcherActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherActive = active
}
