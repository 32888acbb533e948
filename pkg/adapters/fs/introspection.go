package fs

import (
	"maps"
	"time"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path          string               `json:"path"`
	ImagesDir     string               `json:"images_dir"`
	ReadOnly      bool                 `json:"read_only"`
	WatcherActive bool                 `json:"watcher_active"`
	Tracked       int                  `json:"tracked_files"`
	LastWrite     map[string]time.Time `json:"last_write,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StoreState{
		Path:          s.Path,
		ImagesDir:     s.images.root,
		ReadOnly:      s.config.ReadOnly,
		WatcherActive: s.watcherActive,
		Tracked:       s.writes.Len(),
		LastWrite:     maps.Clone(s.lastWrite),
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
