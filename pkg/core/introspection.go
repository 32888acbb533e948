package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	Notes       int               `json:"notes"`
	Geometry    int               `json:"geometry_records"`
	OpenNotes   []string          `json:"open_notes"`
	Dirty       map[string]bool   `json:"dirty"`
	Immediate   bool              `json:"immediate_writes"`
	Quarantined map[string]string `json:"quarantined,omitempty"`
	StorageType string            `json:"storage_type"`
	Closed      bool              `json:"closed"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	dirty := make(map[string]bool, len(Autosaved))
	for _, name := range Autosaved {
		dirty[name] = s.saver.Dirty(name)
	}

	storageType := "unknown"
	if comp, ok := s.storage.(introspection.Component); ok {
		storageType = comp.ComponentType()
	}

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()

	return ServiceState{
		Notes:       s.notes.Len(),
		Geometry:    s.geometry.Len(),
		OpenNotes:   s.session.IDs(),
		Dirty:       dirty,
		Immediate:   s.immediate,
		Quarantined: s.Quarantined(),
		StorageType: storageType,
		Closed:      closed,
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
