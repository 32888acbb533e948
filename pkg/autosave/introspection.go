package autosave

import (
	"time"

	"github.com/aretw0/introspection"
)

// ResourceState describes one registered resource.
type ResourceState struct {
	Status    Status     `json:"status"`
	Failures  int        `json:"failures,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	LastFlush *time.Time `json:"last_flush,omitempty"`
	Flushes   int        `json:"flushes"`
}

// SchedulerState exposes internal state for observability.
type SchedulerState struct {
	Delay     time.Duration            `json:"delay"`
	MaxDelay  time.Duration            `json:"max_delay"`
	Closed    bool                     `json:"closed"`
	Resources map[string]ResourceState `json:"resources"`
}

// State implements introspection.Introspectable.
func (s *Scheduler) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	resources := make(map[string]ResourceState, len(s.resources))
	for name, r := range s.resources {
		rs := ResourceState{
			Status:   r.status,
			Failures: r.failures,
			Flushes:  r.flushes,
		}
		if r.lastErr != nil {
			rs.LastError = r.lastErr.Error()
		}
		if !r.lastFlush.IsZero() {
			t := r.lastFlush
			rs.LastFlush = &t
		}
		resources[name] = rs
	}

	return SchedulerState{
		Delay:     s.cfg.Delay,
		MaxDelay:  s.cfg.MaxDelay,
		Closed:    s.closed,
		Resources: resources,
	}
}

// ComponentType implements introspection.Component.
func (s *Scheduler) ComponentType() string {
	return "autosave"
}

var _ introspection.Introspectable = (*Scheduler)(nil)
var _ introspection.Component = (*Scheduler)(nil)
