package core

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// SessionManager tracks which notes are open as windows. Ids keep the
// order in which they were first opened.
type SessionManager struct {
	mu      sync.RWMutex
	flushMu sync.Mutex
	open    []string
	gen     uint64
	saved   uint64
	storage SessionStorage
}

// NewSessionManager creates an empty session persisting through storage.
func NewSessionManager(storage SessionStorage) *SessionManager {
	return &SessionManager{storage: storage}
}

// MarkOpen adds id to the session. It reports whether the set changed.
func (s *SessionManager) MarkOpen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.open, id) {
		return false
	}
	s.open = append(s.open, id)
	s.gen++
	return true
}

// MarkClosed removes id from the session. It reports whether the set changed.
func (s *SessionManager) MarkClosed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.open, id)
	if i < 0 {
		return false
	}
	s.open = slices.Delete(s.open, i, i+1)
	s.gen++
	return true
}

// IsOpen reports whether id is in the session.
func (s *SessionManager) IsOpen(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.open, id)
}

// IDs returns the open ids in order.
func (s *SessionManager) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.open)
}

// Restore returns the open notes in session order. Ids without a note are
// dropped from the session; pruned reports whether that happened.
func (s *SessionManager) Restore(notes *NoteRepository) (restored []Note, pruned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.open[:0:0]
	for _, id := range s.open {
		n, err := notes.Get(id)
		if err != nil {
			pruned = true
			continue
		}
		kept = append(kept, id)
		restored = append(restored, n)
	}
	s.open = kept
	if pruned {
		s.gen++
	}
	return restored, pruned
}

// Load replaces the session with the stored one, dropping duplicates.
func (s *SessionManager) Load(ctx context.Context) error {
	_, err := s.load(ctx, false)
	return err
}

// Reload is Load unless the session has changes not yet written or
// changes while the file is read.
func (s *SessionManager) Reload(ctx context.Context) (loaded bool, err error) {
	return s.load(ctx, true)
}

func (s *SessionManager) load(ctx context.Context, conditional bool) (bool, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	ids, err := s.storage.LoadSession(ctx)
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}

	open := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(open, id) {
			open = append(open, id)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if conditional && (s.gen != gen || s.saved != gen) {
		return false, nil
	}
	s.open = open
	s.gen++
	s.saved = s.gen
	return true, nil
}

// Flush writes the open ids.
func (s *SessionManager) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.RLock()
	ids := slices.Clone(s.open)
	gen := s.gen
	s.mu.RUnlock()

	if err := s.storage.SaveSession(ctx, ids); err != nil {
		return fmt.Errorf("flush session: %w", err)
	}
	s.mu.Lock()
	s.saved = max(s.saved, gen)
	s.mu.Unlock()
	return nil
}
