package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// syncSaver is the Autosaver used when no scheduler is configured. It keeps
// dirty flags only; the Service flushes right after each change.
type syncSaver struct {
	mu    sync.Mutex
	flush map[string]FlushFunc
	locks map[string]*sync.Mutex
	dirty map[string]bool
}

func newSyncSaver() *syncSaver {
	return &syncSaver{
		flush: make(map[string]FlushFunc),
		locks: make(map[string]*sync.Mutex),
		dirty: make(map[string]bool),
	}
}

func (s *syncSaver) Register(name string, fn FlushFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flush[name] = fn
	s.locks[name] = &sync.Mutex{}
}

func (s *syncSaver) Touch(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty[name] = true
}

func (s *syncSaver) Dirty(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty[name]
}

func (s *syncSaver) FlushNow(ctx context.Context, name string) error {
	s.mu.Lock()
	fn, lock := s.flush[name], s.locks[name]
	s.mu.Unlock()
	if fn == nil {
		return fmt.Errorf("%w: resource %s", ErrNotFound, name)
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	if !s.dirty[name] {
		s.mu.Unlock()
		return nil
	}
	s.dirty[name] = false
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.Touch(name)
		return err
	}
	return nil
}

func (s *syncSaver) FlushAll(ctx context.Context) error {
	var errs []error
	for _, name := range Autosaved {
		if err := s.FlushNow(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
