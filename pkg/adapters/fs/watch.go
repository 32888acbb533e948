package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/tack/pkg/core"
)

// Watch reports changes made to the data directory by other processes.
// Writes done through this store are not reported. The returned channel is
// closed when ctx is cancelled.
func (s *Store) Watch(ctx context.Context) (<-chan core.Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	for _, dir := range []string{s.Path, s.images.root} {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	events := make(chan core.Event)
	d := newDebouncer(s.config.Debounce)
	s.setWatcherActive(true)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(events)
		defer s.setWatcherActive(false)
		defer watcher.Close()
		// Pending timers must finish before events is closed.
		defer d.stopAndWait()

		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				s.handleFSEvent(ctx, d, ev, events)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				s.config.Logger.Error("fsnotify error", "error", werr)
				if s.config.ErrorHandler != nil {
					s.config.ErrorHandler(werr)
				}
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		if s.config.ErrorHandler != nil {
			s.config.ErrorHandler(fmt.Errorf("watcher panic: %w", err))
			return
		}
		s.config.Logger.Error("watcher panic", "error", err)
	}))

	return events, nil
}

func (s *Store) handleFSEvent(ctx context.Context, d *debouncer, ev fsnotify.Event, out chan<- core.Event) {
	if isTempFile(ev.Name) || strings.Contains(filepath.Base(ev.Name), ".corrupt-") {
		return
	}
	resource, id, ok := s.resolve(ev.Name)
	if !ok {
		return
	}
	s.config.Logger.Debug("event received", "name", ev.Name, "op", ev.Op.String())

	key := resource + "/" + id
	d.add(key, func() {
		e, ok := s.settle(ev.Name, resource, id)
		if !ok {
			return
		}
		select {
		case out <- e:
		case <-ctx.Done():
		}
	})
}

// resolve maps a path inside the data directory to a resource.
func (s *Store) resolve(name string) (resource, id string, ok bool) {
	if filepath.Dir(name) == filepath.Clean(s.images.root) {
		id = filepath.Base(name)
		if core.ValidateImageID(id) != nil {
			return "", "", false
		}
		return core.ResourceImages, id, true
	}
	if filepath.Dir(name) != filepath.Clean(s.Path) {
		return "", "", false
	}
	switch filepath.Base(name) {
	case NotesFile:
		return core.ResourceNotes, "", true
	case PositionsFile:
		return core.ResourceGeometry, "", true
	case StateFile:
		return core.ResourceSession, "", true
	}
	return "", "", false
}

// settle looks at the file once it stopped changing and decides what, if
// anything, happened to it.
func (s *Store) settle(path, resource, id string) (core.Event, bool) {
	e := core.Event{Resource: resource, ID: id, Timestamp: time.Now()}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		e.Type = core.EventDelete
		s.writes.Forget(filepath.Base(path))
		return e, true
	case err != nil:
		s.config.Logger.Debug("unreadable after change", "path", path, "error", err)
		return e, false
	}

	if resource == core.ResourceImages {
		e.Type = core.EventCreate
		return e, true
	}
	if s.writes.Matches(filepath.Base(path), data) {
		return e, false
	}
	e.Type = core.EventModify
	s.writes.Set(filepath.Base(path), data)
	return e, true
}

// debouncer coalesces bursts of events per key into one callback.
type debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, timers: make(map[string]*time.Timer)}
}

func (d *debouncer) add(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.timers[key]; ok && t.Stop() {
		d.wg.Done()
	}

	var t *time.Timer
	d.wg.Add(1)
	t = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		if d.timers[key] == t {
			delete(d.timers, key)
		}
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			fn()
		}
	})
	d.timers[key] = t
}

func (d *debouncer) stopAndWait() {
	d.mu.Lock()
	d.stopped = true
	for key, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
