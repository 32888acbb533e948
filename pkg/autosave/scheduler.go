package autosave

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/tack/pkg/core"
)

// Defaults used when the corresponding Config field is zero.
const (
	DefaultDelay         = time.Second
	DefaultMaxDelay      = 5 * time.Second
	DefaultRetryDelay    = 500 * time.Millisecond
	DefaultMaxRetryDelay = 30 * time.Second
)

// Status is the state of one resource.
type Status string

const (
	StatusClean    Status = "clean"
	StatusDirty    Status = "dirty"
	StatusFlushing Status = "flushing"
)

// Config configures a Scheduler.
type Config struct {
	// Delay is the quiet period after the last Touch before a flush.
	Delay time.Duration
	// MaxDelay bounds how long a change may stay unsaved under a steady
	// stream of touches.
	MaxDelay      time.Duration
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	Logger        *slog.Logger
	// OnError receives background flush failures.
	OnError func(name string, err error)
	// Clock is used for MaxDelay accounting. Nil means time.Now.
	Clock func() time.Time
}

type resource struct {
	name    string
	flush   core.FlushFunc
	flushMu sync.Mutex

	status     Status
	gen        uint64
	firstDirty time.Time
	timer      *time.Timer
	failures   int
	lastErr    error
	lastFlush  time.Time
	flushes    int
}

// Scheduler implements core.Autosaver with debounced background flushes.
type Scheduler struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	resources map[string]*resource
	closed    bool
	wg        sync.WaitGroup
}

// New creates a Scheduler. Background flushes run until Close.
func New(cfg Config) *Scheduler {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.MaxDelay < cfg.Delay {
		cfg.MaxDelay = cfg.Delay
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		resources: make(map[string]*resource),
	}
}

// Register binds name to fn. Registering a name again replaces its function.
func (s *Scheduler) Register(name string, fn core.FlushFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.resources[name]; ok {
		r.flush = fn
		return
	}
	s.resources[name] = &resource{name: name, flush: fn, status: StatusClean}
}

// Touch marks name Dirty and schedules a flush.
func (s *Scheduler) Touch(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.resources[name]
	if !ok {
		s.cfg.Logger.Warn("touch on unregistered resource", "resource", name)
		return
	}

	r.gen++
	now := s.cfg.Clock()
	switch r.status {
	case StatusClean:
		r.status = StatusDirty
		r.firstDirty = now
	case StatusFlushing:
		// The running flush reschedules when it sees the new generation.
		return
	}
	if r.failures > 0 {
		// A retry is already pending; keep its backoff.
		return
	}

	wait := s.cfg.Delay
	if deadline := r.firstDirty.Add(s.cfg.MaxDelay); now.Add(wait).After(deadline) {
		wait = max(0, deadline.Sub(now))
	}
	s.arm(r, wait)
}

// arm (re)starts the timer of r. s.mu must be held.
func (s *Scheduler) arm(r *resource, wait time.Duration) {
	if s.closed {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	name := r.name
	r.timer = time.AfterFunc(wait, func() { s.fire(name) })
}

// fire runs a background flush for name.
func (s *Scheduler) fire(name string) {
	s.mu.Lock()
	r, ok := s.resources[name]
	if !ok || s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	lifecycle.Go(s.ctx, func(ctx context.Context) error {
		defer s.wg.Done()
		if err := s.flush(ctx, r); err != nil && s.cfg.OnError != nil {
			s.cfg.OnError(name, err)
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		s.cfg.Logger.Error("autosave goroutine failed", "resource", name, "error", err)
	}))
}

// flush writes r if it is Dirty. Flushes of the same resource never overlap.
func (s *Scheduler) flush(ctx context.Context, r *resource) error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	s.mu.Lock()
	if r.status != StatusDirty {
		s.mu.Unlock()
		return nil
	}
	gen := r.gen
	r.status = StatusFlushing
	if r.timer != nil {
		r.timer.Stop()
	}
	fn := r.flush
	s.mu.Unlock()

	start := s.cfg.Clock()
	err := s.call(ctx, r.name, fn)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		r.status = StatusDirty
		r.failures++
		r.lastErr = err
		retry := s.backoff(r.failures)
		s.arm(r, retry)
		s.cfg.Logger.Error("flush failed", "resource", r.name, "attempt", r.failures, "retry_in", retry, "error", err)
		return fmt.Errorf("flush %s: %w", r.name, err)
	}

	r.failures = 0
	r.lastErr = nil
	r.lastFlush = s.cfg.Clock()
	r.flushes++
	s.cfg.Logger.Debug("flushed", "resource", r.name, "took", r.lastFlush.Sub(start))

	if r.gen != gen {
		r.status = StatusDirty
		r.firstDirty = r.lastFlush
		s.arm(r, s.cfg.Delay)
		return nil
	}
	r.status = StatusClean
	return nil
}

// call runs fn, turning a panic into an error.
func (s *Scheduler) call(ctx context.Context, name string, fn core.FlushFunc) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("flush panic: %v", recovered)
			if s.cfg.Logger.Enabled(ctx, slog.LevelDebug) {
				s.cfg.Logger.Error("flush panic", "resource", name, "error", err, "stack", string(debug.Stack()))
			}
		}
	}()
	return fn(ctx)
}

func (s *Scheduler) backoff(failures int) time.Duration {
	d := s.cfg.RetryDelay
	for i := 1; i < failures && d < s.cfg.MaxRetryDelay; i++ {
		d *= 2
	}
	return min(d, s.cfg.MaxRetryDelay)
}

// Dirty reports whether name has changes not yet on disk.
func (s *Scheduler) Dirty(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[name]
	return ok && r.status != StatusClean
}

// FlushNow writes name immediately if it is Dirty, waiting for any flush
// already in progress.
func (s *Scheduler) FlushNow(ctx context.Context, name string) error {
	s.mu.Lock()
	r, ok := s.resources[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: resource %s", core.ErrNotFound, name)
	}
	return s.flush(ctx, r)
}

// FlushAll writes every Dirty resource in parallel and joins the failures.
func (s *Scheduler) FlushAll(ctx context.Context) error {
	s.mu.Lock()
	names := make([]string, 0, len(s.resources))
	for name := range s.resources {
		names = append(names, name)
	}
	s.mu.Unlock()
	slices.Sort(names)

	errs := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			errs[i] = s.FlushNow(ctx, name)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Close stops the timers, waits for running flushes and writes everything
// still Dirty. Later touches only mark resources Dirty.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, r := range s.resources {
		if r.timer != nil {
			r.timer.Stop()
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}

	err := s.FlushAll(ctx)
	s.cancel()
	return err
}

var _ core.Autosaver = (*Scheduler)(nil)
