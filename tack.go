package tack

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/tack/internal/platform"
	"github.com/aretw0/tack/pkg/core"
)

// --- Types ---

// App is an opened data directory.
type App = platform.App

// Config holds the layered settings of an App.
type Config = platform.Config

// --- Configuration ---

// Option defines a functional option for Open.
type Option = platform.Option

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithClock replaces time.Now for note timestamps.
func WithClock(clock func() time.Time) Option {
	return platform.WithClock(clock)
}

// WithAutosave enables or disables the debounced background scheduler.
func WithAutosave(enabled bool) Option {
	return platform.WithAutosave(enabled)
}

// WithDebounce sets the quiet period before an autosave.
func WithDebounce(d time.Duration) Option {
	return platform.WithDebounce(d)
}

// WithMaxDelay bounds how long a change may stay unsaved.
func WithMaxDelay(d time.Duration) Option {
	return platform.WithMaxDelay(d)
}

// WithRetryDelay sets the first backoff after a failed write.
func WithRetryDelay(d time.Duration) Option {
	return platform.WithRetryDelay(d)
}

// WithReadOnly opens the data directory without writing to it.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithScreen sets the screen size new windows are centered on.
func WithScreen(width, height int) Option {
	return platform.WithScreen(width, height)
}

// WithWatch reloads resources edited by another process.
func WithWatch(enabled bool) Option {
	return platform.WithWatch(enabled)
}

// WithRecoverCorrupt moves an unreadable notes file aside instead of failing.
func WithRecoverCorrupt(enabled bool) Option {
	return platform.WithRecoverCorrupt(enabled)
}

// WithStorage injects storage instead of the filesystem store.
func WithStorage(storage core.Storage, images core.ImageStorage) Option {
	return platform.WithStorage(storage, images)
}

// WithMustExist fails Open when the data directory is missing.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithTempDir forces the data directory into the dev sandbox.
func WithTempDir(force bool) Option {
	return platform.WithTempDir(force)
}

// WithDevSafety controls the sandbox used under `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithWatcherErrorHandler receives errors from the file watcher.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithChangeHandler observes external edits picked up by the watcher.
func WithChangeHandler(fn func(core.Event)) Option {
	return platform.WithChangeHandler(fn)
}

// --- Factory ---

// Open opens the data directory at path. An empty path means
// TACK_DATA_DIR, then ~/.tack.
func Open(ctx context.Context, path string, opts ...Option) (*App, error) {
	return platform.Open(ctx, path, opts...)
}

// --- Safety & Utils ---

// ResolveDataDir determines the directory actually used based on safety rules.
func ResolveDataDir(userPath string, forceTemp bool) string {
	return platform.ResolveDataDir(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindRoot looks upwards for a project-local .tack directory.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// DefaultDataDir returns ~/.tack.
func DefaultDataDir() string {
	return platform.DefaultDataDir()
}
