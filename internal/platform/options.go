package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/tack/pkg/core"
)

// options holds the internal configuration for opening a data directory.
type options struct {
	storage   core.Storage
	images    core.ImageStorage
	logger    *slog.Logger
	clock     func() time.Time
	overrides []func(*Config)

	devSafety    bool
	forceTemp    bool
	mustExist    bool
	errorHandler func(error)
	onChange     func(core.Event)
}

// Option defines a functional option for configuring Open.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{devSafety: true}
}

func override(fn func(*Config)) Option {
	return func(o *options) {
		o.overrides = append(o.overrides, fn)
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces time.Now for note timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithAutosave enables the debounced background scheduler. When disabled
// every change is written before the call returns.
func WithAutosave(enabled bool) Option {
	return override(func(c *Config) { c.Autosave = enabled })
}

// WithDebounce sets the quiet period before an autosave.
func WithDebounce(d time.Duration) Option {
	return override(func(c *Config) { c.Debounce = d })
}

// WithMaxDelay bounds how long a change may stay unsaved.
func WithMaxDelay(d time.Duration) Option {
	return override(func(c *Config) { c.MaxDelay = d })
}

// WithRetryDelay sets the first backoff after a failed write.
func WithRetryDelay(d time.Duration) Option {
	return override(func(c *Config) { c.RetryDelay = d })
}

// WithReadOnly opens the data directory without ever writing to it.
// Dev safety is bypassed since nothing can be damaged.
func WithReadOnly(enabled bool) Option {
	return override(func(c *Config) { c.ReadOnly = enabled })
}

// WithScreen sets the screen size new windows are centered on.
func WithScreen(width, height int) Option {
	return override(func(c *Config) { c.Screen = core.Screen{Width: width, Height: height} })
}

// WithWatch reloads resources edited by another process.
func WithWatch(enabled bool) Option {
	return override(func(c *Config) { c.Watch = enabled })
}

// WithRecoverCorrupt moves an unreadable notes file aside instead of
// failing Open.
func WithRecoverCorrupt(enabled bool) Option {
	return override(func(c *Config) { c.RecoverCorrupt = enabled })
}

// WithWatcherErrorHandler receives errors from the file watcher.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithChangeHandler is called for every external change the watcher
// reports, before the service reloads the resource.
func WithChangeHandler(fn func(core.Event)) Option {
	return func(o *options) {
		o.onChange = fn
	}
}

// WithStorage injects storage instead of the filesystem store (e.g. a mock).
func WithStorage(storage core.Storage, images core.ImageStorage) Option {
	return func(o *options) {
		o.storage = storage
		o.images = images
	}
}

// WithMustExist fails Open when the data directory is missing.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithTempDir forces the data directory into the dev sandbox.
func WithTempDir(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithDevSafety controls the sandbox used under `go run` and `go test`.
// By default (true) the data directory is re-rooted into a temporary
// directory so a dev build cannot damage real notes.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}
