package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/tack/pkg/adapters/fs"
	lifecycleadapter "github.com/aretw0/tack/pkg/adapters/lifecycle"
	"github.com/aretw0/tack/pkg/autosave"
	"github.com/aretw0/tack/pkg/core"
)

// App is an opened data directory: the Service plus the pieces wired
// around it.
type App struct {
	*core.Service

	// Path is the resolved data directory; empty with injected storage.
	Path   string
	Config Config
	// Store is nil when storage was injected.
	Store *fs.Store

	cancel context.CancelFunc
}

// Open resolves the data directory, layers the configuration, wires the
// store, the autosave scheduler and the service, and loads every resource.
// An empty path means TACK_DATA_DIR, then ~/.tack.
func Open(ctx context.Context, path string, opts ...Option) (*App, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if path == "" && o.storage == nil {
		env, err := EnvDataDir()
		if err != nil {
			return nil, err
		}
		path = env
		if path == "" {
			path = DefaultDataDir()
		}
	}

	// Read-only is needed before the path is final, so peek at overrides.
	probe := DefaultConfig()
	for _, fn := range o.overrides {
		fn(&probe)
	}
	bypassSafety := probe.ReadOnly || !o.devSafety
	useTemp := o.forceTemp || (IsDevRun() && !bypassSafety)

	resolved := path
	if o.storage == nil {
		resolved = ResolveDataDir(path, useTemp)
		if useTemp {
			logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", path, "resolved_path", resolved)
		} else if IsDevRun() && probe.ReadOnly {
			logger.Debug("running in READ-ONLY mode (bypassing dev sandbox)", "path", resolved)
		}
	}

	cfg := DefaultConfig()
	if o.storage == nil {
		var err error
		if cfg, err = LoadConfig(resolved); err != nil {
			return nil, err
		}
	}
	for _, fn := range o.overrides {
		fn(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &App{Config: cfg}
	storage, images := o.storage, o.images
	if storage == nil {
		app.Path = resolved
		app.Store = fs.NewStore(fs.Config{
			Path:         resolved,
			MustExist:    o.mustExist,
			ReadOnly:     cfg.ReadOnly,
			Logger:       logger,
			ErrorHandler: o.errorHandler,
			Debounce:     cfg.WatchDebounce,
		})
		storage, images = app.Store, app.Store.Images()
	}
	if images == nil {
		return nil, fmt.Errorf("image storage is required with injected storage")
	}

	var saver core.Autosaver
	if cfg.Autosave && !cfg.ReadOnly {
		saver = autosave.New(autosave.Config{
			Delay:      cfg.Debounce,
			MaxDelay:   cfg.MaxDelay,
			RetryDelay: cfg.RetryDelay,
			Logger:     logger,
			OnError: func(name string, err error) {
				logger.Warn("autosave will retry", "resource", name, "error", err)
			},
		})
	}

	app.Service = core.NewService(core.Config{
		Storage:        storage,
		Images:         images,
		Autosaver:      saver,
		Logger:         logger,
		Clock:          o.clock,
		Screen:         cfg.Screen,
		RecoverCorrupt: cfg.RecoverCorrupt,
	})

	if err := app.Service.Open(ctx); err != nil {
		if c, ok := saver.(*autosave.Scheduler); ok {
			_ = c.Close(ctx)
		}
		return nil, err
	}
	if app.Store != nil {
		if _, err := app.Store.Sweep(ctx); err != nil {
			logger.Warn("sweep failed", "error", err)
		}
	}

	if cfg.Watch && app.Store != nil && !cfg.ReadOnly {
		if err := app.startWatch(logger, o.onChange); err != nil {
			_ = app.Service.Close(ctx)
			return nil, err
		}
	}
	return app, nil
}

func (a *App) startWatch(logger *slog.Logger, onChange func(core.Event)) error {
	ctx, cancel := context.WithCancel(context.Background())
	events, err := a.Store.Watch(ctx)
	if err != nil {
		cancel()
		return err
	}
	a.cancel = cancel

	src := lifecycleadapter.NewSource(events,
		lifecycleadapter.WithResources(core.Autosaved...),
		lifecycleadapter.WithObserver(onChange),
	)
	if err := src.Start(ctx); err != nil {
		cancel()
		return err
	}
	changes := lifecycleadapter.Changes(ctx, src)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		return a.Service.Watch(ctx, changes)
	}, lifecycle.WithErrorHandler(func(err error) {
		logger.Error("watch loop failed", "error", err)
	}))
	logger.Debug("watching for external changes", "path", a.Path)
	return nil
}

// Close stops watching and flushes every pending change.
func (a *App) Close(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	return a.Service.Close(ctx)
}
