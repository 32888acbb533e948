// Package lifecycle feeds store change events to a lifecycle supervisor.
package lifecycle

import (
	"context"
	"slices"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/tack/pkg/core"
)

// Source relays core.Events from a store watcher as lifecycle.Events.
// Events can be narrowed to some resources and observed on the way.
type Source struct {
	in        <-chan core.Event
	out       chan lifecycle.Event
	resources []string
	observers []func(core.Event)
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithResources only relays events about the named resources.
func WithResources(names ...string) SourceOption {
	return func(s *Source) {
		s.resources = append(s.resources, names...)
	}
}

// WithObserver calls fn for every relayed event before it is delivered.
func WithObserver(fn func(core.Event)) SourceOption {
	return func(s *Source) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// NewSource creates a Source reading from events.
func NewSource(events <-chan core.Event, opts ...SourceOption) *Source {
	s := &Source{
		in:  events,
		out: make(chan lifecycle.Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ lifecycle.Source = (*Source)(nil)

// Events implements lifecycle.Source. The channel closes when the input
// closes or the context given to Start is done.
func (s *Source) Events() <-chan lifecycle.Event {
	return s.out
}

// Start implements lifecycle.Source.
func (s *Source) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.in:
				if !ok {
					return nil
				}
				if !s.wants(e) {
					continue
				}
				for _, fn := range s.observers {
					fn(e)
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}

func (s *Source) wants(e core.Event) bool {
	return len(s.resources) == 0 || slices.Contains(s.resources, e.Resource)
}

// Changes converts the relayed stream back to core.Events.
func Changes(ctx context.Context, src lifecycle.Source) <-chan core.Event {
	out := make(chan core.Event)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		for ev := range src.Events() {
			e, ok := ev.(core.Event)
			if !ok {
				continue
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})
	return out
}
