package core

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Default window placement.
const (
	DefaultWidth  = 270
	DefaultHeight = 270
	MinWindowSize = 80
)

// Geometry is a note window's position, size and pinned state.
type Geometry struct {
	X      int  `json:"x" yaml:"x"`
	Y      int  `json:"y" yaml:"y"`
	Width  int  `json:"width" yaml:"width" validate:"gte=80"`
	Height int  `json:"height" yaml:"height" validate:"gte=80"`
	Pinned bool `json:"pinned" yaml:"pinned"`
}

// Screen is the area new windows are centered on.
type Screen struct {
	Width  int `yaml:"width" envconfig:"WIDTH"`
	Height int `yaml:"height" envconfig:"HEIGHT"`
}

// DefaultScreen is used when no screen size is configured.
var DefaultScreen = Screen{Width: 1920, Height: 1080}

// Center returns a default-sized geometry centered on s.
func (s Screen) Center() Geometry {
	if s.Width <= 0 || s.Height <= 0 {
		s = DefaultScreen
	}
	return Geometry{
		X:      max(0, (s.Width-DefaultWidth)/2),
		Y:      max(0, (s.Height-DefaultHeight)/2),
		Width:  DefaultWidth,
		Height: DefaultHeight,
	}
}

// GeometryStore keeps window geometry per note, independently of content.
type GeometryStore struct {
	mu      sync.RWMutex
	flushMu sync.Mutex
	records map[string]Geometry
	gen     uint64
	saved   uint64
	storage GeometryStorage
	screen  Screen
}

// NewGeometryStore creates an empty store persisting through storage.
func NewGeometryStore(storage GeometryStorage, screen Screen) *GeometryStore {
	return &GeometryStore{
		records: make(map[string]Geometry),
		storage: storage,
		screen:  screen,
	}
}

// Get returns the record for id, or a centered default.
func (g *GeometryStore) Get(id string) Geometry {
	if rec, ok := g.Lookup(id); ok {
		return rec
	}
	return g.screen.Center()
}

// Lookup returns the stored record for id, if any.
func (g *GeometryStore) Lookup(id string) (Geometry, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, ok := g.records[id]
	return rec, ok
}

// Set upserts the record for id.
func (g *GeometryStore) Set(id string, geom Geometry) error {
	if err := Validate(geom); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records[id] = geom
	g.gen++
	return nil
}

// Delete removes the record for id and reports whether one existed.
func (g *GeometryStore) Delete(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.records[id]
	if ok {
		delete(g.records, id)
		g.gen++
	}
	return ok
}

// IDs returns the note ids that have a record, sorted.
func (g *GeometryStore) IDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Sorted(maps.Keys(g.records))
}

// Len returns the number of stored records.
func (g *GeometryStore) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}

// Load replaces the in-memory records with the stored ones.
// Invalid records are dropped rather than failing the whole file.
func (g *GeometryStore) Load(ctx context.Context) error {
	_, err := g.load(ctx, false)
	return err
}

// Reload is Load unless memory holds records not yet written or a record
// changes while the file is read.
func (g *GeometryStore) Reload(ctx context.Context) (loaded bool, err error) {
	return g.load(ctx, true)
}

func (g *GeometryStore) load(ctx context.Context, conditional bool) (bool, error) {
	g.mu.RLock()
	gen := g.gen
	g.mu.RUnlock()

	records, err := g.storage.LoadGeometry(ctx)
	if err != nil {
		return false, fmt.Errorf("load positions: %w", err)
	}
	clean := make(map[string]Geometry, len(records))
	for id, rec := range records {
		if Validate(rec) == nil {
			clean[id] = rec
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if conditional && (g.gen != gen || g.saved != gen) {
		return false, nil
	}
	g.records = clean
	g.gen++
	g.saved = g.gen
	return true, nil
}

// Flush writes the current records.
func (g *GeometryStore) Flush(ctx context.Context) error {
	g.flushMu.Lock()
	defer g.flushMu.Unlock()

	g.mu.RLock()
	snapshot := maps.Clone(g.records)
	gen := g.gen
	g.mu.RUnlock()

	if err := g.storage.SaveGeometry(ctx, snapshot); err != nil {
		return fmt.Errorf("flush positions: %w", err)
	}
	g.mu.Lock()
	g.saved = max(g.saved, gen)
	g.mu.Unlock()
	return nil
}
