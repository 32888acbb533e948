package core_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/tack/pkg/core"
)

// MockStorage implements core.Storage in memory.
type MockStorage struct {
	mu          sync.Mutex
	notes       []core.Note
	geometry    map[string]core.Geometry
	session     []string
	fail        map[string]error
	corrupt     map[string]bool
	quarantined []string
	saves       map[string]int
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		geometry: make(map[string]core.Geometry),
		fail:     make(map[string]error),
		corrupt:  make(map[string]bool),
		saves:    make(map[string]int),
	}
}

func (m *MockStorage) FailSaves(resource string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, resource)
		return
	}
	m.fail[resource] = err
}

func (m *MockStorage) Corrupt(resource string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corrupt[resource] = true
}

func (m *MockStorage) Saves(resource string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[resource]
}

func (m *MockStorage) save(resource string) error {
	if err := m.fail[resource]; err != nil {
		return fmt.Errorf("%w: %v", core.ErrWriteFailure, err)
	}
	m.saves[resource]++
	return nil
}

func (m *MockStorage) load(resource string) error {
	if m.corrupt[resource] {
		return fmt.Errorf("%w: %s", core.ErrCorruptStore, resource)
	}
	return nil
}

func (m *MockStorage) Initialize(ctx context.Context) error { return nil }

func (m *MockStorage) Quarantine(ctx context.Context, resource string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.corrupt, resource)
	m.quarantined = append(m.quarantined, resource)
	return resource + ".corrupt", nil
}

func (m *MockStorage) LoadNotes(ctx context.Context) ([]core.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(core.ResourceNotes); err != nil {
		return nil, err
	}
	return slices.Clone(m.notes), nil
}

func (m *MockStorage) SaveNotes(ctx context.Context, notes []core.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.save(core.ResourceNotes); err != nil {
		return err
	}
	m.notes = slices.Clone(notes)
	return nil
}

func (m *MockStorage) LoadGeometry(ctx context.Context) (map[string]core.Geometry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(core.ResourceGeometry); err != nil {
		return nil, err
	}
	return maps.Clone(m.geometry), nil
}

func (m *MockStorage) SaveGeometry(ctx context.Context, records map[string]core.Geometry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.save(core.ResourceGeometry); err != nil {
		return err
	}
	m.geometry = maps.Clone(records)
	return nil
}

func (m *MockStorage) LoadSession(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(core.ResourceSession); err != nil {
		return nil, err
	}
	return slices.Clone(m.session), nil
}

func (m *MockStorage) SaveSession(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.save(core.ResourceSession); err != nil {
		return err
	}
	m.session = slices.Clone(ids)
	return nil
}

// MockImages implements core.ImageStorage in memory, addressed by sha256.
type MockImages struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMockImages() *MockImages {
	return &MockImages{blobs: make(map[string][]byte)}
}

func (m *MockImages) Put(ctx context.Context, data []byte) (core.ImageInfo, error) {
	sum := sha256.Sum256(data)
	id := hex.EncodeToString(sum[:])
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.blobs[id]
	m.blobs[id] = slices.Clone(data)
	return core.ImageInfo{ID: id, Size: int64(len(data)), Created: !exists}, nil
}

func (m *MockImages) Get(ctx context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: image %s", core.ErrNotFound, id)
	}
	return data, nil
}

func (m *MockImages) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[id]
	return ok, nil
}

func (m *MockImages) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.blobs)), nil
}

func (m *MockImages) Orphans(ctx context.Context, refs core.ReferenceChecker) ([]string, error) {
	ids, _ := m.List(ctx)
	var out []string
	for _, id := range ids {
		if !refs.References(id) {
			out = append(out, id)
		}
	}
	return out, nil
}

// DeleteIfUnreferenced checks refs while holding the store lock, the way
// the filesystem store does.
func (m *MockImages) DeleteIfUnreferenced(ctx context.Context, id string, refs core.ReferenceChecker) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if refs.References(id) {
		return false, nil
	}
	if _, ok := m.blobs[id]; !ok {
		return false, nil
	}
	delete(m.blobs, id)
	return true, nil
}

// stepClock returns a clock advancing one second per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}
