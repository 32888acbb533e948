package fs

import (
	"crypto/sha256"
	"sync"
)

// fingerprints remembers the hash of the last bytes the store wrote to each
// file, so the watcher can tell its own writes from external edits.
type fingerprints struct {
	mu      sync.RWMutex
	entries map[string][sha256.Size]byte
}

func newFingerprints() *fingerprints {
	return &fingerprints{entries: make(map[string][sha256.Size]byte)}
}

// Set records data as the current content of name.
func (f *fingerprints) Set(name string, data []byte) {
	sum := sha256.Sum256(data)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[name] = sum
}

// Matches reports whether data is what the store last wrote to name.
func (f *fingerprints) Matches(name string, data []byte) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	sum, ok := f.entries[name]
	if !ok {
		return false
	}
	return sum == sha256.Sum256(data)
}

// Forget drops the record for name.
func (f *fingerprints) Forget(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, name)
}

// Len returns the number of tracked files.
func (f *fingerprints) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}
