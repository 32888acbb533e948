package core

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/tack/pkg/document"
)

// SortOrder selects the ordering of List and Search.
type SortOrder string

const (
	SortCreatedDesc SortOrder = "created_desc"
	SortCreatedAsc  SortOrder = "created_asc"
	SortUpdatedDesc SortOrder = "updated_desc"
	SortTitle       SortOrder = "title"
)

// ParseSortOrder accepts the SortOrder names; empty means SortCreatedDesc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case "":
		return SortCreatedDesc, nil
	case SortCreatedDesc, SortCreatedAsc, SortUpdatedDesc, SortTitle:
		return o, nil
	}
	return "", fmt.Errorf("%w: unknown sort order %q", ErrInvalidNote, s)
}

func (o SortOrder) compare(a, b Note) int {
	var c int
	switch o {
	case SortCreatedAsc:
		c = a.CreatedAt.Compare(b.CreatedAt)
	case SortUpdatedDesc:
		c = b.UpdatedAt.Compare(a.UpdatedAt)
	case SortTitle:
		c = cmp.Compare(fold(a.Title), fold(b.Title))
	default:
		c = b.CreatedAt.Compare(a.CreatedAt)
	}
	if c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// errStale is returned by Commit when the note changed after Prepare.
var errStale = errors.New("note changed concurrently")

// NoteRepository holds the authoritative set of notes in memory and
// persists it through a NoteStorage as a single snapshot.
type NoteRepository struct {
	mu      sync.RWMutex
	flushMu sync.Mutex
	notes   map[string]Note
	// gen counts every change; versions holds the gen of each note's
	// last change. saved is the gen of the last snapshot on disk.
	versions map[string]uint64
	gen      uint64
	saved    uint64
	storage  NoteStorage
	clock    func() time.Time
	newID    func() (string, error)
}

// NewNoteRepository creates an empty repository. A nil clock uses time.Now.
func NewNoteRepository(storage NoteStorage, clock func() time.Time) *NoteRepository {
	if clock == nil {
		clock = time.Now
	}
	return &NoteRepository{
		notes:    make(map[string]Note),
		versions: make(map[string]uint64),
		storage:  storage,
		clock:    clock,
		newID:    NewNoteID,
	}
}

// put stores n and bumps its version. Callers hold mu.
func (r *NoteRepository) put(n Note) {
	r.gen++
	r.notes[n.ID] = n
	r.versions[n.ID] = r.gen
}

// Create allocates a note with a fresh id and an empty document.
func (r *NoteRepository) Create(title string, color Color) (Note, error) {
	return r.create(title, color, document.New())
}

func (r *NoteRepository) create(title string, color Color, doc document.Document) (Note, error) {
	color, err := resolveColor(color)
	if err != nil {
		return Note{}, err
	}
	now := r.clock()
	n := Note{
		Title:     normalizeTitle(title),
		Document:  doc,
		Color:     color,
		Opacity:   DefaultOpacity,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		id, err := r.newID()
		if err != nil {
			return Note{}, err
		}
		if _, taken := r.notes[id]; !taken {
			n.ID = id
			break
		}
	}
	if err := Validate(n); err != nil {
		return Note{}, err
	}
	r.put(n)
	return n, nil
}

// Insert adds a fully formed note, keeping its id and timestamps.
func (r *NoteRepository) Insert(n Note) (Note, error) {
	if err := ValidateNoteID(n.ID); err != nil {
		return Note{}, err
	}
	n.Title = normalizeTitle(n.Title)
	color, err := resolveColor(n.Color)
	if err != nil {
		return Note{}, err
	}
	n.Color = color
	if n.Opacity == 0 {
		n.Opacity = DefaultOpacity
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.clock()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	if err := Validate(n); err != nil {
		return Note{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notes[n.ID]; ok {
		return Note{}, fmt.Errorf("%w: note %s", ErrAlreadyExists, n.ID)
	}
	r.put(n)
	return n, nil
}

// Get returns the note with id.
func (r *NoteRepository) Get(id string) (Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.notes[id]
	if !ok {
		return Note{}, fmt.Errorf("%w: note %s", ErrNotFound, id)
	}
	return n, nil
}

// Has reports whether a note with id exists.
func (r *NoteRepository) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.notes[id]
	return ok
}

// List returns every note in the given order. Ties are broken by id.
func (r *NoteRepository) List(order SortOrder) []Note {
	r.mu.RLock()
	list := slices.Collect(maps.Values(r.notes))
	r.mu.RUnlock()

	slices.SortFunc(list, order.compare)
	return list
}

// Search returns the notes whose title or text contains query, ignoring case.
func (r *NoteRepository) Search(query string, order SortOrder) []Note {
	folded := fold(query)
	var out []Note
	for _, n := range r.List(order) {
		if n.matches(folded) {
			out = append(out, n)
		}
	}
	return out
}

// Update applies fn to a copy of the note and stores the result. The id
// and creation time cannot change; UpdatedAt is refreshed. fn runs under
// the repository lock and must not call back into the repository.
func (r *NoteRepository) Update(id string, fn func(*Note) error) (Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.notes[id]
	if !ok {
		return Note{}, fmt.Errorf("%w: note %s", ErrNotFound, id)
	}

	next := current
	if err := fn(&next); err != nil {
		return Note{}, err
	}
	return r.commit(current, next)
}

// Prepare applies fn to a copy of the note without storing it, so the
// result can be checked without holding the repository lock. The copy is
// stored with Commit.
func (r *NoteRepository) Prepare(id string, fn func(*Note) error) (current, next Note, version uint64, err error) {
	r.mu.RLock()
	current, ok := r.notes[id]
	version = r.versions[id]
	r.mu.RUnlock()
	if !ok {
		return Note{}, Note{}, 0, fmt.Errorf("%w: note %s", ErrNotFound, id)
	}

	next = current
	if err := fn(&next); err != nil {
		return Note{}, Note{}, 0, err
	}
	return current, next, version, nil
}

// Commit stores a note produced by Prepare. It fails with errStale when
// the note changed since, and with ErrNotFound when it was deleted.
func (r *NoteRepository) Commit(id string, next Note, version uint64) (Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.notes[id]
	if !ok {
		return Note{}, fmt.Errorf("%w: note %s", ErrNotFound, id)
	}
	if r.versions[id] != version {
		return Note{}, errStale
	}
	return r.commit(current, next)
}

// commit finalizes next as the successor of current. Callers hold mu.
func (r *NoteRepository) commit(current, next Note) (Note, error) {
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.Title = normalizeTitle(next.Title)
	next.UpdatedAt = r.clock()
	if err := Validate(next); err != nil {
		return Note{}, err
	}
	r.put(next)
	return next, nil
}

// Delete removes the note and returns it.
func (r *NoteRepository) Delete(id string) (Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok {
		return Note{}, fmt.Errorf("%w: note %s", ErrNotFound, id)
	}
	delete(r.notes, id)
	delete(r.versions, id)
	r.gen++
	return n, nil
}

// References implements ReferenceChecker.
func (r *NoteRepository) References(imageID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.notes {
		if n.Document.References(imageID) {
			return true
		}
	}
	return false
}

// Len returns the number of notes.
func (r *NoteRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notes)
}

// Load replaces the in-memory notes with the stored snapshot. On error the
// current contents are kept.
func (r *NoteRepository) Load(ctx context.Context) error {
	_, err := r.load(ctx, false)
	return err
}

// Reload is Load unless memory holds changes not yet written or a note
// changes while the file is read. Then memory is kept and loaded reports
// false.
func (r *NoteRepository) Reload(ctx context.Context) (loaded bool, err error) {
	return r.load(ctx, true)
}

func (r *NoteRepository) load(ctx context.Context, conditional bool) (bool, error) {
	r.mu.RLock()
	gen := r.gen
	r.mu.RUnlock()

	list, err := r.storage.LoadNotes(ctx)
	if err != nil {
		return false, fmt.Errorf("load notes: %w", err)
	}

	notes := make(map[string]Note, len(list))
	for _, n := range list {
		if _, dup := notes[n.ID]; dup {
			return false, fmt.Errorf("load notes: %w: duplicate id %s", ErrCorruptStore, n.ID)
		}
		n.Title = normalizeTitle(n.Title)
		notes[n.ID] = n
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if conditional && (r.gen != gen || r.saved != gen) {
		return false, nil
	}
	r.gen++
	r.saved = r.gen
	versions := make(map[string]uint64, len(notes))
	for id := range notes {
		versions[id] = r.gen
	}
	r.notes = notes
	r.versions = versions
	return true, nil
}

// Flush writes a consistent snapshot of every note.
func (r *NoteRepository) Flush(ctx context.Context) error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.RLock()
	snapshot := slices.Collect(maps.Values(r.notes))
	gen := r.gen
	r.mu.RUnlock()
	slices.SortFunc(snapshot, SortCreatedAsc.compare)

	if err := r.storage.SaveNotes(ctx, snapshot); err != nil {
		return fmt.Errorf("flush notes: %w", err)
	}
	r.mu.Lock()
	r.saved = max(r.saved, gen)
	r.mu.Unlock()
	return nil
}
