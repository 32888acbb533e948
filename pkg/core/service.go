package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/tack/pkg/document"
)

// Config wires a Service to its collaborators.
type Config struct {
	Storage Storage
	Images  ImageStorage
	// Autosaver schedules flushes. When nil every change is written
	// before the call returns.
	Autosaver Autosaver
	Logger    *slog.Logger
	Clock     func() time.Time
	Screen    Screen
	// RecoverCorrupt moves a corrupt notes file aside and starts empty
	// instead of failing Open. Corrupt positions and session files are
	// always moved aside.
	RecoverCorrupt bool
}

// Service is the single owner of all note state. It is the API consumed by
// the UI layer.
type Service struct {
	notes    *NoteRepository
	geometry *GeometryStore
	session  *SessionManager
	images   ImageStorage
	storage  Storage
	saver    Autosaver
	logger   *slog.Logger

	immediate      bool
	recoverCorrupt bool

	// refMu orders image removal against updates that add image
	// references: adders hold it shared, removers exclusively.
	refMu sync.RWMutex

	mu          sync.RWMutex
	quarantined map[string]string
	closed      bool
}

// NewService creates a Service. Call Open before use.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	saver := cfg.Autosaver
	immediate := saver == nil
	if immediate {
		saver = newSyncSaver()
	}

	s := &Service{
		notes:          NewNoteRepository(cfg.Storage, cfg.Clock),
		geometry:       NewGeometryStore(cfg.Storage, cfg.Screen),
		session:        NewSessionManager(cfg.Storage),
		images:         cfg.Images,
		storage:        cfg.Storage,
		saver:          saver,
		logger:         logger,
		immediate:      immediate,
		recoverCorrupt: cfg.RecoverCorrupt,
		quarantined:    make(map[string]string),
	}

	saver.Register(ResourceNotes, s.notes.Flush)
	saver.Register(ResourceGeometry, s.geometry.Flush)
	saver.Register(ResourceSession, s.session.Flush)
	return s
}

// Open prepares the storage and loads every resource. A corrupt notes file
// fails Open unless RecoverCorrupt is set; the other files never block it.
func (s *Service) Open(ctx context.Context) error {
	if err := s.storage.Initialize(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.load(gctx, ResourceNotes, s.notes.Load, s.recoverCorrupt)
	})
	g.Go(func() error {
		return s.load(gctx, ResourceGeometry, s.geometry.Load, true)
	})
	g.Go(func() error {
		return s.load(gctx, ResourceSession, s.session.Load, true)
	})
	return g.Wait()
}

func (s *Service) load(ctx context.Context, name string, load func(context.Context) error, tolerate bool) error {
	err := load(ctx)
	if err == nil || !errors.Is(err, ErrCorruptStore) || !tolerate {
		return err
	}

	backup, qerr := s.storage.Quarantine(ctx, name)
	if qerr != nil {
		return errors.Join(err, qerr)
	}
	s.logger.Warn("corrupt file moved aside, starting empty", "resource", name, "backup", backup, "error", err)

	s.mu.Lock()
	s.quarantined[name] = backup
	s.mu.Unlock()
	return nil
}

// Quarantined returns the backups made by Open, keyed by resource.
func (s *Service) Quarantined() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.quarantined))
	for k, v := range s.quarantined {
		out[k] = v
	}
	return out
}

// changed marks resources dirty and, without a scheduler, writes them.
func (s *Service) changed(ctx context.Context, names ...string) error {
	for _, name := range names {
		s.saver.Touch(name)
	}
	if !s.immediate {
		return nil
	}
	var errs []error
	for _, name := range names {
		if err := s.saver.FlushNow(ctx, name); err != nil {
			s.logger.Error("flush failed", "resource", name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CreateNote creates an empty note. It does not open a window.
func (s *Service) CreateNote(ctx context.Context, title string, color Color) (Note, error) {
	n, err := s.notes.Create(title, color)
	if err != nil {
		return Note{}, err
	}
	s.logger.Debug("note created", "id", n.ID)
	return n, s.changed(ctx, ResourceNotes)
}

// QuickNote creates a note holding content, titled after its first line.
func (s *Service) QuickNote(ctx context.Context, content string) (Note, error) {
	n, err := s.notes.create(QuickTitle(content), DefaultColor, document.FromText(content))
	if err != nil {
		return Note{}, err
	}
	return n, s.changed(ctx, ResourceNotes)
}

// ImportNote adds a note keeping its id and timestamps. Every image it
// references must already be stored.
func (s *Service) ImportNote(ctx context.Context, n Note) (Note, error) {
	s.refMu.RLock()
	err := s.checkImages(ctx, n.Document.ImageIDs())
	if err == nil {
		n, err = s.notes.Insert(n)
	}
	s.refMu.RUnlock()
	if err != nil {
		return Note{}, err
	}
	return n, s.changed(ctx, ResourceNotes)
}

// GetNote returns the note with id.
func (s *Service) GetNote(ctx context.Context, id string) (Note, error) {
	return s.notes.Get(id)
}

// ListNotes returns every note; the default order is newest first.
func (s *Service) ListNotes(ctx context.Context, order SortOrder) ([]Note, error) {
	return s.notes.List(order), nil
}

// SearchNotes returns notes whose title or text contains query, ignoring
// case, newest first.
func (s *Service) SearchNotes(ctx context.Context, query string) ([]Note, error) {
	return s.notes.Search(query, SortCreatedDesc), nil
}

// UpdateNote applies mutate to the note. Images added by the mutation must
// exist in the image store, otherwise ErrInvalidReference is returned and
// the note is left unchanged. mutate runs on a copy and is run again if
// the note changes before the result is stored.
func (s *Service) UpdateNote(ctx context.Context, id string, mutate func(*Note) error) (Note, error) {
	for {
		n, err := s.tryUpdate(ctx, id, mutate)
		if errors.Is(err, errStale) {
			continue
		}
		if err != nil {
			return Note{}, err
		}
		return n, s.changed(ctx, ResourceNotes)
	}
}

func (s *Service) tryUpdate(ctx context.Context, id string, mutate func(*Note) error) (Note, error) {
	current, next, version, err := s.notes.Prepare(id, mutate)
	if err != nil {
		return Note{}, err
	}

	before := current.Document.ImageIDs()
	var added []string
	for _, img := range next.Document.ImageIDs() {
		if !slices.Contains(before, img) {
			added = append(added, img)
		}
	}
	if len(added) == 0 {
		return s.notes.Commit(id, next, version)
	}

	s.refMu.RLock()
	defer s.refMu.RUnlock()
	if err := s.checkImages(ctx, added); err != nil {
		return Note{}, err
	}
	return s.notes.Commit(id, next, version)
}

// removeUnreferenced deletes every listed image no note references and
// returns the ids actually removed.
func (s *Service) removeUnreferenced(ctx context.Context, ids []string) ([]string, error) {
	s.refMu.Lock()
	defer s.refMu.Unlock()

	var removed []string
	var errs []error
	for _, img := range ids {
		deleted, err := s.images.DeleteIfUnreferenced(ctx, img, s.notes)
		if err != nil {
			s.logger.Warn("image cleanup failed", "image", img, "error", err)
			errs = append(errs, err)
			continue
		}
		if deleted {
			s.logger.Debug("image removed", "image", img)
			removed = append(removed, img)
		}
	}
	return removed, errors.Join(errs...)
}

func (s *Service) checkImages(ctx context.Context, ids []string) error {
	for _, id := range ids {
		ok, err := s.images.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrInvalidReference, id)
		}
	}
	return nil
}

// RecolorNotes sets color on every listed note.
func (s *Service) RecolorNotes(ctx context.Context, ids []string, color Color) error {
	c, err := ParseColor(string(color))
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		if _, err := s.notes.Update(id, func(n *Note) error {
			n.Color = c
			return nil
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(append(errs, s.changed(ctx, ResourceNotes))...)
}

// SetOpacity changes the window opacity of a note.
func (s *Service) SetOpacity(ctx context.Context, id string, opacity float64) (Note, error) {
	return s.UpdateNote(ctx, id, func(n *Note) error {
		n.Opacity = opacity
		return nil
	})
}

// DeleteNote removes the note together with its geometry, its session
// entry and every image no other note references. The notes file is
// written before any image is removed.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	n, err := s.notes.Delete(id)
	if err != nil {
		return err
	}
	s.geometry.Delete(id)
	s.session.MarkClosed(id)
	if err := s.changed(ctx, ResourceGeometry, ResourceSession); err != nil {
		s.logger.Warn("cascade flush failed", "id", id, "error", err)
	}

	s.saver.Touch(ResourceNotes)
	if err := s.saver.FlushNow(ctx, ResourceNotes); err != nil {
		s.logger.Warn("images kept until notes are saved", "id", id, "error", err)
		return err
	}

	_, _ = s.removeUnreferenced(ctx, n.Document.ImageIDs())
	s.logger.Debug("note deleted", "id", id)
	return nil
}

// DeleteNotes deletes every listed note, continuing past failures.
func (s *Service) DeleteNotes(ctx context.Context, ids []string) error {
	var errs []error
	for _, id := range ids {
		if err := s.DeleteNote(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetGeometry stores the window geometry of an existing note.
func (s *Service) SetGeometry(ctx context.Context, id string, g Geometry) error {
	if !s.notes.Has(id) {
		return fmt.Errorf("%w: note %s", ErrNotFound, id)
	}
	if err := s.geometry.Set(id, g); err != nil {
		return err
	}
	return s.changed(ctx, ResourceGeometry)
}

// GetGeometry returns the stored geometry of a note, or the default.
func (s *Service) GetGeometry(ctx context.Context, id string) (Geometry, error) {
	if !s.notes.Has(id) {
		return Geometry{}, fmt.Errorf("%w: note %s", ErrNotFound, id)
	}
	return s.geometry.Get(id), nil
}

// SetPinned keeps a note window above others.
func (s *Service) SetPinned(ctx context.Context, id string, pinned bool) error {
	g, err := s.GetGeometry(ctx, id)
	if err != nil {
		return err
	}
	g.Pinned = pinned
	return s.SetGeometry(ctx, id, g)
}

// OpenSession returns the notes to reopen at startup, in session order.
// Ids whose note is gone are dropped without error.
func (s *Service) OpenSession(ctx context.Context) ([]Note, error) {
	notes, pruned := s.session.Restore(s.notes)
	for _, n := range notes {
		if missing, _ := s.DanglingImages(ctx, n.ID); len(missing) > 0 {
			s.logger.Warn("note references missing images", "id", n.ID, "images", missing)
		}
	}
	if pruned {
		return notes, s.changed(ctx, ResourceSession)
	}
	return notes, nil
}

// OpenIDs returns the ids currently in the session.
func (s *Service) OpenIDs(ctx context.Context) []string {
	return s.session.IDs()
}

// MarkOpen records that a note window is shown.
func (s *Service) MarkOpen(ctx context.Context, id string) error {
	if !s.notes.Has(id) {
		return fmt.Errorf("%w: note %s", ErrNotFound, id)
	}
	if !s.session.MarkOpen(id) {
		return nil
	}
	return s.changed(ctx, ResourceSession)
}

// MarkClosed records that a note window is gone and writes every pending
// change before returning.
func (s *Service) MarkClosed(ctx context.Context, id string) error {
	if s.session.MarkClosed(id) {
		s.saver.Touch(ResourceSession)
	}
	var errs []error
	for _, name := range Autosaved {
		if err := s.saver.FlushNow(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PasteImage stores image bytes and returns their id.
func (s *Service) PasteImage(ctx context.Context, data []byte) (ImageInfo, error) {
	return s.images.Put(ctx, data)
}

// InsertImage stores data and places it in the note at offset.
func (s *Service) InsertImage(ctx context.Context, id string, offset int, data []byte) (Note, error) {
	info, err := s.PasteImage(ctx, data)
	if err != nil {
		return Note{}, err
	}
	ref := document.ImageRef{ID: info.ID, Width: info.Width, Height: info.Height, Placeholder: info.Placeholder}
	n, err := s.UpdateNote(ctx, id, func(n *Note) error {
		doc, err := n.Document.InsertImage(offset, ref)
		if err != nil {
			return err
		}
		n.Document = doc
		return nil
	})
	if err != nil {
		if info.Created {
			_, _ = s.removeUnreferenced(ctx, []string{info.ID})
		}
		return Note{}, err
	}
	return n, nil
}

// Image returns the bytes of a stored image.
func (s *Service) Image(ctx context.Context, imageID string) ([]byte, error) {
	return s.images.Get(ctx, imageID)
}

// DanglingImages lists the image ids a note references that are not stored.
func (s *Service) DanglingImages(ctx context.Context, id string) ([]string, error) {
	n, err := s.notes.Get(id)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, img := range n.Document.ImageIDs() {
		ok, err := s.images.Exists(ctx, img)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, img)
		}
	}
	return missing, nil
}

// Report summarizes a consistency check.
type Report struct {
	Notes         int                 `json:"notes" yaml:"notes"`
	Images        int                 `json:"images" yaml:"images"`
	Dangling      map[string][]string `json:"dangling,omitempty" yaml:"dangling,omitempty"`
	OrphanImages  []string            `json:"orphan_images,omitempty" yaml:"orphan_images,omitempty"`
	StaleGeometry []string            `json:"stale_geometry,omitempty" yaml:"stale_geometry,omitempty"`
	Quarantined   map[string]string   `json:"quarantined,omitempty" yaml:"quarantined,omitempty"`
	Removed       bool                `json:"removed" yaml:"removed"`
}

// Check reports dangling references, unreferenced images and geometry of
// deleted notes. With collect set, the orphans are removed.
func (s *Service) Check(ctx context.Context, collect bool) (Report, error) {
	rep := Report{
		Notes:       s.notes.Len(),
		Dangling:    make(map[string][]string),
		Quarantined: s.Quarantined(),
	}

	for _, n := range s.notes.List(SortCreatedAsc) {
		missing, err := s.DanglingImages(ctx, n.ID)
		if err != nil {
			return rep, err
		}
		if len(missing) > 0 {
			rep.Dangling[n.ID] = missing
		}
	}

	ids, err := s.images.List(ctx)
	if err != nil {
		return rep, err
	}
	rep.Images = len(ids)
	if rep.OrphanImages, err = s.images.Orphans(ctx, s.notes); err != nil {
		return rep, err
	}
	for _, id := range s.geometry.IDs() {
		if !s.notes.Has(id) {
			rep.StaleGeometry = append(rep.StaleGeometry, id)
		}
	}

	if !collect {
		return rep, nil
	}
	if _, err := s.removeUnreferenced(ctx, rep.OrphanImages); err != nil {
		return rep, err
	}
	for _, id := range rep.StaleGeometry {
		s.geometry.Delete(id)
	}
	rep.Removed = true
	if len(rep.StaleGeometry) > 0 {
		return rep, s.changed(ctx, ResourceGeometry)
	}
	return rep, nil
}

// CollectGarbage removes unreferenced images and geometry of deleted notes.
func (s *Service) CollectGarbage(ctx context.Context) (Report, error) {
	return s.Check(ctx, true)
}

// HandleEvent reloads a resource changed by another process. A resource
// with unsaved changes is left alone; the next flush overwrites the file.
func (s *Service) HandleEvent(ctx context.Context, e Event) error {
	if e.Type == EventDelete || e.Resource == ResourceImages {
		s.logger.Debug("external change ignored", "event", e.String())
		return nil
	}
	if s.saver.Dirty(e.Resource) {
		s.logger.Warn("external change conflicts with unsaved edits", "resource", e.Resource)
		return nil
	}

	var reload func(context.Context) (bool, error)
	switch e.Resource {
	case ResourceNotes:
		reload = s.notes.Reload
	case ResourceGeometry:
		reload = s.geometry.Reload
	case ResourceSession:
		reload = s.session.Reload
	default:
		return nil
	}
	loaded, err := reload(ctx)
	if err != nil {
		s.logger.Error("reload failed", "resource", e.Resource, "error", err)
		return err
	}
	if !loaded {
		s.logger.Warn("external change lost to a concurrent edit", "resource", e.Resource)
		return nil
	}
	s.logger.Info("reloaded after external change", "resource", e.Resource)
	return nil
}

// Watch applies events until the channel closes or ctx is done.
func (s *Service) Watch(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			_ = s.HandleEvent(ctx, e)
		}
	}
}

// Flush writes every resource with unsaved changes.
func (s *Service) Flush(ctx context.Context) error {
	return s.saver.FlushAll(ctx)
}

// Close flushes everything and stops the autosaver.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if c, ok := s.saver.(interface{ Close(context.Context) error }); ok {
		return c.Close(ctx)
	}
	return s.saver.FlushAll(ctx)
}
