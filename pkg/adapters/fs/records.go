package fs

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/aretw0/tack/pkg/core"
	"github.com/aretw0/tack/pkg/document"
)

// noteRecord is the on-disk form of a note; the id is the map key.
type noteRecord struct {
	Title     string            `json:"title"`
	Document  document.Document `json:"document"`
	Color     core.Color        `json:"color"`
	Opacity   float64           `json:"opacity,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type stateRecord struct {
	OpenNoteIDs []string `json:"open_note_ids"`
	// OpenNotes is the key written by older versions.
	OpenNotes []string `json:"open_notes,omitempty"`
}

// LoadNotes reads notes.json. Notes are returned oldest first.
func (s *Store) LoadNotes(ctx context.Context) ([]core.Note, error) {
	var records map[string]noteRecord
	if _, err := s.readJSON(filepath.Join(s.Path, NotesFile), &records); err != nil {
		return nil, err
	}

	notes := make([]core.Note, 0, len(records))
	for id, rec := range records {
		if err := core.ValidateNoteID(id); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", core.ErrCorruptStore, NotesFile, err)
		}
		n := core.Note{
			ID:        id,
			Title:     rec.Title,
			Document:  rec.Document,
			Color:     rec.Color,
			Opacity:   rec.Opacity,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		}
		if !n.Color.InPalette() {
			s.config.Logger.Debug("unknown color replaced", "id", id, "color", n.Color)
			n.Color = core.DefaultColor
		}
		if n.Opacity < core.MinOpacity || n.Opacity > 1 {
			n.Opacity = core.DefaultOpacity
		}
		if n.UpdatedAt.IsZero() {
			n.UpdatedAt = n.CreatedAt
		}
		notes = append(notes, n)
	}

	slices.SortFunc(notes, func(a, b core.Note) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return notes, nil
}

// SaveNotes replaces notes.json with notes.
func (s *Store) SaveNotes(ctx context.Context, notes []core.Note) error {
	records := make(map[string]noteRecord, len(notes))
	for _, n := range notes {
		records[n.ID] = noteRecord{
			Title:     n.Title,
			Document:  n.Document,
			Color:     n.Color,
			Opacity:   n.Opacity,
			CreatedAt: n.CreatedAt,
			UpdatedAt: n.UpdatedAt,
		}
	}
	return s.writeJSON(filepath.Join(s.Path, NotesFile), records)
}

// LoadGeometry reads positions.json.
func (s *Store) LoadGeometry(ctx context.Context) (map[string]core.Geometry, error) {
	records := make(map[string]core.Geometry)
	if _, err := s.readJSON(filepath.Join(s.Path, PositionsFile), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SaveGeometry replaces positions.json with records.
func (s *Store) SaveGeometry(ctx context.Context, records map[string]core.Geometry) error {
	if records == nil {
		records = map[string]core.Geometry{}
	}
	return s.writeJSON(filepath.Join(s.Path, PositionsFile), records)
}

// LoadSession reads state.json, accepting the older "open_notes" key.
func (s *Store) LoadSession(ctx context.Context) ([]string, error) {
	var rec stateRecord
	if _, err := s.readJSON(filepath.Join(s.Path, StateFile), &rec); err != nil {
		return nil, err
	}
	if rec.OpenNoteIDs == nil {
		return rec.OpenNotes, nil
	}
	return rec.OpenNoteIDs, nil
}

// SaveSession replaces state.json with the open ids.
func (s *Store) SaveSession(ctx context.Context, openIDs []string) error {
	if openIDs == nil {
		openIDs = []string{}
	}
	return s.writeJSON(filepath.Join(s.Path, StateFile), stateRecord{OpenNoteIDs: openIDs})
}

var _ core.Storage = (*Store)(nil)
