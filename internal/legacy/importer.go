// Package legacy imports the data directory of the earlier sticky notes
// applications: notes.json with Tk content dumps, Qt HTML or plain text,
// plus positions.json, state.json and the images directory.
package legacy

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/tack/pkg/core"
	"github.com/aretw0/tack/pkg/document"
)

// Target receives the imported data. core.Service implements it.
type Target interface {
	PasteImage(ctx context.Context, data []byte) (core.ImageInfo, error)
	ImportNote(ctx context.Context, n core.Note) (core.Note, error)
	SetGeometry(ctx context.Context, id string, g core.Geometry) error
	SetPinned(ctx context.Context, id string, pinned bool) error
	MarkOpen(ctx context.Context, id string) error
}

type note struct {
	Title        string      `json:"title"`
	Color        string      `json:"color"`
	Created      string      `json:"created"`
	ContentDump  []dumpEntry `json:"content_dump"`
	ContentHTML  string      `json:"content_html"`
	ContentText  *string     `json:"content_text"`
	Content      string      `json:"content"`
	Pinned       bool        `json:"pinned"`
	Transparency *float64    `json:"transparency"`
}

type position struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type state struct {
	OpenNotes []string `json:"open_notes"`
}

// Report summarizes an import.
type Report struct {
	Notes   []string          `json:"notes" yaml:"notes"`
	Skipped map[string]string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Images  int               `json:"images" yaml:"images"`
	Missing []string          `json:"missing_images,omitempty" yaml:"missing_images,omitempty"`
	Open    int               `json:"open" yaml:"open"`
}

// imageResolver turns a reference found in legacy content into a stored
// image. ok is false when the file is gone.
type imageResolver func(src string) (document.ImageRef, bool, error)

// Importer copies a legacy data directory into a Target.
type Importer struct {
	target Target
	logger *slog.Logger
}

// New creates an Importer. A nil logger discards output.
func New(target Target, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{target: target, logger: logger}
}

// Import reads dir and adds every note that is not already present. Notes
// keep their ids, so importing twice skips what was imported before.
func (im *Importer) Import(ctx context.Context, dir string) (Report, error) {
	rep := Report{Skipped: make(map[string]string)}

	var notes map[string]note
	found, err := readJSON(filepath.Join(dir, "notes.json"), &notes)
	if err != nil {
		return rep, err
	}
	if !found {
		return rep, fmt.Errorf("%w: no notes.json in %s", core.ErrNotFound, dir)
	}

	var positions map[string]position
	if _, err := readJSON(filepath.Join(dir, "positions.json"), &positions); err != nil {
		im.logger.Warn("ignoring unreadable positions", "error", err)
	}
	var st state
	if _, err := readJSON(filepath.Join(dir, "state.json"), &st); err != nil {
		im.logger.Warn("ignoring unreadable state", "error", err)
	}

	images := im.resolver(ctx, filepath.Join(dir, "images"), &rep)

	ids := make([]string, 0, len(notes))
	for id := range notes {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(notes[a].Created, notes[b].Created); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	imported := make(map[string]bool, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := im.importNote(ctx, id, notes[id], positions, images); err != nil {
			if errors.Is(err, core.ErrWriteFailure) || errors.Is(err, core.ErrReadOnly) {
				return rep, err
			}
			im.logger.Warn("note skipped", "id", id, "error", err)
			rep.Skipped[id] = err.Error()
			continue
		}
		imported[id] = true
		rep.Notes = append(rep.Notes, id)
	}

	for _, id := range st.OpenNotes {
		if !imported[id] {
			continue
		}
		if err := im.target.MarkOpen(ctx, id); err != nil {
			return rep, err
		}
		rep.Open++
	}

	im.logger.Info("import finished", "notes", len(rep.Notes), "skipped", len(rep.Skipped), "images", rep.Images)
	return rep, nil
}

func (im *Importer) importNote(ctx context.Context, id string, src note, positions map[string]position, images imageResolver) error {
	doc, err := convert(src, images)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidNote, err)
	}

	color, err := core.ParseColor(src.Color)
	if err != nil {
		im.logger.Debug("unknown color replaced", "id", id, "color", src.Color)
		color = core.DefaultColor
	}
	opacity := core.DefaultOpacity
	if src.Transparency != nil {
		opacity = min(1, max(core.MinOpacity, *src.Transparency))
	}
	created := parseCreated(src.Created)

	if _, err := im.target.ImportNote(ctx, core.Note{
		ID:        id,
		Title:     src.Title,
		Document:  doc,
		Color:     color,
		Opacity:   opacity,
		CreatedAt: created,
		UpdatedAt: created,
	}); err != nil {
		return err
	}

	if p, ok := positions[id]; ok {
		g := core.Geometry{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height, Pinned: src.Pinned}
		if err := im.target.SetGeometry(ctx, id, g); err != nil {
			im.logger.Warn("position ignored", "id", id, "error", err)
		} else {
			return nil
		}
	}
	if src.Pinned {
		return im.target.SetPinned(ctx, id, true)
	}
	return nil
}

// convert picks the richest content the legacy note carries.
func convert(src note, images imageResolver) (document.Document, error) {
	switch {
	case len(src.ContentDump) > 0:
		return fromDump(src.ContentDump, images)
	case src.ContentHTML != "":
		return fromHTML(src.ContentHTML, images)
	case src.ContentText != nil:
		return document.FromText(*src.ContentText), nil
	default:
		return document.FromText(src.Content), nil
	}
}

// resolver stores each referenced image once, keyed by file name.
func (im *Importer) resolver(ctx context.Context, imagesDir string, rep *Report) imageResolver {
	seen := make(map[string]document.ImageRef)
	return func(ref string) (document.ImageRef, bool, error) {
		name := filepath.Base(filepath.FromSlash(strings.TrimPrefix(ref, "file://")))
		if r, ok := seen[name]; ok {
			return r, true, nil
		}

		data, err := os.ReadFile(filepath.Join(imagesDir, name))
		if err != nil {
			im.logger.Warn("image not found", "ref", ref)
			rep.Missing = append(rep.Missing, name)
			return document.ImageRef{}, false, nil
		}
		info, err := im.target.PasteImage(ctx, data)
		if errors.Is(err, core.ErrInvalidImage) {
			im.logger.Warn("image unreadable", "ref", ref, "error", err)
			rep.Missing = append(rep.Missing, name)
			return document.ImageRef{}, false, nil
		}
		if err != nil {
			return document.ImageRef{}, false, err
		}

		r := document.ImageRef{ID: info.ID, Width: info.Width, Height: info.Height, Placeholder: info.Placeholder}
		seen[name] = r
		rep.Images++
		return r, true, nil
	}
}

func missingImage(ref string) string {
	return "\n[Image not found: " + filepath.Base(ref) + "]\n"
}

var createdLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseCreated reads the ISO timestamps of the legacy apps. A zero time
// lets the target assign the import time.
func parseCreated(s string) time.Time {
	for _, layout := range createdLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", core.ErrCorruptStore, filepath.Base(path), err)
	}
	return true, nil
}
