package core

import (
	"context"
	"time"
)

// NoteStorage persists the whole set of notes as one snapshot.
// Implementations must replace the backing data atomically.
type NoteStorage interface {
	// LoadNotes returns every stored note. A missing store yields no notes
	// and no error; an unreadable one yields ErrCorruptStore.
	LoadNotes(ctx context.Context) ([]Note, error)

	// SaveNotes replaces the stored snapshot.
	SaveNotes(ctx context.Context, notes []Note) error
}

// GeometryStorage persists window geometry keyed by note id.
type GeometryStorage interface {
	LoadGeometry(ctx context.Context) (map[string]Geometry, error)
	SaveGeometry(ctx context.Context, records map[string]Geometry) error
}

// SessionStorage persists the ordered list of open note ids.
type SessionStorage interface {
	LoadSession(ctx context.Context) ([]string, error)
	SaveSession(ctx context.Context, openIDs []string) error
}

// Storage bundles every persisted resource of the application.
type Storage interface {
	NoteStorage
	GeometryStorage
	SessionStorage

	// Initialize ensures the underlying storage is ready (e.g. create directories).
	Initialize(ctx context.Context) error

	// Quarantine moves the backing file of a corrupt resource aside and
	// returns where it went, so the resource can start over empty.
	Quarantine(ctx context.Context, resource string) (string, error)
}

// ImageInfo describes a stored image.
type ImageInfo struct {
	ID          string `json:"image_id"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Format      string `json:"format"`
	Size        int64  `json:"size"`
	Placeholder string `json:"placeholder,omitempty"`
	// Created is set by Put when this call wrote the file.
	Created bool `json:"-"`
}

// ReferenceChecker answers whether any note still references an image.
type ReferenceChecker interface {
	References(imageID string) bool
}

// ReferenceFunc adapts a function to ReferenceChecker.
type ReferenceFunc func(imageID string) bool

func (f ReferenceFunc) References(imageID string) bool { return f(imageID) }

// ImageStorage holds image blobs addressed by id.
type ImageStorage interface {
	// Put stores data and returns its id. Storing identical bytes twice
	// returns the same id and keeps a single copy.
	Put(ctx context.Context, data []byte) (ImageInfo, error)

	// Get returns the bytes for id, or ErrNotFound.
	Get(ctx context.Context, id string) ([]byte, error)

	// Exists reports whether id is stored.
	Exists(ctx context.Context, id string) (bool, error)

	// List returns every stored id.
	List(ctx context.Context) ([]string, error)

	// Orphans returns the stored ids refs does not point at.
	Orphans(ctx context.Context, refs ReferenceChecker) ([]string, error)

	// DeleteIfUnreferenced removes id unless refs still points at it.
	DeleteIfUnreferenced(ctx context.Context, id string, refs ReferenceChecker) (bool, error)
}

// Names of the persisted resources tracked by the autosaver.
const (
	ResourceNotes    = "notes"
	ResourceGeometry = "positions"
	ResourceSession  = "session"
	ResourceImages   = "images"
)

// Autosaved lists every resource flushed through the Autosaver.
var Autosaved = []string{ResourceNotes, ResourceGeometry, ResourceSession}

// FlushFunc writes the current snapshot of one resource.
type FlushFunc func(ctx context.Context) error

// Autosaver receives change notifications and decides when to flush.
type Autosaver interface {
	// Register binds a resource name to the function that persists it.
	Register(name string, flush FlushFunc)
	// Touch marks a resource as having unsaved changes.
	Touch(name string)
	// Dirty reports whether a resource has unsaved changes.
	Dirty(name string) bool
	// FlushNow writes a resource immediately if it has unsaved changes.
	FlushNow(ctx context.Context, name string) error
	// FlushAll writes every resource with unsaved changes.
	FlushAll(ctx context.Context) error
}

// EventType represents the type of change observed in the data directory.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents an external change to a persisted resource.
// ID is set for image events.
type Event struct {
	Type      EventType
	Resource  string
	ID        string
	Timestamp time.Time
}

// String implements lifecycle.Event.
func (e Event) String() string {
	if e.ID != "" {
		return string(e.Type) + " " + e.Resource + "/" + e.ID
	}
	return string(e.Type) + " " + e.Resource
}
