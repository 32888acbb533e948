package core

import (
	"errors"

	"github.com/aretw0/tack/pkg/document"
)

// Common errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrCorruptStore     = errors.New("store is corrupt")
	ErrWriteFailure     = errors.New("write failed")
	ErrInvalidReference = errors.New("document references a missing image")
	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidImage     = errors.New("invalid image")
	ErrInvalidNote      = errors.New("invalid note")
	ErrAlreadyExists    = errors.New("already exists")
	ErrReadOnly         = errors.New("store is in read-only mode")
)

// Kind classifies an error for callers that translate failures into
// user-facing messages.
type Kind string

const (
	KindNone             Kind = ""
	KindNotFound         Kind = "not_found"
	KindCorruptStore     Kind = "corrupt_store"
	KindWriteFailure     Kind = "write_failure"
	KindInvalidReference Kind = "invalid_reference"
	KindInvalid          Kind = "invalid"
	KindConflict         Kind = "conflict"
	KindReadOnly         Kind = "read_only"
	KindInternal         Kind = "internal"
)

// KindOf returns the Kind of err, or KindNone for nil.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrCorruptStore):
		return KindCorruptStore
	case errors.Is(err, ErrReadOnly):
		return KindReadOnly
	case errors.Is(err, ErrWriteFailure):
		return KindWriteFailure
	case errors.Is(err, ErrInvalidReference):
		return KindInvalidReference
	case errors.Is(err, ErrAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidImage),
		errors.Is(err, ErrInvalidNote),
		errors.Is(err, document.ErrOutOfRange),
		errors.Is(err, document.ErrInvalidFormat),
		errors.Is(err, document.ErrInvalidSegment):
		return KindInvalid
	}
	return KindInternal
}
