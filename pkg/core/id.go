package core

import (
	"fmt"
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NotePrefix starts every generated note id.
const NotePrefix = "note"

var imageIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// NewNoteID creates a prefixed NanoID, e.g. "note-V1StGXR8_Z5jdHi6B-myT".
func NewNoteID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return NotePrefix + "-" + id, nil
}

// ValidateImageID rejects ids that could escape the image directory.
func ValidateImageID(id string) error {
	if !imageIDPattern.MatchString(id) {
		return fmt.Errorf("%w: image id %q", ErrInvalidID, id)
	}
	return nil
}

// ValidateNoteID rejects empty or oversized note ids.
func ValidateNoteID(id string) error {
	if id == "" || len(id) > 128 {
		return fmt.Errorf("%w: note id %q", ErrInvalidID, id)
	}
	return nil
}
