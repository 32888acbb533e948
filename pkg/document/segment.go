package document

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Kind tags the variant held by a Segment.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// ImageRef points at a blob in the image store.
// Width, Height and Placeholder are rendering hints only.
type ImageRef struct {
	ID          string `json:"image_id"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Segment is either a formatted text run or an image reference.
type Segment struct {
	Kind   Kind
	Text   string
	Format Format
	Image  ImageRef
}

// Text builds a text run.
func Text(content string, f Format) Segment {
	return Segment{Kind: KindText, Text: content, Format: f}
}

// Image builds an image segment.
func Image(ref ImageRef) Segment {
	return Segment{Kind: KindImage, Image: ref}
}

// IsText reports whether s is a text run.
func (s Segment) IsText() bool { return s.Kind == KindText }

// Len is the number of positions s occupies: runes for text, one for an image.
func (s Segment) Len() int {
	if s.Kind == KindImage {
		return 1
	}
	return utf8.RuneCountInString(s.Text)
}

// Validate checks the variant invariants.
func (s Segment) Validate() error {
	switch s.Kind {
	case KindText:
		return s.Format.Validate()
	case KindImage:
		if s.Image.ID == "" {
			return fmt.Errorf("%w: image segment without id", ErrInvalidSegment)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown segment type %q", ErrInvalidSegment, s.Kind)
}

type textJSON struct {
	Type    Kind   `json:"type"`
	Content string `json:"content"`
	Format
}

type imageJSON struct {
	Type Kind `json:"type"`
	ImageRef
}

// MarshalJSON encodes s as a tagged object.
func (s Segment) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case KindText:
		return json.Marshal(textJSON{Type: KindText, Content: s.Text, Format: s.Format})
	case KindImage:
		return json.Marshal(imageJSON{Type: KindImage, ImageRef: s.Image})
	}
	return nil, fmt.Errorf("%w: unknown segment type %q", ErrInvalidSegment, s.Kind)
}

// UnmarshalJSON decodes a tagged object. Out of range font sizes are clamped.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSegment, err)
	}

	switch head.Type {
	case KindText:
		v := textJSON{Format: DefaultFormat()}
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSegment, err)
		}
		v.FontSize = ClampFontSize(v.FontSize)
		*s = Text(v.Content, v.Format)
	case KindImage:
		var v imageJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSegment, err)
		}
		*s = Image(v.ImageRef)
	default:
		return fmt.Errorf("%w: unknown segment type %q", ErrInvalidSegment, head.Type)
	}
	return s.Validate()
}
