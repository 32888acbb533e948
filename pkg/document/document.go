// Package document implements the rich-text content of a note as an ordered
// sequence of attributed text runs and inline image references.
//
// Positions count runes. Every image occupies exactly one position, so an
// offset is valid when it lies in [0, Len()]. All operations return a new
// Document and leave the receiver untouched.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrOutOfRange     = errors.New("offset out of range")
	ErrInvalidFormat  = errors.New("invalid format")
	ErrInvalidSegment = errors.New("invalid segment")
)

// Range is a half-open span [Start, End) of document positions.
type Range struct {
	Start int
	End   int
}

// Empty reports whether the range covers no position.
func (r Range) Empty() bool { return r.Start == r.End }

func (r Range) check(length int) error {
	if r.Start < 0 || r.End > length || r.Start > r.End {
		return fmt.Errorf("%w: range [%d, %d) in document of length %d", ErrOutOfRange, r.Start, r.End, length)
	}
	return nil
}

// Document is the content of a note. The zero value is an empty document.
type Document struct {
	segs []Segment
}

// New returns an empty document: a single empty run with default formatting.
func New() Document {
	return Document{segs: []Segment{Text("", DefaultFormat())}}
}

// FromText returns a document holding s in the default format.
func FromText(s string) Document {
	return Document{segs: []Segment{Text(s, DefaultFormat())}}
}

// FromSegments validates segs and builds a compacted document from them.
func FromSegments(segs ...Segment) (Document, error) {
	for i, s := range segs {
		if err := s.Validate(); err != nil {
			return Document{}, fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return Document{segs: normalize(slices.Clone(segs))}, nil
}

func (d Document) segments() []Segment {
	if len(d.segs) == 0 {
		return New().segs
	}
	return d.segs
}

func (d Document) clone() []Segment {
	return slices.Clone(d.segments())
}

// Segments returns a copy of the segment sequence. It is never empty.
func (d Document) Segments() []Segment {
	return d.clone()
}

// Len returns the number of positions in the document.
func (d Document) Len() int {
	n := 0
	for _, s := range d.segs {
		n += s.Len()
	}
	return n
}

// IsEmpty reports whether the document has no text and no images.
func (d Document) IsEmpty() bool { return d.Len() == 0 }

// PlainText concatenates the content of every text run in order.
func (d Document) PlainText() string {
	var b strings.Builder
	for _, s := range d.segs {
		if s.IsText() {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// ImageIDs returns the distinct image ids referenced, in reading order.
func (d Document) ImageIDs() []string {
	var ids []string
	for _, s := range d.segs {
		if s.Kind == KindImage && !slices.Contains(ids, s.Image.ID) {
			ids = append(ids, s.Image.ID)
		}
	}
	return ids
}

// References reports whether the document contains imageID.
func (d Document) References(imageID string) bool {
	for _, s := range d.segs {
		if s.Kind == KindImage && s.Image.ID == imageID {
			return true
		}
	}
	return false
}

// FormatAt returns the format of the character at offset. When offset does
// not address a character in a text run, the nearest preceding run is used.
func (d Document) FormatAt(offset int) Format {
	f := DefaultFormat()
	pos := 0
	for _, s := range d.segments() {
		n := s.Len()
		if s.IsText() {
			if offset < pos+n {
				return s.Format
			}
			f = s.Format
		} else if offset < pos+n {
			return f
		}
		pos += n
	}
	return f
}

// Apply sets one attribute on every text position inside r.
// Runs outside r keep their formatting and images are skipped.
func (d Document) Apply(r Range, c Change) (Document, error) {
	if err := c.validate(); err != nil {
		return d, err
	}
	if err := r.check(d.Len()); err != nil {
		return d, err
	}
	if r.Empty() {
		return Document{segs: d.clone()}, nil
	}

	segs, i := split(d.clone(), r.Start)
	segs, j := split(segs, r.End)
	for k := i; k < j; k++ {
		if segs[k].IsText() {
			c.applyTo(&segs[k].Format)
		}
	}
	return Document{segs: normalize(segs)}, nil
}

// Toggle flips a boolean attribute over r, using the state at r.Start.
func (d Document) Toggle(r Range, attr Attr) (Document, error) {
	if attr == AttrFontSize {
		return d, fmt.Errorf("%w: %s cannot be toggled", ErrInvalidFormat, attr)
	}
	on := !d.FormatAt(r.Start).Has(attr)
	return d.Apply(r, Change{Attr: attr, On: on})
}

// ResizeFont grows or shrinks the font over r by delta points, starting
// from the size at r.Start and clamped to the allowed bounds.
func (d Document) ResizeFont(r Range, delta int) (Document, error) {
	size := ClampFontSize(d.FormatAt(r.Start).FontSize + delta)
	return d.Apply(r, SetFontSize(size))
}

// InsertText inserts text at offset. The text inherits the run covering
// offset; at a boundary between two runs it joins the previous one.
func (d Document) InsertText(offset int, text string) (Document, error) {
	if err := (Range{Start: offset, End: offset}).check(d.Len()); err != nil {
		return d, err
	}
	segs := d.clone()
	if text == "" {
		return Document{segs: segs}, nil
	}

	pos := 0
	for i, s := range segs {
		n := s.Len()
		if s.IsText() && offset <= pos+n {
			runes := []rune(s.Text)
			k := offset - pos
			segs[i].Text = string(runes[:k]) + text + string(runes[k:])
			return Document{segs: normalize(segs)}, nil
		}
		if offset < pos+n {
			break
		}
		pos += n
	}

	// offset sits next to images only
	segs, i := split(segs, offset)
	segs = slices.Insert(segs, i, Text(text, formatBefore(segs, i)))
	return Document{segs: normalize(segs)}, nil
}

// InsertImage places an image segment at offset, splitting a run if needed.
func (d Document) InsertImage(offset int, ref ImageRef) (Document, error) {
	seg := Image(ref)
	if err := seg.Validate(); err != nil {
		return d, err
	}
	if err := (Range{Start: offset, End: offset}).check(d.Len()); err != nil {
		return d, err
	}

	segs, i := split(d.clone(), offset)
	segs = slices.Insert(segs, i, seg)
	return Document{segs: normalize(segs)}, nil
}

// DeleteRange removes every position in r. Images inside r lose their
// reference here; their files belong to the image store.
func (d Document) DeleteRange(r Range) (Document, error) {
	if err := r.check(d.Len()); err != nil {
		return d, err
	}
	if r.Empty() {
		return Document{segs: d.clone()}, nil
	}

	segs, i := split(d.clone(), r.Start)
	segs, j := split(segs, r.End)
	segs = slices.Delete(segs, i, j)
	return Document{segs: normalize(segs)}, nil
}

// Compact merges adjacent runs sharing a format and drops empty runs.
func (d Document) Compact() Document {
	return Document{segs: normalize(d.clone())}
}

// Equal reports whether both documents hold the same segment sequence.
func (d Document) Equal(other Document) bool {
	return slices.Equal(d.segments(), other.segments())
}

// MarshalJSON encodes the document as a list of segments.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.segments())
}

// UnmarshalJSON decodes a list of segments. The stored structure is kept
// as is, apart from an empty list which becomes an empty document.
func (d *Document) UnmarshalJSON(data []byte) error {
	var segs []Segment
	if err := json.Unmarshal(data, &segs); err != nil {
		return err
	}
	if len(segs) == 0 {
		*d = New()
		return nil
	}
	*d = Document{segs: segs}
	return nil
}

// split ensures a segment boundary at offset and returns the index of the
// first segment starting at or after it.
func split(segs []Segment, offset int) ([]Segment, int) {
	pos := 0
	for i, s := range segs {
		if offset == pos {
			return segs, i
		}
		n := s.Len()
		if offset < pos+n {
			runes := []rune(s.Text)
			k := offset - pos
			head := Text(string(runes[:k]), s.Format)
			tail := Text(string(runes[k:]), s.Format)
			segs = slices.Replace(segs, i, i+1, head, tail)
			return segs, i + 1
		}
		pos += n
	}
	return segs, len(segs)
}

func formatBefore(segs []Segment, i int) Format {
	for k := i - 1; k >= 0; k-- {
		if segs[k].IsText() {
			return segs[k].Format
		}
	}
	return DefaultFormat()
}

// normalize drops empty runs and merges neighbours with equal formats.
// An emptied document keeps the format of its first run.
func normalize(segs []Segment) []Segment {
	out := segs[:0:0]
	first, hasFirst := Format{}, false
	for _, s := range segs {
		if s.IsText() {
			if !hasFirst {
				first, hasFirst = s.Format, true
			}
			if s.Text == "" {
				continue
			}
			if last := len(out) - 1; last >= 0 && out[last].IsText() && out[last].Format == s.Format {
				out[last].Text += s.Text
				continue
			}
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		if !hasFirst {
			first = DefaultFormat()
		}
		return []Segment{Text("", first)}
	}
	return out
}
