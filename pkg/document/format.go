package document

import "fmt"

// Font size bounds, in points.
const (
	DefaultFontSize = 10
	MinFontSize     = 8
	MaxFontSize     = 32
)

// Attr names a text attribute that can be changed over a range.
type Attr string

const (
	AttrBold      Attr = "bold"
	AttrItalic    Attr = "italic"
	AttrUnderline Attr = "underline"
	AttrFontSize  Attr = "font_size"
)

// Format holds the formatting attributes of a text run.
type Format struct {
	Bold      bool `json:"bold"`
	Italic    bool `json:"italic"`
	Underline bool `json:"underline"`
	FontSize  int  `json:"font_size"`
}

// DefaultFormat is the format of freshly typed text in an empty note.
func DefaultFormat() Format {
	return Format{FontSize: DefaultFontSize}
}

// Validate reports whether the font size is within bounds.
func (f Format) Validate() error {
	if f.FontSize < MinFontSize || f.FontSize > MaxFontSize {
		return fmt.Errorf("%w: font size %d outside [%d, %d]", ErrInvalidFormat, f.FontSize, MinFontSize, MaxFontSize)
	}
	return nil
}

// Has reports the boolean value of attr. Font size is never a flag.
func (f Format) Has(attr Attr) bool {
	switch attr {
	case AttrBold:
		return f.Bold
	case AttrItalic:
		return f.Italic
	case AttrUnderline:
		return f.Underline
	}
	return false
}

// ClampFontSize bounds size to [MinFontSize, MaxFontSize].
func ClampFontSize(size int) int {
	return max(MinFontSize, min(MaxFontSize, size))
}

// Change sets a single attribute to a value.
type Change struct {
	Attr Attr
	On   bool
	Size int
}

func SetBold(on bool) Change      { return Change{Attr: AttrBold, On: on} }
func SetItalic(on bool) Change    { return Change{Attr: AttrItalic, On: on} }
func SetUnderline(on bool) Change { return Change{Attr: AttrUnderline, On: on} }
func SetFontSize(size int) Change { return Change{Attr: AttrFontSize, Size: size} }

func (c Change) validate() error {
	switch c.Attr {
	case AttrBold, AttrItalic, AttrUnderline:
		return nil
	case AttrFontSize:
		return Format{FontSize: c.Size}.Validate()
	}
	return fmt.Errorf("%w: unknown attribute %q", ErrInvalidFormat, c.Attr)
}

func (c Change) applyTo(f *Format) {
	switch c.Attr {
	case AttrBold:
		f.Bold = c.On
	case AttrItalic:
		f.Italic = c.On
	case AttrUnderline:
		f.Underline = c.On
	case AttrFontSize:
		f.FontSize = c.Size
	}
}
