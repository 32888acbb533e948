package core

import (
	"fmt"
	"strings"
)

// Color is a background color token in "#RRGGBB" form.
type Color string

// DefaultColor is the classic sticky-note yellow.
const DefaultColor Color = "#FFFF99"

// NamedColor pairs a palette entry with its display name.
type NamedColor struct {
	Name  string `json:"name" yaml:"name"`
	Color Color  `json:"color" yaml:"color"`
}

// Palette lists the colors a note may take, in menu order.
// Several names share a code.
var Palette = []NamedColor{
	{"Yellow", "#FFFF99"}, {"Blue", "#99CCFF"}, {"Green", "#99FF99"},
	{"Pink", "#FFB6C1"}, {"Orange", "#FFCC99"}, {"Purple", "#CC99FF"},
	{"Red", "#FF9999"}, {"Cyan", "#99FFFF"}, {"Lime", "#CCFF99"},
	{"Salmon", "#FFA07A"}, {"Lavender", "#E6CCFF"}, {"Peach", "#FFCCB3"},
	{"Mint", "#B3FFCC"}, {"Sky", "#B3DDFF"}, {"Gold", "#FFE699"},
	{"Rose", "#FFB3D9"}, {"Teal", "#99CCCC"}, {"Plum", "#DD99FF"},
	{"Coral", "#FF9999"}, {"Khaki", "#FFFF99"}, {"Apricot", "#FFCC99"},
	{"Powder Blue", "#B0E0E6"}, {"Honeydew", "#F0FFF0"}, {"Thistle", "#D8BFD8"},
	{"Wheat", "#F5DEB3"}, {"Beige", "#F5F5DC"}, {"Cornsilk", "#FFF8DC"},
	{"Linen", "#FAF0E6"}, {"Misty Rose", "#FFE4E1"}, {"Floral White", "#FFFAF0"},
	{"Seashell", "#FFF5EE"}, {"Antique White", "#FAEBD7"}, {"Cream", "#FFFDD0"},
	{"Light Yellow", "#FFFFE0"}, {"Light Green", "#90EE90"}, {"Light Blue", "#ADD8E6"},
	{"Light Pink", "#FFB6C1"}, {"Light Gray", "#D3D3D3"}, {"Dark Salmon", "#E9967A"},
	{"Light Salmon", "#FFA07A"}, {"Light Sea Green", "#20B2AA"},
}

// ParseColor resolves a palette name (any case) or a palette code.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	for _, c := range Palette {
		if strings.EqualFold(c.Name, s) || strings.EqualFold(string(c.Color), s) {
			return c.Color, nil
		}
	}
	return "", fmt.Errorf("%w: color %q is not in the palette", ErrInvalidNote, s)
}

// InPalette reports whether c is one of the palette codes.
func (c Color) InPalette() bool {
	for _, p := range Palette {
		if strings.EqualFold(string(p.Color), string(c)) {
			return true
		}
	}
	return false
}

// Name returns the first palette name for c, or the code itself.
func (c Color) Name() string {
	for _, p := range Palette {
		if strings.EqualFold(string(p.Color), string(c)) {
			return p.Name
		}
	}
	return string(c)
}

func resolveColor(c Color) (Color, error) {
	if c == "" {
		return DefaultColor, nil
	}
	return ParseColor(string(c))
}
