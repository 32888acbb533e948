package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aretw0/tack/pkg/document"
)

const (
	// DefaultTitle replaces an empty title.
	DefaultTitle = "Title"
	// QuickNoteTitle is used for quick notes created without content.
	QuickNoteTitle = "Quick Note"
	// DefaultOpacity is fully opaque.
	DefaultOpacity = 1.0
	// MinOpacity keeps a note window visible.
	MinOpacity = 0.2

	quickTitleLen = 30
)

// Note is a single sticky note.
type Note struct {
	ID        string            `json:"id" yaml:"id" validate:"required,max=128"`
	Title     string            `json:"title" yaml:"title" validate:"max=200"`
	Document  document.Document `json:"document" yaml:"-"`
	Color     Color             `json:"color" yaml:"color" validate:"required,hexcolor,palette"`
	Opacity   float64           `json:"opacity" yaml:"opacity" validate:"gte=0.2,lte=1"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" yaml:"updated_at"`
}

// PlainText returns the text content of the note.
func (n Note) PlainText() string {
	return n.Document.PlainText()
}

// matches reports whether the folded query occurs in the title or the text.
func (n Note) matches(folded string) bool {
	if folded == "" {
		return true
	}
	return strings.Contains(fold(n.Title), folded) || strings.Contains(fold(n.PlainText()), folded)
}

// QuickTitle derives a title from the first line of content.
func QuickTitle(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return QuickNoteTitle
	}
	if utf8.RuneCountInString(line) > quickTitleLen {
		return string([]rune(line)[:quickTitleLen]) + "..."
	}
	return line
}

func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle
	}
	return title
}
