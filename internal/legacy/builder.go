package legacy

import (
	"strings"

	"github.com/aretw0/tack/pkg/document"
)

// builder accumulates segments in reading order.
type builder struct {
	segs []document.Segment
	text strings.Builder
	cur  document.Format
}

func newBuilder() *builder {
	return &builder{cur: document.DefaultFormat()}
}

func (b *builder) setFormat(f document.Format) {
	f.FontSize = document.ClampFontSize(f.FontSize)
	if f == b.cur {
		return
	}
	b.cut()
	b.cur = f
}

func (b *builder) writeText(s string) {
	b.text.WriteString(s)
}

func (b *builder) writeImage(ref document.ImageRef) {
	b.cut()
	b.segs = append(b.segs, document.Image(ref))
}

func (b *builder) cut() {
	if b.text.Len() == 0 {
		return
	}
	b.segs = append(b.segs, document.Text(b.text.String(), b.cur))
	b.text.Reset()
}

// trimTrailingNewline drops one final newline, which Tk always appends.
func (b *builder) trimTrailingNewline() {
	b.cut()
	for i := len(b.segs) - 1; i >= 0; i-- {
		s := b.segs[i]
		if !s.IsText() {
			return
		}
		if s.Text == "" {
			continue
		}
		if strings.HasSuffix(s.Text, "\n") {
			b.segs[i].Text = strings.TrimSuffix(s.Text, "\n")
		}
		return
	}
}

func (b *builder) document() (document.Document, error) {
	b.cut()
	if len(b.segs) == 0 {
		return document.New(), nil
	}
	return document.FromSegments(b.segs...)
}
