package legacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tack/pkg/document"
)

func fakeImages(known ...string) imageResolver {
	return func(src string) (document.ImageRef, bool, error) {
		for _, k := range known {
			if src == k {
				return document.ImageRef{ID: "img-" + k, Width: 10, Height: 10}, true, nil
			}
		}
		return document.ImageRef{}, false, nil
	}
}

func TestParseStyleTag(t *testing.T) {
	tests := []struct {
		tag  string
		want document.Format
		ok   bool
	}{
		{"style_12_True_False_True", document.Format{FontSize: 12, Bold: true, Underline: true}, true},
		{"style_40_False_True_False", document.Format{FontSize: document.MaxFontSize, Italic: true}, true},
		{"style_x_True_True_True", document.Format{}, false},
		{"sel", document.Format{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, ok := parseStyleTag(tt.tag)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromDump(t *testing.T) {
	entries := []dumpEntry{
		{"mark", "insert", "1.0"},
		{"tagon", "style_10_True_False_False", "1.0"},
		{"text", "Milk", "1.0"},
		{"tagoff", "style_10_True_False_False", "1.4"},
		{"text", "\nEggs ", "1.4"},
		{"image", "/home/u/.sticky/images/a.png", "2.5"},
		{"image", "/gone.png", "2.6"},
		{"text", "\n", "2.7"},
	}

	doc, err := fromDump(entries, fakeImages("/home/u/.sticky/images/a.png"))
	require.NoError(t, err)

	assert.True(t, doc.FormatAt(0).Bold)
	assert.False(t, doc.FormatAt(5).Bold)
	assert.Equal(t, []string{"img-/home/u/.sticky/images/a.png"}, doc.ImageIDs())
	assert.Contains(t, doc.PlainText(), "[Image not found: gone.png]")
}

func TestFromDumpDropsTrailingNewline(t *testing.T) {
	doc, err := fromDump([]dumpEntry{{"text", "hello\n", "1.0"}}, fakeImages())
	require.NoError(t, err)
	assert.Equal(t, "hello", doc.PlainText())

	empty, err := fromDump(nil, fakeImages())
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

const qtHTML = `<!DOCTYPE HTML PUBLIC "-//W3C//DTD HTML 4.0//EN" "http://www.w3.org/TR/REC-html40/strict.dtd">
<html><head><meta name="qrichtext" content="1" /><style type="text/css">
p, li { white-space: pre-wrap; }
</style></head><body style=" font-family:'Segoe UI'; font-size:10pt; font-weight:400; font-style:normal;">
<p style=" margin-top:0px;"><span style=" font-weight:700;">Milk</span></p>
<p style="-qt-paragraph-type:empty; margin-top:0px;"><br /></p>
<p style=" margin-top:0px;"><span style=" font-style:italic; text-decoration: underline; font-size:14pt;">Eggs</span> &amp; bread<img src="file:///tmp/pic.png" /></p></body></html>`

func TestFromHTML(t *testing.T) {
	doc, err := fromHTML(qtHTML, fakeImages("file:///tmp/pic.png"))
	require.NoError(t, err)

	assert.Equal(t, "Milk\n\nEggs & bread￼", plainWithImages(doc))
	assert.True(t, doc.FormatAt(0).Bold)
	assert.False(t, doc.FormatAt(4).Bold)

	eggs := doc.FormatAt(6)
	assert.True(t, eggs.Italic)
	assert.True(t, eggs.Underline)
	assert.Equal(t, 14, eggs.FontSize)
	assert.Equal(t, 10, doc.FormatAt(11).FontSize)
	assert.Len(t, doc.ImageIDs(), 1)
}

func TestFromHTMLPlainFragment(t *testing.T) {
	doc, err := fromHTML("just <b>some</b> text<br>next", fakeImages())
	require.NoError(t, err)
	assert.Equal(t, "just some text\nnext", doc.PlainText())
	assert.True(t, doc.FormatAt(5).Bold)
}

func TestApplyStyle(t *testing.T) {
	f := applyStyle(document.DefaultFormat(), "font-weight:bold; font-size:16px")
	assert.True(t, f.Bold)
	assert.Equal(t, 12, f.FontSize)

	f = applyStyle(f, "font-weight:400;text-decoration:none")
	assert.False(t, f.Bold)
	assert.False(t, f.Underline)
}

// plainWithImages renders images as U+FFFC so positions can be checked.
func plainWithImages(d document.Document) string {
	var out []rune
	for _, s := range d.Segments() {
		if s.IsText() {
			out = append(out, []rune(s.Text)...)
		} else {
			out = append(out, '￼')
		}
	}
	return string(out)
}
