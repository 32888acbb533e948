package legacy

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/aretw0/tack/pkg/document"
)

// fromHTML rebuilds a document from the rich text HTML a Qt text edit
// produces. Only the formatting the notes app could set is kept.
func fromHTML(src string, image imageResolver) (document.Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return document.Document{}, err
	}
	w := &htmlWalker{b: newBuilder(), image: image, first: true}
	if err := w.walk(root, document.DefaultFormat(), false); err != nil {
		return document.Document{}, err
	}
	return w.b.document()
}

type htmlWalker struct {
	b     *builder
	image imageResolver
	first bool // no block element seen yet
}

func (w *htmlWalker) walk(n *html.Node, f document.Format, emptyPara bool) error {
	switch n.Type {
	case html.TextNode:
		if n.Parent != nil && (n.Parent.Data == "body" || n.Parent.Data == "html") && strings.TrimSpace(n.Data) == "" {
			return nil
		}
		w.b.setFormat(f)
		w.b.writeText(n.Data)
		return nil
	case html.ElementNode:
		switch n.Data {
		case "head", "style", "script", "title":
			return nil
		case "br":
			if !emptyPara {
				w.b.setFormat(f)
				w.b.writeText("\n")
			}
			return nil
		case "img":
			return w.img(attr(n, "src"))
		case "p", "div":
			if !w.first {
				w.b.setFormat(f)
				w.b.writeText("\n")
			}
			w.first = false
			emptyPara = strings.Contains(attr(n, "style"), "-qt-paragraph-type:empty")
		case "b", "strong":
			f.Bold = true
		case "i", "em":
			f.Italic = true
		case "u":
			f.Underline = true
		}
		f = applyStyle(f, attr(n, "style"))
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := w.walk(c, f, emptyPara); err != nil {
			return err
		}
	}
	return nil
}

func (w *htmlWalker) img(src string) error {
	ref, ok, err := w.image(src)
	if err != nil {
		return err
	}
	if !ok {
		w.b.writeText(missingImage(src))
		return nil
	}
	w.b.writeImage(ref)
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// applyStyle folds the CSS declarations Qt writes into f.
func applyStyle(f document.Format, style string) document.Format {
	for _, decl := range strings.Split(style, ";") {
		key, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.ToLower(strings.TrimSpace(value))

		switch key {
		case "font-weight":
			if value == "bold" || value == "bolder" {
				f.Bold = true
			} else if n, err := strconv.Atoi(value); err == nil {
				f.Bold = n >= 600
			} else {
				f.Bold = false
			}
		case "font-style":
			f.Italic = value == "italic" || value == "oblique"
		case "text-decoration":
			f.Underline = strings.Contains(value, "underline")
		case "font-size":
			if size, ok := parseFontSize(value); ok {
				f.FontSize = document.ClampFontSize(size)
			}
		}
	}
	return f
}

func parseFontSize(v string) (int, bool) {
	scale := 1.0
	switch {
	case strings.HasSuffix(v, "pt"):
		v = strings.TrimSuffix(v, "pt")
	case strings.HasSuffix(v, "px"):
		v = strings.TrimSuffix(v, "px")
		scale = 0.75
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return int(n*scale + 0.5), true
}
