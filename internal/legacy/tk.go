package legacy

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/tack/pkg/document"
)

// dumpEntry is one [key, value, index] triple of a Tk text widget dump.
type dumpEntry struct {
	Key   string
	Value string
	Index string
}

func (e *dumpEntry) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("dump entry has %d fields, want 3", len(raw))
	}
	fields := []*string{&e.Key, &e.Value, &e.Index}
	for i, f := range fields {
		if err := json.Unmarshal(raw[i], f); err != nil {
			// Values such as window names may not be strings.
			*f = string(raw[i])
		}
	}
	return nil
}

// parseStyleTag reads "style_<size>_<bold>_<italic>_<underline>".
func parseStyleTag(tag string) (document.Format, bool) {
	parts := strings.Split(tag, "_")
	if len(parts) != 5 || parts[0] != "style" {
		return document.Format{}, false
	}
	size, err := strconv.Atoi(parts[1])
	if err != nil {
		return document.Format{}, false
	}
	return document.Format{
		FontSize:  document.ClampFontSize(size),
		Bold:      parts[2] == "True",
		Italic:    parts[3] == "True",
		Underline: parts[4] == "True",
	}, true
}

// fromDump rebuilds a document from a Tk dump. Images are resolved through
// image, which may return ok=false for files that no longer exist.
func fromDump(entries []dumpEntry, image imageResolver) (document.Document, error) {
	b := newBuilder()
	for _, e := range entries {
		switch e.Key {
		case "text":
			b.writeText(e.Value)
		case "tagon":
			if f, ok := parseStyleTag(e.Value); ok {
				b.setFormat(f)
			}
		case "tagoff":
			if _, ok := parseStyleTag(e.Value); ok {
				b.setFormat(document.DefaultFormat())
			}
		case "image":
			ref, ok, err := image(e.Value)
			if err != nil {
				return document.Document{}, err
			}
			if !ok {
				b.writeText(missingImage(e.Value))
				continue
			}
			b.writeImage(ref)
		}
	}
	b.trimTrailingNewline()
	return b.document()
}
