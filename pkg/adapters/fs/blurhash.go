package fs

import (
	"image"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
)

const placeholderSize = 64

// placeholder computes a BlurHash for img, shown while the full image loads.
// Errors are swallowed; a missing placeholder is harmless.
func placeholder(img image.Image) string {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return ""
	}

	w, h := placeholderSize, placeholderSize
	if b.Dx() > b.Dy() {
		h = max(1, placeholderSize*b.Dy()/b.Dx())
	} else {
		w = max(1, placeholderSize*b.Dx()/b.Dy())
	}
	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, b, draw.Src, nil)

	hash, err := blurhash.Encode(4, 3, small)
	if err != nil {
		return ""
	}
	return hash
}
