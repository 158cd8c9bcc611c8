// Package convert turns arbitrary images into the packed 1bpp frame
// buffers the panel driver consumes.
package convert

import (
	"image"
	"image/draw"

	"github.com/MaxHalford/halfgone"
	"github.com/disintegration/imaging"

	"github.com/develone/gratis/internal/epd"
)

// Pack converts img into a packed frame buffer for the given panel
// geometry. The image is resized to the panel resolution if needed,
// converted to grayscale and Floyd-Steinberg dithered down to one bit
// per pixel.
//
// Packing is row-major, MSB-first, set bit = black:
//
//	byteIndex = y * BytesPerLine + (x >> 3)
//	mask      = 0x80 >> (x & 7)
func Pack(img image.Image, p epd.Profile) []byte {
	w := p.DotsPerLine
	h := p.LinesPerDisplay

	b := img.Bounds()
	if b.Dx() != w || b.Dy() != h {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	gray := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	dithered := halfgone.FloydSteinbergDitherer{}.Apply(gray)

	buf := make([]byte, p.BufferSize())
	for y := 0; y < h; y++ {
		row := y * p.BytesPerLine
		for x := 0; x < w; x++ {
			// dithered pixels are either 0 (black) or 255 (white)
			if dithered.GrayAt(x, y).Y < 128 {
				buf[row+(x>>3)] |= 0x80 >> (x & 7)
			}
		}
	}
	return buf
}
