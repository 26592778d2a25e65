package mock

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

// testImage draws a small image whose pixels depend on seed so that
// different seeds produce different bytes.
func testImage(seed uint8, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{R: seed, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	return img
}

// PNG returns a valid 16x16 PNG image unique to seed.
func PNG(seed uint8) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(seed, 16, 16)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// JPEG returns a valid JPEG image of the given size unique to seed.
func JPEG(seed uint8, width, height int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(seed, width, height), &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
