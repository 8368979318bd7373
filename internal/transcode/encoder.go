package transcode

import (
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"
)

// Encoder writes a raster in one output format. Quality is in (0,1];
// lossless encoders ignore it.
type Encoder interface {
	Encode(w io.Writer, img image.Image, quality float64) error
}

type EncoderFunc func(w io.Writer, img image.Image, quality float64) error

func (f EncoderFunc) Encode(w io.Writer, img image.Image, quality float64) error {
	return f(w, img, quality)
}

type jpegEncoder struct{}

func (jpegEncoder) Encode(w io.Writer, img image.Image, quality float64) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality(quality)})
}

func jpegQuality(quality float64) int {
	q := int(math.Round(quality * 100))
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

type pngEncoder struct {
	enc png.Encoder
}

func (p pngEncoder) Encode(w io.Writer, img image.Image, _ float64) error {
	return p.enc.Encode(w, img)
}
