// Package transcode resizes and re-encodes images so they fit pixel bounds
// and, on a best-effort basis, a byte budget.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/mataager/SwiftStore/internal/asset"
	"github.com/mataager/SwiftStore/internal/media/sniffer"
)

// Result is the re-encoded image.
type Result struct {
	Data    []byte
	MIME    string
	Width   int
	Height  int
	Quality float64
	// Passes is 1 when the first encode met the budget, 2 otherwise.
	Passes int
}

func (r Result) Size() int64 {
	return int64(len(r.Data))
}

// OverBudget reports whether the result still exceeds the budget after the
// corrective pass.
func (r Result) OverBudget(opts Options) bool {
	return len(r.Data) > opts.Normalize().MaxBytes()
}

// DefaultMaxPixels caps the decoded raster at roughly 160MB of RGBA.
const DefaultMaxPixels = 40_000_000

// ErrTooManyPixels is wrapped in a DecodeError when the header announces a
// raster larger than the pixel cap.
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

type Transcoder struct {
	encoders  map[string]Encoder
	fallback  string
	maxPixels int
	log       zerolog.Logger
}

// NewTranscoder returns a transcoder that keeps JPEG and PNG in their own
// format and writes every other raster type as JPEG.
func NewTranscoder(log zerolog.Logger) *Transcoder {
	return &Transcoder{
		encoders: map[string]Encoder{
			sniffer.MIMEJPEG: jpegEncoder{},
			sniffer.MIMEPNG:  pngEncoder{enc: png.Encoder{CompressionLevel: png.BestCompression}},
		},
		fallback:  sniffer.MIMEJPEG,
		maxPixels: DefaultMaxPixels,
		log:       log.With().Str("component", "transcoder").Logger(),
	}
}

// LimitPixels sets the largest width*height accepted for decoding. Values
// below one keep the current limit.
func (t *Transcoder) LimitPixels(n int) *Transcoder {
	if n > 0 {
		t.maxPixels = n
	}
	return t
}

// Register installs the encoder used for the given output MIME type.
func (t *Transcoder) Register(mime string, enc Encoder) {
	t.encoders[sniffer.Normalize(mime)] = enc
}

// Transcode decodes src, shrinks it to fit opts (never enlarging it) and
// encodes it at opts.Quality. When that overshoots the budget it encodes
// exactly once more at a proportionally reduced quality and returns that
// result even if it is still too large.
func (t *Transcoder) Transcode(ctx context.Context, src asset.Source, opts Options) (Result, error) {
	opts = opts.Normalize()
	mime := sniffer.Resolve(src.MIME, src.Data)

	header, _, err := image.DecodeConfig(bytes.NewReader(src.Data))
	if err != nil {
		return Result{}, &DecodeError{MIME: mime, Err: err}
	}
	if int64(header.Width)*int64(header.Height) > int64(t.maxPixels) {
		return Result{}, &DecodeError{
			MIME: mime,
			Err:  fmt.Errorf("%dx%d: %w", header.Width, header.Height, ErrTooManyPixels),
		}
	}

	img, _, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return Result{}, &DecodeError{MIME: mime, Err: err}
	}

	bounds := img.Bounds()
	width, height := FitWithin(bounds.Dx(), bounds.Dy(), opts.MaxWidth, opts.MaxHeight)

	outMIME, enc := t.encoderFor(mime)
	canvas := render(img, width, height, outMIME == sniffer.MIMEJPEG)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	quality := opts.Quality
	data, err := encode(enc, canvas, outMIME, quality)
	if err != nil {
		return Result{}, err
	}
	passes := 1

	if len(data) > opts.MaxBytes() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		firstSize := len(data)
		quality = ReducedQuality(quality, opts.MaxSizeKB, firstSize)
		data, err = encode(enc, canvas, outMIME, quality)
		if err != nil {
			return Result{}, err
		}
		passes = 2

		t.log.Debug().
			Int("first_bytes", firstSize).
			Int("second_bytes", len(data)).
			Float64("quality", quality).
			Bool("over_budget", len(data) > opts.MaxBytes()).
			Msg("corrective encode pass")
	}

	t.log.Debug().
		Str("mime", outMIME).
		Int("src_width", bounds.Dx()).
		Int("src_height", bounds.Dy()).
		Int("width", width).
		Int("height", height).
		Int("bytes", len(data)).
		Msg("image transcoded")

	return Result{
		Data:    data,
		MIME:    outMIME,
		Width:   width,
		Height:  height,
		Quality: quality,
		Passes:  passes,
	}, nil
}

// FitWithin scales width and height uniformly so both fit the bounds. It
// never upscales and floors the result to whole pixels.
func FitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}
	ratio := math.Min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	if ratio >= 1 {
		return width, height
	}
	w := int(math.Floor(float64(width) * ratio))
	h := int(math.Floor(float64(height) * ratio))
	return max(w, 1), max(h, 1)
}

// ReducedQuality is the quality of the corrective pass after a first encode
// of size bytes overshot a budget of maxSizeKB.
func ReducedQuality(quality float64, maxSizeKB int, size int) float64 {
	sizeKB := float64(size) / 1024
	return math.Max(QualityFloor, quality*float64(maxSizeKB)/sizeKB)
}

func (t *Transcoder) encoderFor(mime string) (string, Encoder) {
	if enc, ok := t.encoders[mime]; ok {
		return mime, enc
	}
	return t.fallback, t.encoders[t.fallback]
}

func render(src image.Image, width, height int, opaque bool) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if opaque {
		draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	}

	bounds := src.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encode(enc Encoder, img image.Image, mime string, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	if err := enc.Encode(&buf, img, quality); err != nil {
		return nil, &EncodeError{MIME: mime, Quality: quality, Err: err}
	}
	return buf.Bytes(), nil
}
