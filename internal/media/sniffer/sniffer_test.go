package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHead(t *testing.T) {
	tests := []struct {
		name     string
		head     []byte
		expected MediaType
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, TypeJPEG},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00}, TypePNG},
		{"gif", []byte("GIF89a...."), TypeGIF},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), TypeWEBP},
		{"avif", []byte("\x00\x00\x00\x1cftypavif\x00\x00\x00\x00"), TypeAVIF},
		{"svg", []byte("  <svg xmlns=\"http://www.w3.org/2000/svg\"></svg>"), TypeSVG},
		{"svg with prolog", []byte("<?xml version=\"1.0\"?><svg></svg>"), TypeSVG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := DetectHead(tt.head)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Type)
		})
	}
}

func TestDetectHeadUnknown(t *testing.T) {
	_, err := DetectHead(nil)
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = DetectHead([]byte("plain text"))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = DetectHead([]byte("<?xml version=\"1.0\"?><feed></feed>"))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestResolve(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

	assert.Equal(t, MIMEJPEG, Resolve("image/jpeg; charset=binary", png))
	assert.Equal(t, MIMEJPEG, Resolve("image/jpg", png))
	assert.Equal(t, MIMEPNG, Resolve("", png))
	assert.Equal(t, MIMEPNG, Resolve("application/octet-stream", png))
	assert.Equal(t, MIMEOctetStream, Resolve("", []byte("nope")))
	assert.Equal(t, "application/pdf", Resolve("application/pdf", []byte("%PDF")))
}

func TestRasterAndExtension(t *testing.T) {
	assert.True(t, IsRaster("image/png"))
	assert.False(t, IsRaster("image/svg+xml"))
	assert.True(t, IsImage("image/svg+xml"))
	assert.False(t, IsImage("application/pdf"))

	assert.Equal(t, "jpg", Extension("image/jpeg"))
	assert.Equal(t, "webp", Extension("IMAGE/WEBP"))
	assert.Equal(t, "bin", Extension("application/zip"))
}
