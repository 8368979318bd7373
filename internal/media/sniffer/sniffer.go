// Package sniffer resolves the media type of an uploaded asset from its
// leading bytes and the type the client declared.
package sniffer

import (
	"bytes"
	"errors"
	"strings"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeGIF  MediaType = "gif"
	TypeWEBP MediaType = "webp"
	TypeAVIF MediaType = "avif"
	TypeSVG  MediaType = "svg"
)

const (
	MIMEJPEG        = "image/jpeg"
	MIMEPNG         = "image/png"
	MIMEGIF         = "image/gif"
	MIMEWEBP        = "image/webp"
	MIMEAVIF        = "image/avif"
	MIMESVG         = "image/svg+xml"
	MIMEOctetStream = "application/octet-stream"
)

var ErrUnknownType = errors.New("unknown media type")

type Result struct {
	Type MediaType
	MIME string
}

// HeadSize is the number of leading bytes DetectHead looks at.
const HeadSize = 512

func DetectHead(head []byte) (Result, error) {
	if len(head) > HeadSize {
		head = head[:HeadSize]
	}
	if len(head) == 0 {
		return Result{}, ErrUnknownType
	}

	switch {
	case isJPEG(head):
		return Result{Type: TypeJPEG, MIME: MIMEJPEG}, nil
	case isPNG(head):
		return Result{Type: TypePNG, MIME: MIMEPNG}, nil
	case isGIF(head):
		return Result{Type: TypeGIF, MIME: MIMEGIF}, nil
	case isWEBP(head):
		return Result{Type: TypeWEBP, MIME: MIMEWEBP}, nil
	case isAVIF(head):
		return Result{Type: TypeAVIF, MIME: MIMEAVIF}, nil
	case isSVG(head):
		return Result{Type: TypeSVG, MIME: MIMESVG}, nil
	}

	return Result{}, ErrUnknownType
}

// Resolve picks the MIME type used for an asset. A concrete declared type
// wins; a missing or generic one falls back to what the bytes look like.
func Resolve(declared string, data []byte) string {
	declared = Normalize(declared)
	if declared != "" && declared != MIMEOctetStream {
		return declared
	}
	if result, err := DetectHead(data); err == nil {
		return result.MIME
	}
	if declared != "" {
		return declared
	}
	return MIMEOctetStream
}

// Normalize lowercases a Content-Type value and drops its parameters.
func Normalize(contentType string) string {
	mime := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if mime == "image/jpg" || mime == "image/pjpeg" {
		return MIMEJPEG
	}
	return mime
}

// IsImage reports whether the MIME type names any image, vector included.
func IsImage(mime string) bool {
	return strings.HasPrefix(Normalize(mime), "image/")
}

// IsRaster reports whether the MIME type names a pixel image that can be
// decoded and re-encoded.
func IsRaster(mime string) bool {
	mime = Normalize(mime)
	return IsImage(mime) && mime != MIMESVG
}

// Extension returns the file extension (without dot) for a MIME type.
func Extension(mime string) string {
	switch Normalize(mime) {
	case MIMEJPEG:
		return "jpg"
	case MIMEPNG:
		return "png"
	case MIMEGIF:
		return "gif"
	case MIMEWEBP:
		return "webp"
	case MIMEAVIF:
		return "avif"
	case MIMESVG:
		return "svg"
	default:
		return "bin"
	}
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isGIF(head []byte) bool {
	return len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a")))
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}

func isAVIF(head []byte) bool {
	if len(head) < 12 {
		return false
	}
	boxType := string(head[4:8])
	return boxType == "ftyp" && bytes.Contains(head[8:], []byte("avif"))
}

func isSVG(head []byte) bool {
	trimmed := strings.TrimSpace(string(head))
	if strings.HasPrefix(trimmed, "<svg") {
		return true
	}
	return strings.HasPrefix(trimmed, "<?xml") && strings.Contains(trimmed, "<svg")
}
