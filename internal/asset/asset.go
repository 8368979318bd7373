// Package asset holds the file representation passed between the
// transcoder, the upload backends and the ingestion pipeline.
package asset

import (
	"path"
	"strings"
)

// Source is one uploaded file. It is treated as immutable once read.
type Source struct {
	Name string
	MIME string
	Data []byte
}

func (s Source) Size() int64 {
	return int64(len(s.Data))
}

// Ext returns the lowercase extension of the original file name, without
// the leading dot, or "" when the name has none.
func (s Source) Ext() string {
	ext := strings.TrimPrefix(path.Ext(s.Name), ".")
	return strings.ToLower(ext)
}
