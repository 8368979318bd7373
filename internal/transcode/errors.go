package transcode

import "fmt"

// DecodeError means the source bytes are not a decodable image.
type DecodeError struct {
	MIME string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s image: %v", e.MIME, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError means the target encoder rejected the raster.
type EncodeError struct {
	MIME    string
	Quality float64
	Err     error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s at quality %.2f: %v", e.MIME, e.Quality, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
