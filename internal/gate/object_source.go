package gate

import (
	"context"
	"errors"

	"github.com/mataager/SwiftStore/internal/storage"
)

// RecordReader is the part of the object store ObjectSource needs.
type RecordReader interface {
	GetRecord(ctx context.Context, key string) ([]byte, error)
}

var _ Source = (*ObjectSource)(nil)

// ObjectSource reads records mirrored into an object storage bucket under
// the same Stores/{id}/store-info.json layout as the REST tree.
type ObjectSource struct {
	reader RecordReader
}

func NewObjectSource(reader RecordReader) *ObjectSource {
	return &ObjectSource{reader: reader}
}

func RecordKey(storeID string) string {
	return "Stores/" + storeID + "/store-info.json"
}

func (s *ObjectSource) Fetch(ctx context.Context, storeID string) (*Record, error) {
	data, err := s.reader.GetRecord(ctx, RecordKey(storeID))
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &FetchError{Network: !storage.IsServiceError(err) && isNetworkError(err), Err: err}
	}
	return decodeRecord(data)
}
