package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var _ Source = (*HTTPSource)(nil)

// HTTPSource reads records from a Realtime-Database style REST tree at
// {baseURL}/Stores/{id}/store-info.json, where a missing node reads as null.
type HTTPSource struct {
	client  *http.Client
	baseURL string
}

func NewHTTPSource(client *http.Client, baseURL string) *HTTPSource {
	return &HTTPSource{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *HTTPSource) recordURL(storeID string) string {
	return fmt.Sprintf("%s/Stores/%s/store-info.json", s.baseURL, url.PathEscape(storeID))
}

func (s *HTTPSource) Fetch(ctx context.Context, storeID string) (*Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.recordURL(storeID), nil)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Network: isNetworkError(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{HTTPStatus: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Network: true, Err: fmt.Errorf("read response: %w", err)}
	}
	return decodeRecord(body)
}

// decodeRecord treats an empty body or JSON null as a missing record.
func decodeRecord(body []byte) (*Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, ErrNotFound
	}
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, &FetchError{Err: fmt.Errorf("decode store record: %w", err)}
	}
	return &rec, nil
}

// isNetworkError reports whether a client error came from the network
// rather than from the caller abandoning the request.
func isNetworkError(err error) bool {
	return !errors.Is(err, context.Canceled)
}
