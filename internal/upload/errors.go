package upload

import (
	"fmt"
	"net/http"
)

// UploadError is a non-success HTTP response from a provider.
type UploadError struct {
	Provider   Provider
	HTTPStatus int
	Message    string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s upload failed (%d %s): %s", e.Provider, e.HTTPStatus, http.StatusText(e.HTTPStatus), e.Message)
}

// TransportError means no response was received.
type TransportError struct {
	Provider Provider
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ConfigurationError is a caller contract violation detected before any
// network call: unknown provider, mismatched or incomplete credentials.
type ConfigurationError struct {
	Provider Provider
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Provider == "" {
		return "upload configuration: " + e.Reason
	}
	return fmt.Sprintf("%s configuration: %s", e.Provider, e.Reason)
}
