// Package gate decides whether a storefront may be shown, based on the
// store's status record, and renders the page shown when it may not.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Record is the per-store status document.
type Record struct {
	Status      string `json:"status"`
	EndingDate  string `json:"ending-date"`
	PhoneNumber string `json:"phone-number"`
}

func (r Record) normalizedStatus() string {
	return strings.ToLower(strings.TrimSpace(r.Status))
}

// Source loads a store's record. It returns ErrNotFound when the store has
// none and a *FetchError when the record could not be retrieved.
type Source interface {
	Fetch(ctx context.Context, storeID string) (*Record, error)
}

var ErrNotFound = errors.New("store record not found")

// FetchError means the record source could not be consulted. Network is set
// for connectivity failures (no response, timeout, DNS) as opposed to a
// response the source rejected or that could not be decoded.
type FetchError struct {
	Network    bool
	HTTPStatus int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.HTTPStatus != 0:
		return fmt.Sprintf("failed to fetch store info: status %d", e.HTTPStatus)
	case e.Err != nil:
		return "failed to fetch store info: " + e.Err.Error()
	default:
		return "failed to fetch store info"
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MalformedDateError is returned by ParseEndingDate. The gate logs it and
// lets the store through.
type MalformedDateError struct {
	Value  string
	Reason string
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("malformed ending date %q: %s", e.Value, e.Reason)
}
