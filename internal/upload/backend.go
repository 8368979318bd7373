// Package upload sends asset bytes to one of the supported remote object
// stores and normalizes what comes back.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mataager/SwiftStore/internal/asset"
)

type Provider string

const (
	ProviderImgur      Provider = "imgur"
	ProviderCloudinary Provider = "cloudinary"
	ProviderBunny      Provider = "bunny"
)

var Providers = []Provider{ProviderImgur, ProviderCloudinary, ProviderBunny}

func ParseProvider(raw string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", &ConfigurationError{Provider: p, Reason: fmt.Sprintf("unknown provider %q", raw)}
}

// Result is the normalized outcome of an upload. URL is always a directly
// fetchable public address; Raw keeps the provider's own response.
type Result struct {
	Provider Provider        `json:"provider"`
	URL      string          `json:"url"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// Backend is one remote object store. Implementations do not retry.
type Backend interface {
	Provider() Provider
	Upload(ctx context.Context, src asset.Source, creds Credentials) (Result, error)
}

// Registry maps each provider to its backend.
type Registry struct {
	backends map[Provider]Backend
}

func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: make(map[Provider]Backend, len(backends))}
	for _, b := range backends {
		r.backends[b.Provider()] = b
	}
	return r
}

func (r *Registry) Get(p Provider) (Backend, error) {
	b, ok := r.backends[p]
	if !ok {
		return nil, &ConfigurationError{Provider: p, Reason: "no backend registered"}
	}
	return b, nil
}
