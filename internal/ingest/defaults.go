package ingest

import (
	"strings"

	"github.com/mataager/SwiftStore/internal/config"
	"github.com/mataager/SwiftStore/internal/transcode"
	"github.com/mataager/SwiftStore/internal/upload"
)

// NewBackends builds the registry of every provider, sharing one HTTP client
// bounded by cfg.Timeout.
func NewBackends(cfg config.BackendsConfig) *upload.Registry {
	client := upload.NewHTTPClient(cfg.Timeout)
	return upload.NewRegistry(
		upload.NewImgur(client, cfg.Imgur.Endpoint),
		upload.NewCloudinary(client, cfg.Cloudinary.Endpoint),
		upload.NewBunny(client, cfg.Bunny.StorageHost),
	)
}

// Credentials hands out the configured account for each provider. Callers
// get a fresh value per call; nothing here is shared mutable state.
type Credentials struct {
	cfg config.BackendsConfig
}

func NewCredentials(cfg config.BackendsConfig) Credentials {
	return Credentials{cfg: cfg}
}

// DefaultProvider is the provider used when a request names none.
func (c Credentials) DefaultProvider() (upload.Provider, error) {
	return upload.ParseProvider(c.cfg.Default)
}

// For returns the credentials for p. storeLabel, when set, replaces the
// configured Bunny filename prefix; the other providers ignore it.
func (c Credentials) For(p upload.Provider, storeLabel string) (upload.Credentials, error) {
	switch p {
	case upload.ProviderImgur:
		return upload.ImgurCredentials{ClientID: c.cfg.Imgur.ClientID}, nil
	case upload.ProviderCloudinary:
		return upload.CloudinaryCredentials{
			UploadPreset: c.cfg.Cloudinary.UploadPreset,
			CloudName:    c.cfg.Cloudinary.CloudName,
		}, nil
	case upload.ProviderBunny:
		label := c.cfg.Bunny.StoreLabel
		if l := strings.TrimSpace(storeLabel); l != "" {
			label = l
		}
		return upload.BunnyCredentials{
			AccessKey:       c.cfg.Bunny.AccessKey,
			StorageZoneName: c.cfg.Bunny.StorageZoneName,
			Region:          c.cfg.Bunny.Region,
			PullZone:        c.cfg.Bunny.PullZone,
			StoreLabel:      label,
		}, nil
	default:
		return nil, &upload.ConfigurationError{Provider: p, Reason: "unknown provider"}
	}
}

// TranscodeDefaults converts the configured bounds into transcoder options.
func TranscodeDefaults(cfg config.TranscodeConfig) transcode.Options {
	return transcode.Options{
		MaxWidth:  cfg.MaxWidth,
		MaxHeight: cfg.MaxHeight,
		Quality:   cfg.Quality,
		MaxSizeKB: cfg.MaxSizeKB,
	}.Normalize()
}
