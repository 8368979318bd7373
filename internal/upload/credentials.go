package upload

import (
	"maps"
	"slices"
	"strings"
)

// Credentials are supplied per call and never stored. Each variant names
// the provider it belongs to.
type Credentials interface {
	Provider() Provider
	Validate() error
}

type ImgurCredentials struct {
	ClientID string
}

func (ImgurCredentials) Provider() Provider { return ProviderImgur }

func (c ImgurCredentials) Validate() error {
	return requireFields(ProviderImgur, map[string]string{"clientId": c.ClientID})
}

// CloudinaryCredentials authorize an unsigned upload through a preset.
type CloudinaryCredentials struct {
	UploadPreset string
	CloudName    string
}

func (CloudinaryCredentials) Provider() Provider { return ProviderCloudinary }

func (c CloudinaryCredentials) Validate() error {
	return requireFields(ProviderCloudinary, map[string]string{
		"uploadPreset": c.UploadPreset,
		"cloudName":    c.CloudName,
	})
}

type BunnyCredentials struct {
	AccessKey       string
	StorageZoneName string
	// Region is the storage region prefix, empty for the default region.
	Region     string
	PullZone   string
	StoreLabel string
}

func (BunnyCredentials) Provider() Provider { return ProviderBunny }

func (c BunnyCredentials) Validate() error {
	return requireFields(ProviderBunny, map[string]string{
		"accessKey":       c.AccessKey,
		"storageZoneName": c.StorageZoneName,
		"pullZone":        c.PullZone,
		"storeLabel":      c.StoreLabel,
	})
}

// CheckCredentials verifies creds is the variant p expects and carries every
// required field.
func CheckCredentials(p Provider, creds Credentials) error {
	if creds == nil {
		return &ConfigurationError{Provider: p, Reason: "credentials are required"}
	}
	if creds.Provider() != p {
		return &ConfigurationError{
			Provider: p,
			Reason:   "credentials belong to " + string(creds.Provider()),
		}
	}
	return creds.Validate()
}

func requireFields(p Provider, fields map[string]string) error {
	var missing []string
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &ConfigurationError{Provider: p, Reason: "missing " + strings.Join(missing, ", ")}
	}
	return nil
}
