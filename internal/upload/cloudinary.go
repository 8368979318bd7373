package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mataager/SwiftStore/internal/asset"
)

const DefaultCloudinaryEndpoint = "https://api.cloudinary.com/v1_1"

var _ Backend = (*Cloudinary)(nil)

// Cloudinary performs unsigned uploads gated by an upload preset.
type Cloudinary struct {
	client   *http.Client
	endpoint string
}

func NewCloudinary(client *http.Client, endpoint string) *Cloudinary {
	if endpoint == "" {
		endpoint = DefaultCloudinaryEndpoint
	}
	return &Cloudinary{client: client, endpoint: strings.TrimRight(endpoint, "/")}
}

func (b *Cloudinary) Provider() Provider { return ProviderCloudinary }

func (b *Cloudinary) uploadURL(cloudName string) string {
	return fmt.Sprintf("%s/%s/image/upload", b.endpoint, url.PathEscape(cloudName))
}

func (b *Cloudinary) Upload(ctx context.Context, src asset.Source, creds Credentials) (Result, error) {
	if err := CheckCredentials(ProviderCloudinary, creds); err != nil {
		return Result{}, err
	}
	c := creds.(CloudinaryCredentials)

	body, contentType, err := multipartBody(
		map[string]string{"upload_preset": c.UploadPreset},
		fileField{name: "file", src: src},
	)
	if err != nil {
		return Result{}, fmt.Errorf("cloudinary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.uploadURL(c.CloudName), body)
	if err != nil {
		return Result{}, fmt.Errorf("cloudinary: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	status, payload, err := do(b.client, ProviderCloudinary, req)
	if err != nil {
		return Result{}, err
	}
	if !isSuccess(status) {
		return Result{}, &UploadError{
			Provider:   ProviderCloudinary,
			HTTPStatus: status,
			Message:    errorMessage(payload, "Cloudinary upload failed"),
		}
	}

	var resp struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.Unmarshal(payload, &resp); err != nil {
		return Result{}, &UploadError{Provider: ProviderCloudinary, HTTPStatus: status, Message: "decode response: " + err.Error()}
	}
	if resp.SecureURL == "" {
		return Result{}, &UploadError{Provider: ProviderCloudinary, HTTPStatus: status, Message: "response carries no secure_url"}
	}

	return Result{
		Provider: ProviderCloudinary,
		URL:      resp.SecureURL,
		Raw:      json.RawMessage(payload),
	}, nil
}
