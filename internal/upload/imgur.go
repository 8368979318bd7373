package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mataager/SwiftStore/internal/asset"
)

const DefaultImgurEndpoint = "https://api.imgur.com/3/image"

var _ Backend = (*Imgur)(nil)

// Imgur posts the image as the multipart field "image", authorized with the
// application's client id.
type Imgur struct {
	client   *http.Client
	endpoint string
}

func NewImgur(client *http.Client, endpoint string) *Imgur {
	if endpoint == "" {
		endpoint = DefaultImgurEndpoint
	}
	return &Imgur{client: client, endpoint: endpoint}
}

func (b *Imgur) Provider() Provider { return ProviderImgur }

type imgurResponse struct {
	Data json.RawMessage `json:"data"`
}

type imgurData struct {
	Link string `json:"link"`
}

func (b *Imgur) Upload(ctx context.Context, src asset.Source, creds Credentials) (Result, error) {
	if err := CheckCredentials(ProviderImgur, creds); err != nil {
		return Result{}, err
	}
	c := creds.(ImgurCredentials)

	body, contentType, err := multipartBody(nil, fileField{name: "image", src: src})
	if err != nil {
		return Result{}, fmt.Errorf("imgur: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, body)
	if err != nil {
		return Result{}, fmt.Errorf("imgur: build request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.ClientID)
	req.Header.Set("Content-Type", contentType)

	status, payload, err := do(b.client, ProviderImgur, req)
	if err != nil {
		return Result{}, err
	}
	if !isSuccess(status) {
		return Result{}, &UploadError{
			Provider:   ProviderImgur,
			HTTPStatus: status,
			Message:    errorMessage(payload, "Imgur upload failed"),
		}
	}

	var resp imgurResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return Result{}, &UploadError{Provider: ProviderImgur, HTTPStatus: status, Message: "decode response: " + err.Error()}
	}
	var data imgurData
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return Result{}, &UploadError{Provider: ProviderImgur, HTTPStatus: status, Message: "decode data: " + err.Error()}
		}
	}
	if data.Link == "" {
		return Result{}, &UploadError{Provider: ProviderImgur, HTTPStatus: status, Message: "response carries no data.link"}
	}

	return Result{
		Provider: ProviderImgur,
		URL:      data.Link,
		Raw:      resp.Data,
	}, nil
}
