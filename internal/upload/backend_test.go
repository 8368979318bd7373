package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mataager/SwiftStore/internal/asset"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func mockClient(f roundTripFunc) *http.Client {
	return &http.Client{Transport: f}
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func failIfCalled(t *testing.T) *http.Client {
	return mockClient(func(*http.Request) (*http.Response, error) {
		t.Error("transport must not be called")
		return nil, errors.New("unexpected call")
	})
}

var testImage = asset.Source{Name: "shoe.jpg", MIME: "image/jpeg", Data: []byte("\xff\xd8\xff\xe0fake-jpeg")}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" Bunny ")
	require.NoError(t, err)
	assert.Equal(t, ProviderBunny, p)

	_, err = ParseProvider("dropbox")
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestImgurUpload(t *testing.T) {
	client := mockClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "https://api.imgur.com/3/image", r.URL.String())
		assert.Equal(t, "Client-ID client-123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["image"]
		require.Len(t, files, 1)
		assert.Equal(t, "shoe.jpg", files[0].Filename)
		f, err := files[0].Open()
		require.NoError(t, err)
		defer f.Close()
		content, _ := io.ReadAll(f)
		assert.Equal(t, testImage.Data, content)

		return response(http.StatusOK, `{"data":{"id":"abc","link":"https://i.imgur.com/abc.jpg"},"success":true,"status":200}`), nil
	})

	result, err := NewImgur(client, "").Upload(context.Background(), testImage, ImgurCredentials{ClientID: "client-123"})
	require.NoError(t, err)

	assert.Equal(t, ProviderImgur, result.Provider)
	assert.Equal(t, "https://i.imgur.com/abc.jpg", result.URL)
	assert.JSONEq(t, `{"id":"abc","link":"https://i.imgur.com/abc.jpg"}`, string(result.Raw))
}

func TestImgurUploadErrorResponse(t *testing.T) {
	client := mockClient(func(*http.Request) (*http.Response, error) {
		return response(http.StatusBadRequest, `{"data":{"error":"File type invalid"},"success":false,"status":400}`), nil
	})

	_, err := NewImgur(client, "").Upload(context.Background(), testImage, ImgurCredentials{ClientID: "c"})

	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, ProviderImgur, upErr.Provider)
	assert.Equal(t, http.StatusBadRequest, upErr.HTTPStatus)
	assert.Equal(t, "File type invalid", upErr.Message)
}

func TestImgurMissingLink(t *testing.T) {
	client := mockClient(func(*http.Request) (*http.Response, error) {
		return response(http.StatusOK, `{"data":{},"success":true}`), nil
	})

	_, err := NewImgur(client, "").Upload(context.Background(), testImage, ImgurCredentials{ClientID: "c"})

	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusOK, upErr.HTTPStatus)
}

func TestImgurMalformedData(t *testing.T) {
	client := mockClient(func(*http.Request) (*http.Response, error) {
		return response(http.StatusOK, `{"data":"oops","success":true}`), nil
	})

	_, err := NewImgur(client, "").Upload(context.Background(), testImage, ImgurCredentials{ClientID: "c"})

	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusOK, upErr.HTTPStatus)
	assert.Contains(t, upErr.Message, "decode data")
}

func TestTransportError(t *testing.T) {
	offline := errors.New("connection refused")
	client := mockClient(func(*http.Request) (*http.Response, error) {
		return nil, offline
	})

	_, err := NewImgur(client, "").Upload(context.Background(), testImage, ImgurCredentials{ClientID: "c"})

	var trErr *TransportError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, ProviderImgur, trErr.Provider)
	assert.ErrorIs(t, err, offline)
}

func TestCredentialMismatchIsConfigurationError(t *testing.T) {
	tests := []struct {
		name    string
		backend Backend
		creds   Credentials
	}{
		{"imgur with cloudinary creds", NewImgur(failIfCalled(t), ""), CloudinaryCredentials{UploadPreset: "p", CloudName: "c"}},
		{"cloudinary missing preset", NewCloudinary(failIfCalled(t), ""), CloudinaryCredentials{CloudName: "c"}},
		{"bunny missing pull zone", NewBunny(failIfCalled(t), ""), BunnyCredentials{AccessKey: "k", StorageZoneName: "z", StoreLabel: "s"}},
		{"nil creds", NewBunny(failIfCalled(t), ""), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.backend.Upload(context.Background(), testImage, tt.creds)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.backend.Provider(), cfgErr.Provider)
		})
	}
}

func TestCloudinaryUpload(t *testing.T) {
	client := mockClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "https://api.cloudinary.com/v1_1/demo-cloud/image/upload", r.URL.String())
		assert.Empty(t, r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "unsigned-preset", r.FormValue("upload_preset"))
		require.Len(t, r.MultipartForm.File["file"], 1)

		return response(http.StatusOK, `{"public_id":"x1","secure_url":"https://res.cloudinary.com/demo-cloud/image/upload/v1/x1.jpg"}`), nil
	})

	result, err := NewCloudinary(client, "").Upload(context.Background(), testImage, CloudinaryCredentials{
		UploadPreset: "unsigned-preset",
		CloudName:    "demo-cloud",
	})
	require.NoError(t, err)

	assert.Equal(t, ProviderCloudinary, result.Provider)
	assert.Equal(t, "https://res.cloudinary.com/demo-cloud/image/upload/v1/x1.jpg", result.URL)
	assert.Contains(t, string(result.Raw), `"public_id":"x1"`)
}

func TestCloudinaryErrorResponse(t *testing.T) {
	client := mockClient(func(*http.Request) (*http.Response, error) {
		return response(http.StatusBadRequest, `{"error":{"message":"Upload preset not found"}}`), nil
	})

	_, err := NewCloudinary(client, "").Upload(context.Background(), testImage, CloudinaryCredentials{UploadPreset: "p", CloudName: "c"})

	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "Upload preset not found", upErr.Message)
}

func fixedBunny(client *http.Client) *Bunny {
	b := NewBunny(client, "")
	b.now = func() time.Time { return time.UnixMilli(1700000000000) }
	b.token = func(int) string { return "abc123xyz" }
	return b
}

func TestBunnyUpload(t *testing.T) {
	client := mockClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "https://de.storage.bunnycdn.com/shop-zone/mystore_1700000000000_abc123xyz.jpg", r.URL.String())
		assert.Equal(t, "secret-key", r.Header.Get("AccessKey"))
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, testImage.Data, body)

		return response(http.StatusCreated, `{"HttpCode":201,"Message":"File uploaded."}`), nil
	})

	result, err := fixedBunny(client).Upload(context.Background(), testImage, BunnyCredentials{
		AccessKey:       "secret-key",
		StorageZoneName: "shop-zone",
		Region:          "de",
		PullZone:        "cdn.example.b-cdn.net",
		StoreLabel:      "mystore",
	})
	require.NoError(t, err)

	assert.Equal(t, ProviderBunny, result.Provider)
	assert.Equal(t, "https://cdn.example.b-cdn.net/mystore_1700000000000_abc123xyz.jpg", result.URL)
	assert.JSONEq(t, `{"HttpCode":201,"Message":"File uploaded."}`, string(result.Raw))
}

func TestBunnyDefaultRegion(t *testing.T) {
	var gotURL string
	client := mockClient(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		return response(http.StatusCreated, ""), nil
	})

	result, err := fixedBunny(client).Upload(context.Background(), asset.Source{MIME: "image/png", Data: []byte("x")}, BunnyCredentials{
		AccessKey:       "k",
		StorageZoneName: "zone",
		PullZone:        "https://cdn.example.net/",
		StoreLabel:      "Cairo Shoes",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://storage.bunnycdn.com/zone/Cairo-Shoes_1700000000000_abc123xyz.png", gotURL)
	assert.Equal(t, "https://cdn.example.net/Cairo-Shoes_1700000000000_abc123xyz.png", result.URL)
	assert.Nil(t, result.Raw)
}

func TestBunnyErrorResponse(t *testing.T) {
	client := mockClient(func(*http.Request) (*http.Response, error) {
		return response(http.StatusUnauthorized, `{"HttpCode":401,"Message":"Unauthorized"}`), nil
	})

	_, err := fixedBunny(client).Upload(context.Background(), testImage, BunnyCredentials{
		AccessKey: "bad", StorageZoneName: "z", PullZone: "p", StoreLabel: "s",
	})

	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusUnauthorized, upErr.HTTPStatus)
	assert.Equal(t, "Unauthorized", upErr.Message)
}

func TestRandomToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		tok := randomToken(tokenLength)
		require.Len(t, tok, tokenLength)
		for _, r := range tok {
			assert.Contains(t, tokenAlphabet, string(r))
		}
		seen[tok] = struct{}{}
	}
	assert.Greater(t, len(seen), 45)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"empty", "", "fallback"},
		{"nested message", `{"error":{"message":"boom"}}`, "boom"},
		{"string error", `{"error":"flat"}`, "flat"},
		{"imgur data error", `{"data":{"error":"imgur says no"}}`, "imgur says no"},
		{"bunny message", `{"HttpCode":404,"Message":"Zone missing"}`, "Zone missing"},
		{"plain text", "Service Unavailable", "Service Unavailable"},
		{"unrecognised json", `{"foo":"bar"}`, "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, errorMessage([]byte(tt.body), "fallback"))
		})
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(NewImgur(nil, ""), NewBunny(nil, ""))

	b, err := reg.Get(ProviderBunny)
	require.NoError(t, err)
	assert.Equal(t, ProviderBunny, b.Provider())

	_, err = reg.Get(ProviderCloudinary)
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
