package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/mataager/SwiftStore/internal/asset"
	"github.com/mataager/SwiftStore/internal/media/sniffer"
)

const (
	DefaultBunnyStorageHost = "storage.bunnycdn.com"

	tokenLength   = 9
	tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var _ Backend = (*Bunny)(nil)

// Bunny PUTs raw bytes into a storage zone. The storage API answers without
// a URL, so the public address is derived from the pull zone and the
// generated filename and is never checked for existence.
type Bunny struct {
	client      *http.Client
	storageHost string
	scheme      string
	now         func() time.Time
	token       func(n int) string
}

func NewBunny(client *http.Client, storageHost string) *Bunny {
	if storageHost == "" {
		storageHost = DefaultBunnyStorageHost
	}
	return &Bunny{
		client:      client,
		storageHost: storageHost,
		scheme:      "https",
		now:         time.Now,
		token:       randomToken,
	}
}

func (b *Bunny) Provider() Provider { return ProviderBunny }

// Filename builds "{label}_{unixMillis}_{token}.{ext}". The random token is
// the only guard against two concurrent uploads from one store colliding.
func (b *Bunny) Filename(label string, src asset.Source) string {
	ext := src.Ext()
	if ext == "" {
		ext = sniffer.Extension(src.MIME)
	}
	return fmt.Sprintf("%s_%d_%s.%s", sanitizeLabel(label), b.now().UnixMilli(), b.token(tokenLength), ext)
}

func (b *Bunny) storageURL(c BunnyCredentials, filename string) string {
	host := b.storageHost
	if region := strings.TrimSpace(c.Region); region != "" {
		host = region + "." + host
	}
	u := url.URL{Scheme: b.scheme, Host: host, Path: "/" + c.StorageZoneName + "/" + filename}
	return u.String()
}

func publicURL(pullZone, filename string) string {
	host := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(pullZone, "https://"), "http://"), "/")
	u := url.URL{Scheme: "https", Host: host, Path: "/" + filename}
	return u.String()
}

func (b *Bunny) Upload(ctx context.Context, src asset.Source, creds Credentials) (Result, error) {
	if err := CheckCredentials(ProviderBunny, creds); err != nil {
		return Result{}, err
	}
	c := creds.(BunnyCredentials)

	filename := b.Filename(c.StoreLabel, src)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.storageURL(c, filename), bytes.NewReader(src.Data))
	if err != nil {
		return Result{}, fmt.Errorf("bunny: build request: %w", err)
	}
	req.Header.Set("AccessKey", c.AccessKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	status, payload, err := do(b.client, ProviderBunny, req)
	if err != nil {
		return Result{}, err
	}
	if !isSuccess(status) {
		return Result{}, &UploadError{
			Provider:   ProviderBunny,
			HTTPStatus: status,
			Message:    errorMessage(payload, "Bunny upload failed"),
		}
	}

	var raw json.RawMessage
	if json.Valid(payload) {
		raw = json.RawMessage(payload)
	}

	return Result{
		Provider: ProviderBunny,
		URL:      publicURL(c.PullZone, filename),
		Raw:      raw,
	}, nil
}

// sanitizeLabel keeps letters, digits, '-' and '_' so the filename stays a
// single clean path segment.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	var sb strings.Builder
	for _, r := range label {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	return sb.String()
}

func randomToken(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = tokenAlphabet[rand.IntN(len(tokenAlphabet))]
	}
	return string(buf)
}
