package upload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/mataager/SwiftStore/internal/asset"
	"github.com/mataager/SwiftStore/internal/media/sniffer"
)

const maxErrorBody = 64 << 10

// NewHTTPClient returns the client shared by every backend. A zero timeout
// leaves requests bounded only by their context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func do(client *http.Client, p Provider, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Provider: p, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Provider: p, Err: fmt.Errorf("read response: %w", err)}
	}
	return resp.StatusCode, body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

type fileField struct {
	name string
	src  asset.Source
}

func multipartBody(fields map[string]string, file fileField) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", key, err)
		}
	}

	mime := file.src.MIME
	if mime == "" {
		mime = sniffer.MIMEOctetStream
	}
	filename := file.src.Name
	if filename == "" {
		filename = "upload." + sniffer.Extension(mime)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.name, filename))
	header.Set("Content-Type", mime)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(file.src.Data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// errorMessage digs a human message out of a provider error body. The
// providers disagree on shape: {"error":{"message"}}, {"error":"..."},
// {"data":{"error":...}}, {"Message":"..."} or plain text.
func errorMessage(body []byte, fallback string) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fallback
	}

	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"Message"`
		Data    struct {
			Error json.RawMessage `json:"error"`
		} `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return string(trimmed)
	}

	if msg := messageFrom(envelope.Error); msg != "" {
		return msg
	}
	if msg := messageFrom(envelope.Data.Error); msg != "" {
		return msg
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return fallback
}

func messageFrom(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}
