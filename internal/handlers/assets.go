package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mataager/SwiftStore/internal/asset"
	"github.com/mataager/SwiftStore/internal/ids"
	"github.com/mataager/SwiftStore/internal/jobs"
	"github.com/mataager/SwiftStore/internal/media/sniffer"
	"github.com/mataager/SwiftStore/internal/transcode"
	"github.com/mataager/SwiftStore/internal/upload"
)

var errFileTooLarge = errors.New("file exceeds upload limit")

type uploadRequest struct {
	file       asset.Source
	provider   upload.Provider
	storeLabel string
	transcode  *transcode.Options
}

func (h HandlerSet) UploadAsset(c *gin.Context) {
	req, ok := h.bindUpload(c)
	if !ok {
		return
	}

	creds, err := h.deps.Credentials.For(req.provider, req.storeLabel)
	if err != nil {
		h.respondIngestError(c, err)
		return
	}

	result, err := h.deps.Pipeline.Ingest(c.Request.Context(), req.file, req.provider, creds, req.transcode)
	if err != nil {
		h.respondIngestError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"asset": result,
	})
}

// UploadAssetAsync stages the file and queues it for the worker. The job
// records only the provider name; the worker supplies credentials.
func (h HandlerSet) UploadAssetAsync(c *gin.Context) {
	if h.deps.Staging == nil || h.deps.Jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "async_unavailable"})
		return
	}

	req, ok := h.bindUpload(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()
	job := jobs.IngestJob{
		ID:         ids.NewJobID(),
		Provider:   req.provider,
		Name:       req.file.Name,
		MIME:       req.file.MIME,
		StoreLabel: req.storeLabel,
		Transcode:  req.transcode,
		CreatedAt:  now,
	}
	job.StagingKey = stagingKey(job.ID, req.file.Name)

	if err := h.deps.Staging.PutStaging(ctx, job.StagingKey, req.file.Data, req.file.MIME); err != nil {
		h.log.Error().Err(err).Str("job_id", job.ID).Msg("stage upload failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "staging_failed"})
		return
	}
	if err := h.deps.Jobs.SaveResult(ctx, jobs.Pending(job.ID, now)); err != nil {
		h.log.Error().Err(err).Str("job_id", job.ID).Msg("record pending job failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue_failed"})
		return
	}
	if err := h.deps.Jobs.EnqueueIngest(ctx, job); err != nil {
		h.log.Error().Err(err).Str("job_id", job.ID).Msg("enqueue job failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue_failed"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":  job.ID,
		"status": jobs.StatusPending,
	})
}

func (h HandlerSet) bindUpload(c *gin.Context) (uploadRequest, bool) {
	var req uploadRequest

	header, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file_too_large"})
			return req, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_required"})
		return req, false
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_unreadable"})
		return req, false
	}
	defer file.Close()

	data, err := readLimited(file, h.deps.MaxUploadBytes)
	if errors.Is(err, errFileTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file_too_large"})
		return req, false
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_unreadable"})
		return req, false
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_empty"})
		return req, false
	}

	req.file = asset.Source{
		Name: path.Base(header.Filename),
		MIME: sniffer.Resolve(header.Header.Get("Content-Type"), data),
		Data: data,
	}

	if raw := strings.TrimSpace(c.PostForm("provider")); raw != "" {
		req.provider, err = upload.ParseProvider(raw)
	} else {
		req.provider, err = h.deps.Credentials.DefaultProvider()
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_provider", "message": err.Error()})
		return req, false
	}

	req.storeLabel = strings.TrimSpace(c.PostForm("storeLabel"))

	req.transcode, err = h.transcodeOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_transcode_options", "message": err.Error()})
		return req, false
	}

	return req, true
}

// transcodeOptions returns nil unless the form asks for transcoding. Bounds
// not given in the form come from the configured defaults.
func (h HandlerSet) transcodeOptions(c *gin.Context) (*transcode.Options, error) {
	raw := c.PostForm("transcode")
	if raw == "" {
		return nil, nil
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("transcode: %w", err)
	}
	if !enabled {
		return nil, nil
	}

	opts := h.deps.Transcode
	if err := formInt(c, "maxWidth", &opts.MaxWidth); err != nil {
		return nil, err
	}
	if err := formInt(c, "maxHeight", &opts.MaxHeight); err != nil {
		return nil, err
	}
	if err := formInt(c, "maxSizeKB", &opts.MaxSizeKB); err != nil {
		return nil, err
	}
	if v := c.PostForm("quality"); v != "" {
		q, err := strconv.ParseFloat(v, 64)
		if err != nil || q <= 0 || q > 1 {
			return nil, fmt.Errorf("quality must be in (0,1], got %q", v)
		}
		opts.Quality = q
	}

	opts = opts.Normalize()
	return &opts, nil
}

func formInt(c *gin.Context, key string, dst *int) error {
	v := c.PostForm(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	*dst = n
	return nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errFileTooLarge
	}
	return data, nil
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func stagingKey(jobID, name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return "staging/" + jobID + "/" + name
}

// respondIngestError maps the pipeline's typed errors onto HTTP statuses.
func (h HandlerSet) respondIngestError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"

	var (
		cfgErr       *upload.ConfigurationError
		decodeErr    *transcode.DecodeError
		encodeErr    *transcode.EncodeError
		uploadErr    *upload.UploadError
		transportErr *upload.TransportError
	)
	switch {
	case errors.As(err, &cfgErr):
		status, code = http.StatusBadRequest, "invalid_configuration"
	case errors.As(err, &decodeErr):
		status, code = http.StatusUnprocessableEntity, "undecodable_image"
	case errors.As(err, &encodeErr):
		status, code = http.StatusInternalServerError, "encode_failed"
	case errors.As(err, &uploadErr):
		status, code = http.StatusBadGateway, "upload_rejected"
	case errors.As(err, &transportErr):
		status, code = http.StatusGatewayTimeout, "upload_unreachable"
	}

	event := h.log.Warn()
	if status >= http.StatusInternalServerError {
		event = h.log.Error()
	}
	event.Err(err).Int("status", status).Msg("asset ingest failed")

	c.JSON(status, gin.H{
		"error":   code,
		"message": err.Error(),
	})
}
