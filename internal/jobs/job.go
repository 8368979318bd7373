package jobs

import (
	"errors"
	"time"

	"github.com/mataager/SwiftStore/internal/transcode"
	"github.com/mataager/SwiftStore/internal/upload"
)

// Task types carried on the stream.
const (
	TypeIngest  = "ingest"
	TypeCleanup = "cleanup"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var ErrJobNotFound = errors.New("job not found")

// IngestJob describes an upload staged in object storage for the worker.
// It never carries provider secrets; the worker uses its configured
// credentials.
type IngestJob struct {
	ID         string             `json:"id"`
	Provider   upload.Provider    `json:"provider"`
	StagingKey string             `json:"stagingKey"`
	Name       string             `json:"name"`
	MIME       string             `json:"mime"`
	StoreLabel string             `json:"storeLabel,omitempty"`
	Transcode  *transcode.Options `json:"transcode,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}

type Result struct {
	JobID     string         `json:"jobId"`
	Status    Status         `json:"status"`
	Asset     *upload.Result `json:"asset,omitempty"`
	Error     string         `json:"error,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func Pending(jobID string, now time.Time) Result {
	return Result{JobID: jobID, Status: StatusPending, UpdatedAt: now}
}

func Succeeded(jobID string, asset upload.Result, now time.Time) Result {
	return Result{JobID: jobID, Status: StatusSucceeded, Asset: &asset, UpdatedAt: now}
}

func Failed(jobID string, err error, now time.Time) Result {
	return Result{JobID: jobID, Status: StatusFailed, Error: err.Error(), UpdatedAt: now}
}
