package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mataager/SwiftStore/internal/asset"
	"github.com/mataager/SwiftStore/internal/jobs"
	"github.com/mataager/SwiftStore/internal/metrics"
	"github.com/mataager/SwiftStore/internal/storage"
	"github.com/mataager/SwiftStore/internal/transcode"
	"github.com/mataager/SwiftStore/internal/upload"
)

type Ingester interface {
	Ingest(ctx context.Context, file asset.Source, provider upload.Provider, creds upload.Credentials, opts *transcode.Options) (upload.Result, error)
}

type CredentialSource interface {
	For(p upload.Provider, storeLabel string) (upload.Credentials, error)
}

type Staging interface {
	GetStaging(ctx context.Context, key string) ([]byte, error)
	RemoveStaging(ctx context.Context, key string) error
	ListStaleStaging(ctx context.Context, cutoff time.Time) ([]string, error)
}

type ResultStore interface {
	SaveResult(ctx context.Context, result jobs.Result) error
}

type Processor struct {
	pipeline  Ingester
	creds     CredentialSource
	staging   Staging
	results   ResultStore
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

func NewProcessor(pipeline Ingester, creds CredentialSource, staging Staging, results ResultStore, retention time.Duration, log zerolog.Logger) *Processor {
	return &Processor{
		pipeline:  pipeline,
		creds:     creds,
		staging:   staging,
		results:   results,
		retention: retention,
		now:       time.Now,
		log:       log.With().Str("component", "processor").Logger(),
	}
}

type TaskPayload struct {
	Type  string `json:"type"`
	JobID string `json:"jobId"`
	Job   string `json:"job"`
}

// Handle runs one stream message. A returned error leaves the message
// pending for redelivery, so it is reserved for failures worth retrying:
// the job's own failures are recorded in its result and acknowledged.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		p.log.Error().Err(err).Str("message_id", msg.ID).Msg("dropping undecodable message")
		return nil
	}

	switch payload.Type {
	case jobs.TypeIngest:
		return p.handleIngest(ctx, payload)
	case jobs.TypeCleanup:
		return p.handleCleanup(ctx)
	default:
		p.log.Warn().Str("type", payload.Type).Msg("unknown task type")
		return nil
	}
}

// Abandon records an ingest job as failed once the consumer stops
// redelivering its message, and drops the staged file. Other task types
// have no result to record.
func (p *Processor) Abandon(ctx context.Context, msg redis.XMessage, deliveries int64) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil || payload.Type != jobs.TypeIngest {
		return nil
	}
	var job jobs.IngestJob
	if err := json.Unmarshal([]byte(payload.Job), &job); err != nil {
		return nil
	}

	cause := fmt.Errorf("gave up after %d deliveries", deliveries)
	if err := p.finish(ctx, jobs.Failed(job.ID, cause, p.now())); err != nil {
		return err
	}
	if err := p.staging.RemoveStaging(ctx, job.StagingKey); err != nil {
		p.log.Warn().Err(err).Str("key", job.StagingKey).Msg("remove staged file failed")
	}
	return nil
}

func decodePayload(values map[string]any, out *TaskPayload) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (p *Processor) handleIngest(ctx context.Context, payload TaskPayload) error {
	var job jobs.IngestJob
	if err := json.Unmarshal([]byte(payload.Job), &job); err != nil {
		p.log.Error().Err(err).Str("job_id", payload.JobID).Msg("dropping undecodable ingest job")
		return nil
	}
	log := p.log.With().Str("job_id", job.ID).Str("provider", string(job.Provider)).Logger()

	data, err := p.staging.GetStaging(ctx, job.StagingKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return p.finish(ctx, jobs.Failed(job.ID, fmt.Errorf("staged file %s is gone", job.StagingKey), p.now()))
	}
	if err != nil {
		return fmt.Errorf("read staged file: %w", err)
	}

	creds, err := p.creds.For(job.Provider, job.StoreLabel)
	if err != nil {
		return p.finish(ctx, jobs.Failed(job.ID, err, p.now()))
	}

	src := asset.Source{Name: job.Name, MIME: job.MIME, Data: data}
	result, err := p.pipeline.Ingest(ctx, src, job.Provider, creds, job.Transcode)
	if err != nil {
		log.Warn().Err(err).Msg("ingest job failed")
		if saveErr := p.finish(ctx, jobs.Failed(job.ID, err, p.now())); saveErr != nil {
			return saveErr
		}
	} else {
		log.Info().Str("url", result.URL).Msg("ingest job succeeded")
		if saveErr := p.finish(ctx, jobs.Succeeded(job.ID, result, p.now())); saveErr != nil {
			return saveErr
		}
	}

	if err := p.staging.RemoveStaging(ctx, job.StagingKey); err != nil {
		log.Warn().Err(err).Str("key", job.StagingKey).Msg("remove staged file failed")
	}
	return nil
}

func (p *Processor) finish(ctx context.Context, result jobs.Result) error {
	label := metrics.StatusSuccess
	if result.Status == jobs.StatusFailed {
		label = metrics.StatusFailed
	}
	metrics.JobsProcessed.WithLabelValues(label).Inc()

	if err := p.results.SaveResult(ctx, result); err != nil {
		return fmt.Errorf("save job result: %w", err)
	}
	return nil
}

// handleCleanup removes staged files older than the retention window,
// covering jobs whose messages were lost.
func (p *Processor) handleCleanup(ctx context.Context) error {
	cutoff := p.now().Add(-p.retention)
	keys, err := p.staging.ListStaleStaging(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale staging: %w", err)
	}

	removed := 0
	for _, key := range keys {
		if err := p.staging.RemoveStaging(ctx, key); err != nil {
			p.log.Warn().Err(err).Str("key", key).Msg("remove stale staged file failed")
			continue
		}
		removed++
	}
	p.log.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("staging cleanup done")
	return nil
}
