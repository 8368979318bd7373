package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const resultKeyPrefix = "assets:job:"

// Queue publishes tasks onto the Redis stream the worker consumes and keeps
// job results under expiring keys.
type Queue struct {
	client    *redis.Client
	stream    string
	resultTTL time.Duration
}

func NewQueue(client *redis.Client, stream string, resultTTL time.Duration) *Queue {
	return &Queue{client: client, stream: stream, resultTTL: resultTTL}
}

// TaskValues is the stream entry for a task; job is nil for tasks without
// a payload.
func TaskValues(taskType string, job *IngestJob) (map[string]any, error) {
	values := map[string]any{"type": taskType}
	if job != nil {
		payload, err := json.Marshal(job)
		if err != nil {
			return nil, fmt.Errorf("encode job: %w", err)
		}
		values["jobId"] = job.ID
		values["job"] = string(payload)
	}
	return values, nil
}

func (q *Queue) EnqueueIngest(ctx context.Context, job IngestJob) error {
	values, err := TaskValues(TypeIngest, &job)
	if err != nil {
		return err
	}
	return q.add(ctx, values)
}

func (q *Queue) EnqueueCleanup(ctx context.Context) error {
	values, _ := TaskValues(TypeCleanup, nil)
	return q.add(ctx, values)
}

func (q *Queue) add(ctx context.Context, values map[string]any) error {
	if err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", q.stream, err)
	}
	return nil
}

func ResultKey(jobID string) string {
	return resultKeyPrefix + jobID
}

func (q *Queue) SaveResult(ctx context.Context, result Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := q.client.Set(ctx, ResultKey(result.JobID), payload, q.resultTTL).Err(); err != nil {
		return fmt.Errorf("save result %s: %w", result.JobID, err)
	}
	return nil
}

func (q *Queue) GetResult(ctx context.Context, jobID string) (Result, error) {
	payload, err := q.client.Get(ctx, ResultKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{}, ErrJobNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("load result %s: %w", jobID, err)
	}

	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, fmt.Errorf("decode result %s: %w", jobID, err)
	}
	return result, nil
}

// Ping is used by the health check.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}
