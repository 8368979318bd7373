package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mataager/SwiftStore/internal/asset"
	"github.com/mataager/SwiftStore/internal/jobs"
	"github.com/mataager/SwiftStore/internal/storage"
	"github.com/mataager/SwiftStore/internal/transcode"
	"github.com/mataager/SwiftStore/internal/upload"
)

type MockIngester struct{ mock.Mock }

func (m *MockIngester) Ingest(ctx context.Context, file asset.Source, provider upload.Provider, creds upload.Credentials, opts *transcode.Options) (upload.Result, error) {
	args := m.Called(ctx, file, provider, creds, opts)
	return args.Get(0).(upload.Result), args.Error(1)
}

type MockCredentials struct{ mock.Mock }

func (m *MockCredentials) For(p upload.Provider, storeLabel string) (upload.Credentials, error) {
	args := m.Called(p, storeLabel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(upload.Credentials), args.Error(1)
}

type MockStaging struct{ mock.Mock }

func (m *MockStaging) GetStaging(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStaging) RemoveStaging(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockStaging) ListStaleStaging(ctx context.Context, cutoff time.Time) ([]string, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]string), args.Error(1)
}

type MockResults struct{ mock.Mock }

func (m *MockResults) SaveResult(ctx context.Context, result jobs.Result) error {
	return m.Called(ctx, result).Error(0)
}

var now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	processor *Processor
	pipeline  *MockIngester
	creds     *MockCredentials
	staging   *MockStaging
	results   *MockResults
}

func newFixture() fixture {
	f := fixture{
		pipeline: new(MockIngester),
		creds:    new(MockCredentials),
		staging:  new(MockStaging),
		results:  new(MockResults),
	}
	f.processor = NewProcessor(f.pipeline, f.creds, f.staging, f.results, 6*time.Hour, zerolog.Nop())
	f.processor.now = func() time.Time { return now }
	return f
}

func ingestMessage(t *testing.T, job jobs.IngestJob) redis.XMessage {
	t.Helper()
	values, err := jobs.TaskValues(jobs.TypeIngest, &job)
	require.NoError(t, err)
	return redis.XMessage{ID: "1-0", Values: values}
}

var sampleJob = jobs.IngestJob{
	ID:         "job_abc",
	Provider:   upload.ProviderBunny,
	StagingKey: "staging/job_abc/shoe.png",
	Name:       "shoe.png",
	MIME:       "image/png",
	StoreLabel: "cairo-shoes",
	Transcode:  &transcode.Options{MaxWidth: 640},
}

var bunnyCreds = upload.BunnyCredentials{AccessKey: "k", StorageZoneName: "z", PullZone: "cdn", StoreLabel: "cairo-shoes"}

func TestHandleIngestSuccess(t *testing.T) {
	f := newFixture()
	data := []byte("png-bytes")
	uploaded := upload.Result{Provider: upload.ProviderBunny, URL: "https://cdn/cairo-shoes_1.png"}

	f.staging.On("GetStaging", mock.Anything, sampleJob.StagingKey).Return(data, nil)
	f.creds.On("For", upload.ProviderBunny, "cairo-shoes").Return(bunnyCreds, nil)
	f.pipeline.On("Ingest", mock.Anything,
		asset.Source{Name: "shoe.png", MIME: "image/png", Data: data},
		upload.ProviderBunny, bunnyCreds, sampleJob.Transcode).Return(uploaded, nil)
	f.results.On("SaveResult", mock.Anything, jobs.Succeeded("job_abc", uploaded, now)).Return(nil)
	f.staging.On("RemoveStaging", mock.Anything, sampleJob.StagingKey).Return(nil)

	err := f.processor.Handle(context.Background(), ingestMessage(t, sampleJob))
	require.NoError(t, err)

	f.pipeline.AssertExpectations(t)
	f.results.AssertExpectations(t)
	f.staging.AssertExpectations(t)
}

func TestHandleIngestFailureIsRecordedAndAcked(t *testing.T) {
	f := newFixture()
	upErr := &upload.UploadError{Provider: upload.ProviderBunny, HTTPStatus: 401, Message: "Unauthorized"}

	f.staging.On("GetStaging", mock.Anything, sampleJob.StagingKey).Return([]byte("x"), nil)
	f.creds.On("For", upload.ProviderBunny, "cairo-shoes").Return(bunnyCreds, nil)
	f.pipeline.On("Ingest", mock.Anything, mock.Anything, upload.ProviderBunny, bunnyCreds, sampleJob.Transcode).
		Return(upload.Result{}, upErr)
	f.results.On("SaveResult", mock.Anything, jobs.Failed("job_abc", upErr, now)).Return(nil)
	f.staging.On("RemoveStaging", mock.Anything, sampleJob.StagingKey).Return(nil)

	err := f.processor.Handle(context.Background(), ingestMessage(t, sampleJob))
	require.NoError(t, err)

	f.results.AssertExpectations(t)
	f.staging.AssertCalled(t, "RemoveStaging", mock.Anything, sampleJob.StagingKey)
}

func TestHandleIngestMissingStagedFile(t *testing.T) {
	f := newFixture()
	f.staging.On("GetStaging", mock.Anything, sampleJob.StagingKey).
		Return(nil, fmt.Errorf("bucket/key: %w", storage.ErrObjectNotFound))
	f.results.On("SaveResult", mock.Anything, mock.MatchedBy(func(r jobs.Result) bool {
		return r.JobID == "job_abc" && r.Status == jobs.StatusFailed
	})).Return(nil)

	err := f.processor.Handle(context.Background(), ingestMessage(t, sampleJob))
	require.NoError(t, err)

	f.pipeline.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.results.AssertExpectations(t)
}

func TestHandleIngestStagingOutageIsRetried(t *testing.T) {
	f := newFixture()
	f.staging.On("GetStaging", mock.Anything, sampleJob.StagingKey).Return(nil, errors.New("connection refused"))

	err := f.processor.Handle(context.Background(), ingestMessage(t, sampleJob))
	assert.Error(t, err)
	f.results.AssertNotCalled(t, "SaveResult", mock.Anything, mock.Anything)
}

func TestHandleIngestResultSaveFailureIsRetried(t *testing.T) {
	f := newFixture()
	f.staging.On("GetStaging", mock.Anything, sampleJob.StagingKey).Return([]byte("x"), nil)
	f.creds.On("For", upload.ProviderBunny, "cairo-shoes").Return(bunnyCreds, nil)
	f.pipeline.On("Ingest", mock.Anything, mock.Anything, upload.ProviderBunny, bunnyCreds, sampleJob.Transcode).
		Return(upload.Result{URL: "u"}, nil)
	f.results.On("SaveResult", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	err := f.processor.Handle(context.Background(), ingestMessage(t, sampleJob))
	assert.Error(t, err)
	f.staging.AssertNotCalled(t, "RemoveStaging", mock.Anything, mock.Anything)
}

func TestHandleCleanup(t *testing.T) {
	f := newFixture()
	cutoff := now.Add(-6 * time.Hour)
	f.staging.On("ListStaleStaging", mock.Anything, cutoff).Return([]string{"a", "b"}, nil)
	f.staging.On("RemoveStaging", mock.Anything, "a").Return(errors.New("denied"))
	f.staging.On("RemoveStaging", mock.Anything, "b").Return(nil)

	values, err := jobs.TaskValues(jobs.TypeCleanup, nil)
	require.NoError(t, err)

	require.NoError(t, f.processor.Handle(context.Background(), redis.XMessage{ID: "2-0", Values: values}))
	f.staging.AssertExpectations(t)
}

func TestHandleIgnoresUnknownAndGarbage(t *testing.T) {
	f := newFixture()

	assert.NoError(t, f.processor.Handle(context.Background(), redis.XMessage{Values: map[string]any{"type": "nsfw"}}))
	assert.NoError(t, f.processor.Handle(context.Background(), redis.XMessage{Values: map[string]any{"type": "ingest", "job": "{broken"}}))
	f.pipeline.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAbandonRecordsFailure(t *testing.T) {
	f := newFixture()
	f.results.On("SaveResult", mock.Anything, jobs.Failed("job_abc", errors.New("gave up after 5 deliveries"), now)).Return(nil)
	f.staging.On("RemoveStaging", mock.Anything, sampleJob.StagingKey).Return(nil)

	err := f.processor.Abandon(context.Background(), ingestMessage(t, sampleJob), 5)
	require.NoError(t, err)

	f.results.AssertExpectations(t)
	f.staging.AssertExpectations(t)
	f.pipeline.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAbandonSaveFailureKeepsMessage(t *testing.T) {
	f := newFixture()
	f.results.On("SaveResult", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	err := f.processor.Abandon(context.Background(), ingestMessage(t, sampleJob), 5)
	assert.Error(t, err)
	f.staging.AssertNotCalled(t, "RemoveStaging", mock.Anything, mock.Anything)
}

func TestAbandonIgnoresCleanupTasks(t *testing.T) {
	f := newFixture()
	values, err := jobs.TaskValues(jobs.TypeCleanup, nil)
	require.NoError(t, err)

	assert.NoError(t, f.processor.Abandon(context.Background(), redis.XMessage{ID: "2-0", Values: values}, 9))
	f.results.AssertNotCalled(t, "SaveResult", mock.Anything, mock.Anything)
}
