package ingest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mataager/SwiftStore/internal/asset"
	"github.com/mataager/SwiftStore/internal/transcode"
	"github.com/mataager/SwiftStore/internal/upload"
)

type MockBackend struct {
	mock.Mock
	provider upload.Provider
}

func (m *MockBackend) Provider() upload.Provider {
	return m.provider
}

func (m *MockBackend) Upload(ctx context.Context, src asset.Source, creds upload.Credentials) (upload.Result, error) {
	args := m.Called(ctx, src, creds)
	return args.Get(0).(upload.Result), args.Error(1)
}

type MockTranscoder struct {
	mock.Mock
}

func (m *MockTranscoder) Transcode(ctx context.Context, src asset.Source, opts transcode.Options) (transcode.Result, error) {
	args := m.Called(ctx, src, opts)
	return args.Get(0).(transcode.Result), args.Error(1)
}
