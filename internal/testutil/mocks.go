package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockModel is a testify mock implementing core.Model.
type MockModel struct {
	mock.Mock
}

func (m *MockModel) Invoke(ctx context.Context, inputs map[string]any, params map[string]any) (map[string]any, error) {
	args := m.Called(ctx, inputs, params)
	if out := args.Get(0); out != nil {
		return out.(map[string]any), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPreprocessor is a testify mock implementing core.Preprocessor.
type MockPreprocessor struct {
	mock.Mock
}

func (m *MockPreprocessor) Process(ctx context.Context, input any, params map[string]any) (map[string]any, error) {
	args := m.Called(ctx, input, params)
	if out := args.Get(0); out != nil {
		return out.(map[string]any), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockDownloader is a testify mock implementing hub.Downloader.
type MockDownloader struct {
	mock.Mock
}

func (m *MockDownloader) SnapshotDownload(ctx context.Context, ref string) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}
