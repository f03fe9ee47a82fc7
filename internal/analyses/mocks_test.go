package analyses

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"jobjeeves/internal/llm"
)

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) AnalyzeResume(ctx context.Context, input llm.AnalyzeInput) (llm.Result, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(llm.Result), args.Error(1)
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, analysis Analysis) (Analysis, error) {
	args := m.Called(ctx, analysis)
	return args.Get(0).(Analysis), args.Error(1)
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (Analysis, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Analysis), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Put(ctx context.Context, key string, contentType string, r io.Reader) (int64, error) {
	args := m.Called(ctx, key, contentType, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func fixedExtract(text string, err error) ExtractFunc {
	return func(ctx context.Context, data []byte, mediaType, fileName string) (string, error) {
		return text, err
	}
}
