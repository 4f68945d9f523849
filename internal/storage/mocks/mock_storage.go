package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/nikishkaa/docx-bot/internal/storage"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Put(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	args := m.Called(ctx, key, r, opt)
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *MockStorage) Ready(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
