package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nikishkaa/docx-bot/internal/model"
	"github.com/nikishkaa/docx-bot/internal/service"
	"github.com/nikishkaa/docx-bot/internal/taxonomy"
)

type MockFileService struct {
	mock.Mock
}

func (m *MockFileService) Categories() []taxonomy.Category {
	args := m.Called()
	return args.Get(0).([]taxonomy.Category)
}

func (m *MockFileService) Exists(ctx context.Context, name, category, subcategory string) (bool, error) {
	args := m.Called(ctx, name, category, subcategory)
	return args.Bool(0), args.Error(1)
}

func (m *MockFileService) Upload(ctx context.Context, req service.UploadRequest) (model.StoredFile, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.StoredFile), args.Error(1)
}

func (m *MockFileService) Fetch(ctx context.Context, name, category, subcategory string) (model.StoredFile, []byte, error) {
	args := m.Called(ctx, name, category, subcategory)
	var data []byte
	if b, ok := args.Get(1).([]byte); ok {
		data = b
	}
	return args.Get(0).(model.StoredFile), data, args.Error(2)
}

func (m *MockFileService) RecordDownload(ctx context.Context, name string, userID int64) (int, error) {
	args := m.Called(ctx, name, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockFileService) List(ctx context.Context, category, subcategory string) ([]model.StoredFile, error) {
	args := m.Called(ctx, category, subcategory)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StoredFile), args.Error(1)
}

func (m *MockFileService) Search(ctx context.Context, query string) ([]model.StoredFile, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StoredFile), args.Error(1)
}

func (m *MockFileService) FileStats(ctx context.Context, name string) model.FileStats {
	args := m.Called(ctx, name)
	return args.Get(0).(model.FileStats)
}

func (m *MockFileService) UserStats(ctx context.Context, userID string) model.UserStats {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.UserStats)
}

func (m *MockFileService) TopFiles(ctx context.Context, n int) []model.FileStats {
	args := m.Called(ctx, n)
	return args.Get(0).([]model.FileStats)
}
