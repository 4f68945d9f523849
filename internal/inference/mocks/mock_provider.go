package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nikishkaa/docx-bot/internal/inference"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Chat(ctx context.Context, messages []inference.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) Name() string {
	return "mock"
}
