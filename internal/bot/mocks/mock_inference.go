package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockInference struct {
	mock.Mock
}

func (m *MockInference) Acquire(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockInference) Release() {
	m.Called()
}

func (m *MockInference) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}
