package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nikishkaa/docx-bot/internal/model"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Record(ctx context.Context, file, user string) (int, error) {
	args := m.Called(ctx, file, user)
	return args.Int(0), args.Error(1)
}

func (m *MockLedger) QueryTotals(file string) model.FileStats {
	args := m.Called(file)
	return args.Get(0).(model.FileStats)
}

func (m *MockLedger) QueryForUser(user string) model.UserStats {
	args := m.Called(user)
	return args.Get(0).(model.UserStats)
}

func (m *MockLedger) Top(n int) []model.FileStats {
	args := m.Called(n)
	return args.Get(0).([]model.FileStats)
}
