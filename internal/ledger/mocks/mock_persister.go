package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nikishkaa/docx-bot/internal/ledger"
)

type MockPersister struct {
	mock.Mock
}

func (m *MockPersister) Load(ctx context.Context) (ledger.Counts, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ledger.Counts), args.Error(1)
}

func (m *MockPersister) Save(ctx context.Context, c ledger.Counts) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}
