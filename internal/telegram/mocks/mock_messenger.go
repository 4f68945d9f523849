package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nikishkaa/docx-bot/internal/telegram"
)

type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) SendMessage(ctx context.Context, chatID int64, text string, kb *telegram.ReplyKeyboard) error {
	args := m.Called(ctx, chatID, text, kb)
	return args.Error(0)
}

func (m *MockMessenger) SendMarkdown(ctx context.Context, chatID int64, text string, kb *telegram.ReplyKeyboard) error {
	args := m.Called(ctx, chatID, text, kb)
	return args.Error(0)
}

func (m *MockMessenger) SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string, kb *telegram.ReplyKeyboard) error {
	args := m.Called(ctx, chatID, name, data, caption, kb)
	return args.Error(0)
}

func (m *MockMessenger) SendChatAction(ctx context.Context, chatID int64, action string) error {
	args := m.Called(ctx, chatID, action)
	return args.Error(0)
}

func (m *MockMessenger) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	args := m.Called(ctx, fileID)
	var data []byte
	if b, ok := args.Get(0).([]byte); ok {
		data = b
	}
	return data, args.Error(1)
}

var _ telegram.Messenger = (*MockMessenger)(nil)
