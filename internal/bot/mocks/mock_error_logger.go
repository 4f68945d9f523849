package mocks

import "github.com/stretchr/testify/mock"

type MockErrorLogger struct {
	mock.Mock
}

func (m *MockErrorLogger) Log(msg string, userID int64, info string) {
	m.Called(msg, userID, info)
}
