package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/nikishkaa/docx-bot/internal/model"
	"github.com/nikishkaa/docx-bot/internal/taxonomy"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Taxonomy() *taxonomy.Taxonomy {
	args := m.Called()
	return args.Get(0).(*taxonomy.Taxonomy)
}

func (m *MockStore) Exists(name, category, subcategory string) (bool, error) {
	args := m.Called(name, category, subcategory)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Save(name string, data []byte, category, subcategory string) (string, error) {
	args := m.Called(name, data, category, subcategory)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Get(name, category, subcategory string) ([]byte, error) {
	args := m.Called(name, category, subcategory)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStore) Locate(name, category, subcategory string) (model.StoredFile, error) {
	args := m.Called(name, category, subcategory)
	return args.Get(0).(model.StoredFile), args.Error(1)
}

func (m *MockStore) List(category, subcategory string) ([]model.StoredFile, error) {
	args := m.Called(category, subcategory)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StoredFile), args.Error(1)
}

func (m *MockStore) Search(query string) ([]model.StoredFile, error) {
	args := m.Called(query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StoredFile), args.Error(1)
}
