package store

import (
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	Store
	mock.Mock
}

func (m *MockStore) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Set(key string, value string) error {
	args := m.Called(key, value)
	return args.Error(0)
}

func (m *MockStore) Remove(key string) error {
	args := m.Called(key)
	return args.Error(0)
}
