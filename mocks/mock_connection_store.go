package mocks

import (
	"github.com/stretchr/testify/mock"

	"qbridge/internal/domain"
)

// MockConnectionStore is a mock implementation of port.ConnectionStore.
type MockConnectionStore struct {
	mock.Mock
}

func (m *MockConnectionStore) Get(slot domain.ConnectionSlot) domain.Connection {
	args := m.Called(slot)
	return args.Get(0).(domain.Connection)
}

func (m *MockConnectionStore) Set(slot domain.ConnectionSlot, conn domain.Connection) {
	m.Called(slot, conn)
}

func (m *MockConnectionStore) Clear(slot domain.ConnectionSlot) {
	m.Called(slot)
}
