package connection

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/vcentea/linkedin-gateway-sub000/connection/broker"
	"github.com/vcentea/linkedin-gateway-sub000/connection/pending"
	"github.com/vcentea/linkedin-gateway-sub000/connection/status"
	"github.com/vcentea/linkedin-gateway-sub000/connection/wire"
)

type MockConnection struct {
	Connection
	mock.Mock
}

func (m *MockConnection) Connect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConnection) Disconnect(graceful bool) {
	m.Called(graceful)
}

func (m *MockConnection) Send(message wire.Message) error {
	args := m.Called(message)
	return args.Error(0)
}

func (m *MockConnection) SendRequest(messageType wire.MessageType, payload any, timeout time.Duration) (<-chan pending.Response, error) {
	args := m.Called(messageType, payload, timeout)
	return args.Get(0).(chan pending.Response), args.Error(1)
}

func (m *MockConnection) Request(ctx context.Context, messageType wire.MessageType, payload any, timeout time.Duration) (*wire.Envelope, error) {
	args := m.Called(messageType, payload, timeout)
	return args.Get(0).(*wire.Envelope), args.Error(1)
}

func (m *MockConnection) Subscribe(id string, channel broker.IChannel) {
	m.Called(id, channel)
}

func (m *MockConnection) Done() <-chan struct{} {
	args := m.Called()
	return args.Get(0).(chan struct{})
}

func (m *MockConnection) Err() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConnection) Ready() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockConnection) State() status.State {
	args := m.Called()
	return args.Get(0).(status.State)
}
