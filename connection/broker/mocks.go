package broker

import (
	"github.com/stretchr/testify/mock"

	"github.com/vcentea/linkedin-gateway-sub000/connection/wire"
)

type MockChannel struct {
	IChannel
	mock.Mock
}

func (m *MockChannel) Receive(envelope wire.Envelope) {
	m.Called(envelope)
}

func (m *MockChannel) Close(reason error) {
	m.Called()
}
