package messenger

import (
	"context"
	"net/http"
	"net/url"

	"github.com/stretchr/testify/mock"

	"github.com/vcentea/linkedin-gateway-sub000/connection/transporter"
	"github.com/vcentea/linkedin-gateway-sub000/connection/wire"
)

type MockMessenger struct {
	Messenger
	mock.Mock
}

func (m *MockMessenger) Close(reason error) {
	m.Called()
}

func (m *MockMessenger) Done() <-chan struct{} {
	args := m.Called()
	return args.Get(0).(chan struct{})
}

func (m *MockMessenger) Err() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMessenger) Inbound() <-chan *wire.Envelope {
	args := m.Called()
	return args.Get(0).(chan *wire.Envelope)
}

func (m *MockMessenger) Connect(ctx context.Context, targetUrl string, headers http.Header, params url.Values) error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMessenger) Send(message wire.Message) error {
	args := m.Called(message)
	return args.Error(0)
}

func (m *MockMessenger) SendRaw(messageBytes []byte) error {
	args := m.Called(messageBytes)
	return args.Error(0)
}

func (m *MockMessenger) CloseDetail() transporter.CloseDetail {
	args := m.Called()
	return args.Get(0).(transporter.CloseDetail)
}
