package connection

import (
	"context"
	"time"

	"github.com/vcentea/linkedin-gateway-sub000/connection/broker"
	"github.com/vcentea/linkedin-gateway-sub000/connection/pending"
	"github.com/vcentea/linkedin-gateway-sub000/connection/status"
	"github.com/vcentea/linkedin-gateway-sub000/connection/wire"
)

type Connection interface {
	Connect() error
	Disconnect(graceful bool)
	Send(message wire.Message) error
	SendRequest(messageType wire.MessageType, payload any, timeout time.Duration) (<-chan pending.Response, error)
	Request(ctx context.Context, messageType wire.MessageType, payload any, timeout time.Duration) (*wire.Envelope, error)
	Subscribe(id string, channel broker.IChannel)
	Done() <-chan struct{}
	Err() error
	Ready() bool
	State() status.State
}
