package messenger

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vcentea/linkedin-gateway-sub000/connection/transporter"
	"github.com/vcentea/linkedin-gateway-sub000/connection/wire"
)

type Messenger interface {
	Close(reason error)
	Done() <-chan struct{}
	Err() error
	Inbound() <-chan *wire.Envelope
	Connect(ctx context.Context, targetUrl string, headers http.Header, params url.Values) error
	Send(message wire.Message) error
	SendRaw(messageBytes []byte) error
	CloseDetail() transporter.CloseDetail
}
