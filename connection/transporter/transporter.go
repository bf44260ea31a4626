package transporter

import (
	"context"
	"net/http"
	"net/url"
)

// CloseDetail describes how the underlying connection ended. It is carried
// into the supervisor's "disconnected" status broadcast.
type CloseDetail struct {
	Code   int
	Reason string
	Clean  bool
}

type Transporter interface {
	Done() <-chan struct{}
	Err() error
	Inbound() <-chan *[]byte
	Dial(connUrl *url.URL, headers http.Header, ctx context.Context) (err error)
	Send(message []byte) error
	Close(reason error)
	CloseDetail() CloseDetail
}
