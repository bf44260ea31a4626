/*
The envelope package is the gateway's protocol handler. The backend speaks a
flat json envelope protocol over the raw websocket; it's this package's
responsibility to encode outbound frames, decode inbound bytes, and shield
the layers above from protocol garbage: a malformed frame is logged and
discarded here, never thrown past this boundary.
*/
package envelope

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"gopkg.in/tomb.v2"

	"github.com/vcentea/linkedin-gateway-sub000/connection/transporter"
	"github.com/vcentea/linkedin-gateway-sub000/connection/wire"
	"github.com/vcentea/linkedin-gateway-sub000/logger"
)

type Envelope struct {
	tmb      tomb.Tomb
	logger   *logger.Logger
	doneChan chan struct{}

	client  transporter.Transporter
	inbound chan *wire.Envelope
}

func New(
	logger *logger.Logger,
	client transporter.Transporter,
) *Envelope {
	return &Envelope{
		logger:   logger,
		client:   client,
		doneChan: make(chan struct{}),
		inbound:  make(chan *wire.Envelope, 200),
	}
}

func (e *Envelope) Close(reason error) {
	if !e.tmb.Alive() {
		return
	}

	e.tmb.Kill(reason)
	e.tmb.Wait()
}

func (e *Envelope) Err() error {
	return e.tmb.Err()
}

func (e *Envelope) Done() <-chan struct{} {
	return e.doneChan
}

func (e *Envelope) Inbound() <-chan *wire.Envelope {
	return e.inbound
}

func (e *Envelope) CloseDetail() transporter.CloseDetail {
	return e.client.CloseDetail()
}

func (e *Envelope) Connect(
	ctx context.Context,
	targetUrl string,
	headers http.Header,
	params url.Values,
) error {
	// Reset variables in case this is a reconnect
	if !e.tmb.Alive() {
		e.tmb = tomb.Tomb{}
		e.doneChan = make(chan struct{})
	}

	u, err := buildUrl(targetUrl, params)
	if err != nil {
		return err
	}

	e.logger.Infof("Making websocket connection")
	if err := e.client.Dial(u, headers, ctx); err != nil {
		return fmt.Errorf("failed to connect to endpoint %s: %w", u.String(), err)
	}

	// Connection is up; start unwrapping and forwarding inbound frames
	e.tmb.Go(func() error {
		defer e.logger.Info("Envelope processing done")
		defer close(e.doneChan)

		for {
			select {
			case <-e.tmb.Dying(): // death from Close() call
				e.client.Close(e.tmb.Err())
				return nil
			case <-e.client.Done():
				return fmt.Errorf("closed websocket")
			case messageBytes := <-e.client.Inbound():
				if err := e.unwrap(*messageBytes); err != nil {
					e.logger.Errorf("discarding inbound frame: %s", err)
				}
			}
		}
	})
	return nil
}

func (e *Envelope) unwrap(raw []byte) error {
	envelope, err := wire.Decode(raw)
	if err != nil {
		// Protocol errors are logged and discarded; they never close the
		// connection
		return err
	}

	e.inbound <- envelope
	return nil
}

func (e *Envelope) Send(message wire.Message) error {
	messageBytes, err := wire.Encode(message)
	if err != nil {
		return err
	}

	return e.client.Send(messageBytes)
}

// SendRaw writes an already-encoded frame, e.g. one built by
// wire.EncodeRequest.
func (e *Envelope) SendRaw(messageBytes []byte) error {
	return e.client.Send(messageBytes)
}

func buildUrl(serviceUrl string, params url.Values) (*url.URL, error) {
	websocketUrl, err := url.ParseRequestURI(serviceUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gateway service url %s: %w", serviceUrl, err)
	}

	websocketUrl.RawQuery = params.Encode()

	return websocketUrl, nil
}
