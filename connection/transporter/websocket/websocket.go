/*
The Websocket package establishes and ferries raw bytes across the underlying
websocket connection. In terms of the overall connection layer architecture,
this package is at the lowest layer, providing the raw bytes to the protocol
handler for it to parse and handle. It also records how each connection
ended (close code, reason, clean/unclean) for the supervisor's status
broadcasts.
*/
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"
	"gopkg.in/tomb.v2"

	"github.com/vcentea/linkedin-gateway-sub000/connection/transporter"
	"github.com/vcentea/linkedin-gateway-sub000/logger"
)

const (
	HttpsOnlyWebsocketScheme = "wss"
	HttpWebsocketScheme      = "ws"

	closeHandshakeTimeout = time.Second
)

var WebsocketUrlScheme = HttpsOnlyWebsocketScheme

type Websocket struct {
	tmb    tomb.Tomb
	logger *logger.Logger
	client *gorilla.Conn

	// Received messages
	inbound chan *[]byte

	// Serializes writes; gorilla connections allow one concurrent writer
	// Ref: https://github.com/gorilla/websocket/issues/119
	socketLock sync.Mutex

	detailLock  sync.Mutex
	closeDetail transporter.CloseDetail
}

func New(logger *logger.Logger) transporter.Transporter {
	return &Websocket{
		logger:  logger,
		inbound: make(chan *[]byte, 200),
	}
}

func (w *Websocket) Close(reason error) {
	if w.tmb.Alive() {
		w.logger.Infof("Websocket connection closing because: %s", reason)

		// attempt a clean close handshake so the server sees an intentional exit
		w.socketLock.Lock()
		deadline := time.Now().Add(closeHandshakeTimeout)
		closeMessage := gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, reason.Error())
		w.client.WriteControl(gorilla.CloseMessage, closeMessage, deadline)
		w.socketLock.Unlock()

		w.setCloseDetail(transporter.CloseDetail{
			Code:   gorilla.CloseNormalClosure,
			Reason: reason.Error(),
			Clean:  true,
		})

		w.client.Close()

		w.tmb.Kill(reason)
		w.tmb.Wait()
	} else {
		w.logger.Infof("Close was called while in a dying state")
	}
}

func (w *Websocket) Done() <-chan struct{} {
	return w.tmb.Dead()
}

func (w *Websocket) Err() error {
	return w.tmb.Err()
}

func (w *Websocket) Inbound() <-chan *[]byte {
	return w.inbound
}

func (w *Websocket) CloseDetail() transporter.CloseDetail {
	w.detailLock.Lock()
	defer w.detailLock.Unlock()
	return w.closeDetail
}

func (w *Websocket) Send(message []byte) error {
	if w.client == nil {
		return fmt.Errorf("cannot send message because websocket is closed")
	}

	w.socketLock.Lock()
	defer w.socketLock.Unlock()
	return w.client.WriteMessage(gorilla.TextMessage, message)
}

func (w *Websocket) Dial(connUrl *url.URL, headers http.Header, ctx context.Context) (err error) {
	// Make sure url scheme is correct
	if connUrl.Scheme != HttpWebsocketScheme {
		connUrl.Scheme = WebsocketUrlScheme
	}

	if w.client, _, err = gorilla.DefaultDialer.DialContext(ctx, connUrl.String(), headers); err != nil {
		return fmt.Errorf("error dialing websocket: %w", err)
	}

	// Reinitialize our variables in case this is post death
	w.tmb = tomb.Tomb{}
	w.setCloseDetail(transporter.CloseDetail{})

	w.tmb.Go(w.receive)

	return nil
}

func (w *Websocket) receive() error {
	defer w.logger.Infof("Websocket connection closed")
	w.logger.Infof("Websocket connection started")

	for {
		// Read incoming message
		if _, rawMessage, err := w.client.ReadMessage(); !w.tmb.Alive() {
			return nil
		} else if err != nil {
			w.recordCloseError(err)
			return err
		} else {
			w.inbound <- &rawMessage
		}
	}
}

func (w *Websocket) recordCloseError(err error) {
	if closeErr, ok := err.(*gorilla.CloseError); ok {
		w.setCloseDetail(transporter.CloseDetail{
			Code:   closeErr.Code,
			Reason: closeErr.Text,
			Clean:  closeErr.Code == gorilla.CloseNormalClosure,
		})

		if closeErr.Code == gorilla.CloseNormalClosure {
			w.logger.Info("Websocket connection closed normally")
		} else {
			w.logger.Error(err)
		}
	} else {
		w.setCloseDetail(transporter.CloseDetail{
			Code:   gorilla.CloseAbnormalClosure,
			Reason: err.Error(),
			Clean:  false,
		})
		w.logger.Error(err)
	}
}

func (w *Websocket) setCloseDetail(detail transporter.CloseDetail) {
	w.detailLock.Lock()
	defer w.detailLock.Unlock()
	w.closeDetail = detail
}
