/*
The gatewaychannel is the consumer of the backend's non-correlated
instructions. It subscribes to the connection and dispatches each inbound
envelope by type: proxy instructions go to the proxy executor, session
refreshes are answered with our current identity, notifications are logged.
Every proxy instruction is answered, even when execution fails; the remote
caller must never be left waiting on a failure we could report.
*/
package gatewaychannel

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/tomb.v2"

	"github.com/vcentea/linkedin-gateway-sub000/connection"
	"github.com/vcentea/linkedin-gateway-sub000/connection/wire"
	"github.com/vcentea/linkedin-gateway-sub000/logger"
)

const closeTimeout = 10 * time.Second

type ProxyExecutor interface {
	Execute(ctx context.Context, request wire.ProxyRequest) wire.ProxyResponse
}

type SessionIdentity interface {
	InstanceId(ctx context.Context) (string, error)
	CurrentUser() string
}

type GatewayChannel struct {
	conn   connection.Connection
	logger *logger.Logger
	tmb    tomb.Tomb
	id     string

	executor ProxyExecutor
	identity SessionIdentity

	// accepts input from a connection
	inputChan chan wire.Envelope

	// notifies anyone listening of significant-but-non-fatal runtime errors
	runtimeErrChan chan error
}

func Start(logger *logger.Logger,
	id string,
	conn connection.Connection,
	executor ProxyExecutor,
	identity SessionIdentity,
) *GatewayChannel {

	channel := &GatewayChannel{
		conn:           conn,
		logger:         logger,
		id:             id,
		executor:       executor,
		identity:       identity,
		inputChan:      make(chan wire.Envelope, 25),
		runtimeErrChan: make(chan error),
	}

	conn.Subscribe(id, channel)

	// Set up our handler to deal with incoming messages
	channel.tmb.Go(func() error {
		// Make a context and tie it in with our tomb to use for processing messages
		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			select {
			case <-ctx.Done():
			case <-channel.tmb.Dying():
				cancel()
			}
		}()

		for {
			select {
			case <-channel.tmb.Dying():
				return nil
			case envelope := <-channel.inputChan:
				// Process each instruction in its own thread
				go func() {
					if err := channel.processInput(envelope, ctx); err != nil {
						logger.Error(err)

						select {
						case channel.runtimeErrChan <- err:
						default:
						}
					}
				}()
			case <-conn.Done():
				return fmt.Errorf("connection closed with err: %s", conn.Err())
			}
		}
	})

	return channel
}

func (g *GatewayChannel) Close(reason error) {
	if g.tmb.Alive() {
		g.logger.Infof("Gateway channel closing because: %s", reason)

		g.tmb.Kill(reason)

		// we need to provide a guarantee that this closes even if a proxied
		// call is stuck
		select {
		case <-g.tmb.Dead():
		case <-time.After(closeTimeout):
			g.logger.Infof("Timed out after %s waiting for channel to close", closeTimeout.String())
		}
	} else {
		g.logger.Infof("Close was called while in a dying state")
	}
}

func (g *GatewayChannel) Receive(envelope wire.Envelope) {
	g.inputChan <- envelope
}

func (g *GatewayChannel) Done() <-chan struct{} {
	return g.tmb.Dead()
}

func (g *GatewayChannel) Err() error {
	return g.tmb.Err()
}

// used to alert anyone who's listening that we encountered a significant-but-not-fatal error
func (g *GatewayChannel) RuntimeErr() <-chan error {
	return g.runtimeErrChan
}

// This is our main process function where incoming envelopes from the
// connection will be processed
func (g *GatewayChannel) processInput(envelope wire.Envelope, ctx context.Context) error {
	g.logger.Debugf("gateway channel received %s message", envelope.Type)

	switch envelope.Type {
	case wire.ProxyRequestMessage:
		var proxyRequest wire.ProxyRequest
		if err := envelope.Payload(&proxyRequest); err != nil {
			// The instruction was correlated; answer with the parse failure so
			// the remote caller isn't left hanging
			response := wire.NewProxyErrorResponse(envelope.RequestId, fmt.Errorf("malformed proxy request: %w", err))
			if sendErr := g.conn.Send(response); sendErr != nil {
				return fmt.Errorf("failed to reject malformed proxy request: %s", sendErr)
			}
			return fmt.Errorf("malformed proxy request: %w", err)
		}

		response := g.executor.Execute(ctx, proxyRequest)
		if err := g.conn.Send(response); err != nil {
			return fmt.Errorf("failed to send proxy response: %s", err)
		}
	case wire.SessionRefresh:
		instanceId, err := g.identity.InstanceId(ctx)
		if err != nil {
			return fmt.Errorf("cannot answer session refresh: %w", err)
		}

		info := wire.NewSessionInfo(envelope.RequestId, instanceId, g.identity.CurrentUser())
		if err := g.conn.Send(info); err != nil {
			return fmt.Errorf("failed to send session info: %s", err)
		}
	case wire.Notification:
		var notification wire.NotificationMessage
		if err := envelope.Payload(&notification); err != nil {
			return fmt.Errorf("malformed notification: %w", err)
		}
		g.logger.Infof("Notification from gateway [%s]: %s", notification.Level, notification.Message)
	default:
		// Forward compatibility: new instruction types are discarded, not fatal
		g.logger.Debugf("discarding unrecognized message type: %s", envelope.Type)
	}

	return nil
}
