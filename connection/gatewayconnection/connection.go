/*
The gatewayconnection package supervises the persistent duplex connection
between this agent and the gateway backend. It owns the connection state
machine, the reconnect loop, the liveness monitor, and the table of in-flight
correlated requests. Everything above it sees a single long-lived Connection;
everything below it is a disposable websocket session that may die and be
re-dialed at any time.
*/
package gatewayconnection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"gopkg.in/tomb.v2"

	"github.com/vcentea/linkedin-gateway-sub000/connection"
	"github.com/vcentea/linkedin-gateway-sub000/connection/broker"
	"github.com/vcentea/linkedin-gateway-sub000/connection/heartbeat"
	"github.com/vcentea/linkedin-gateway-sub000/connection/messenger"
	"github.com/vcentea/linkedin-gateway-sub000/connection/pending"
	"github.com/vcentea/linkedin-gateway-sub000/connection/status"
	"github.com/vcentea/linkedin-gateway-sub000/connection/wire"
	"github.com/vcentea/linkedin-gateway-sub000/logger"
)

const (
	// How long a graceful disconnect waits for in-flight requests to resolve
	// before tearing the session down anyway
	drainPollInterval    = 100 * time.Millisecond
	drainAbsoluteTimeout = 10 * time.Second
)

type Config struct {
	ServerUrl string

	PingInterval time.Duration
	PongTimeout  time.Duration

	// Used when a request is sent with no explicit timeout
	RequestTimeout time.Duration

	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration

	// Zero means retry forever
	ReconnectMaxAttempts int
}

type IdentityProvider interface {
	InstanceId(ctx context.Context) (string, error)
	CurrentUser() string
}

type GatewayConnection struct {
	tmb      tomb.Tomb
	logger   *logger.Logger
	doneChan chan struct{}

	config   Config
	identity IdentityProvider

	// This is our underlying connection where we send and receive envelopes
	client messenger.Messenger

	// A connection broker, allows us to narrowcast non-correlated envelopes
	// to subscribed channels
	broker *broker.Broker

	// In-flight correlated requests awaiting a response
	pending *pending.Table

	monitor     *heartbeat.Monitor
	broadcaster *status.Broadcaster

	stateLock sync.RWMutex
	state     status.State
	graceful  bool

	// Consecutive failed dial attempts; reset whenever a session opens
	attempts int
}

func New(
	logger *logger.Logger,
	config Config,
	identity IdentityProvider,
	client messenger.Messenger,
	broadcaster *status.Broadcaster,
) *GatewayConnection {
	return &GatewayConnection{
		logger:      logger,
		doneChan:    make(chan struct{}),
		config:      config,
		identity:    identity,
		client:      client,
		broker:      broker.New(),
		pending:     pending.NewTable(),
		monitor:     heartbeat.New(logger.GetComponentLogger("Heartbeat"), config.PingInterval, config.PongTimeout),
		broadcaster: broadcaster,
		state:       status.Idle,
	}
}

// Connect starts the supervisor. It is idempotent: calling it while a session
// is being established or is already open does nothing. After an abandoned or
// manually disconnected connection it starts a fresh supervisor with a reset
// attempt counter.
func (g *GatewayConnection) Connect() error {
	g.stateLock.Lock()

	switch g.state {
	case status.Connecting, status.Open, status.Closing:
		g.stateLock.Unlock()
		return nil
	}

	// Without an identity the gateway would reject us, so there is no point
	// dialing at all
	instanceId, err := g.identity.InstanceId(context.Background())
	if err != nil {
		g.stateLock.Unlock()

		ierr := &connection.IdentityError{InnerError: err}
		g.logger.Error(ierr)
		g.broadcaster.Publish(status.Status{State: status.Idle, Detail: ierr.Error()})
		return ierr
	}

	// Reset variables in case this is a restart after abandon or disconnect
	if !g.tmb.Alive() {
		g.tmb = tomb.Tomb{}
		g.doneChan = make(chan struct{})
	}
	g.attempts = 0
	g.graceful = false
	g.state = status.Connecting
	g.stateLock.Unlock()

	g.broadcaster.Publish(status.Status{State: status.Connecting, Detail: "connecting"})

	g.tmb.Go(func() error {
		return g.supervise(instanceId)
	})
	return nil
}

// Disconnect tears the connection down and suppresses the reconnect loop.
// A graceful disconnect first waits for in-flight requests to resolve and
// performs the websocket close handshake; an ungraceful one drops the session
// immediately. Safe to call in any state.
func (g *GatewayConnection) Disconnect(graceful bool) {
	g.stateLock.Lock()
	if !g.tmb.Alive() {
		g.stateLock.Unlock()
		return
	}
	g.graceful = graceful
	g.stateLock.Unlock()

	g.tmb.Kill(&connection.ManualDisconnectError{})
	g.tmb.Wait()
	g.logger.Infof("connection done")
}

func (g *GatewayConnection) Done() <-chan struct{} {
	return g.doneChan
}

func (g *GatewayConnection) Err() error {
	return g.tmb.Err()
}

func (g *GatewayConnection) Ready() bool {
	return g.State() == status.Open
}

func (g *GatewayConnection) State() status.State {
	g.stateLock.RLock()
	defer g.stateLock.RUnlock()
	return g.state
}

// Subscribe adds a channel to the broker for forwarding non-correlated
// inbound envelopes
func (g *GatewayConnection) Subscribe(id string, channel broker.IChannel) {
	g.broker.Subscribe(id, channel)
}

// Send delivers a fire-and-forget message. It fails fast when no session is
// open instead of queueing.
func (g *GatewayConnection) Send(message wire.Message) error {
	if !g.Ready() {
		return fmt.Errorf("cannot send %s message while connection is %s", message.MessageType(), g.State())
	}
	return g.client.Send(message)
}

// SendRequest sends a correlated request and returns a channel that will
// receive exactly one response: the gateway's reply, a timeout rejection, or
// a closed-connection rejection. Responses may arrive in any order relative
// to other requests.
func (g *GatewayConnection) SendRequest(messageType wire.MessageType, payload any, timeout time.Duration) (<-chan pending.Response, error) {
	_, resultChan, err := g.sendRequest(messageType, payload, timeout)
	return resultChan, err
}

// Request is the blocking wrapper around SendRequest
func (g *GatewayConnection) Request(ctx context.Context, messageType wire.MessageType, payload any, timeout time.Duration) (*wire.Envelope, error) {
	requestId, resultChan, err := g.sendRequest(messageType, payload, timeout)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		g.pending.Remove(requestId)
		return nil, ctx.Err()
	case response := <-resultChan:
		if response.Err != nil {
			return nil, response.Err
		}
		return response.Envelope, nil
	}
}

func (g *GatewayConnection) sendRequest(messageType wire.MessageType, payload any, timeout time.Duration) (string, <-chan pending.Response, error) {
	if !g.Ready() {
		return "", nil, fmt.Errorf("cannot send %s request while connection is %s", messageType, g.State())
	}

	if timeout <= 0 {
		timeout = g.config.RequestTimeout
	}

	requestId := pending.NewRequestId()
	resultChan, err := g.pending.Register(requestId, timeout)
	if err != nil {
		return "", nil, err
	}

	raw, err := wire.EncodeRequest(messageType, requestId, payload)
	if err != nil {
		g.pending.Remove(requestId)
		return "", nil, fmt.Errorf("failed to encode %s request: %w", messageType, err)
	}

	if err := g.client.SendRaw(raw); err != nil {
		g.pending.Remove(requestId)
		return "", nil, err
	}

	return requestId, resultChan, nil
}

// supervise runs one connect-session-close cycle per iteration until the
// connection is manually disconnected or abandoned
func (g *GatewayConnection) supervise(instanceId string) error {
	g.logger.Infof("Connection supervisor has started")
	defer g.logger.Infof("Connection supervisor has stopped")
	defer close(g.doneChan)

	for {
		if err := g.dial(instanceId); err != nil {
			var maxAttempts *connection.MaxAttemptsError
			if errors.As(err, &maxAttempts) {
				g.broker.Close(err)
				g.setState(status.Abandoned, err.Error())
				return err
			}

			// Manual disconnect while dialing
			g.broker.Close(err)
			g.setState(status.Idle, "disconnected")
			return nil
		}

		g.stateLock.Lock()
		g.attempts = 0
		g.stateLock.Unlock()
		g.setState(status.Open, "connected")

		g.monitor.Start(g.sendPing, g.onLivenessExpired)
		g.announceSession(instanceId)

		reason := g.runOpenSession()

		g.monitor.Stop()
		g.setState(status.Closing, reason.Error())

		// Every in-flight request gets rejected exactly once; nothing survives
		// into the next session
		g.pending.RejectAll(&connection.ConnectionClosedError{Reason: reason.Error()})

		var manual *connection.ManualDisconnectError
		if errors.As(reason, &manual) {
			// Terminal shutdown; subscribed channels are told so they can wind
			// down instead of waiting on a connection that will never come back
			g.broker.Close(reason)
			g.setState(status.Idle, "disconnected")
			return nil
		}

		g.logger.Infof("Lost connection to gateway, reconnecting...")
		g.setState(status.Connecting, fmt.Sprintf("reconnecting: %s", reason))
	}
}

// dial attempts to establish a websocket session, retrying on an exponential
// backoff until it succeeds, the attempt ceiling is hit, or the supervisor is
// killed
func (g *GatewayConnection) dial(instanceId string) error {
	backoffParams := backoff.NewExponentialBackOff()
	backoffParams.InitialInterval = g.config.ReconnectInitialDelay
	backoffParams.MaxInterval = g.config.ReconnectMaxDelay
	backoffParams.MaxElapsedTime = 0 // the attempt ceiling governs, not wall time

	// Make a context and tie it in with our tomb and then send it everywhere
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-g.tmb.Dying():
			cancel()
		}
	}()

	params := url.Values{}
	params.Set("instance_id", instanceId)

	ticker := backoff.NewTicker(backoffParams)
	defer ticker.Stop()

	for {
		select {
		case <-g.tmb.Dying():
			return g.tmb.Err()
		case <-ticker.C:
			g.stateLock.Lock()
			g.attempts++
			attempt := g.attempts
			g.stateLock.Unlock()

			if g.config.ReconnectMaxAttempts > 0 && attempt > g.config.ReconnectMaxAttempts {
				return &connection.MaxAttemptsError{Attempts: attempt - 1}
			}

			if err := g.client.Connect(ctx, g.config.ServerUrl, http.Header{}, params); err != nil {
				g.logger.Infof("Failed to connect to %s retrying in %s: %s", g.config.ServerUrl, backoffParams.NextBackOff().Round(time.Second), err)
				continue
			}

			g.logger.Info("Connection successful!")
			return nil
		}
	}
}

// runOpenSession pumps inbound envelopes until the session ends, either from
// above (manual disconnect) or from below (websocket death). The returned
// error is the close reason.
func (g *GatewayConnection) runOpenSession() error {
	for {
		select {
		case <-g.tmb.Dying():
			if g.isGraceful() {
				g.drainPending()
			}
			g.client.Close(g.tmb.Err())
			return g.tmb.Err()
		case <-g.client.Done():
			detail := g.client.CloseDetail()
			if detail.Clean {
				return fmt.Errorf("gateway closed the connection: %s", detail.Reason)
			}
			return fmt.Errorf("websocket died uncleanly (code %d): %s", detail.Code, detail.Reason)
		case envelope := <-g.client.Inbound():
			// Any inbound traffic proves the peer is alive, not just pongs
			g.monitor.Observe()
			g.route(envelope)
		}
	}
}

func (g *GatewayConnection) route(envelope *wire.Envelope) {
	switch envelope.Type {
	case wire.HeartbeatPing:
		// The gateway probes us too; answer directly so channel consumers
		// never see liveness traffic
		if err := g.client.Send(wire.NewPong(envelope.RequestId)); err != nil {
			g.logger.Errorf("failed to answer gateway ping: %s", err)
		}
	case wire.HeartbeatPong:
		// Already observed by the monitor
	default:
		if envelope.RequestId != "" && g.pending.Resolve(envelope.RequestId, envelope) {
			return
		}

		// Non-correlated instruction from the gateway; hand it to whoever
		// subscribed
		g.broker.Narrowcast(*envelope)
	}
}

// announceSession reports our identity to the gateway at the start of every
// session
func (g *GatewayConnection) announceSession(instanceId string) {
	info := wire.NewSessionInfo("", instanceId, g.identity.CurrentUser())
	if err := g.client.Send(info); err != nil {
		g.logger.Errorf("failed to announce session info: %s", err)
	}
}

func (g *GatewayConnection) sendPing() error {
	return g.client.Send(wire.NewPing())
}

func (g *GatewayConnection) onLivenessExpired(reason error) {
	g.logger.Errorf("liveness check failed: %s", reason)

	// Drop the session from below; the supervisor notices the dead client and
	// runs the normal reconnect path
	g.client.Close(reason)
}

// drainPending gives in-flight requests a chance to resolve before a graceful
// teardown. The session is still up, so inbound envelopes keep being routed;
// an answer already on the wire reaches its caller instead of timing out.
func (g *GatewayConnection) drainPending() {
	g.logger.Infof("Entering endgame for connection")
	absoluteTimeout := time.NewTimer(drainAbsoluteTimeout)
	defer absoluteTimeout.Stop()

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		if g.pending.IsEmpty() {
			return
		}

		select {
		case envelope := <-g.client.Inbound():
			g.monitor.Observe()
			g.route(envelope)
		case <-g.client.Done():
			return
		case <-ticker.C:
			// requests also leave the table by timing out
		case <-absoluteTimeout.C:
			g.logger.Errorf("timed out waiting for %d in-flight requests to resolve", g.pending.Len())
			return
		}
	}
}

func (g *GatewayConnection) isGraceful() bool {
	g.stateLock.RLock()
	defer g.stateLock.RUnlock()
	return g.graceful
}

func (g *GatewayConnection) setState(state status.State, detail string) {
	g.stateLock.Lock()
	g.state = state
	g.stateLock.Unlock()

	g.broadcaster.Publish(status.Status{
		Connected: state == status.Open,
		State:     state,
		Detail:    detail,
	})
}
