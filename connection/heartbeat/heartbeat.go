/*
The heartbeat package watches the gateway connection for silent death. While
the connection is open it sends a ping frame at a fixed interval and arms a
pong deadline. Receipt of any inbound frame, not only an explicit pong,
disarms the deadline; a backend busy streaming real data instead of pongs is
very much alive. If the deadline fires with no intervening traffic the
monitor reports the connection dead and the supervisor forces it closed.
*/
package heartbeat

import (
	"sync"
	"time"

	"gopkg.in/tomb.v2"

	"github.com/vcentea/linkedin-gateway-sub000/logger"
)

type Monitor struct {
	logger       *logger.Logger
	pingInterval time.Duration
	pongTimeout  time.Duration

	mu       sync.Mutex
	tmb      *tomb.Tomb
	observed chan struct{}
}

func New(logger *logger.Logger, pingInterval time.Duration, pongTimeout time.Duration) *Monitor {
	return &Monitor{
		logger:       logger,
		pingInterval: pingInterval,
		pongTimeout:  pongTimeout,
	}
}

// Start begins probing. sendPing is invoked every ping interval; onExpired is
// invoked at most once, when a pong deadline passes with no observed traffic.
// Starting an already-running monitor is a no-op.
func (m *Monitor) Start(sendPing func() error, onExpired func(reason error)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tmb != nil && m.tmb.Alive() {
		return
	}

	t := &tomb.Tomb{}
	observed := make(chan struct{}, 1)
	m.tmb = t
	m.observed = observed

	t.Go(func() error {
		return m.probe(t, observed, sendPing, onExpired)
	})
}

// Observe records proof of liveness. Called for every inbound frame of any
// type.
func (m *Monitor) Observe() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tmb == nil || !m.tmb.Alive() {
		return
	}

	select {
	case m.observed <- struct{}{}:
	default:
	}
}

// Stop clears the ping interval and any armed deadline. Safe to call when
// not running.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tmb == nil || !m.tmb.Alive() {
		return
	}

	m.tmb.Kill(nil)
	m.tmb.Wait()
}

func (m *Monitor) probe(t *tomb.Tomb, observed chan struct{}, sendPing func() error, onExpired func(reason error)) error {
	m.logger.Debugf("liveness monitor started: ping every %s, pong deadline %s", m.pingInterval, m.pongTimeout)
	defer m.logger.Debug("liveness monitor stopped")

	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(m.pongTimeout)
	deadline.Stop()
	defer deadline.Stop()

	// a deadline exists iff a ping was sent and nothing has arrived since
	var deadlineC <-chan time.Time

	for {
		select {
		case <-t.Dying():
			return nil
		case <-ticker.C:
			if err := sendPing(); err != nil {
				m.logger.Errorf("failed to send heartbeat ping: %s", err)
			}
			if deadlineC == nil {
				deadline.Reset(m.pongTimeout)
				deadlineC = deadline.C
			}
		case <-observed:
			if deadlineC != nil {
				if !deadline.Stop() {
					<-deadline.C
				}
				deadlineC = nil
			}
		case <-deadlineC:
			onExpired(&PongTimeoutError{Timeout: m.pongTimeout})
			return nil
		}
	}
}
