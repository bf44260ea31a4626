package websocket

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vcentea/linkedin-gateway-sub000/logger"
)

type MockWebsocketServer struct {
	logger   *logger.Logger
	listener net.Listener

	connLock sync.Mutex
	conn     *websocket.Conn

	Addr          string
	ReceivedBytes chan []byte
}

// Adapted from: https://golangdocs.com/golang-gorilla-websockets
func NewMockWebsocketServer(logger *logger.Logger) *MockWebsocketServer {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		logger.Errorf("failed to setup listener")
	}

	mockServer := &MockWebsocketServer{
		logger:        logger,
		listener:      listener,
		Addr:          fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port),
		ReceivedBytes: make(chan []byte, 1),
	}

	go func() {
		http.Serve(mockServer.listener, mockServer)
	}()

	return mockServer
}

func (m *MockWebsocketServer) Shutdown() {
	m.listener.Close()
}

// WriteToClient pushes a frame down to the connected client.
func (m *MockWebsocketServer) WriteToClient(message []byte) error {
	m.connLock.Lock()
	defer m.connLock.Unlock()

	if m.conn == nil {
		return fmt.Errorf("no client connected")
	}
	return m.conn.WriteMessage(websocket.TextMessage, message)
}

// CloseClean performs the websocket close handshake with the client.
func (m *MockWebsocketServer) CloseClean(reason string) {
	m.connLock.Lock()
	defer m.connLock.Unlock()

	if m.conn == nil {
		return
	}
	closeMessage := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	m.conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(time.Second))
	m.conn.Close()
}

// CloseDirty drops the client connection without a close handshake.
func (m *MockWebsocketServer) CloseDirty() {
	m.connLock.Lock()
	defer m.connLock.Unlock()

	if m.conn != nil {
		m.conn.Close()
	}
}

func (m *MockWebsocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}

	// Upgrade our raw HTTP connection to a websocket based one
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Errorf("Error during connection upgradation: %s", err)
		return
	}

	m.connLock.Lock()
	m.conn = conn
	m.connLock.Unlock()

	defer conn.Close()

	// The event loop
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		m.ReceivedBytes <- message

		err = conn.WriteMessage(messageType, message)
		if err != nil {
			m.logger.Errorf("Error during message writing: %s", err)
			return
		}
	}
}
