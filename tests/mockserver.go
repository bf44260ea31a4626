/*
Package tests holds helpers shared by suites that need a live HTTP origin to
call: a stub server standing in for the upstream the agent proxies to.
*/
package tests

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
)

type MockServer struct {
	server   *httptest.Server
	requests int64

	Addr string
}

type MockHandler struct {
	Endpoint    string
	HandlerFunc http.HandlerFunc
}

// FixedResponse builds a handler that answers every request with the given
// status and body
func FixedResponse(endpoint string, statusCode int, body string) MockHandler {
	return MockHandler{
		Endpoint: endpoint,
		HandlerFunc: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(statusCode)
			w.Write([]byte(body))
		},
	}
}

func NewMockServer(handlers ...MockHandler) *MockServer {
	m := &MockServer{}

	mux := http.NewServeMux()
	for _, handler := range handlers {
		mux.HandleFunc(handler.Endpoint, handler.HandlerFunc)
	}

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&m.requests, 1)
		mux.ServeHTTP(w, r)
	}))
	m.Addr = m.server.URL

	return m
}

// NumRequests reports how many requests the server has answered so far
func (m *MockServer) NumRequests() int {
	return int(atomic.LoadInt64(&m.requests))
}

func (m *MockServer) Close() {
	m.server.Close()
}
