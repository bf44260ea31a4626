/*
The proxy package executes HTTP calls on behalf of the gateway backend. An
inbound proxy instruction carries everything needed to rebuild the request;
the executor performs it with the locally stored session cookies when asked
to, and always produces exactly one response, even when the call itself
fails. It never retries: the remote caller owns that decision.
*/
package proxy

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/vcentea/linkedin-gateway-sub000/connection/wire"
	"github.com/vcentea/linkedin-gateway-sub000/httpclient"
	"github.com/vcentea/linkedin-gateway-sub000/logger"
)

// Request headers the browser owns; forwarding them would let a remote caller
// forge connection-level state
var forbiddenRequestHeaders = map[string]bool{
	"host":              true,
	"connection":        true,
	"content-length":    true,
	"cookie":            true,
	"origin":            true,
	"referer":           true,
	"transfer-encoding": true,
	"upgrade":           true,
}

// Response headers safe to echo back to the remote caller
var allowedResponseHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Date",
	"ETag",
	"Last-Modified",
	"Cache-Control",
	"Location",
	"Content-Language",
	"Expires",
	"Vary",
}

type Executor struct {
	logger *logger.Logger

	// Carries the stored session's cookie jar; requests without credentials
	// use the bare client instead
	sessionClient *http.Client
	bareClient    *http.Client
}

func NewExecutor(logger *logger.Logger, sessionClient *http.Client) *Executor {
	if sessionClient == nil {
		sessionClient = &http.Client{}
	}

	return &Executor{
		logger:        logger,
		sessionClient: sessionClient,
		bareClient:    &http.Client{},
	}
}

// Execute performs the proxied call and always returns a response payload:
// either the upstream's answer or an error report the remote caller can act
// on. A nil error path is guaranteed; network failure is data here, not an
// error.
func (e *Executor) Execute(ctx context.Context, request wire.ProxyRequest) wire.ProxyResponse {
	requestId := request.CorrelationId()

	client := e.bareClient
	if request.IncludeCredentials {
		client = e.sessionClient
	}

	httpClient, err := httpclient.New(e.logger, request.Url, httpclient.HTTPOptions{
		Body:    []byte(request.Body),
		Headers: e.buildRequestHeaders(request.Headers),
		Client:  client,
	})
	if err != nil {
		return wire.NewProxyErrorResponse(requestId, fmt.Errorf("invalid proxy request url %s: %w", request.Url, err))
	}

	method := strings.ToUpper(request.Method)
	if method == "" {
		method = http.MethodGet
	}

	httpResponse, err := httpClient.Do(ctx, method)
	if err != nil {
		return wire.NewProxyErrorResponse(requestId, fmt.Errorf("proxied %s request failed: %w", method, err))
	}
	defer httpResponse.Body.Close()

	bodyBytes, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return wire.NewProxyErrorResponse(requestId, fmt.Errorf("failed to read proxied response body: %w", err))
	}

	response := wire.NewProxyResponse(requestId)
	response.StatusCode = httpResponse.StatusCode
	response.Headers = e.buildResponseHeaders(httpResponse.Header)
	response.Body, response.Encoding = encodeBody(bodyBytes, request.ResponseEncoding)

	return response
}

// buildRequestHeaders copies the caller's headers minus the ones the browser
// session owns. Cookies in particular never come from the remote caller; the
// session client's jar supplies them when credentials were requested.
func (e *Executor) buildRequestHeaders(requested map[string]string) http.Header {
	headers := http.Header{}
	for key, value := range requested {
		if forbiddenRequestHeaders[strings.ToLower(key)] {
			e.logger.Debugf("dropping forbidden request header %s", key)
			continue
		}
		headers.Set(key, value)
	}
	return headers
}

func (e *Executor) buildResponseHeaders(upstream http.Header) map[string]string {
	headers := make(map[string]string)
	for _, key := range allowedResponseHeaders {
		if value := upstream.Get(key); value != "" {
			headers[key] = value
		}
	}
	return headers
}

// encodeBody honors the requested encoding; when none was requested, binary
// payloads fall back to base64 so they survive the json envelope
func encodeBody(body []byte, requestedEncoding string) (string, string) {
	switch requestedEncoding {
	case wire.EncodingBase64:
		return base64.StdEncoding.EncodeToString(body), wire.EncodingBase64
	case wire.EncodingText:
		return string(body), wire.EncodingText
	default:
		if utf8.Valid(body) {
			return string(body), wire.EncodingText
		}
		return base64.StdEncoding.EncodeToString(body), wire.EncodingBase64
	}
}
