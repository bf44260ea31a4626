package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/vcentea/linkedin-gateway-sub000/logger"
)

const (
	httpTimeout = time.Second * 30
)

type HTTPOptions struct {
	Endpoint string
	Body     []byte
	Headers  http.Header
	Params   url.Values

	// Overrides the default client, e.g. to carry a cookie jar
	Client *http.Client
}

type HttpClient struct {
	logger *logger.Logger

	backoffParams *backoff.ExponentialBackOff

	client    *http.Client
	targetUrl string
	body      []byte
	headers   http.Header
	params    url.Values
}

func New(
	logger *logger.Logger,
	serviceUrl string,
	options HTTPOptions,
) (*HttpClient, error) {

	if options.Endpoint != "" {
		combo, err := url.ParseRequestURI(serviceUrl)
		if err != nil {
			return nil, err
		}
		combo.Path = path.Join(combo.Path, options.Endpoint)
		serviceUrl = combo.String()
	} else if _, err := url.ParseRequestURI(serviceUrl); err != nil {
		return nil, err
	}

	if options.Headers == nil {
		options.Headers = http.Header{}
	}

	if options.Params == nil {
		options.Params = url.Values{}
	}

	if options.Client == nil {
		options.Client = &http.Client{
			Timeout: httpTimeout,
		}
	}

	return &HttpClient{
		logger:    logger,
		client:    options.Client,
		targetUrl: serviceUrl,
		body:      options.Body,
		headers:   options.Headers,
		params:    options.Params,
	}, nil
}

// NewWithBackoff builds a client that keeps retrying failed requests on an
// exponential backoff until it gets a 2xx response
func NewWithBackoff(
	logger *logger.Logger,
	serviceUrl string,
	options HTTPOptions,
) (*HttpClient, error) {
	backoffParams := backoff.NewExponentialBackOff()
	backoffParams.MaxInterval = 15 * time.Minute
	backoffParams.MaxElapsedTime = 72 * time.Hour

	client, err := New(logger, serviceUrl, options)
	if err != nil {
		return nil, err
	}

	client.backoffParams = backoffParams
	return client, nil
}

func (h *HttpClient) Post(ctx context.Context) (*http.Response, error) {
	return h.execute(http.MethodPost, ctx)
}

func (h *HttpClient) Patch(ctx context.Context) (*http.Response, error) {
	return h.execute(http.MethodPatch, ctx)
}

func (h *HttpClient) Get(ctx context.Context) (*http.Response, error) {
	return h.execute(http.MethodGet, ctx)
}

// Do executes a request with an arbitrary method
func (h *HttpClient) Do(ctx context.Context, method string) (*http.Response, error) {
	return h.execute(method, ctx)
}

func (h *HttpClient) execute(method string, ctx context.Context) (*http.Response, error) {
	// If there is no backoff, then only execute request once and return
	// whatever the server said, status and all
	if h.backoffParams == nil {
		return h.request(method, ctx)
	}

	// Keep looping through our ticker, waiting for it to tell us when to retry
	ticker := backoff.NewTicker(h.backoffParams)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled before successful http response")
		case _, ok := <-ticker.C:
			if !ok {
				return nil, fmt.Errorf("failed to get successful http response after %s", h.backoffParams.MaxElapsedTime.Round(time.Second))
			}

			response, err := h.request(method, ctx)
			if err == nil && (response.StatusCode < 200 || response.StatusCode >= 300) {
				err = fmt.Errorf("%s request failed with status %s", method, response.Status)
			}

			if err != nil {
				nextRequestTime := h.backoffParams.NextBackOff().Round(time.Second)
				h.logger.Errorf("retrying in %s: %s", nextRequestTime, err)
				continue
			}

			return response, nil
		}
	}
}

func (h *HttpClient) request(method string, ctx context.Context) (*http.Response, error) {
	// Build our Request; the body is re-wrapped per attempt so retries don't
	// send an already-drained reader
	request, err := http.NewRequestWithContext(ctx, method, h.targetUrl, bytes.NewReader(h.body))
	if err != nil {
		return nil, err
	}
	request.Header = h.headers.Clone()

	// Add params to request URL
	request.URL.RawQuery = h.params.Encode()

	response, err := h.client.Do(request)
	if err != nil {
		return response, fmt.Errorf("%s request failed: %w", method, err)
	}

	return response, nil
}
