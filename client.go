package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is a resilient HTTP client for the user API. It injects the
// bearer token, bounds every attempt with a timeout, retries transient
// failures with exponential backoff, and normalizes every failure into a
// [*Error]. Construct it with [New], then call [Client.Connect] before
// issuing requests.
//
// A Client is safe for concurrent use after Connect. Concurrent requests
// are independent; callers needing ordering must sequence calls themselves.
type Client struct {
	baseURL string
	options *Options

	mu        sync.Mutex
	rc        *resty.Client
	connected bool

	// requestInterceptors is the effective chain, rebuilt by Connect so
	// reconnecting never accumulates duplicate interceptors.
	requestInterceptors []RequestInterceptor
}

// New creates a client for the API at baseURL. Invalid option values are
// silently ignored; the full option set is validated by [Client.Connect].
func New(baseURL string, opts ...Option) *Client {
	options := newClientOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Client{
		baseURL: baseURL,
		options: options,
	}
}

// Connect validates the configuration, builds the underlying transport and
// pings the health endpoint. Calling Connect on a connected client is a
// no-op.
func (c *Client) Connect(ctx context.Context) error {
	if c == nil {
		return errors.New("client is nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	if c.baseURL == "" {
		return errors.New("base URL must be set")
	}

	if err := c.options.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	rc := resty.New().
		SetBaseURL(c.baseURL).
		SetHeaders(c.options.requestHeaders)

	chain := c.options.requestInterceptors

	switch {
	case c.options.basicAuthUsername != "":
		rc.SetBasicAuth(c.options.basicAuthUsername, c.options.basicAuthPassword)
	case c.options.authToken != "":
		if c.options.authScheme != "" {
			rc.SetAuthScheme(c.options.authScheme)
		}
		rc.SetAuthToken(c.options.authToken)
	case c.options.session != nil:
		// The session interceptor runs first so later interceptors see
		// the Authorization header.
		chain = append(
			[]RequestInterceptor{AuthTokenInterceptor(c.options.session)},
			chain...,
		)
	}

	c.requestInterceptors = chain

	c.rc = rc

	if err := c.ping(ctx); err != nil {
		return err
	}

	c.connected = true
	return nil
}

// ping performs a single health check without retries.
func (c *Client) ping(ctx context.Context) error {
	endpoint, ok := c.options.endpoints[EndpointHealth]
	if !ok {
		return fmt.Errorf("no %q endpoint configured", EndpointHealth)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.options.timeout)
	defer cancel()

	resp, err := c.rc.R().SetContext(pingCtx).Get(endpoint.Path)
	if err != nil {
		return fmt.Errorf("failed to ping user API: %w", err)
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("failed to ping user API: status %d", resp.StatusCode())
	}

	return nil
}

// Close releases idle connections held by the transport. The client can be
// reconnected afterwards.
func (c *Client) Close() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rc != nil {
		c.rc.GetClient().CloseIdleConnections()
	}
	c.connected = false
}

// Do performs one logical request and decodes the JSON response body into
// out, which may be nil when the caller discards the body. All failures
// are classified: the returned error is always a [*Error].
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	if c == nil {
		return errors.New("client is nil")
	}

	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return errors.New("client not connected - call Connect() first")
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}

	if out == nil || len(resp.Body) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &Error{
			Kind:    KindUnknown,
			Message: fmt.Sprintf("decoding response: %v", err),
			cause:   err,
		}
	}

	return nil
}

// Get issues a GET request to the named endpoint.
func (c *Client) Get(ctx context.Context, endpoint string, out any, opts ...RequestOption) error {
	return c.Do(ctx, buildRequest(http.MethodGet, endpoint, nil, opts), out)
}

// Post issues a POST request with a JSON body to the named endpoint.
func (c *Client) Post(ctx context.Context, endpoint string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, buildRequest(http.MethodPost, endpoint, body, opts), out)
}

// Put issues a PUT request with a JSON body to the named endpoint.
func (c *Client) Put(ctx context.Context, endpoint string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, buildRequest(http.MethodPut, endpoint, body, opts), out)
}

// Patch issues a PATCH request with a JSON body to the named endpoint.
func (c *Client) Patch(ctx context.Context, endpoint string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, buildRequest(http.MethodPatch, endpoint, body, opts), out)
}

// Delete issues a DELETE request to the named endpoint.
func (c *Client) Delete(ctx context.Context, endpoint string, out any, opts ...RequestOption) error {
	return c.Do(ctx, buildRequest(http.MethodDelete, endpoint, nil, opts), out)
}

// PostForm issues a multipart POST to the named endpoint. The JSON content
// type is dropped so the transport sets the multipart boundary itself.
func (c *Client) PostForm(ctx context.Context, endpoint string, fields map[string]string, files []FormFile, out any, opts ...RequestOption) error {
	req := buildRequest(http.MethodPost, endpoint, nil, opts)
	req.FormData = fields
	req.Files = files
	return c.Do(ctx, req, out)
}

func buildRequest(method, endpoint string, body any, opts []RequestOption) *Request {
	req := &Request{
		Method:   method,
		Endpoint: endpoint,
		Body:     body,
	}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// do runs the attempt loop for one logical request: resolve the endpoint,
// attempt with per-attempt timeout, retry with backoff while the policy
// allows, then classify and hand terminal failures to the error chain.
func (c *Client) do(ctx context.Context, req *Request) (*Response, error) {
	endpoint, ok := c.options.endpoints[req.Endpoint]
	if !ok {
		return nil, c.terminate(req, &Error{
			Kind:    KindUnknown,
			Message: fmt.Sprintf("unknown endpoint %q", req.Endpoint),
		})
	}

	path, err := endpoint.resolve(req.PathParams)
	if err != nil {
		return nil, c.terminate(req, &Error{
			Kind:    KindUnknown,
			Message: fmt.Sprintf("resolving endpoint %q: %v", req.Endpoint, err),
			cause:   err,
		})
	}

	var (
		lastResp *resty.Response
		lastErr  error
	)

	for attempt := 1; ; attempt++ {
		lastResp, lastErr = c.attempt(ctx, req, path)

		if lastErr == nil && lastResp.IsSuccess() {
			resp := &Response{
				StatusCode: lastResp.StatusCode(),
				Header:     lastResp.Header(),
			}
			// 204 resolves to an empty result, never an error.
			if lastResp.StatusCode() != http.StatusNoContent {
				resp.Body = lastResp.Body()
			}

			for _, interceptor := range c.options.responseInterceptors {
				if err := interceptor.Fn(resp); err != nil {
					return nil, c.terminate(req, &Error{
						Kind:    KindUnknown,
						Message: fmt.Sprintf("response interceptor %s: %v", interceptor.Name, err),
						cause:   err,
					})
				}
			}

			return resp, nil
		}

		if attempt >= c.options.maxAttempts || !c.options.retryPolicy(lastResp, lastErr) {
			break
		}

		delay := backoffDelay(attempt, c.options.retryWaitTime, c.options.retryMaxWaitTime)
		c.options.requestLogger.Debugf("retrying %s %s in %s (attempt %d/%d)",
			req.Method, req.Endpoint, delay, attempt+1, c.options.maxAttempts)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, c.terminate(req, classifyTransport(ctx.Err()))
		case <-timer.C:
		}
	}

	var apiErr *Error
	if lastErr != nil {
		apiErr = classifyTransport(lastErr)
	} else {
		apiErr = classifyStatus(lastResp.StatusCode(), lastResp.Body())
	}

	return nil, c.terminate(req, apiErr)
}

// attempt performs one network attempt from a fresh request copy, bounded
// by the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, req *Request, path string) (*resty.Response, error) {
	attemptReq := req.clone()

	for _, interceptor := range c.requestInterceptors {
		if err := interceptor.Fn(attemptReq); err != nil {
			// Interceptor failures never abort the request.
			c.options.requestLogger.Warnf("request interceptor %s failed: %v", interceptor.Name, err)
		}
	}

	timeout := c.options.timeout
	if attemptReq.Timeout > 0 {
		timeout = attemptReq.Timeout
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r := c.rc.R().SetContext(attemptCtx)

	if len(attemptReq.Headers) > 0 {
		r.SetHeaders(attemptReq.Headers)
	}
	if len(attemptReq.Query) > 0 {
		r.SetQueryParamsFromValues(attemptReq.Query)
	}

	switch {
	case len(attemptReq.Files) > 0:
		// A fresh reader per attempt: sharing one across attempts would
		// leave retries with a drained reader and upload empty files.
		for _, file := range attemptReq.Files {
			r.SetFileReader(file.Field, file.Name, bytes.NewReader(file.Content))
		}
		if len(attemptReq.FormData) > 0 {
			r.SetMultipartFormData(attemptReq.FormData)
		}
	case len(attemptReq.FormData) > 0:
		r.SetFormData(attemptReq.FormData)
	case attemptReq.Body != nil:
		r.SetBody(attemptReq.Body)
	}

	return r.Execute(attemptReq.Method, path)
}

// terminate applies the unauthorized side effect and runs the error
// interceptor chain before the classified error is returned to the caller.
func (c *Client) terminate(req *Request, apiErr *Error) *Error {
	c.handleUnauthorized(req, apiErr)

	for _, interceptor := range c.options.errorInterceptors {
		interceptor.Fn(req, apiErr)
	}

	c.options.requestLogger.Errorf("%s %s failed: %v", req.Method, req.Endpoint, apiErr)
	return apiErr
}

// handleUnauthorized clears the local session and fires the unauthorized
// handler on a 401. Skipped for auth-flow endpoints, where a 401 means bad
// credentials rather than an expired session.
func (c *Client) handleUnauthorized(req *Request, apiErr *Error) {
	if apiErr.StatusCode != http.StatusUnauthorized {
		return
	}

	if c.options.endpoints[req.Endpoint].Auth {
		return
	}

	if c.options.session != nil {
		if err := c.options.session.Clear(); err != nil {
			c.options.requestLogger.Warnf("clearing session after 401: %v", err)
		}
	}

	if c.options.onUnauthorized != nil {
		c.options.onUnauthorized(req.Endpoint)
	}
}

// backoffDelay returns the delay before attempt n+1: wait doubled per
// completed attempt, capped at maxWait.
func backoffDelay(attempt int, wait, maxWait time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := wait << uint(attempt-1)
	if delay <= 0 || delay > maxWait {
		return maxWait
	}
	return delay
}
