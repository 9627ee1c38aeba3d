package client

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type Option func(*Options)

type Options struct {
	maxAttempts          int
	retryWaitTime        time.Duration
	retryMaxWaitTime     time.Duration
	timeout              time.Duration
	requestLogger        RequestLogger
	retryPolicy          func(*resty.Response, error) bool
	requestHeaders       map[string]string
	endpoints            Endpoints
	session              *Session
	onUnauthorized       func(endpoint string)
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	errorInterceptors    []ErrorInterceptor
	basicAuthUsername    string
	basicAuthPassword    string
	authScheme           string
	authToken            string
}

func newClientOptions() *Options {
	return &Options{
		maxAttempts:      3,
		retryWaitTime:    500 * time.Millisecond,
		retryMaxWaitTime: 3 * time.Second,
		timeout:          30 * time.Second,
		requestLogger:    &NoopLogger{},
		retryPolicy:      DefaultRetryPolicy,
		endpoints:        DefaultEndpoints(),
		requestHeaders: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
	}
}

// WithMaxAttempts sets the attempt ceiling for one logical request,
// counting the initial attempt. The default of 3 means at most two retries.
func WithMaxAttempts(attempts int) Option {
	return func(o *Options) {
		if attempts >= 1 {
			o.maxAttempts = attempts
		}
	}
}

func WithRetryWaitTime(waitTime time.Duration) Option {
	return func(o *Options) {
		if waitTime >= 100*time.Millisecond {
			o.retryWaitTime = waitTime
		}
	}
}

func WithRetryMaxWaitTime(maxWaitTime time.Duration) Option {
	return func(o *Options) {
		if maxWaitTime >= 100*time.Millisecond {
			o.retryMaxWaitTime = maxWaitTime
		}
	}
}

// WithTimeout sets the default per-attempt timeout. Individual requests
// may override it with [WithRequestTimeout].
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

func WithRequestLogger(logger RequestLogger) Option {
	return func(o *Options) {
		if logger != nil {
			o.requestLogger = logger
		}
	}
}

func WithRetryPolicy(policy func(*resty.Response, error) bool) Option {
	return func(o *Options) {
		if policy != nil {
			o.retryPolicy = policy
		}
	}
}

func WithRequestHeader(header, value string) Option {
	return func(o *Options) {
		header = strings.TrimSpace(header)

		if header == "" || strings.EqualFold(header, "Content-Type") || strings.EqualFold(header, "Accept") {
			return
		}

		o.requestHeaders[header] = value
	}
}

// WithEndpoints replaces the whole endpoint table.
func WithEndpoints(endpoints Endpoints) Option {
	return func(o *Options) {
		if len(endpoints) > 0 {
			o.endpoints = endpoints
		}
	}
}

// WithEndpointPath overrides the path of a single named endpoint, keeping
// the rest of the table intact.
func WithEndpointPath(name, path string) Option {
	return func(o *Options) {
		if name == "" || path == "" {
			return
		}
		endpoint := o.endpoints[name]
		endpoint.Path = path
		o.endpoints[name] = endpoint
	}
}

// WithSession attaches a session store. The client reads the bearer token
// from it before each attempt and clears it on unauthorized responses.
func WithSession(session *Session) Option {
	return func(o *Options) {
		o.session = session
	}
}

// WithUnauthorizedHandler registers a callback invoked after a 401 clears
// the local session. The failing endpoint name is passed so callers can
// route back to it after re-authenticating. Not invoked for 401s from
// auth-flow endpoints.
func WithUnauthorizedHandler(fn func(endpoint string)) Option {
	return func(o *Options) {
		o.onUnauthorized = fn
	}
}

func WithRequestInterceptor(interceptor RequestInterceptor) Option {
	return func(o *Options) {
		if interceptor.Fn != nil {
			o.requestInterceptors = append(o.requestInterceptors, interceptor)
		}
	}
}

func WithResponseInterceptor(interceptor ResponseInterceptor) Option {
	return func(o *Options) {
		if interceptor.Fn != nil {
			o.responseInterceptors = append(o.responseInterceptors, interceptor)
		}
	}
}

func WithErrorInterceptor(interceptor ErrorInterceptor) Option {
	return func(o *Options) {
		if interceptor.Fn != nil {
			o.errorInterceptors = append(o.errorInterceptors, interceptor)
		}
	}
}

func WithBasicAuth(username, password string) Option {
	return func(o *Options) {
		o.basicAuthUsername = username
		o.basicAuthPassword = password
	}
}

func WithAuthScheme(scheme string) Option {
	return func(o *Options) {
		o.authScheme = scheme
	}
}

// WithAuthToken sets a static bearer credential. Mutually exclusive with
// both basic auth and a session store; use [WithSession] when the token is
// issued at login time.
func WithAuthToken(token string) Option {
	return func(o *Options) {
		o.authToken = token
	}
}

// Validate checks the assembled options. Called by [Client.Connect];
// invalid option values passed to [New] are silently replaced by defaults
// before this point.
func (o *Options) Validate() error {
	if o.maxAttempts < 1 {
		return errors.New("maxAttempts must be at least 1")
	}

	if o.maxAttempts > 100 {
		return errors.New("maxAttempts must not exceed 100")
	}

	if o.retryWaitTime < 100*time.Millisecond {
		return errors.New("retryWaitTime must be at least 100ms")
	}

	if o.retryWaitTime > time.Minute {
		return fmt.Errorf("retryWaitTime must not exceed %s", time.Minute)
	}

	if o.retryMaxWaitTime < 100*time.Millisecond {
		return errors.New("retryMaxWaitTime must be at least 100ms")
	}

	if o.retryMaxWaitTime > 5*time.Minute {
		return fmt.Errorf("retryMaxWaitTime must not exceed %s", 5*time.Minute)
	}

	if o.retryMaxWaitTime < o.retryWaitTime {
		return fmt.Errorf("retryMaxWaitTime (%s) must be greater than or equal to retryWaitTime (%s)",
			o.retryMaxWaitTime, o.retryWaitTime)
	}

	if o.timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	if o.requestLogger == nil {
		return errors.New("requestLogger must not be nil")
	}

	if o.retryPolicy == nil {
		return errors.New("retryPolicy must not be nil")
	}

	if len(o.endpoints) == 0 {
		return errors.New("endpoints must not be empty")
	}

	if o.basicAuthUsername != "" && o.authToken != "" {
		return errors.New("cannot use both basic auth and token auth - choose one")
	}

	if o.session != nil && o.authToken != "" {
		return errors.New("cannot use both a session store and a static auth token - choose one")
	}

	return nil
}
