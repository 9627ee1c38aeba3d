package client

import (
	"net/http"

	"github.com/google/uuid"
)

// Response is the raw outcome of a successful request, handed to response
// interceptors before the body is decoded.
type Response struct {
	// StatusCode is the HTTP status.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// Body is the raw response body. Empty for 204 responses.
	Body []byte
}

// RequestInterceptor mutates a request copy before dispatch. Interceptors
// run in registration order, once per attempt. A failing request
// interceptor is logged and skipped; it never aborts the request.
type RequestInterceptor struct {
	Name string
	Fn   func(*Request) error
}

// ResponseInterceptor observes a successful raw response before decoding.
// A failing response interceptor turns the call into a classified error.
type ResponseInterceptor struct {
	Name string
	Fn   func(*Response) error
}

// ErrorInterceptor observes every terminal failure (after retries are
// exhausted or for non-retryable errors) before it reaches the caller.
// Error interceptors cannot suppress or alter the error.
type ErrorInterceptor struct {
	Name string
	Fn   func(*Request, *Error)
}

// AuthTokenInterceptor injects "Authorization: Bearer <token>" from the
// session store when a token is present and the request does not already
// carry an Authorization header. The client installs it automatically when
// a session store is configured.
func AuthTokenInterceptor(session *Session) RequestInterceptor {
	return RequestInterceptor{
		Name: "auth-token",
		Fn: func(r *Request) error {
			if r.Headers["Authorization"] != "" {
				return nil
			}
			if token := session.Token(); token != "" {
				r.setHeader("Authorization", "Bearer "+token)
			}
			return nil
		},
	}
}

// RequestIDInterceptor tags every attempt with a fresh X-Request-ID so
// server logs can be correlated with client retries.
func RequestIDInterceptor() RequestInterceptor {
	return RequestInterceptor{
		Name: "request-id",
		Fn: func(r *Request) error {
			r.setHeader("X-Request-ID", uuid.NewString())
			return nil
		},
	}
}
