package client

import (
	"net/url"
	"time"
)

// Request describes one logical API call. The client builds a fresh copy
// per attempt, so interceptor mutations never leak between attempts.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, PATCH, DELETE).
	Method string

	// Endpoint is the logical endpoint name, resolved to a path
	// through the configured [Endpoints] table.
	Endpoint string

	// Headers are per-request headers merged over the client defaults.
	Headers map[string]string

	// Query holds URL query parameters.
	Query url.Values

	// PathParams fill {placeholder} segments in the endpoint path.
	PathParams map[string]string

	// Body is the JSON-serializable request body, if any.
	Body any

	// FormData, when set, is sent URL-encoded instead of Body.
	FormData map[string]string

	// Files, when set, makes the request multipart; FormData entries
	// become multipart fields and the JSON content type is dropped so
	// the transport sets the boundary itself.
	Files []FormFile

	// Timeout overrides the client default timeout for this request.
	Timeout time.Duration
}

// FormFile is one file part of a multipart request. Content is held in
// memory so a retried attempt re-sends the exact same bytes.
type FormFile struct {
	// Field is the multipart field name.
	Field string

	// Name is the file name sent to the server.
	Name string

	// Content is the file content.
	Content []byte
}

// clone returns a copy of the request with its maps duplicated. Slices and
// the body are shared; interceptors treat those as read-only.
func (r *Request) clone() *Request {
	out := *r

	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}

	if r.Query != nil {
		out.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			out.Query[k] = append([]string(nil), v...)
		}
	}

	if r.PathParams != nil {
		out.PathParams = make(map[string]string, len(r.PathParams))
		for k, v := range r.PathParams {
			out.PathParams[k] = v
		}
	}

	if r.FormData != nil {
		out.FormData = make(map[string]string, len(r.FormData))
		for k, v := range r.FormData {
			out.FormData[k] = v
		}
	}

	return &out
}

// setHeader sets a header on the request, allocating the map on first use.
func (r *Request) setHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
}

// RequestOption customizes a single request issued through the verb
// helpers ([Client.Get], [Client.Post], ...).
type RequestOption func(*Request)

// WithRequestTimeout overrides the client default timeout for one request.
func WithRequestTimeout(timeout time.Duration) RequestOption {
	return func(r *Request) {
		if timeout > 0 {
			r.Timeout = timeout
		}
	}
}

// WithPathParam fills a {placeholder} segment in the endpoint path.
func WithPathParam(key, value string) RequestOption {
	return func(r *Request) {
		if r.PathParams == nil {
			r.PathParams = make(map[string]string)
		}
		r.PathParams[key] = value
	}
}

// WithQueryValue adds a query parameter to the request.
func WithQueryValue(key, value string) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = url.Values{}
		}
		r.Query.Add(key, value)
	}
}

// WithHeader sets a header on one request.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		r.setHeader(key, value)
	}
}
