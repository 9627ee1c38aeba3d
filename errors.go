package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Kind classifies a request failure. Callers switch on the kind instead of
// inspecting transport errors or raw status codes.
type Kind int

const (
	// KindUnknown covers failures that fit no other kind, including
	// response decoding errors and context cancellation.
	KindUnknown Kind = iota

	// KindNetwork is a connection-level failure (DNS, refused connection,
	// reset). Network failures are retryable.
	KindNetwork

	// KindTimeout means an attempt exceeded its deadline and was aborted.
	KindTimeout

	// KindHTTP is a non-2xx response that is not a validation failure.
	KindHTTP

	// KindValidation is a 422-style response carrying field-level errors.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is the only error type returned by [Client] request methods. No raw
// transport error crosses the client boundary.
type Error struct {
	// Kind tags the failure class.
	Kind Kind

	// StatusCode is the HTTP status for KindHTTP and KindValidation,
	// zero otherwise.
	StatusCode int

	// Code is the application-defined error code, when the response
	// body carried one.
	Code string

	// Message is a human-readable description of the failure.
	Message string

	// FieldErrors maps field paths (e.g. "body.email") to messages for
	// KindValidation, nil otherwise.
	FieldErrors map[string]string

	cause error
}

func (e *Error) Error() string {
	if e.Kind == KindValidation && len(e.FieldErrors) > 0 {
		fields := make([]string, 0, len(e.FieldErrors))
		for field, msg := range e.FieldErrors {
			fields = append(fields, field+": "+msg)
		}
		sort.Strings(fields)
		return fmt.Sprintf("validation failed: %s", strings.Join(fields, "; "))
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// AsError unwraps err into a [*Error]. The second return value reports
// whether the conversion succeeded.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsTimeout reports whether err is a classified timeout.
func IsTimeout(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Kind == KindTimeout
}

// IsNetwork reports whether err is a classified connection-level failure.
func IsNetwork(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Kind == KindNetwork
}

// IsValidation reports whether err carries field-level validation errors.
func IsValidation(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Kind == KindValidation
}

// IsStatus reports whether err is an HTTP failure with the given status.
func IsStatus(err error, status int) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.StatusCode == status
}

// errorBody is the shape of error responses produced by the user API. The
// detail field is either a plain string or a list of validation entries.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

type validationEntry struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// classifyTransport converts a transport-level error into a [*Error].
func classifyTransport(err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: "request timed out", cause: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindUnknown, Message: "request canceled", cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: "request timed out", cause: err}
	}

	var urlErr *url.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.As(err, &urlErr) {
		return &Error{Kind: KindNetwork, Message: fmt.Sprintf("network error: %v", err), cause: err}
	}

	return &Error{Kind: KindUnknown, Message: err.Error(), cause: err}
}

// classifyStatus converts a non-2xx response into a [*Error], extracting
// validation entries or a message from the body when present.
func classifyStatus(status int, body []byte) *Error {
	apiErr := &Error{
		Kind:       KindHTTP,
		StatusCode: status,
		Message:    genericStatusMessage(status),
	}

	if len(body) == 0 {
		return apiErr
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Not JSON; surface the raw body the way the API sent it.
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = genericStatusMessage(status)
		}
		return apiErr
	}

	apiErr.Code = parsed.Code

	if len(parsed.Detail) > 0 {
		var entries []validationEntry
		if err := json.Unmarshal(parsed.Detail, &entries); err == nil && len(entries) > 0 {
			apiErr.Kind = KindValidation
			apiErr.FieldErrors = make(map[string]string, len(entries))
			for _, entry := range entries {
				apiErr.FieldErrors[joinLoc(entry.Loc)] = entry.Msg
			}
			return apiErr
		}

		var detail string
		if err := json.Unmarshal(parsed.Detail, &detail); err == nil && detail != "" {
			apiErr.Message = detail
			return apiErr
		}
	}

	if msg := parseErrorField(parsed.Error); msg != "" {
		apiErr.Message = msg
		return apiErr
	}

	if parsed.Message != "" {
		apiErr.Message = parsed.Message
	}

	return apiErr
}

// parseErrorField handles the two shapes the API uses for the "error"
// field: a bare string, or an object with message and code entries.
func parseErrorField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Message
	}

	return ""
}

// joinLoc flattens a validation location path ("body", "email") into a
// dotted key ("body.email"). Numeric segments (array indices) are kept.
func joinLoc(loc []any) string {
	parts := make([]string, 0, len(loc))
	for _, segment := range loc {
		switch v := segment.(type) {
		case string:
			parts = append(parts, v)
		case float64:
			parts = append(parts, fmt.Sprintf("%d", int(v)))
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, ".")
}

func genericStatusMessage(status int) string {
	text := http.StatusText(status)
	if text == "" {
		text = "request failed"
	}
	return fmt.Sprintf("HTTP %d: %s", status, text)
}
