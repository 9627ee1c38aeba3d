package client

import (
	"fmt"
	"strings"
)

// Logical endpoint names known to the client. Requests reference endpoints
// by name; the configured [Endpoints] table resolves names to paths.
const (
	EndpointHealth         = "health"
	EndpointLogin          = "login"
	EndpointRegister       = "register"
	EndpointMe             = "me"
	EndpointChangePassword = "change-password"
	EndpointLogout         = "logout"
	EndpointLogoutAll      = "logout-all"
	EndpointSessions       = "sessions"
	EndpointRevokeSession  = "revoke-session"
	EndpointUploadFile     = "upload-file"
)

// Endpoint describes a single named API endpoint.
type Endpoint struct {
	// Path is the URL path, possibly containing {placeholder} segments
	// filled from request path params.
	Path string

	// Auth marks endpoints that belong to the authentication flow
	// itself. A 401 from an auth endpoint means bad credentials, so the
	// client does not clear the local session or invoke the
	// unauthorized handler for it.
	Auth bool
}

// Endpoints maps logical endpoint names to endpoints.
type Endpoints map[string]Endpoint

// DefaultEndpoints returns the endpoint table of the user API.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		EndpointHealth:         {Path: "/health"},
		EndpointLogin:          {Path: "/api/v1/auth/token", Auth: true},
		EndpointRegister:       {Path: "/api/v1/auth/register", Auth: true},
		EndpointMe:             {Path: "/api/v1/auth/me"},
		EndpointChangePassword: {Path: "/api/v1/auth/change-password"},
		EndpointLogout:         {Path: "/api/v1/auth/logout"},
		EndpointLogoutAll:      {Path: "/api/v1/auth/logout/all"},
		EndpointSessions:       {Path: "/api/v1/auth/sessions"},
		EndpointRevokeSession:  {Path: "/api/v1/auth/sessions/{session_id}"},
		EndpointUploadFile:     {Path: "/api/v1/files/upload"},
	}
}

// resolve returns the concrete path for the endpoint, substituting
// {placeholder} segments from params. It fails on unfilled placeholders so
// malformed calls surface as errors instead of bad URLs.
func (e Endpoint) resolve(params map[string]string) (string, error) {
	path := e.Path
	for key, value := range params {
		path = strings.ReplaceAll(path, "{"+key+"}", value)
	}
	if start := strings.IndexByte(path, '{'); start >= 0 {
		rest := path[start+1:]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return "", fmt.Errorf("malformed endpoint path %q", e.Path)
		}
		return "", fmt.Errorf("missing path param %q", rest[:end])
	}
	return path, nil
}
