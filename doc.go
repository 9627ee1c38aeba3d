// Package client provides a resilient HTTP client for the Sevdo user API.
//
// The client wraps [github.com/go-resty/resty/v2] with automatic retries,
// per-attempt timeouts, bearer-token injection from a persistent session
// store, and classified errors.
//
// # Basic Usage
//
//	kv, err := kvstore.NewFS(filepath.Join(home, ".sevdo"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	c := client.New("https://api.example.com",
//	    client.WithSession(client.NewSession(kv)),
//	    client.WithMaxAttempts(3),
//	)
//
//	if err := c.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	token, err := c.Login(ctx, "a@b.com", "secret")
//
// # Configuration
//
// All configuration is supplied as [Option] functions passed to [New].
// Invalid values are silently ignored and the default is retained;
// all configuration is validated when [Client.Connect] is called.
// [LoadConfig] reads the same settings from a YAML file.
//
// # Retry Behaviour
//
// A logical request makes up to a configured number of attempts (three by
// default) with exponential backoff between them. [DefaultRetryPolicy]
// retries on HTTP 429, 5xx, and connection-level errors. Timeouts, context
// cancellation, and every other 4xx (401, 403, 404, 422) are never
// retried. Supply a custom function via [WithRetryPolicy] to override.
//
// # Errors
//
// Every failure crossing the client boundary is a [*Error] tagged with a
// [Kind]: network, timeout, http, validation, or unknown. Validation
// errors carry a field-to-message map extracted from the response body.
//
// # Sessions
//
// With [WithSession], the bearer token is read from the store before each
// attempt and injected as "Authorization: Bearer <token>". A 401 response
// clears the stored token and cached user and fires the handler installed
// with [WithUnauthorizedHandler], except when the failing endpoint is part
// of the auth flow itself.
//
// # Interceptors
//
// Named request, response, and error interceptors apply cross-cutting
// policy. Request interceptor failures are logged and swallowed, never
// aborting the request.
//
// # Logging
//
// Implement [RequestLogger] and supply it via [WithRequestLogger] to
// integrate with your logging library, or use [NewSlogLogger]. The default
// [NoopLogger] discards all log output. Ensure your implementation redacts
// credentials and tokens before persisting logs.
package client
