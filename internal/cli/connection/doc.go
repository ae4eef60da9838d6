// Package connection carries API calls from the CLI to the CEPIP backend.
//
//   - transport.go: instrumented RoundTripper (User-Agent, request ids,
//     throttling, tracing, metrics, TLS)
//   - http.go: JSON client on top of any RoundTripper
//   - errors.go: APIError and response decoding
//   - profile.go: named server profiles
//
// The session decorator from internal/session is layered on top of the
// instrumented transport, so every call made through HTTPClient carries
// the bearer token and reacts to 401 answers.
package connection
