// Package tlsroots builds the client TLS configuration used to reach the
// backend: extra trusted roots on top of the system pool and an optional
// client certificate that is reloaded when its files change.
package tlsroots
