// Package backend is a typed client for the CEPIP REST API.
//
// It sits on a connection.HTTPClient whose transport is the session
// decorator, so credentials and the 401 policy are applied underneath
// every call made here.
package backend
