// Package session implements the console's authenticated API access.
//
// A Gateway owns the bearer token and the identity record of the operator.
// It is created once by the CLI runtime and handed to whatever needs it;
// there is no package level instance.
//
// Every API call goes through Gateway.Transport, an http.RoundTripper
// decorator that adds "Authorization: Bearer <token>" to protected paths
// and drops the session when the backend answers 401.
//
// States:
//
//	unauthenticated --Login--> unverified --Verify ok--> authenticated
//	unverified --Verify failed / malformed state--> unauthenticated
//	authenticated --Logout / any 401--> unauthenticated
//
// Only the Store survives between process starts; Initialize rebuilds the
// in-memory state from it every time.
package session
