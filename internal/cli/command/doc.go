// Package command defines the cepip-cli commands on urfave/cli/v2.
//
// Every invocation builds a Runtime in the app's Before hook: the loaded
// configuration, the logger, metrics and tracing. Commands that talk to
// the backend call connect, which lazily opens the session store and
// composes the transport chain:
//
//	instrumented transport (request id, rate limit, tracing, metrics)
//	  <- session gateway decorator (bearer token, 401 handling)
//	    <- connection.HTTPClient <- backend.Client <- entity managers
//
// A single command is one "page load": requireSession verifies the stored
// token before the command runs. The console runs commands on a shared
// Runtime and leaves verification to section changes.
package command
