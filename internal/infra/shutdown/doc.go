// Package shutdown runs cleanup hooks when cepip-cli finishes.
//
// A single command registers its hooks (close the session store, flush
// traces) and calls Run on the way out. The interactive console also calls
// Wait so SIGINT or SIGTERM triggers the same cleanup:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	h.OnClose("store", store.Close)
//	defer h.Run()
package shutdown
