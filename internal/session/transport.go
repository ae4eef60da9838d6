package session

import (
	"context"
	"net/http"
	"strings"
)

// Transport decorates base with the session policy:
//
//   - requests to protected paths (under the API prefix, outside its auth
//     sub-path) carry "Authorization: Bearer <token>", other caller headers
//     untouched;
//   - a 401 answer to any request clears the session and redirects to the
//     login view.
//
// The decorator is a plain RoundTripper so it can be tested and composed
// without touching http.DefaultTransport.
func (g *Gateway) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &guardedTransport{g: g, base: base}
}

type guardedTransport struct {
	g    *Gateway
	base http.RoundTripper
}

func (t *guardedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.g.IsProtected(req.URL.Path) {
		token := t.g.Token()
		// RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		t.g.unauthorized(req.Context(), req.URL.Path)
	}
	return resp, nil
}

// IsProtected reports whether requests to path get the bearer header.
func (g *Gateway) IsProtected(path string) bool {
	return strings.HasPrefix(path, g.prefix+"/") && !strings.Contains(path, g.prefix+"/auth/")
}

func (g *Gateway) unauthorized(ctx context.Context, path string) {
	g.log.Info("backend rejected session", "path", path)
	// The response is already in the caller's hands; the cleanup must not
	// be skipped because the caller's context ends.
	if err := g.discard(context.WithoutCancel(ctx), "unauthorized"); err != nil {
		g.log.Warn("clearing session failed", "error", err)
	}
	g.RedirectToLogin()
}
