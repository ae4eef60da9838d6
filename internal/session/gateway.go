package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/yndnr/cepip-console/internal/core/domain"
	"github.com/yndnr/cepip-console/internal/storage"
	"github.com/yndnr/cepip-console/internal/telemetry/logger"
	"github.com/yndnr/cepip-console/internal/telemetry/metric"
	"github.com/yndnr/cepip-console/pkg/secret"
)

// DefaultAPIPrefix is the path prefix of the protected API.
const DefaultAPIPrefix = "/api"

// maxIdentitySize bounds the identity response body.
const maxIdentitySize = 1 << 20

// Config holds the collaborators of a Gateway.
type Config struct {
	// Store persists the token and identity. Required.
	Store storage.Store
	// Navigator is driven on redirects. Required.
	Navigator Navigator
	// ServerURL is the backend base URL, e.g. http://localhost:8000.
	ServerURL string
	// APIPrefix defaults to DefaultAPIPrefix.
	APIPrefix string
	// Base carries requests once decorated; defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// Option configures optional Gateway behaviour.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metric.Recorder) Option {
	return func(g *Gateway) { g.metrics = r }
}

// Gateway is the single owner of the console session.
type Gateway struct {
	store     storage.Store
	nav       Navigator
	serverURL string
	prefix    string
	verifier  *http.Client
	log       logger.Logger
	metrics   metric.Recorder

	mu    sync.RWMutex
	token string
	user  *domain.Identity

	// navMu makes the check-then-navigate of RedirectToLogin atomic when
	// several calls see a 401 at once.
	navMu sync.Mutex
}

// New creates a Gateway. The request decorator is usable immediately;
// call Initialize to load the persisted session.
func New(cfg Config, opts ...Option) (*Gateway, error) {
	if cfg.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if cfg.Navigator == nil {
		return nil, errors.New("session: navigator is required")
	}

	prefix := strings.TrimRight(cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = DefaultAPIPrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}

	g := &Gateway{
		store:     cfg.Store,
		nav:       cfg.Navigator,
		serverURL: strings.TrimRight(cfg.ServerURL, "/"),
		prefix:    prefix,
		log:       logger.Default(),
		metrics:   metric.Nop{},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With("component", "session")

	base := cfg.Base
	if base == nil {
		base = http.DefaultTransport
	}
	// Verification goes through the decorator too, so a 401 from the
	// identity endpoint triggers the same clear-and-redirect as any call.
	g.verifier = &http.Client{Transport: g.Transport(base)}

	return g, nil
}

// APIPrefix returns the protected path prefix.
func (g *Gateway) APIPrefix() string { return g.prefix }

// Initialize loads the persisted session. A malformed or unreadable
// identity clears the whole session. Only storage I/O failures are
// returned.
func (g *Gateway) Initialize(ctx context.Context) error {
	token, err := g.store.Get(ctx, storage.KeyAccessToken)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		token = ""
	case errors.Is(err, storage.ErrCorrupt):
		g.log.Warn("stored token unreadable, discarding session", "error", err)
		return g.discard(ctx, "malformed")
	case err != nil:
		return fmt.Errorf("session: load token: %w", err)
	}

	var user *domain.Identity
	raw, err := g.store.Get(ctx, storage.KeyUser)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
	case errors.Is(err, storage.ErrCorrupt):
		g.log.Warn("discarding session", "error", fmt.Errorf("%w: %v", ErrMalformedPersistedState, err))
		return g.discard(ctx, "malformed")
	case err != nil:
		return fmt.Errorf("session: load identity: %w", err)
	default:
		user, err = domain.ParseIdentity([]byte(raw))
		if err != nil {
			g.log.Warn("discarding session", "error", fmt.Errorf("%w: %v", ErrMalformedPersistedState, err))
			return g.discard(ctx, "malformed")
		}
	}

	if token == "" && user != nil {
		// An identity without a token is left over from an interrupted clear.
		if err := g.store.Delete(ctx, storage.KeyUser); err != nil {
			return fmt.Errorf("session: drop orphan identity: %w", err)
		}
		user = nil
	}

	g.mu.Lock()
	g.token = token
	g.user = user
	state := g.stateLocked()
	g.mu.Unlock()

	g.log.Debug("session loaded", "state", state.String(), "token_fp", secret.Fingerprint(token))
	return nil
}

// EnsureAuthenticated guards a view. It does nothing on the login view.
// Without a token it redirects and returns ErrLoginRequired. Otherwise it
// verifies the token; a failure clears the session, redirects and returns
// the *AuthError.
func (g *Gateway) EnsureAuthenticated(ctx context.Context) error {
	if g.nav.CurrentView() == LoginView {
		return nil
	}

	if g.Token() == "" {
		g.RedirectToLogin()
		return ErrLoginRequired
	}

	user, err := g.Verify(ctx)
	if err != nil {
		g.log.Info("session verification failed", "error", err)
		// A 401 was already cleared by the transport.
		if g.State() != domain.StateUnauthenticated {
			if cerr := g.discard(ctx, "verify_failed"); cerr != nil {
				g.log.Warn("clearing session failed", "error", cerr)
			}
		}
		g.RedirectToLogin()
		return err
	}

	if n, ok := g.nav.(AuthenticatedNotifier); ok {
		n.OnAuthenticated(user)
	}
	return nil
}

// Verify asks the backend who the current token belongs to. On success
// the response body replaces the stored identity verbatim.
func (g *Gateway) Verify(ctx context.Context) (*domain.Identity, error) {
	token := g.Token()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.serverURL+g.prefix+"/auth/me", nil)
	if err != nil {
		return nil, newAuthError(0, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := g.verifier.Do(req)
	if err != nil {
		g.metrics.ObserveVerify(false)
		return nil, newAuthError(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxIdentitySize))
		g.metrics.ObserveVerify(false)
		return nil, newAuthError(resp.StatusCode, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIdentitySize))
	if err != nil {
		g.metrics.ObserveVerify(false)
		return nil, newAuthError(0, err)
	}
	user, err := domain.ParseIdentity(body)
	if err != nil {
		g.metrics.ObserveVerify(false)
		return nil, newAuthError(resp.StatusCode, err)
	}

	g.mu.Lock()
	if g.token != token {
		// The session changed while the request was in flight.
		g.mu.Unlock()
		g.metrics.ObserveVerify(false)
		return nil, newAuthError(resp.StatusCode, errors.New("token replaced during verification"))
	}
	g.user = user
	g.mu.Unlock()

	if err := g.store.Set(ctx, storage.KeyUser, string(user.Raw())); err != nil {
		return nil, fmt.Errorf("session: persist identity: %w", err)
	}

	g.metrics.ObserveVerify(true)
	g.log.Debug("session verified", "user", user.Email(), "admin", user.IsAdmin())
	return user, nil
}

// Login adopts a new access token. The session becomes unverified until
// the next Verify.
func (g *Gateway) Login(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidRequest.WithDetails("empty access token")
	}

	g.mu.Lock()
	g.token = token
	g.user = nil
	g.mu.Unlock()

	if err := g.store.Delete(ctx, storage.KeyUser); err != nil {
		return fmt.Errorf("session: drop identity: %w", err)
	}
	if err := g.store.Set(ctx, storage.KeyAccessToken, token); err != nil {
		return fmt.Errorf("session: persist token: %w", err)
	}

	g.log.Debug("token stored", "token_fp", secret.Fingerprint(token))
	return nil
}

// Logout clears the persisted session, then redirects.
func (g *Gateway) Logout(ctx context.Context) error {
	err := g.discard(ctx, "logout")
	g.RedirectToLogin()
	return err
}

// RedirectToLogin navigates to the login view unless already there.
func (g *Gateway) RedirectToLogin() {
	g.navMu.Lock()
	defer g.navMu.Unlock()
	if g.nav.CurrentView() == LoginView {
		return
	}
	g.metrics.IncRedirect()
	g.nav.Navigate(LoginView)
}

// IsAuthenticated reports whether both a token and an identity are held.
// A token the backend no longer accepts still counts until the next
// failed verification or 401.
func (g *Gateway) IsAuthenticated() bool {
	return g.State() == domain.StateAuthenticated
}

// User returns the identity record, or nil.
func (g *Gateway) User() *domain.Identity {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.user
}

// IsAdmin reports the administrative flag of the identity record.
func (g *Gateway) IsAdmin() bool {
	u := g.User()
	return u != nil && u.IsAdmin()
}

// State returns the current session state.
func (g *Gateway) State() domain.SessionState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.stateLocked()
}

// Token returns the current bearer token, or "".
func (g *Gateway) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token
}

func (g *Gateway) stateLocked() domain.SessionState {
	switch {
	case g.token == "":
		return domain.StateUnauthenticated
	case g.user == nil:
		return domain.StateUnverified
	default:
		return domain.StateAuthenticated
	}
}

// discard drops the session in memory first, then in storage. Both keys
// are attempted even if the first delete fails.
func (g *Gateway) discard(ctx context.Context, reason string) error {
	g.mu.Lock()
	g.token = ""
	g.user = nil
	g.mu.Unlock()

	g.metrics.IncSessionCleared(reason)

	return errors.Join(
		g.store.Delete(ctx, storage.KeyAccessToken),
		g.store.Delete(ctx, storage.KeyUser),
	)
}
