package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cepip-console/internal/cli/repl"
	"github.com/yndnr/cepip-console/internal/session"
)

// AuthCommand returns the auth subcommand group.
func AuthCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Log in, log out and inspect the session",
		Subcommands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			{
				Name:   "whoami",
				Usage:  "Show the verified identity",
				Action: authWhoami,
			},
			{
				Name:   "status",
				Usage:  "Show session state, token expiry and backend auth configuration",
				Action: authStatus,
			},
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Start a session",
		Description: "Adopts an access token (--token) or exchanges a Google ID token " +
			"(--google-token) at the backend, then verifies it. Use - to read the token from stdin.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "token",
				Aliases: []string{"t"},
				Usage:   "Backend access token",
			},
			&cli.StringFlag{
				Name:    "google-token",
				Aliases: []string{"g"},
				Usage:   "Google ID token to exchange",
			},
		},
		Action: authLogin,
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "End the session",
		Action: authLogout,
	}
}

func authLogin(c *cli.Context) error {
	rt, err := connect(c)
	if err != nil {
		return err
	}
	ctx := c.Context

	token, err := readSecret(rt.In, c.String("token"))
	if err != nil {
		return err
	}
	google, err := readSecret(rt.In, c.String("google-token"))
	if err != nil {
		return err
	}

	switch {
	case token != "" && google != "":
		return errors.New("use either --token or --google-token")
	case google != "":
		res, err := rt.client.GoogleLogin(ctx, google)
		if err != nil {
			return fmt.Errorf("google login: %w", err)
		}
		token = res.AccessToken
	case token == "":
		return errors.New("--token or --google-token required")
	}

	if err := rt.gateway.Login(ctx, token); err != nil {
		return err
	}
	if rt.view.CurrentView() == session.LoginView {
		rt.view.Navigate(repl.HomeSection)
	}
	if err := rt.gateway.EnsureAuthenticated(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	user := rt.gateway.User()
	name := user.Name()
	if name == "" {
		name = user.Email()
	}
	badge := ""
	if user.IsAdmin() {
		badge = " (admin)"
	}
	rt.printf("Logged in as %s%s\n", name, badge)
	return nil
}

func authLogout(c *cli.Context) error {
	rt, err := connect(c)
	if err != nil {
		return err
	}
	ctx := c.Context

	if rt.gateway.Token() != "" {
		// The backend is told first; a failure there must not keep the
		// local session alive.
		if _, err := rt.client.Logout(ctx); err != nil {
			rt.Log.Debug("backend logout failed", "error", err)
		}
	}
	if err := rt.gateway.Logout(ctx); err != nil {
		return err
	}
	rt.printf("Logged out.\n")
	return nil
}

func authWhoami(c *cli.Context) error {
	rt, err := requireSession(c, repl.HomeSection)
	if err != nil {
		return err
	}
	return rt.print(rt.gateway.User().Fields())
}

// sessionStatus is what auth status reports.
type sessionStatus struct {
	Server       string `json:"server" yaml:"server"`
	State        string `json:"state" yaml:"state"`
	User         string `json:"user,omitempty" yaml:"user,omitempty"`
	Admin        bool   `json:"admin" yaml:"admin"`
	TokenSubject string `json:"token_subject,omitempty" yaml:"token_subject,omitempty"`
	TokenExpires string `json:"token_expires,omitempty" yaml:"token_expires,omitempty"`
	GoogleLogin  bool   `json:"google_login" yaml:"google_login"`
	GoogleClient string `json:"google_client_id,omitempty" yaml:"google_client_id,omitempty"`
	BackendError string `json:"backend_error,omitempty" yaml:"backend_error,omitempty"`
}

// authStatus reports the local view of the session without verifying it.
func authStatus(c *cli.Context) error {
	rt, err := connect(c)
	if err != nil {
		return err
	}

	gw := rt.gateway
	server, _ := rt.serverAndPrefix()
	st := sessionStatus{
		Server: server,
		State:  gw.State().String(),
		Admin:  gw.IsAdmin(),
	}
	if u := gw.User(); u != nil {
		st.User = u.Email()
	}

	claims, err := gw.TokenClaims()
	switch {
	case err == nil:
		st.TokenSubject = claims.Subject
		if !claims.ExpiresAt.IsZero() {
			st.TokenExpires = claims.ExpiresAt.Format(time.RFC3339)
			if claims.Expired(time.Now()) {
				st.TokenExpires += " (expired)"
			}
		}
	case errors.Is(err, session.ErrOpaqueToken):
		st.TokenSubject = "(opaque token)"
	}

	if as, err := rt.client.AuthStatus(c.Context); err != nil {
		st.BackendError = err.Error()
	} else {
		st.GoogleLogin = as.GoogleClientConfigured
		st.GoogleClient = as.GoogleClientID
	}
	return rt.print(st)
}
