package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/cepip-console/internal/session"
)

func TestAuthLogin_Token(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run("auth", "login", "--token", anaToken)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Ana (admin)")
	assert.Equal(t, anaToken, env.storedToken())

	out, _, err = env.run("auth", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "ana@cepip.org")
}

func TestAuthLogin_TokenFromStdin(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.runWithInput(beaToken+"\n", "login", "--token", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Bea")
	assert.NotContains(t, out, "(admin)")
}

func TestAuthLogin_Google(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddGoogleLogin("google-id-token", anaToken)

	out, _, err := env.run("auth", "login", "--google-token", "google-id-token")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Ana")
	assert.Equal(t, anaToken, env.storedToken())
}

func TestAuthLogin_RejectedToken(t *testing.T) {
	env := newTestEnv(t)

	_, errOut, err := env.run("auth", "login", "--token", "nobody")
	require.Error(t, err)
	assert.True(t, session.IsAuthError(err))
	assert.Equal(t, ExitLoginRequired, ExitCode(err))
	assert.Empty(t, env.storedToken())
	assert.Contains(t, errOut, "Not logged in")
}

func TestAuthLogin_FlagValidation(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run("auth", "login")
	assert.ErrorContains(t, err, "required")

	_, _, err = env.run("auth", "login", "--token", "a", "--google-token", "b")
	assert.ErrorContains(t, err, "either")
}

func TestAuthLogout(t *testing.T) {
	env := newTestEnv(t)
	env.login(anaToken)

	out, errOut, err := env.run("auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")
	assert.Contains(t, errOut, "Not logged in")
	assert.Empty(t, env.storedToken())
	assert.Equal(t, 1, env.backend.CountRequests("/api/auth/logout"))
}

func TestCommand_WithoutSession(t *testing.T) {
	env := newTestEnv(t)

	_, errOut, err := env.run("empresa", "list")
	require.ErrorIs(t, err, session.ErrLoginRequired)
	assert.Equal(t, ExitLoginRequired, ExitCode(err))
	assert.Contains(t, errOut, "Not logged in")
	assert.Zero(t, env.backend.CountRequests("/api/records/ente"))
	assert.Zero(t, env.backend.CountRequests("/api/auth/me"))
}

func TestCommand_RevokedToken(t *testing.T) {
	env := newTestEnv(t)
	env.login(anaToken)
	env.backend.RevokeToken(anaToken)

	_, errOut, err := env.run("empresa", "list")
	require.Error(t, err)
	assert.Equal(t, ExitLoginRequired, ExitCode(err))
	assert.Contains(t, errOut, "Not logged in")
	assert.Empty(t, env.storedToken())
	assert.Zero(t, env.backend.CountRequests("/api/records/ente"))
}

func TestCommand_VerifiesBeforeEachCall(t *testing.T) {
	env := newTestEnv(t)
	env.login(anaToken)

	for i := 0; i < 2; i++ {
		_, _, err := env.run("empresa", "list")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, env.backend.CountRequests("/api/auth/me"))

	req, ok := env.backend.LastRequest("/api/records/ente")
	require.True(t, ok)
	assert.Equal(t, "Bearer "+anaToken, req.Header.Get("Authorization"))
}

func TestAuthStatus(t *testing.T) {
	env := newTestEnv(t)
	env.login(anaToken)

	out, _, err := env.run("-o", "json", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, `"state": "unverified"`)
	assert.Contains(t, out, `"token_subject": "(opaque token)"`)
	assert.Contains(t, out, `"google_client_id": "test-client.apps.googleusercontent.com"`)
	assert.Zero(t, env.backend.CountRequests("/api/auth/me"))
}
