package command

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yndnr/cepip-console/internal/cli/config"
	"github.com/yndnr/cepip-console/internal/storage"
	"github.com/yndnr/cepip-console/internal/testutil"
)

const (
	anaToken    = "tok-ana"
	anaIdentity = `{"name":"Ana","email":"ana@cepip.org","is_admin":true}`
	beaToken    = "tok-bea"
	beaIdentity = `{"name":"Bea","email":"bea@cepip.org","is_admin":false}`
)

// testEnv runs the CLI against a fake backend with a config file and
// session store of its own.
type testEnv struct {
	t       *testing.T
	backend *testutil.Backend
	store   *storage.MemoryStore
	dir     string
	cfgPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	b := testutil.NewBackend(t)
	b.AddUser(anaToken, anaIdentity)
	b.AddUser(beaToken, beaIdentity)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server = b.URL
	cfg.State.Engine = "memory"
	cfg.State.Dir = dir
	cfg.HistoryFile = filepath.Join(dir, "history")

	path := filepath.Join(dir, "cli.yaml")
	require.NoError(t, config.Save(cfg, path))

	return &testEnv{t: t, backend: b, store: storage.NewMemoryStore(), dir: dir, cfgPath: path}
}

// run executes one command line with empty stdin.
func (e *testEnv) run(args ...string) (string, string, error) {
	return e.runWithInput("", args...)
}

func (e *testEnv) runWithInput(in string, args ...string) (string, string, error) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	app := App(WithIO(strings.NewReader(in), &out, &errOut), WithStore(e.store))
	full := append([]string{"cepip-cli", "--config", e.cfgPath}, args...)
	err := app.RunContext(context.Background(), full)
	return out.String(), errOut.String(), err
}

// login stores token as if auth login had run.
func (e *testEnv) login(token string) {
	e.t.Helper()
	require.NoError(e.t, e.store.Set(context.Background(), storage.KeyAccessToken, token))
}

func (e *testEnv) storedToken() string {
	e.t.Helper()
	v, err := e.store.Get(context.Background(), storage.KeyAccessToken)
	if err != nil {
		return ""
	}
	return v
}
