package command

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cepip-console/internal/backend"
	"github.com/yndnr/cepip-console/internal/cli/config"
	"github.com/yndnr/cepip-console/internal/cli/connection"
	"github.com/yndnr/cepip-console/internal/cli/output"
	"github.com/yndnr/cepip-console/internal/cli/repl"
	"github.com/yndnr/cepip-console/internal/entity"
	"github.com/yndnr/cepip-console/internal/infra/buildinfo"
	"github.com/yndnr/cepip-console/internal/infra/shutdown"
	"github.com/yndnr/cepip-console/internal/infra/tlsroots"
	"github.com/yndnr/cepip-console/internal/session"
	"github.com/yndnr/cepip-console/internal/storage"
	"github.com/yndnr/cepip-console/internal/telemetry/logger"
	"github.com/yndnr/cepip-console/internal/telemetry/metric"
	"github.com/yndnr/cepip-console/internal/telemetry/tracer"
)

const (
	metaRuntime = "runtime"
	metaStore   = "store"
)

// shutdownTimeout bounds the cleanup hooks of one invocation.
const shutdownTimeout = 5 * time.Second

// Runtime is what one invocation (or one console) works with.
type Runtime struct {
	Config     *config.CLIConfig
	ConfigPath string
	Flags      *GlobalFlags
	Log        logger.Logger
	Metrics    *metric.Registry
	Shutdown   *shutdown.Handler

	In  io.Reader
	Out io.Writer
	Err io.Writer

	view    *repl.ViewController
	console bool

	store      storage.Store
	gateway    *session.Gateway
	http       *connection.HTTPClient
	client     *backend.Client
	clientCert *tlsroots.ClientCert
}

func before(c *cli.Context) error {
	flags := ParseGlobalFlags(c)

	if rt, ok := c.App.Metadata[metaRuntime].(*Runtime); ok {
		// A console line: keep the session, take this line's output flags.
		// Connection flags given when the console started stay in force.
		if flags.Server == "" {
			flags.Server = rt.Flags.Server
		}
		if flags.APIPrefix == "" {
			flags.APIPrefix = rt.Flags.APIPrefix
		}
		flags.Config = rt.ConfigPath
		rt.Flags = flags
		rt.Out = c.App.Writer
		return nil
	}

	path := flags.Config
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if flags.Output != "" {
		if _, err := output.ParseFormat(flags.Output); err != nil {
			return err
		}
	}

	level := cfg.Log.Level
	if flags.Verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return err
	}
	logger.SetDefault(log)

	rt := &Runtime{
		Config:     cfg,
		ConfigPath: path,
		Flags:      flags,
		Log:        log,
		Metrics:    metric.NewRegistry(),
		Shutdown:   shutdown.NewHandler(shutdownTimeout),
		In:         c.App.Reader,
		Out:        c.App.Writer,
		Err:        c.App.ErrWriter,
	}
	if rt.In == nil {
		rt.In = os.Stdin
	}
	rt.view = repl.NewViewController(rt.Err, repl.HomeSection)

	flush, err := tracer.Setup(c.Context, tracer.Config{
		ServiceName:    buildinfo.Product,
		ServiceVersion: buildinfo.Version,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		log.Warn("tracing disabled", "error", err)
	}
	rt.Shutdown.OnShutdown("tracer", flush)

	c.App.Metadata[metaRuntime] = rt
	return nil
}

func after(c *cli.Context) error {
	rt, ok := c.App.Metadata[metaRuntime].(*Runtime)
	if !ok || rt.console {
		return nil
	}
	if err := rt.Shutdown.Run(); err != nil {
		rt.Log.Warn("cleanup failed", "error", err)
	}
	return nil
}

// runtimeFrom returns the Runtime built by before.
func runtimeFrom(c *cli.Context) (*Runtime, error) {
	if rt, ok := c.App.Metadata[metaRuntime].(*Runtime); ok {
		return rt, nil
	}
	return nil, errors.New("runtime not initialized")
}

// serverAndPrefix resolves the backend: flags, then the active profile,
// then the top-level config.
func (rt *Runtime) serverAndPrefix() (string, string) {
	server, prefix := rt.Config.ActiveServer()
	if rt.Flags.Server != "" {
		server = rt.Flags.Server
	}
	if rt.Flags.APIPrefix != "" {
		prefix = rt.Flags.APIPrefix
	}
	return connection.NormalizeURL(server), prefix
}

// connect builds the session stack on first use.
func connect(c *cli.Context) (*Runtime, error) {
	rt, err := runtimeFrom(c)
	if err != nil {
		return nil, err
	}
	if rt.client != nil {
		return rt, nil
	}

	ctx := c.Context
	cfg := rt.Config

	if store, ok := c.App.Metadata[metaStore].(storage.Store); ok {
		rt.store = store
	} else if rt.store == nil {
		store, err := storage.Open(storage.Config{
			Engine:  cfg.State.Engine,
			Dir:     cfg.State.Dir,
			Encrypt: cfg.State.Encrypt,
			KeyFile: cfg.State.KeyFile,
			Badger:  storage.DefaultBadgerConfig(),
		}, rt.Log)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		rt.store = store
		rt.Shutdown.OnClose("store", store.Close)
	}
	if col, ok := storage.CollectorOf(rt.store); ok {
		if err := rt.Metrics.Register(col); err != nil {
			rt.Log.Debug("store metrics not registered", "error", err)
		}
	}

	tlsCfg, cert, err := tlsroots.ClientConfig(tlsroots.Options{
		CAFile:   cfg.CAFile,
		CertFile: cfg.ClientCert,
		KeyFile:  cfg.ClientKey,
	})
	if err != nil {
		return nil, err
	}
	rt.clientCert = cert

	base := connection.NewTransport(connection.TransportConfig{
		TLS:       tlsCfg,
		RateLimit: cfg.RateLimit,
		UserAgent: buildinfo.UserAgent(),
		Logger:    rt.Log,
		Metrics:   rt.Metrics,
	})

	server, prefix := rt.serverAndPrefix()
	gw, err := session.New(session.Config{
		Store:     rt.store,
		Navigator: rt.view,
		ServerURL: server,
		APIPrefix: prefix,
		Base:      base,
	}, session.WithLogger(rt.Log), session.WithMetrics(rt.Metrics))
	if err != nil {
		return nil, err
	}
	if err := gw.Initialize(ctx); err != nil {
		return nil, err
	}

	rt.gateway = gw
	rt.http = connection.NewHTTPClient(server,
		connection.WithTransport(gw.Transport(base)),
		connection.WithTimeout(cfg.TimeoutDuration()),
	)
	rt.client = backend.New(rt.http, gw.APIPrefix())

	rt.Log.Debug("connected", "server", server, "prefix", gw.APIPrefix(), "state", gw.State().String())
	return rt, nil
}

// disconnect forgets the backend client so the next command reconnects
// to the active server. The store stays open.
func (rt *Runtime) disconnect() {
	rt.gateway = nil
	rt.http = nil
	rt.client = nil
}

// requireSession is the page-load guard of a single command: it shows
// section and verifies the stored token, redirecting to the login view on
// failure. Inside the console the REPL verifies on section changes, so
// only the presence of a token is checked.
func requireSession(c *cli.Context, section string) (*Runtime, error) {
	rt, err := connect(c)
	if err != nil {
		return nil, err
	}

	if rt.console {
		if rt.gateway.Token() == "" {
			rt.gateway.RedirectToLogin()
			return nil, session.ErrLoginRequired
		}
		return rt, nil
	}

	rt.view.Navigate(section)
	if err := rt.gateway.EnsureAuthenticated(c.Context); err != nil {
		return nil, err
	}
	return rt, nil
}

// manager returns the entity manager for def.
func (rt *Runtime) manager(def entity.Definition) *entity.Manager {
	return entity.NewManager(rt.client, def, rt.Log)
}

// print renders v in the selected output format.
func (rt *Runtime) print(v any) error {
	name := rt.Flags.Output
	if name == "" {
		name = rt.Config.Output
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, rt.Flags.Wide).Format(rt.Out, v)
}

// tableOutput reports whether the human readable format is selected.
func (rt *Runtime) tableOutput() bool {
	name := rt.Flags.Output
	if name == "" {
		name = rt.Config.Output
	}
	f, err := output.ParseFormat(name)
	return err == nil && f == output.FormatTable
}

func (rt *Runtime) printf(format string, args ...any) {
	fmt.Fprintf(rt.Out, format, args...)
}
