package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cepip-console/internal/core/domain"
	"github.com/yndnr/cepip-console/internal/entity"
	"github.com/yndnr/cepip-console/internal/infra/buildinfo"
	"github.com/yndnr/cepip-console/internal/session"
	"github.com/yndnr/cepip-console/internal/storage"
)

// Exit codes returned by the binary.
const (
	ExitOK            = 0
	ExitError         = 1
	ExitLoginRequired = 2
)

// AppOption customises App, mostly for tests and the console.
type AppOption func(*cli.App)

// WithIO replaces the standard streams.
func WithIO(in io.Reader, out, errOut io.Writer) AppOption {
	return func(a *cli.App) {
		a.Reader = in
		a.Writer = out
		a.ErrWriter = errOut
	}
}

// WithStore makes the runtime use store instead of opening the configured
// one. The caller keeps ownership.
func WithStore(store storage.Store) AppOption {
	return func(a *cli.App) { a.Metadata[metaStore] = store }
}

func withRuntime(rt *Runtime) AppOption {
	return func(a *cli.App) { a.Metadata[metaRuntime] = rt }
}

// App creates the CLI application.
func App(opts ...AppOption) *cli.App {
	app := &cli.App{
		Name:                 buildinfo.Product,
		Usage:                "CEPIP administrative console",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Metadata:             map[string]any{},
		Commands: []*cli.Command{
			AuthCommand(),
			loginCommand(),
			logoutCommand(),
			EntityCommand(entity.Empresas, "empresas"),
			EntityCommand(entity.Personas, "personas", personaCommands()...),
			EntityCommand(entity.Parcelas, "parcelas", parcelaCommands()...),
			EntityCommand(entity.Consorcistas, "consorcistas", consorcistaCommands()...),
			RecordCommand(),
			LookupCommand(),
			StatsCommand(),
			DashboardCommand(),
			TablesCommand(),
			ReportCommand(),
			SettingsCommand(),
			MetricsCommand(),
			ConfigCommand(),
			ConnectCommand(),
			ProfileCommand(),
			ConsoleCommand(),
			VersionCommand(),
		},
		Before: before,
		After:  after,
		// main decides the exit code; see ExitCode.
		ExitErrHandler: func(*cli.Context, error) {},
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// globalFlags returns the global CLI flags. Server, prefix and output
// default to the configuration, which already honours CEPIP_* variables.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file (default ~/.cepip/cli.yaml)",
			EnvVars: []string{"CEPIP_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Backend address (e.g., http://localhost:8000)",
		},
		&cli.StringFlag{
			Name:  "api-prefix",
			Usage: "Path prefix of the protected API (default /api)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config    string
	Server    string
	APIPrefix string
	Output    string
	Wide      bool
	Verbose   bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:    c.String("config"),
		Server:    c.String("server"),
		APIPrefix: c.String("api-prefix"),
		Output:    c.String("output"),
		Wide:      c.Bool("wide"),
		Verbose:   c.Bool("verbose"),
	}
}

// ExitCode maps a command error to the process exit code. Errors that
// ended on the login view ask the operator to log in.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, session.ErrLoginRequired),
		session.IsAuthError(err),
		errors.Is(err, domain.ErrSessionRejected):
		return ExitLoginRequired
	default:
		return ExitError
	}
}

// ErrorHint returns a follow-up suggestion for err, or "".
func ErrorHint(err error) string {
	if ExitCode(err) == ExitLoginRequired {
		return fmt.Sprintf("run `%s auth login --token TOKEN` to start a session", buildinfo.Product)
	}
	if errors.Is(err, domain.ErrAdminRequired) {
		return "this action requires an administrator account"
	}
	return ""
}
