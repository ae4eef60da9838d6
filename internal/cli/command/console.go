package command

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cepip-console/internal/cli/config"
	"github.com/yndnr/cepip-console/internal/cli/repl"
	"github.com/yndnr/cepip-console/internal/infra/confloader"
	"github.com/yndnr/cepip-console/internal/telemetry/logger"
)

// ConsoleCommand returns the interactive console command.
func ConsoleCommand() *cli.Command {
	return &cli.Command{
		Name:    "console",
		Aliases: []string{"shell"},
		Usage:   "Start the interactive console",
		Action:  consoleAction,
	}
}

func consoleAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	if rt.console {
		return errors.New("already in the console")
	}
	rt.console = true
	defer func() {
		if err := rt.Shutdown.Run(); err != nil {
			rt.Log.Warn("cleanup failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	go func() {
		// A signal or the end of ctx stops the loop; Wait runs the hooks.
		rt.Shutdown.Wait(ctx)
		cancel()
	}()

	if _, err := connect(c); err != nil {
		return err
	}
	rt.watchConfig()
	if rt.clientCert != nil {
		go func() {
			if err := rt.clientCert.Watch(ctx, rt.Log); err != nil {
				rt.Log.Warn("client certificate watch stopped", "error", err)
			}
		}()
	}

	// The loop owns stdin from here on.
	stdin := rt.In
	rt.In = strings.NewReader("")

	exec := func(ctx context.Context, args []string) error {
		app := App(withRuntime(rt), WithIO(rt.In, rt.Out, rt.Err))
		return app.RunContext(ctx, append([]string{app.Name}, args...))
	}

	r := repl.New(repl.Config{
		In:        stdin,
		Out:       rt.Out,
		View:      rt.view,
		Guard:     consoleGuard{rt: rt, c: c},
		Exec:      exec,
		Completer: repl.NewCompleter(CommandLines(App())),
		History:   repl.NewHistory(rt.Config.HistoryFile),
		Log:       rt.Log,
	})

	server, _ := rt.serverAndPrefix()
	rt.printf("cepip console (%s). Type help for commands, exit to leave.\n", server)
	return r.Run(ctx)
}

// consoleGuard verifies the session against whatever backend the console
// is connected to at the time.
type consoleGuard struct {
	rt *Runtime
	c  *cli.Context
}

func (g consoleGuard) EnsureAuthenticated(ctx context.Context) error {
	if _, err := connect(g.c); err != nil {
		return err
	}
	return g.rt.gateway.EnsureAuthenticated(ctx)
}

// watchConfig follows the config file and applies the log level when it
// changes. Other settings apply to the next console.
func (rt *Runtime) watchConfig() {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(rt.Log))
	if err != nil {
		rt.Log.Warn("config watch disabled", "error", err)
		return
	}
	if err := w.Watch(rt.ConfigPath); err != nil {
		rt.Log.Debug("config watch disabled", "error", err)
		w.Stop()
		return
	}
	w.OnChange(func(path string) {
		cfg, err := config.Load(path)
		if err != nil {
			rt.Log.Warn("config reload failed", "path", path, "error", err)
			return
		}
		if rt.Flags.Verbose {
			return
		}
		logger.SetLevel(cfg.Log.Level)
		rt.Log.Info("log level changed", "level", logger.GetLevel())
	})
	w.StartAsync()
	rt.Shutdown.OnClose("config-watcher", w.Stop)
}

// CommandLines lists every command path of app, e.g. "empresa list", for
// completion. Hidden commands are left out.
func CommandLines(app *cli.App) []string {
	var lines []string
	var walk func(prefix string, cmds []*cli.Command)
	walk = func(prefix string, cmds []*cli.Command) {
		for _, cmd := range cmds {
			if cmd.Hidden {
				continue
			}
			line := strings.TrimSpace(prefix + " " + cmd.Name)
			lines = append(lines, line)
			walk(line, cmd.Subcommands)
		}
	}
	walk("", app.Commands)
	sort.Strings(lines)
	return lines
}
