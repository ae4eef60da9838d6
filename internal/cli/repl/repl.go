package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/yndnr/cepip-console/internal/session"
	"github.com/yndnr/cepip-console/internal/telemetry/logger"
)

// MaxLineSize is the longest console line accepted, enough for large
// --json payloads.
const MaxLineSize = 4 << 20

// Executor runs one command line, without the program name.
type Executor func(ctx context.Context, args []string) error

// Guard verifies the session when a section is entered.
type Guard interface {
	EnsureAuthenticated(ctx context.Context) error
}

// ErrNotLoggedIn is reported for commands typed on the login view.
var ErrNotLoggedIn = errors.New("not logged in: use auth login first")

// DefaultLoginCommands may run while the console shows the login view.
var DefaultLoginCommands = []string{"auth", "login", "config", "connect", "profile", "version", "metrics", "help"}

// Config wires a REPL.
type Config struct {
	In        io.Reader
	Out       io.Writer
	View      *ViewController
	Guard     Guard
	Exec      Executor
	Completer *Completer
	History   *History
	Log       logger.Logger
	// LoginCommands defaults to DefaultLoginCommands.
	LoginCommands []string
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	view      *ViewController
	guard     Guard
	exec      Executor
	completer *Completer
	history   *History
	log       logger.Logger
	onLogin   []string
}

// New creates a REPL. Missing streams default to stdin and stdout.
func New(cfg Config) *REPL {
	r := &REPL{
		input:     cfg.In,
		output:    cfg.Out,
		view:      cfg.View,
		guard:     cfg.Guard,
		exec:      cfg.Exec,
		completer: cfg.Completer,
		history:   cfg.History,
		log:       cfg.Log,
		onLogin:   cfg.LoginCommands,
	}
	if r.input == nil {
		r.input = os.Stdin
	}
	if r.output == nil {
		r.output = os.Stdout
	}
	if r.view == nil {
		r.view = NewViewController(r.output, HomeSection)
	}
	if r.completer == nil {
		r.completer = NewCompleter(nil)
	}
	if r.history == nil {
		r.history = NewHistory("")
	}
	if r.log == nil {
		r.log = logger.Default()
	}
	if r.onLogin == nil {
		r.onLogin = DefaultLoginCommands
	}
	return r
}

var errExit = errors.New("exit")

// Run starts the loop. It returns nil on exit, quit, EOF or when ctx ends.
// The history is loaded first and saved on return.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.history.Load(); err != nil {
		r.log.Warn("load history failed", "error", err)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			r.log.Warn("save history failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.enter(ctx)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.input)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(r.output, r.view.Prompt())

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.output)
			return nil
		case err := <-readErr:
			fmt.Fprintln(r.output)
			return err
		case line = <-lines:
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history.Add(line)

		err := r.execute(ctx, line)
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
		}
	}
}

// enter runs the guard for the section just shown. A failure has already
// moved the console to the login view.
func (r *REPL) enter(ctx context.Context) {
	if r.guard == nil || r.view.CurrentView() == session.LoginView {
		return
	}
	if err := r.guard.EnsureAuthenticated(ctx); err != nil && !errors.Is(err, session.ErrLoginRequired) {
		fmt.Fprintf(r.output, "Session check failed: %v\n", err)
	}
}

func (r *REPL) execute(ctx context.Context, line string) error {
	args, err := SplitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "exit", "quit":
		return errExit
	case "go":
		if len(args) != 2 {
			return errors.New("usage: go SECTION")
		}
		if err := r.view.Go(args[1]); err != nil {
			return err
		}
		r.enter(ctx)
		return nil
	case "sections":
		current := r.view.CurrentView()
		for _, s := range Sections {
			marker := "  "
			if s == current {
				marker = "* "
			}
			fmt.Fprintln(r.output, marker+s)
		}
		return nil
	case "history":
		n := 20
		if len(args) > 1 {
			if n, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("history: %w", err)
			}
		}
		for _, entry := range r.history.Last(n) {
			fmt.Fprintln(r.output, entry)
		}
		return nil
	case "complete":
		for _, s := range r.completer.Complete(strings.Join(args[1:], " ")) {
			fmt.Fprintln(r.output, s)
		}
		return nil
	case "help":
		if len(args) == 1 {
			fmt.Fprintln(r.output, "Console commands: go SECTION, sections, history [N], complete PREFIX, exit")
			fmt.Fprintf(r.output, "Inside a section, bare subcommands apply to it (e.g. \"list\" in empresas).\n\n")
		}
	}

	if r.view.CurrentView() == session.LoginView && !slices.Contains(r.onLogin, args[0]) {
		return ErrNotLoggedIn
	}

	if !r.completer.TopLevel(args[0]) {
		if cmd, ok := SectionCommand(r.view.CurrentView()); ok {
			args = append([]string{cmd}, args...)
		}
	}

	if r.exec == nil {
		return fmt.Errorf("unknown command %q", args[0])
	}
	return r.exec(ctx, args)
}

// SplitArgs splits a console line into words. Single and double quotes
// group words; a backslash escapes the next character outside single
// quotes.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, c := range line {
		switch {
		case escaped:
			cur.WriteRune(c)
			escaped = false
		case c == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteRune(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inWord = true
		case c == ' ' || c == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(c)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
