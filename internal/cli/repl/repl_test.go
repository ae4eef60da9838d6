package repl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/yndnr/cepip-console/internal/session"
	"github.com/yndnr/cepip-console/internal/storage"
	"github.com/yndnr/cepip-console/internal/telemetry/logger"
	"github.com/yndnr/cepip-console/internal/testutil"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *recorder) exec(_ context.Context, args []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, args)
	return r.err
}

func (r *recorder) lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = strings.Join(c, " ")
	}
	return out
}

type countingGuard struct {
	calls int
	err   error
}

func (g *countingGuard) EnsureAuthenticated(context.Context) error {
	g.calls++
	return g.err
}

var commands = []string{"empresa list", "persona list", "auth login", "stats", "version"}

func newREPL(input string, rec *recorder, guard Guard) (*REPL, *bytes.Buffer) {
	out := &bytes.Buffer{}
	r := New(Config{
		In:        strings.NewReader(input),
		Out:       out,
		View:      NewViewController(out, "dashboard"),
		Guard:     guard,
		Exec:      rec.exec,
		Completer: NewCompleter(commands),
		Log:       logger.Nop(),
	})
	return r, out
}

func TestREPL_Run_Exit(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"exit command", "exit\n"},
		{"quit command", "quit\n"},
		{"EOF", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newREPL(tt.input, &recorder{}, nil)
			if err := r.Run(context.Background()); err != nil {
				t.Errorf("Run() error = %v", err)
			}
		})
	}
}

func TestREPL_Run_EmptyLines(t *testing.T) {
	r, out := newREPL("\n\n\nexit\n", &recorder{}, nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if prompts := strings.Count(out.String(), "cepip[dashboard]>"); prompts < 4 {
		t.Errorf("expected at least 4 prompts, got %d", prompts)
	}
}

func TestREPL_Run_Context(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pr, pw := io.Pipe()
	defer pw.Close()
	r := New(Config{In: pr, Out: &bytes.Buffer{}, Log: logger.Nop()})
	if err := r.Run(ctx); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestREPL_SectionShortcut(t *testing.T) {
	rec := &recorder{}
	guard := &countingGuard{}
	r, _ := newREPL("stats\ngo empresas\nlist --page 2\nversion\nexit\n", rec, guard)

	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []string{"stats", "empresa list --page 2", "version"}
	if got := rec.lines(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("executed %q, want %q", got, want)
	}
	if guard.calls != 2 {
		t.Errorf("guard calls = %d, want 2 (start and section change)", guard.calls)
	}
}

func TestREPL_LoginViewRefusesCommands(t *testing.T) {
	rec := &recorder{}
	out := &bytes.Buffer{}
	r := New(Config{
		In:        strings.NewReader("stats\nauth login --token t\nexit\n"),
		Out:       out,
		View:      NewViewController(out, session.LoginView),
		Exec:      rec.exec,
		Completer: NewCompleter(commands),
		Log:       logger.Nop(),
	})
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := rec.lines(); len(got) != 1 || got[0] != "auth login --token t" {
		t.Errorf("executed %q", got)
	}
	if !strings.Contains(out.String(), ErrNotLoggedIn.Error()) {
		t.Errorf("output = %q", out.String())
	}
}

func TestREPL_Builtins(t *testing.T) {
	rec := &recorder{}
	r, out := newREPL("sections\ncomplete empresa\ngo nowhere\ngo\nhistory 2\nexit\n", rec, nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	s := out.String()
	for _, want := range []string{"* dashboard", "  consorcistas", "empresa list", "unknown section", "usage: go SECTION", "go nowhere"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	if len(rec.lines()) != 0 {
		t.Errorf("builtins reached the executor: %v", rec.lines())
	}
}

func TestREPL_ExecError(t *testing.T) {
	rec := &recorder{err: errors.New("boom")}
	r, out := newREPL("stats\nexit\n", rec, nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Error: boom") {
		t.Errorf("output = %q", out.String())
	}
}

func TestREPL_LongLine(t *testing.T) {
	payload := `{"nombre":"` + strings.Repeat("x", 200*1024) + `"}`
	rec := &recorder{}
	r, _ := newREPL("empresa create --json '"+payload+"'\nstats\nexit\n", rec, nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.calls) != 2 {
		t.Fatalf("calls = %d, want 2 (the console must survive a long line)", len(rec.calls))
	}
	if got := rec.calls[0]; len(got) != 4 || got[3] != payload {
		t.Errorf("long line split into %d args", len(got))
	}
}

func TestREPL_GuardFailure(t *testing.T) {
	guard := &countingGuard{err: errors.New("backend down")}
	r, out := newREPL("exit\n", &recorder{}, guard)
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Session check failed: backend down") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{`empresa list`, []string{"empresa", "list"}, false},
		{`  a   b  `, []string{"a", "b"}, false},
		{`empresa create --data "nombre=ACME Sur"`, []string{"empresa", "create", "--data", "nombre=ACME Sur"}, false},
		{`x 'it''s'`, []string{"x", "its"}, false},
		{`x a\ b`, []string{"x", "a b"}, false},
		{`x ""`, []string{"x", ""}, false},
		{`x "open`, nil, true},
		{`x \`, nil, true},
	}
	for _, tt := range tests {
		got, err := SplitArgs(tt.line)
		if (err != nil) != tt.wantErr {
			t.Errorf("SplitArgs(%q) error = %v", tt.line, err)
			continue
		}
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("SplitArgs(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

// A revoked token found when entering a section moves the console to the
// login view, after which ordinary commands are refused.
func TestREPL_RevokedTokenEndsOnLogin(t *testing.T) {
	be := testutil.NewBackend(t)
	be.AddUser("tok-ana", `{"name":"Ana","email":"ana@cepip.org","is_admin":false}`)

	out := &bytes.Buffer{}
	view := NewViewController(out, "dashboard")
	gw, err := session.New(session.Config{
		Store:     storage.NewMemoryStore(),
		Navigator: view,
		ServerURL: be.URL,
	}, session.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	if err := gw.Login(context.Background(), "tok-ana"); err != nil {
		t.Fatal(err)
	}

	in, feed := io.Pipe()
	rec := &recorder{}
	r := New(Config{
		In:        in,
		Out:       out,
		View:      view,
		Guard:     gw,
		Exec:      rec.exec,
		Completer: NewCompleter(commands),
		Log:       logger.Nop(),
	})

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	writeLine(t, feed, "list")
	be.RevokeToken("tok-ana")
	writeLine(t, feed, "go personas")
	writeLine(t, feed, "list")
	writeLine(t, feed, "exit")
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	// Only the first "list" ran, as the dashboard's subcommand.
	if got := rec.lines(); len(got) != 1 || got[0] != "dashboard list" {
		t.Errorf("executed %q", got)
	}
	if view.CurrentView() != session.LoginView {
		t.Errorf("CurrentView() = %q, want login", view.CurrentView())
	}
	if gw.IsAuthenticated() || gw.Token() != "" {
		t.Error("session should be cleared")
	}
	if !strings.Contains(out.String(), ErrNotLoggedIn.Error()) {
		t.Errorf("output = %q", out.String())
	}
}

// writeLine returns once the console has read the line.
func writeLine(t *testing.T, w io.Writer, line string) {
	t.Helper()
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		t.Fatal(err)
	}
}
