package repl

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/yndnr/cepip-console/internal/session"
)

// Sections of the console, in menu order.
var Sections = []string{
	"dashboard",
	"empresas",
	"personas",
	"parcelas",
	"consorcistas",
	"data",
	"reports",
	"settings",
	session.LoginView,
}

// HomeSection is shown after a successful login.
const HomeSection = "dashboard"

// sectionCommands maps a section to the command its bare subcommands
// belong to, so "list" inside empresas runs "empresa list".
var sectionCommands = map[string]string{
	"dashboard":    "dashboard",
	"empresas":     "empresa",
	"personas":     "persona",
	"parcelas":     "parcela",
	"consorcistas": "consorcista",
	"data":         "record",
	"reports":      "report",
	"settings":     "settings",
}

// IsSection reports whether name is a console section.
func IsSection(name string) bool {
	return slices.Contains(Sections, name)
}

// ViewController tracks the current section. It implements
// session.Navigator and session.AuthenticatedNotifier.
type ViewController struct {
	mu   sync.Mutex
	view string
	user session.IdentityView
	out  io.Writer
}

// NewViewController starts on view, which must be a section.
func NewViewController(out io.Writer, view string) *ViewController {
	if !IsSection(view) {
		view = HomeSection
	}
	return &ViewController{view: view, out: out}
}

func (v *ViewController) CurrentView() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.view
}

// Navigate switches section. Arriving at the login view forgets the
// operator and tells them how to log in again.
func (v *ViewController) Navigate(view string) {
	v.mu.Lock()
	v.view = view
	if view == session.LoginView {
		v.user = nil
	}
	v.mu.Unlock()

	if view == session.LoginView {
		fmt.Fprintln(v.out, "Not logged in. Use: auth login --token TOKEN (or --google-token ID_TOKEN)")
	}
}

// OnAuthenticated records the operator shown in the prompt.
func (v *ViewController) OnAuthenticated(user session.IdentityView) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.user = user
}

// Go switches to a named section.
func (v *ViewController) Go(section string) error {
	section = strings.ToLower(strings.TrimSpace(section))
	if !IsSection(section) {
		return fmt.Errorf("unknown section %q (%s)", section, strings.Join(Sections, ", "))
	}
	v.Navigate(section)
	return nil
}

// Prompt renders "cepip[section] name (admin)> ".
func (v *ViewController) Prompt() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	var b strings.Builder
	b.WriteString("cepip[")
	b.WriteString(v.view)
	b.WriteString("]")
	if v.user != nil {
		name := v.user.Name()
		if name == "" {
			name = v.user.Email()
		}
		if name != "" {
			b.WriteString(" ")
			b.WriteString(name)
		}
		if v.user.IsAdmin() {
			b.WriteString(" (admin)")
		}
	}
	b.WriteString("> ")
	return b.String()
}

// SectionCommand returns the command bare words map to in section.
func SectionCommand(section string) (string, bool) {
	cmd, ok := sectionCommands[section]
	return cmd, ok
}
