package repl

import (
	"sort"
	"strings"
)

// Builtins are handled by the console itself.
var Builtins = []string{"go", "sections", "history", "complete", "help", "exit", "quit"}

// Completer provides completion candidates for console input.
type Completer struct {
	commands []string
}

// NewCompleter creates a completer over the given command lines, for
// instance "empresa list", plus the built-ins and "go SECTION".
func NewCompleter(commands []string) *Completer {
	seen := make(map[string]bool)
	add := func(s string) {
		if s != "" {
			seen[s] = true
		}
	}
	for _, c := range commands {
		add(c)
	}
	for _, b := range Builtins {
		add(b)
	}
	for _, s := range Sections {
		add("go " + s)
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return &Completer{commands: out}
}

// Complete returns completion suggestions for the given prefix.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.TrimLeft(prefix, " ")
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

// TopLevel reports whether word starts any known command line.
func (c *Completer) TopLevel(word string) bool {
	for _, cmd := range c.commands {
		first, _, _ := strings.Cut(cmd, " ")
		if first == word {
			return true
		}
	}
	return false
}
