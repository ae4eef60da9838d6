package repl

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultHistorySize bounds the kept entries.
const DefaultHistorySize = 1000

// History manages command history for the console.
type History struct {
	entries []string
	maxSize int
	file    string
}

// NewHistory creates a history persisted in file. An empty file keeps the
// history in memory only.
func NewHistory(file string) *History {
	return &History{
		entries: make([]string, 0),
		maxSize: DefaultHistorySize,
		file:    file,
	}
}

// Add appends a command, skipping repeats of the previous entry. Values
// of credential flags are replaced by redacted before the line is kept.
func (h *History) Add(cmd string) {
	cmd = redactCredentials(strings.TrimSpace(cmd))
	if cmd == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// Get returns the history entry at index (0 = most recent).
func (h *History) Get(index int) string {
	if index < 0 || index >= len(h.entries) {
		return ""
	}
	return h.entries[len(h.entries)-1-index]
}

// Last returns up to n most recent entries, oldest first.
func (h *History) Last(n int) []string {
	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	return append([]string(nil), h.entries[len(h.entries)-n:]...)
}

func (h *History) Len() int { return len(h.entries) }

// Load loads history from file. A missing file is not an error.
func (h *History) Load() error {
	if h.file == "" {
		return nil
	}
	file, err := os.Open(h.file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	for scanner.Scan() {
		h.Add(scanner.Text())
	}
	return scanner.Err()
}

// Save writes the history with owner-only permissions.
func (h *History) Save() error {
	if h.file == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.file), 0o700); err != nil {
		return err
	}

	file, err := os.OpenFile(h.file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	for _, entry := range h.entries {
		if _, err := w.WriteString(entry + "\n"); err != nil {
			file.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// redacted stands in for a credential in a history line.
const redacted = "***"

// credentialFlags are the login flags, names and aliases, whose values
// never reach the history.
var credentialFlags = map[string]bool{
	"token":        true,
	"t":            true,
	"google-token": true,
	"g":            true,
}

// redactCredentials masks the values of credential flags in line, in
// both the "-t value" and "--token=value" forms. Lines without such a
// flag come back unchanged. "-" reads from stdin and is kept.
func redactCredentials(line string) string {
	args, err := SplitArgs(line)
	if err != nil {
		args = strings.Fields(line)
	}

	changed := false
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if len(arg) < 2 || arg[0] != '-' || arg == "--" {
			continue
		}
		name, value, joined := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !credentialFlags[name] {
			continue
		}
		switch {
		case joined:
			if value != "" && value != "-" {
				args[i] = arg[:len(arg)-len(value)] + redacted
				changed = true
			}
		case i+1 < len(args):
			i++
			if args[i] != "-" {
				args[i] = redacted
				changed = true
			}
		}
	}
	if !changed {
		return line
	}

	for i, arg := range args {
		args[i] = quoteArg(arg)
	}
	return strings.Join(args, " ")
}

// quoteArg quotes arg so SplitArgs reads it back as one word.
func quoteArg(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t'\"\\") {
		return arg
	}
	if !strings.ContainsRune(arg, '\'') {
		return "'" + arg + "'"
	}
	return strconv.Quote(arg)
}
