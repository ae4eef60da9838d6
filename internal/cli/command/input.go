package command

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cepip-console/internal/core/domain"
)

// recordFlags are shared by create and update.
func recordFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "Field as KEY=VALUE (repeatable); numbers, true/false and null are typed",
		},
		&cli.StringFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Fields as a JSON object; --data entries override it",
		},
	}
}

// recordInput merges --json and --data into one record.
func recordInput(c *cli.Context) (domain.Record, error) {
	rec := domain.Record{}
	if raw := c.String("json"); raw != "" {
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("--json: %w", err)
		}
	}
	fields, err := parseAssignments(c.StringSlice("data"))
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		rec[k] = v
	}
	return rec, nil
}

// parseAssignments turns KEY=VALUE pairs into a map. Values that are JSON
// numbers, booleans or null keep their type; everything else is a string.
func parseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, want KEY=VALUE", p)
		}
		out[key] = typedValue(value)
	}
	return out, nil
}

func typedValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil && json.Valid([]byte(s)) {
		return json.Number(s)
	}
	return s
}

// argN returns the n-th positional argument or an error naming it.
func argN(c *cli.Context, n int, name string) (string, error) {
	v := strings.TrimSpace(c.Args().Get(n))
	if v == "" {
		return "", fmt.Errorf("%s required", name)
	}
	return v, nil
}

// intArg parses a positive integer argument.
func intArg(c *cli.Context, n int, name string) (int, error) {
	v, err := argN(c, n, name)
	if err != nil {
		return 0, err
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, v)
	}
	return i, nil
}

// confirm asks a yes/no question on the app's streams.
// The console owns stdin, so there it always declines.
func confirm(rt *Runtime, format string, args ...any) bool {
	if rt.console {
		fmt.Fprintln(rt.Err, "Confirmation is not available in the console; pass --force.")
		return false
	}
	fmt.Fprintf(rt.Err, format+" [y/N]: ", args...)
	line, err := bufio.NewReader(rt.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// readSecret returns v, or the first line of in when v is "-".
func readSecret(in io.Reader, v string) (string, error) {
	if v != "-" {
		return v, nil
	}
	data, err := io.ReadAll(io.LimitReader(in, 64<<10))
	if err != nil {
		return "", err
	}
	line, _, _ := bytes.Cut(data, []byte("\n"))
	return strings.TrimSpace(string(line)), nil
}
