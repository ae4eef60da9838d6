package output

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names an output encoding selected with --output.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formats lists the accepted formats.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML}

// Formatter writes a command result.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// ParseFormat validates a format name. The empty string means table.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatTable, nil
	}
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("unknown output format %q (table, json, yaml)", s)
	}
	return f, nil
}

// NewFormatter returns the formatter for format; unknown names get a table.
func NewFormatter(format Format, wide bool) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	}
	return &TableFormatter{Wide: wide}
}

// JSONFormatter writes two-space indented JSON without HTML escaping, so
// company names like "A & B" stay readable.
type JSONFormatter struct{}

func (*JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// YAMLFormatter writes YAML. Raw JSON payloads are decoded first so they
// come out as YAML documents rather than byte lists.
type YAMLFormatter struct{}

func (*YAMLFormatter) Format(w io.Writer, data any) (err error) {
	if raw, ok := data.(json.RawMessage); ok {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return err
		}
		data = decoded
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() {
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
	}()
	return enc.Encode(data)
}
