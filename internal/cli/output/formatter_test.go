package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/yndnr/cepip-console/internal/core/domain"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("json: wrong formatter")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("yaml: wrong formatter")
	}
	tf, ok := NewFormatter("unknown", true).(*TableFormatter)
	if !ok || !tf.Wide {
		t.Error("unknown formats fall back to a wide-aware table formatter")
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := domain.Record{"razonsocial": "A & B <SA>"}
	if err := (&JSONFormatter{}).Format(&buf, data); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"A & B <SA>"`) {
		t.Errorf("HTML must not be escaped: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "\n  \"razonsocial\"") {
		t.Errorf("output not indented: %s", buf.String())
	}
}

func TestYAMLFormatter(t *testing.T) {
	t.Run("struct uses yaml tags", func(t *testing.T) {
		var buf bytes.Buffer
		dash := domain.Dashboard{TotalRecords: 3, SystemStatus: "operational"}
		if err := (&YAMLFormatter{}).Format(&buf, dash); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if !strings.Contains(out, "total_records: 3") || !strings.Contains(out, "system_status: operational") {
			t.Errorf("output:\n%s", out)
		}
	})

	t.Run("raw json", func(t *testing.T) {
		var buf bytes.Buffer
		raw := json.RawMessage(`{"name":"Ana","roles":["admin"]}`)
		if err := (&YAMLFormatter{}).Format(&buf, raw); err != nil {
			t.Fatal(err)
		}
		want := "name: Ana\nroles:\n  - admin\n"
		if buf.String() != want {
			t.Errorf("output = %q, want %q", buf.String(), want)
		}
	})

	t.Run("invalid raw json", func(t *testing.T) {
		if err := (&YAMLFormatter{}).Format(&bytes.Buffer{}, json.RawMessage(`{`)); err == nil {
			t.Error("expected an error")
		}
	})
}
