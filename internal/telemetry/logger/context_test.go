package logger

import (
	"bytes"
	"context"
	"testing"
)

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext should fall back to the default logger")
	}

	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})
	ctx := WithLogger(context.Background(), l)

	FromContext(ctx).Info("from context")
	if buf.Len() == 0 {
		t.Error("logger stored in context should be used")
	}
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	if RequestIDFromContext(ctx) != "" {
		t.Error("empty context should have no request id")
	}

	ctx = WithRequestID(ctx, "01HZX3K5V6Q0AB")
	if got := RequestIDFromContext(ctx); got != "01HZX3K5V6Q0AB" {
		t.Errorf("RequestIDFromContext() = %q", got)
	}
}

func TestL(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})

	ctx := WithLogger(context.Background(), l)
	L(ctx).Info("without id")
	if _, ok := decode(t, &buf)["request_id"]; ok {
		t.Error("request_id should be absent")
	}

	buf.Reset()
	L(WithRequestID(ctx, "req-1")).Info("with id")
	if got := decode(t, &buf)["request_id"]; got != "req-1" {
		t.Errorf("request_id = %v, want req-1", got)
	}
}
