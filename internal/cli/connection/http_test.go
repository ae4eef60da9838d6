package connection

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/cepip-console/internal/core/domain"
)

func TestNewHTTPClient(t *testing.T) {
	tests := []struct {
		name       string
		server     string
		wantPrefix string
	}{
		{"with http prefix", "http://localhost:8000", "http://localhost:8000"},
		{"with https prefix", "https://localhost:8000", "https://localhost:8000"},
		{"without prefix", "localhost:8000", "http://localhost:8000"},
		{"hostname only", "api.cepip.local", "http://api.cepip.local"},
		{"trailing slash", "http://localhost:8000/", "http://localhost:8000"},
		{"surrounding space", "  localhost:8000 ", "http://localhost:8000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewHTTPClient(tt.server)
			if client.BaseURL() != tt.wantPrefix {
				t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), tt.wantPrefix)
			}
		})
	}
}

func TestHTTPClient_Methods(t *testing.T) {
	type seen struct {
		method, path, query, contentType, body string
	}
	var got seen

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		got = seen{r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("Content-Type"), string(data)}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()
	body := map[string]any{"nombre": "ACME"}

	tests := []struct {
		name string
		call func() (*http.Response, error)
		want seen
	}{
		{"get", func() (*http.Response, error) { return client.Get(ctx, "/api/records/ente?page=2") },
			seen{method: http.MethodGet, path: "/api/records/ente", query: "page=2"}},
		{"post", func() (*http.Response, error) { return client.Post(ctx, "/api/records/ente", body) },
			seen{method: http.MethodPost, path: "/api/records/ente", contentType: "application/json", body: `{"nombre":"ACME"}`}},
		{"put", func() (*http.Response, error) { return client.Put(ctx, "/api/records/ente/1", body) },
			seen{method: http.MethodPut, path: "/api/records/ente/1", contentType: "application/json", body: `{"nombre":"ACME"}`}},
		{"delete", func() (*http.Response, error) { return client.Delete(ctx, "/api/records/ente/1") },
			seen{method: http.MethodDelete, path: "/api/records/ente/1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = seen{}
			resp, err := tt.call()
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if got != tt.want {
				t.Errorf("server saw %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHTTPClient_Post_MarshalError(t *testing.T) {
	client := NewHTTPClient("localhost:1")
	_, err := client.Post(context.Background(), "/x", make(chan int))
	if err == nil || !strings.Contains(err.Error(), "marshal body") {
		t.Errorf("Post() error = %v, want marshal error", err)
	}
}

func TestHTTPClient_WithTransport(t *testing.T) {
	var called bool
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"ok":true}`)),
			Header:     http.Header{},
			Request:    r,
		}, nil
	})

	client := NewHTTPClient("http://backend.invalid", WithTransport(rt), WithTimeout(time.Second))
	var out struct {
		OK bool `json:"ok"`
	}
	if err := client.DoJSON(context.Background(), http.MethodGet, "/api/stats", nil, &out); err != nil {
		t.Fatalf("DoJSON() error = %v", err)
	}
	if !called || !out.OK {
		t.Errorf("custom transport not used: called=%v out=%+v", called, out)
	}
}

func TestHTTPClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPClient(server.URL).Get(ctx, "/slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get() error = %v, want deadline exceeded", err)
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		wantIs     error
	}{
		{"string detail", 404, `{"detail":"Record not found"}`, "Record not found", domain.ErrRecordNotFound},
		{"validation detail", 422, `{"detail":[{"loc":["body","nombre"],"msg":"field required"},{"loc":["query","limit"],"msg":"too large"}]}`,
			"nombre: field required; limit: too large", domain.ErrInvalidRequest},
		{"plain body", 500, "Internal Server Error", "Internal Server Error", domain.ErrBackend},
		{"empty body", 403, "", "", domain.ErrAdminRequired},
		{"object detail", 400, `{"detail":{"reason":"x"}}`, `{"reason":"x"}`, domain.ErrInvalidRequest},
		{"unauthorized", 401, `{"detail":"Invalid token"}`, "Invalid token", domain.ErrSessionRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Body: io.NopCloser(strings.NewReader(tt.body))}
			err := ParseResponse(resp, nil)

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("ParseResponse() error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Detail != tt.wantDetail {
				t.Errorf("Detail = %q, want %q", apiErr.Detail, tt.wantDetail)
			}
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantIs)
			}
		})
	}
}

func TestParseResponse_Success(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(`{"message":"ok","id":7}`))}
	var out struct {
		Message string `json:"message"`
		ID      int    `json:"id"`
	}
	if err := ParseResponse(resp, &out); err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if out.Message != "ok" || out.ID != 7 {
		t.Errorf("decoded %+v", out)
	}

	bad := &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(`not json`))}
	if err := ParseResponse(bad, &out); err == nil {
		t.Error("ParseResponse() should fail on invalid JSON")
	}
}

func TestAPIError_Error(t *testing.T) {
	if got := (&APIError{StatusCode: 502}).Error(); got != "request failed with status 502" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&APIError{StatusCode: 404, Detail: "Record not found"}).Error(); got != "Record not found (HTTP 404)" {
		t.Errorf("Error() = %q", got)
	}
	if (&APIError{StatusCode: 302}).Unwrap() != nil {
		t.Error("Unwrap() below 400 should be nil")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
