package connection

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/yndnr/cepip-console/internal/core/domain"
)

// maxErrorBody bounds how much of an error body is read.
const maxErrorBody = 64 << 10

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Detail, e.StatusCode)
}

// Unwrap exposes the domain error for the status, so callers can match
// with errors.Is(err, domain.ErrRecordNotFound) and friends.
func (e *APIError) Unwrap() error {
	if de := domain.ErrorForStatus(e.StatusCode); de != nil {
		return de
	}
	return nil
}

// ParseResponse closes resp.Body. Error statuses become *APIError; on
// success the body is decoded into target unless target is nil.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Detail: parseDetail(body)}
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// parseDetail reads FastAPI error bodies: {"detail": "..."} or the
// validation form {"detail": [{"loc": [...], "msg": "..."}]}.
func parseDetail(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if len(it.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
				continue
			}
			msgs = append(msgs, it.Msg)
		}
		return strings.Join(msgs, "; ")
	}

	return string(env.Detail)
}
