package logger

import (
	"log/slog"
	"strings"
)

// Attribute keys whose string values are never logged.
var sensitiveKeys = []string{
	"token",
	"authorization",
	"bearer",
	"secret",
	"password",
	"key",
}

const redacted = "***REDACTED***"

func redactAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if v == "" {
			return a
		}
		if masked, ok := maskCredential(v); ok {
			return slog.String(a.Key, masked)
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redacted)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactAttr(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// maskCredential masks values that look like a JWT or an Authorization
// header regardless of the key they are logged under.
func maskCredential(v string) (string, bool) {
	if rest, ok := strings.CutPrefix(v, "Bearer "); ok {
		return "Bearer " + shorten(rest), true
	}
	if looksLikeJWT(v) {
		return shorten(v), true
	}
	return v, false
}

func looksLikeJWT(v string) bool {
	return strings.HasPrefix(v, "eyJ") && strings.Count(v, ".") == 2
}

// shorten keeps the first and last three characters.
func shorten(v string) string {
	if len(v) <= 10 {
		return "***"
	}
	return v[:3] + "..." + v[len(v)-3:]
}

// RedactString masks v if it looks like a credential.
func RedactString(v string) string {
	masked, _ := maskCredential(v)
	return masked
}

// IsSensitiveKey reports whether values logged under key are redacted.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
