package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Identity is the identity record the backend returns for the current user.
//
// The record is opaque: the console keeps the exact bytes the server sent
// so that persisting and reloading it reproduces the same record. Typed
// accessors expose the fields the console itself needs.
type Identity struct {
	raw    json.RawMessage
	fields map[string]any
}

// ParseIdentity parses raw JSON into an Identity.
// The value must be a JSON object; anything else is ErrIdentityMalformed.
func ParseIdentity(data []byte) (*Identity, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrIdentityMalformed.WithDetails("not a JSON object")
	}

	var fields map[string]any
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, ErrIdentityMalformed.WithCause(err)
	}
	if fields == nil {
		return nil, ErrIdentityMalformed.WithDetails("null record")
	}

	raw := make(json.RawMessage, len(trimmed))
	copy(raw, trimmed)
	return &Identity{raw: raw, fields: fields}, nil
}

// Raw returns a copy of the record exactly as received from the server.
func (i *Identity) Raw() []byte {
	out := make([]byte, len(i.raw))
	copy(out, i.raw)
	return out
}

// MarshalJSON emits the original record.
func (i *Identity) MarshalJSON() ([]byte, error) {
	return i.Raw(), nil
}

// Field returns a top-level field of the record.
func (i *Identity) Field(name string) (any, bool) {
	v, ok := i.fields[name]
	return v, ok
}

// Fields returns a shallow copy of the decoded record.
func (i *Identity) Fields() map[string]any {
	out := make(map[string]any, len(i.fields))
	for k, v := range i.fields {
		out[k] = v
	}
	return out
}

// Name returns the display name.
func (i *Identity) Name() string { return i.stringField("name") }

// Email returns the e-mail address.
func (i *Identity) Email() string { return i.stringField("email") }

// Picture returns the avatar URL.
func (i *Identity) Picture() string { return i.stringField("picture") }

// IsAdmin reports the administrative flag. Missing or non-boolean
// values count as false.
func (i *Identity) IsAdmin() bool {
	v, ok := i.fields["is_admin"].(bool)
	return ok && v
}

// Equal reports whether two identities carry the same record bytes.
func (i *Identity) Equal(other *Identity) bool {
	if i == nil || other == nil {
		return i == other
	}
	return bytes.Equal(i.raw, other.raw)
}

// String implements fmt.Stringer.
func (i *Identity) String() string {
	if email := i.Email(); email != "" {
		return fmt.Sprintf("%s <%s>", i.Name(), email)
	}
	return i.Name()
}

func (i *Identity) stringField(name string) string {
	s, _ := i.fields[name].(string)
	return s
}

// SessionState is the authentication state of a console session.
type SessionState int

const (
	// StateUnauthenticated means no token is held.
	StateUnauthenticated SessionState = iota
	// StateUnverified means a token is held but not verified since it was set.
	StateUnverified
	// StateAuthenticated means a token is held and the backend confirmed it.
	StateAuthenticated
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateUnverified:
		return "unverified"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}
