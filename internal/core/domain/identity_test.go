package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseIdentity(t *testing.T) {
	id, err := ParseIdentity([]byte(`{"name":"Ana","email":"ana@example.com","is_admin":true,"picture":"https://x/a.png"}`))
	if err != nil {
		t.Fatalf("ParseIdentity failed: %v", err)
	}

	if id.Name() != "Ana" {
		t.Errorf("Name() = %q, want %q", id.Name(), "Ana")
	}
	if id.Email() != "ana@example.com" {
		t.Errorf("Email() = %q", id.Email())
	}
	if id.Picture() != "https://x/a.png" {
		t.Errorf("Picture() = %q", id.Picture())
	}
	if !id.IsAdmin() {
		t.Error("IsAdmin() should be true")
	}
	if id.String() != "Ana <ana@example.com>" {
		t.Errorf("String() = %q", id.String())
	}
}

func TestParseIdentity_Malformed(t *testing.T) {
	inputs := []string{
		``,
		`   `,
		`not json`,
		`{"name":`,
		`null`,
		`[]`,
		`"Ana"`,
		`42`,
		`true`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			id, err := ParseIdentity([]byte(in))
			if err == nil {
				t.Fatalf("ParseIdentity(%q) = %v, want error", in, id)
			}
			if !errors.Is(err, ErrIdentityMalformed) {
				t.Errorf("error = %v, want ErrIdentityMalformed", err)
			}
		})
	}
}

func TestIdentity_RawRoundTrip(t *testing.T) {
	body := `{"name":"Ana","is_admin":false,"extra":{"nested":[1,2,3]}}`
	id, err := ParseIdentity([]byte(body))
	if err != nil {
		t.Fatalf("ParseIdentity failed: %v", err)
	}

	if string(id.Raw()) != body {
		t.Errorf("Raw() = %s, want %s", id.Raw(), body)
	}

	encoded, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	again, err := ParseIdentity(encoded)
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if !id.Equal(again) {
		t.Error("identity should survive marshal and parse unchanged")
	}
}

func TestIdentity_RawIsCopy(t *testing.T) {
	id, _ := ParseIdentity([]byte(`{"name":"Ana"}`))
	raw := id.Raw()
	raw[2] = 'X'

	if id.Name() != "Ana" || string(id.Raw()) != `{"name":"Ana"}` {
		t.Error("mutating Raw() output must not change the identity")
	}
}

func TestIdentity_IsAdminNonBool(t *testing.T) {
	id, _ := ParseIdentity([]byte(`{"is_admin":"yes"}`))
	if id.IsAdmin() {
		t.Error("non-boolean is_admin should not grant admin")
	}
}

func TestSessionState_String(t *testing.T) {
	tests := map[SessionState]string{
		StateUnauthenticated: "unauthenticated",
		StateUnverified:      "unverified",
		StateAuthenticated:   "authenticated",
		SessionState(9):      "SessionState(9)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
