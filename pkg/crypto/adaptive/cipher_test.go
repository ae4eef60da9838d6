package adaptive

import (
	"bytes"
	"errors"
	"testing"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestNew(t *testing.T) {
	c, err := New(testKey())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Type() != CipherAESGCM && c.Type() != CipherChaCha20 {
		t.Errorf("New() returned unknown cipher type: %s", c.Type())
	}
}

func TestNewWithType(t *testing.T) {
	tests := []struct {
		name    string
		key     []byte
		typ     CipherType
		wantErr bool
	}{
		{"aes-gcm", testKey(), CipherAESGCM, false},
		{"chacha20", testKey(), CipherChaCha20, false},
		{"unknown type", testKey(), "rot13", true},
		{"short key", make([]byte, 16), CipherAESGCM, true},
		{"long key", make([]byte, 64), CipherChaCha20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewWithType(tt.key, tt.typ)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewWithType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && c.Type() != tt.typ {
				t.Errorf("Type() = %s, want %s", c.Type(), tt.typ)
			}
		})
	}
}

func TestEncryptDecrypt(t *testing.T) {
	for _, typ := range []CipherType{CipherAESGCM, CipherChaCha20} {
		t.Run(string(typ), func(t *testing.T) {
			c, err := NewWithType(testKey(), typ)
			if err != nil {
				t.Fatalf("NewWithType() error = %v", err)
			}

			plaintext := []byte("eyJhbGciOiJIUzI1NiJ9.payload.sig")
			aad := []byte("access_token")

			sealed, err := c.Encrypt(plaintext, aad)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if bytes.Contains(sealed, plaintext) {
				t.Error("sealed output contains plaintext")
			}

			opened, err := c.Decrypt(sealed, aad)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(opened, plaintext) {
				t.Errorf("Decrypt() = %q, want %q", opened, plaintext)
			}

			if _, err := c.Decrypt(sealed, []byte("user")); err == nil {
				t.Error("Decrypt() with different additional data should fail")
			}
		})
	}
}

func TestEncrypt_NonceIsRandom(t *testing.T) {
	c, _ := New(testKey())
	a, _ := c.Encrypt([]byte("same"), nil)
	b, _ := c.Encrypt([]byte("same"), nil)
	if bytes.Equal(a, b) {
		t.Error("two encryptions of the same plaintext should differ")
	}
}

func TestDecrypt_Short(t *testing.T) {
	c, _ := New(testKey())
	if _, err := c.Decrypt([]byte{1, 2, 3}, nil); !errors.Is(err, ErrShortCiphertext) {
		t.Errorf("Decrypt(short) error = %v, want ErrShortCiphertext", err)
	}
}

func TestSealOpenString(t *testing.T) {
	c, _ := New(testKey())

	sealed, err := SealString(c, `{"name":"Ana"}`, "user")
	if err != nil {
		t.Fatalf("SealString() error = %v", err)
	}
	got, err := OpenString(c, sealed, "user")
	if err != nil {
		t.Fatalf("OpenString() error = %v", err)
	}
	if got != `{"name":"Ana"}` {
		t.Errorf("OpenString() = %q", got)
	}

	if _, err := OpenString(c, "%%%not-base64", "user"); err == nil {
		t.Error("OpenString() should reject invalid base64")
	}
}
