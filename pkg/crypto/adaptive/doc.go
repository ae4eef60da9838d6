// Package adaptive provides authenticated encryption with automatic
// algorithm selection.
//
// AES-256-GCM is chosen on architectures where Go's crypto/aes is
// hardware accelerated, ChaCha20-Poly1305 everywhere else. Both share one
// sealed format: nonce || ciphertext || tag.
//
// Usage:
//
//	c, err := adaptive.New(key)
//	sealed, err := c.Encrypt(plaintext, aad)
//	plaintext, err := c.Decrypt(sealed, aad)
//
// The string helpers SealString and OpenString wrap the sealed bytes in
// base64 for storage backends that only hold text.
package adaptive
