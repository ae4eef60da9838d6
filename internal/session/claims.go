package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the access token says about itself. The signature is not
// checked: the values are shown to the operator, never trusted.
type Claims struct {
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry in the past.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ErrOpaqueToken is returned by TokenClaims for tokens that are not JWTs.
var ErrOpaqueToken = errors.New("session: token is not a JWT")

// TokenClaims decodes the claims of the current token.
func (g *Gateway) TokenClaims() (Claims, error) {
	token := g.Token()
	if token == "" {
		return Claims{}, ErrLoginRequired
	}
	return ParseClaims(token)
}

// ParseClaims decodes the claims of a JWT without verifying it.
func ParseClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, errors.Join(ErrOpaqueToken, err)
	}

	var c Claims
	c.Subject, _ = mc.GetSubject()
	c.Email, _ = mc["email"].(string)
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}
