package cryptox

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	Username string `json:"username"`
	Entity   string `json:"entity"`
	jwt.RegisteredClaims
}

// EncodeSessionToken signs claims with HS256. A positive ttl sets the
// expiry relative to now.
func EncodeSessionToken(c SessionClaims, key Key, ttl time.Duration) (string, error) {
	now := time.Now()
	c.IssuedAt = jwt.NewNumericDate(now)
	if ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	s, err := token.SignedString(key[:])
	if err != nil {
		return "", &Error{Kind: KindEncode, Err: err}
	}
	return s, nil
}

// DecodeSessionToken verifies the signature and expiry of a token.
func DecodeSessionToken(s string, key Key) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(s, claims, func(t *jwt.Token) (any, error) {
		return key[:], nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, &Error{Kind: KindDecode, Err: err}
	}
	if !token.Valid || claims.Username == "" {
		return nil, &Error{Kind: KindDecode, Err: errors.New("invalid session token")}
	}
	return claims, nil
}
