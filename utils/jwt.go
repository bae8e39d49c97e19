package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid session token")

// TokenVerifier checks session JWTs issued by the identity provider, which
// signs them with RS256. The caller's id is the "sub" claim.
type TokenVerifier struct {
	parser *jwt.Parser
	key    any
}

// NewTokenVerifier builds a verifier from the provider's PEM public key.
func NewTokenVerifier(pemKey string) (*TokenVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(strings.TrimSpace(pemKey)))
	if err != nil {
		return nil, fmt.Errorf("parse session public key: %w", err)
	}
	return &TokenVerifier{
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(5*time.Second),
		),
		key: key,
	}, nil
}

// VerifyToken returns the user id carried by token.
func (v *TokenVerifier) VerifyToken(token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return "", ErrInvalidToken
	}

	parsed, err := v.parser.Parse(token, func(*jwt.Token) (any, error) { return v.key, nil })
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
