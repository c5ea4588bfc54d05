package partsprovider

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"partscout/pkg/models"
)

// parseAccessToken reads the registered time claims of a provider token.
// The signature is the provider's business; only exp and iat matter here.
// Opaque or claimless tokens fall back to lifetime from now.
func parseAccessToken(raw string, now time.Time, lifetime time.Duration) models.AccessToken {
	tok := models.AccessToken{Value: raw, IssuedAt: now, ExpiresAt: now.Add(lifetime)}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return tok
	}
	if claims.IssuedAt != nil {
		tok.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		tok.ExpiresAt = claims.ExpiresAt.Time
	} else if claims.IssuedAt != nil {
		tok.ExpiresAt = claims.IssuedAt.Add(lifetime)
	}
	return tok
}

func signToken(secret []byte, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    "partscout-demo",
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

func verifyToken(secret []byte, raw string, now time.Time) error {
	_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	return nil
}
