package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

/*
JWTValidator validates HS256 tokens locally, for deployments where the auth
service shares its signing secret with the media server and the extra round
trip per request is unwanted.
*/

////////////////////////////////////////////////////////////////////////////////

type JWTValidator struct {
	secret []byte
}

type mediaClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// NewJWTValidator builds a validator for HS256 tokens signed with secret.
func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret)}
}

// Validate parses and verifies the token.
func (v *JWTValidator) Validate(_ context.Context, token string) (Identity, error) {
	claims := &mediaClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, fmt.Errorf("token rejected: %w", ErrUnauthenticated)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Identity{}, fmt.Errorf("token carries no subject: %w", ErrUnauthenticated)
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// SignToken mints a token for the supplied identity. Used by tests and by
// development setups without a real auth service.
func (v *JWTValidator) SignToken(identity Identity) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mediaClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: identity.UserID},
		Email:            identity.Email,
	})
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
