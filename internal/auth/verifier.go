package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
)

// Audience every issued token must carry.
const Audience = "gofr-api"

// TokenInfo is the result of a successful verification.
type TokenInfo struct {
	Group     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type claims struct {
	Group string `json:"group"`
	jwt.RegisteredClaims
}

// Verifier validates bearer JWTs against the provider's current secret.
type Verifier struct {
	secrets *SecretProvider
}

// NewVerifier builds a Verifier on top of a secret provider.
func NewVerifier(secrets *SecretProvider) *Verifier {
	return &Verifier{secrets: secrets}
}

// Verify checks signature, audience and expiry, returning the token's group.
func (v *Verifier) Verify(ctx context.Context, token string) (TokenInfo, error) {
	secret, err := v.secrets.Secret(ctx)
	if err != nil {
		return TokenInfo{}, err
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return TokenInfo{}, apperr.Wrap(apperr.CodeAuthFailed, err, "token verification failed").
			WithRecovery("Obtain a fresh token and retry")
	}
	if c.Group == "" {
		return TokenInfo{}, apperr.New(apperr.CodeAuthFailed, "token carries no group claim").
			WithRecovery("Obtain a token issued for a group")
	}

	info := TokenInfo{Group: c.Group}
	if c.IssuedAt != nil {
		info.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		info.ExpiresAt = c.ExpiresAt.Time
	}
	return info, nil
}

// Issue signs a new token for a group with the given lifetime.
func (v *Verifier) Issue(ctx context.Context, group string, ttl time.Duration) (string, error) {
	if group == "" {
		return "", apperr.New(apperr.CodeInvalidArguments, "group is required")
	}
	secret, err := v.secrets.Secret(ctx)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Group: group,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternalError, err, "sign token")
	}
	return signed, nil
}
