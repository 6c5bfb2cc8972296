package auth

import (
	"context"
	"strings"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
)

// Service bundles verification, the secret cache and the token registry into
// the single auth dependency the dispatcher consumes.
type Service struct {
	Verifier *Verifier
	Registry *TokenRegistry
	Secrets  *SecretProvider
}

// NewService wires the auth components together.
func NewService(secrets *SecretProvider, registry *TokenRegistry) *Service {
	return &Service{
		Verifier: NewVerifier(secrets),
		Registry: registry,
		Secrets:  secrets,
	}
}

// ResolveToken picks the effective bearer token for a tool call:
// auth_token argument, then legacy token argument, then the HTTP
// Authorization header. Empty string means no token was supplied.
func ResolveToken(args map[string]any, authorizationHeader string) string {
	if tok, ok := args["auth_token"].(string); ok && strings.TrimSpace(tok) != "" {
		return strings.TrimSpace(tok)
	}
	if tok, ok := args["token"].(string); ok && strings.TrimSpace(tok) != "" {
		return strings.TrimSpace(tok)
	}
	header := strings.TrimSpace(authorizationHeader)
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// Authenticate verifies the token and checks the revocation list. The
// returned group is authoritative for the whole request.
func (s *Service) Authenticate(ctx context.Context, token string) (TokenInfo, error) {
	if token == "" {
		return TokenInfo{}, apperr.New(apperr.CodeAuthRequired, "authentication required").
			WithRecovery("Supply a bearer token via the auth_token argument or Authorization header")
	}
	info, err := s.Verifier.Verify(ctx, token)
	if err != nil {
		return TokenInfo{}, err
	}
	if s.Registry != nil && s.Registry.IsRevoked(token) {
		return TokenInfo{}, apperr.New(apperr.CodeAuthFailed, "token has been revoked").
			WithRecovery("Obtain a fresh token and retry")
	}
	return info, nil
}
