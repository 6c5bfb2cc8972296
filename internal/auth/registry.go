package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
)

// tokenFingerprint returns a deterministic fingerprint for a token, safe to
// persist and index without revealing the token itself.
func tokenFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// TokenRecord is one issued token in the persistent registry. The fingerprint
// indexes the record; the raw token is never stored.
type TokenRecord struct {
	Fingerprint string    `json:"fingerprint"`
	Group       string    `json:"group"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Revoked     bool      `json:"revoked"`
}

// TokenRegistry persists issued tokens under <data>/auth/tokens.json so
// operators can list and revoke them.
type TokenRegistry struct {
	path string

	mu      sync.Mutex
	records map[string]TokenRecord
}

// NewTokenRegistry loads (or initializes) the registry file.
func NewTokenRegistry(dataDir string) (*TokenRegistry, error) {
	dir := filepath.Join(dataDir, "auth")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternalError, err, "create auth dir")
	}
	r := &TokenRegistry{
		path:    filepath.Join(dir, "tokens.json"),
		records: map[string]TokenRecord{},
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, apperr.Wrap(apperr.CodeInternalError, err, "read token registry")
	}
	if err := json.Unmarshal(data, &r.records); err != nil {
		return nil, apperr.Wrap(apperr.CodeCorruptMetadata, err, "parse token registry")
	}
	return r, nil
}

// Register stores a freshly issued token's record.
func (r *TokenRegistry) Register(_ context.Context, token, group string, issuedAt, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[tokenFingerprint(token)] = TokenRecord{
		Fingerprint: tokenFingerprint(token),
		Group:       group,
		IssuedAt:    issuedAt,
		ExpiresAt:   expiresAt,
	}
	return r.persistLocked()
}

// List returns all records, newest first.
func (r *TokenRegistry) List(_ context.Context) ([]TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := make([]TokenRecord, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].IssuedAt.After(records[j].IssuedAt) })
	return records, nil
}

// Revoke marks a token revoked by raw value or fingerprint.
func (r *TokenRegistry) Revoke(_ context.Context, tokenOrFingerprint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tokenOrFingerprint
	if _, ok := r.records[key]; !ok {
		key = tokenFingerprint(tokenOrFingerprint)
	}
	rec, ok := r.records[key]
	if !ok {
		return apperr.New(apperr.CodeNotFound, "token not found in registry")
	}
	rec.Revoked = true
	r.records[key] = rec
	return r.persistLocked()
}

// IsRevoked reports whether the raw token has been revoked.
func (r *TokenRegistry) IsRevoked(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[tokenFingerprint(token)]
	return ok && rec.Revoked
}

func (r *TokenRegistry) persistLocked() error {
	data, err := json.MarshalIndent(r.records, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.CodeInternalError, err, "encode token registry")
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return apperr.Wrap(apperr.CodeInternalError, err, "write token registry")
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return apperr.Wrap(apperr.CodeInternalError, err, "replace token registry")
	}
	return nil
}
