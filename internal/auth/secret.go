// Package auth resolves bearer tokens to tenant groups. It verifies signed
// JWTs against a cached signing secret and keeps a persistent registry of
// issued tokens.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/logging"
)

// SecretSource reads the current JWT signing secret from wherever the
// deployment keeps it. The external secret store integration satisfies this.
type SecretSource interface {
	Read(ctx context.Context) (string, error)
}

// SecretSourceFunc adapts a function to SecretSource.
type SecretSourceFunc func(ctx context.Context) (string, error)

func (f SecretSourceFunc) Read(ctx context.Context) (string, error) { return f(ctx) }

// EnvSecretSource reads the secret from an environment variable.
func EnvSecretSource(name string) SecretSource {
	return SecretSourceFunc(func(context.Context) (string, error) {
		secret := strings.TrimSpace(os.Getenv(name))
		if secret == "" {
			return "", apperr.New(apperr.CodeInternalError, "signing secret %s is not set", name)
		}
		return secret, nil
	})
}

// StaticSecretSource returns a fixed secret, used for tests and single-node
// deployments configured directly.
func StaticSecretSource(secret string) SecretSource {
	return SecretSourceFunc(func(context.Context) (string, error) { return secret, nil })
}

// SecretProvider caches the signing secret with a TTL and logs a warning when
// the secret rotates underneath it.
type SecretProvider struct {
	source SecretSource
	ttl    time.Duration
	logger logging.Logger
	now    func() time.Time

	mu          sync.RWMutex
	secret      string
	fingerprint string
	fetchedAt   time.Time
}

// NewSecretProvider builds a provider with the given cache TTL.
func NewSecretProvider(source SecretSource, ttl time.Duration, logger logging.Logger) *SecretProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SecretProvider{
		source: source,
		ttl:    ttl,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
}

// Secret returns the current signing secret, refreshing the cache when the
// TTL has elapsed. Transient read failures get one immediate retry.
func (p *SecretProvider) Secret(ctx context.Context) (string, error) {
	p.mu.RLock()
	if p.secret != "" && p.now().Sub(p.fetchedAt) < p.ttl {
		secret := p.secret
		p.mu.RUnlock()
		return secret, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	// Someone else may have refreshed while we waited for the lock.
	if p.secret != "" && p.now().Sub(p.fetchedAt) < p.ttl {
		return p.secret, nil
	}

	secret, err := p.source.Read(ctx)
	if err != nil {
		// One immediate retry on transient classes only.
		if ctx.Err() == nil && apperr.CodeOf(err) == apperr.CodeInternalError {
			secret, err = p.source.Read(ctx)
		}
		if err != nil {
			if p.secret != "" {
				p.logger.Warn("secret refresh failed, serving cached secret: %v", err)
				return p.secret, nil
			}
			return "", apperr.Wrap(apperr.CodeInternalError, err, "read signing secret")
		}
	}

	fp := fingerprint(secret)
	if p.fingerprint != "" && p.fingerprint != fp {
		p.logger.Warn("JWT signing secret fingerprint changed: %s -> %s", p.fingerprint, fp)
	}
	p.secret = secret
	p.fingerprint = fp
	p.fetchedAt = p.now()
	return secret, nil
}

// Invalidate forces the next Secret call to re-read from the source.
func (p *SecretProvider) Invalidate() {
	p.mu.Lock()
	p.fetchedAt = time.Time{}
	p.mu.Unlock()
}

func fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:8])
}
