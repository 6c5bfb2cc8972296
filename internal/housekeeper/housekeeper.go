// Package housekeeper bounds on-disk proxy-artifact usage by periodically
// deleting the oldest stored documents once total size exceeds a threshold.
package housekeeper

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/gofr-hq/gofr-doc/internal/logging"
	"github.com/gofr-hq/gofr-doc/internal/render"
	"github.com/gofr-hq/gofr-doc/internal/storage"
)

const (
	DefaultInterval  = 60 * time.Minute
	DefaultThreshold = 1024 << 20 // 1 GiB
	DefaultLockStale = time.Hour

	lockFilename = ".prune_size.lock"
)

// Keeper prunes proxy artifacts from a storage backend. The advisory lock
// keeps multi-process deployments from double-pruning a shared data dir.
type Keeper struct {
	store     *storage.Store
	threshold int64
	interval  time.Duration
	lockStale time.Duration
	logger    logging.Logger
}

// Option configures a Keeper.
type Option func(*Keeper)

// WithThreshold sets the max total size of proxy artifacts in bytes.
func WithThreshold(n int64) Option {
	return func(k *Keeper) {
		if n > 0 {
			k.threshold = n
		}
	}
}

// WithInterval sets the sweep period.
func WithInterval(d time.Duration) Option {
	return func(k *Keeper) {
		if d > 0 {
			k.interval = d
		}
	}
}

// WithLockStale sets the age after which a leftover prune lock is broken.
func WithLockStale(d time.Duration) Option {
	return func(k *Keeper) {
		if d > 0 {
			k.lockStale = d
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l logging.Logger) Option {
	return func(k *Keeper) { k.logger = logging.OrNop(l) }
}

// New builds a Keeper over store with the default period and threshold.
func New(store *storage.Store, opts ...Option) *Keeper {
	k := &Keeper{
		store:     store,
		threshold: DefaultThreshold,
		interval:  DefaultInterval,
		lockStale: DefaultLockStale,
		logger:    logging.NewComponentLogger("Housekeeper"),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (k *Keeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	if err := k.Sweep(ctx); err != nil {
		k.logger.Warn("initial sweep failed: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := k.Sweep(ctx); err != nil {
				k.logger.Warn("sweep failed: %v", err)
			}
		}
	}
}

// Sweep runs one prune cycle. It returns nil when usage is already under the
// threshold or when another process holds the prune lock.
func (k *Keeper) Sweep(ctx context.Context) error {
	filter := storage.ByArtifactType(render.ArtifactTypeProxy)

	total, err := k.store.TotalSize(ctx, "", filter)
	if err != nil {
		return err
	}
	if total <= k.threshold {
		k.logger.Debug("proxy usage %d bytes under threshold %d, nothing to prune", total, k.threshold)
		return nil
	}

	release, err := storage.TryLock(filepath.Join(k.store.Root(), lockFilename), k.lockStale)
	if err != nil {
		if errors.Is(err, storage.ErrLockHeld) {
			k.logger.Info("prune lock held elsewhere, skipping this cycle")
			return nil
		}
		return err
	}
	defer release()

	records, err := k.store.OldestFirst(ctx, filter)
	if err != nil {
		return err
	}

	var deleted int
	var freed int64
	for _, rec := range records {
		if total <= k.threshold {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := k.store.Delete(ctx, rec.GUID, rec.Group); err != nil {
			k.logger.Warn("failed to prune %s (group %s): %v", rec.GUID, rec.Group, err)
			continue
		}
		total -= rec.Size
		freed += rec.Size
		deleted++
		k.logger.Info("pruned proxy artifact %s (group %s, %d bytes, created %s)",
			rec.GUID, rec.Group, rec.Size, rec.CreatedAt.Format(time.RFC3339))
	}

	if total > k.threshold {
		k.logger.Warn("target_unmet: proxy usage %d bytes still above threshold %d after pruning %d artifacts", total, k.threshold, deleted)
	} else {
		k.logger.Info("prune cycle freed %d bytes across %d artifacts, usage now %d", freed, deleted, total)
	}
	return nil
}
