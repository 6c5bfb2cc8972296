// Package storage implements the group-partitioned blob-with-metadata store.
// Bytes live at <root>/<group>/<guid>.<ext>; one metadata.json per group
// indexes them. All writes are temp-file + rename atomic, serialized per
// group by an in-process mutex plus an advisory lock file.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/logging"
)

// Record is a blob's metadata index entry. Bytes are never held here.
type Record struct {
	GUID      string            `json:"guid"`
	Group     string            `json:"group"`
	Format    string            `json:"format"`
	Size      int64             `json:"size"`
	CreatedAt time.Time         `json:"created_at"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Filter selects records during List, Purge and TotalSize. A nil Filter
// matches everything.
type Filter func(Record) bool

// ByArtifactType returns a filter matching the artifact_type metadata key.
func ByArtifactType(artifactType string) Filter {
	return func(r Record) bool { return r.Extra["artifact_type"] == artifactType }
}

// Store is the filesystem blob store.
type Store struct {
	root    string
	maxSize int64
	logger  logging.Logger

	mu     sync.Mutex
	groups map[string]*sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithMaxBlobSize caps the size of a single blob; zero means unlimited.
func WithMaxBlobSize(n int64) Option {
	return func(s *Store) { s.maxSize = n }
}

// WithLogger overrides the component logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(l) }
}

// New creates a store rooted at root, creating the directory when absent.
func New(root string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	s := &Store{
		root:   root,
		logger: logging.NewComponentLogger("Storage"),
		groups: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string { return s.root }

// groupMu returns the mutex serializing writes for a group.
func (s *Store) groupMu(group string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.groups[group]
	if !ok {
		mu = &sync.Mutex{}
		s.groups[group] = mu
	}
	return mu
}

func (s *Store) groupDir(group string) string { return filepath.Join(s.root, group) }

func blobFilename(guid, format string) string {
	return guid + "." + extensionFor(format)
}

// extensionFor maps a media format tag onto a file extension.
func extensionFor(format string) string {
	switch format {
	case "jpeg":
		return "jpg"
	case "markdown":
		return "md"
	case "":
		return "bin"
	default:
		return format
	}
}

// Save writes the blob atomically and appends a metadata entry. Returns the
// new blob GUID.
func (s *Store) Save(ctx context.Context, data []byte, format, group string, extra map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if group == "" {
		return "", apperr.New(apperr.CodeInvalidArguments, "storage: group is required")
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return "", apperr.New(apperr.CodeBlobTooLarge, "blob of %d bytes exceeds limit of %d bytes", len(data), s.maxSize).
			WithDetail("size", len(data)).
			WithDetail("limit", s.maxSize)
	}

	mu := s.groupMu(group)
	mu.Lock()
	defer mu.Unlock()

	dir := s.groupDir(group)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Wrap(apperr.CodeInternalError, err, "create group dir %s", group)
	}
	unlock, err := acquireLock(filepath.Join(dir, ".lock"), time.Minute)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternalError, err, "acquire group lock for %s", group)
	}
	defer unlock()

	guid := uuid.NewString()
	now := time.Now().UTC()
	rec := Record{
		GUID:      guid,
		Group:     group,
		Format:    format,
		Size:      int64(len(data)),
		CreatedAt: now,
		Extra:     extra,
	}

	final := filepath.Join(dir, blobFilename(guid, format))
	if err := writeFileAtomic(final, data); err != nil {
		if isDiskFull(err) {
			return "", apperr.Wrap(apperr.CodeDiskFull, err, "disk full writing blob %s", guid)
		}
		return "", apperr.Wrap(apperr.CodeInternalError, err, "write blob %s", guid)
	}

	idx, err := s.loadIndex(group)
	if err != nil {
		_ = os.Remove(final)
		return "", err
	}
	idx[guid] = rec
	if err := s.saveIndex(group, idx); err != nil {
		_ = os.Remove(final)
		return "", err
	}
	return guid, nil
}

// Get returns the blob bytes and metadata. A group mismatch is reported as
// not-found so callers cannot probe other tenants.
func (s *Store) Get(ctx context.Context, guid, group string) ([]byte, Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, Record{}, err
	}
	idx, err := s.loadIndex(group)
	if err != nil {
		return nil, Record{}, err
	}
	rec, ok := idx[guid]
	if !ok || rec.Group != group {
		return nil, Record{}, apperr.New(apperr.CodeNotFound, "blob not found: %s", guid)
	}
	data, err := os.ReadFile(filepath.Join(s.groupDir(group), blobFilename(guid, rec.Format)))
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("orphan metadata entry %s in group %s (bytes missing)", guid, group)
			return nil, Record{}, apperr.New(apperr.CodeNotFound, "blob not found: %s", guid)
		}
		return nil, Record{}, apperr.Wrap(apperr.CodeInternalError, err, "read blob %s", guid)
	}
	return data, rec, nil
}

// List returns metadata records for a group, newest first, never the bytes.
func (s *Store) List(ctx context.Context, group string, filter Filter) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, err := s.loadIndex(group)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(idx))
	for _, rec := range idx {
		if filter == nil || filter(rec) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	return records, nil
}

// Delete removes blob and metadata entry. Deleting an absent blob is a no-op.
func (s *Store) Delete(ctx context.Context, guid, group string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(s.groupDir(group)); os.IsNotExist(err) {
		return nil
	}

	mu := s.groupMu(group)
	mu.Lock()
	defer mu.Unlock()

	unlock, err := acquireLock(filepath.Join(s.groupDir(group), ".lock"), time.Minute)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternalError, err, "acquire group lock for %s", group)
	}
	defer unlock()

	idx, err := s.loadIndex(group)
	if err != nil {
		return err
	}
	rec, ok := idx[guid]
	if !ok {
		return nil
	}
	if err := os.Remove(filepath.Join(s.groupDir(group), blobFilename(guid, rec.Format))); err != nil && !os.IsNotExist(err) {
		return apperr.Wrap(apperr.CodeInternalError, err, "remove blob %s", guid)
	}
	delete(idx, guid)
	return s.saveIndex(group, idx)
}

// PurgeOptions narrows a purge run.
type PurgeOptions struct {
	// OlderThan removes only blobs created before now-OlderThan. Zero keeps
	// no age floor.
	OlderThan time.Duration
	// Group limits the purge to one group; empty walks every group.
	Group string
	// Filter limits the purge to matching records.
	Filter Filter
}

// Purge deletes matching blobs and returns the deletion count.
func (s *Store) Purge(ctx context.Context, opts PurgeOptions) (int, error) {
	groups, err := s.groupNames(opts.Group)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().Add(-opts.OlderThan)
	deleted := 0
	for _, group := range groups {
		records, err := s.List(ctx, group, opts.Filter)
		if err != nil {
			return deleted, err
		}
		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				return deleted, err
			}
			if opts.OlderThan > 0 && !rec.CreatedAt.Before(cutoff) {
				continue
			}
			if err := s.Delete(ctx, rec.GUID, group); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
	return deleted, nil
}

// TotalSize sums blob sizes across matching records.
func (s *Store) TotalSize(ctx context.Context, group string, filter Filter) (int64, error) {
	groups, err := s.groupNames(group)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, g := range groups {
		records, err := s.List(ctx, g, filter)
		if err != nil {
			return 0, err
		}
		for _, rec := range records {
			total += rec.Size
		}
	}
	return total, nil
}

// OldestFirst returns matching records across groups sorted by creation time
// ascending. Used by the housekeeper's oldest-first prune.
func (s *Store) OldestFirst(ctx context.Context, filter Filter) ([]Record, error) {
	groups, err := s.groupNames("")
	if err != nil {
		return nil, err
	}
	var records []Record
	for _, g := range groups {
		recs, err := s.List(ctx, g, filter)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	return records, nil
}

func (s *Store) groupNames(only string) ([]string, error) {
	if only != "" {
		return []string{only}, nil
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternalError, err, "scan storage root")
	}
	var groups []string
	for _, e := range entries {
		if e.IsDir() {
			groups = append(groups, e.Name())
		}
	}
	return groups, nil
}

func isDiskFull(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT)
}
