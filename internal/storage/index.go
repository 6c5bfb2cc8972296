package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
)

const indexFilename = "metadata.json"

// loadIndex reads a group's metadata index. A missing index is an empty map.
// A corrupt index is recovered by rescanning the group directory.
func (s *Store) loadIndex(group string) (map[string]Record, error) {
	path := filepath.Join(s.groupDir(group), indexFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Record{}, nil
		}
		return nil, apperr.Wrap(apperr.CodeInternalError, err, "read metadata index for %s", group)
	}
	idx := map[string]Record{}
	if err := json.Unmarshal(data, &idx); err != nil {
		s.logger.Error("corrupt metadata index for group %s, rebuilding from filesystem: %v", group, err)
		return s.rebuildIndex(group)
	}
	return idx, nil
}

// saveIndex writes the index atomically. Callers hold the group mutex.
func (s *Store) saveIndex(group string, idx map[string]Record) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.CodeInternalError, err, "encode metadata index for %s", group)
	}
	path := filepath.Join(s.groupDir(group), indexFilename)
	if err := writeFileAtomic(path, data); err != nil {
		if isDiskFull(err) {
			return apperr.Wrap(apperr.CodeDiskFull, err, "disk full writing metadata index for %s", group)
		}
		return apperr.Wrap(apperr.CodeInternalError, err, "write metadata index for %s", group)
	}
	return nil
}

// rebuildIndex regenerates index entries from the blob files on disk. The
// original extra metadata is unrecoverable; rebuilt entries carry a marker so
// the next purge can reconcile them.
func (s *Store) rebuildIndex(group string) (map[string]Record, error) {
	dir := s.groupDir(group)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeCorruptMetadata, err, "rescan group %s", group)
	}

	idx := map[string]Record{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == indexFilename || strings.HasPrefix(name, ".") {
			continue
		}
		ext := filepath.Ext(name)
		guid := strings.TrimSuffix(name, ext)
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("skipping unreadable blob %s during rebuild: %v", name, err)
			continue
		}
		created := info.ModTime().UTC()
		if created.IsZero() {
			created = time.Now().UTC()
		}
		idx[guid] = Record{
			GUID:      guid,
			Group:     group,
			Format:    strings.TrimPrefix(ext, "."),
			Size:      info.Size(),
			CreatedAt: created,
			Extra:     map[string]string{"recovered": "true"},
		}
	}

	if err := s.saveIndex(group, idx); err != nil {
		return nil, err
	}
	s.logger.Warn("rebuilt metadata index for group %s with %d entries", group, len(idx))
	return idx, nil
}
