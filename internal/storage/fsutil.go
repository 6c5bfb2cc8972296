package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// writeFileAtomic writes data to a sibling temp file and renames it into
// place, so readers never observe a partial write.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

type lockPayload struct {
	PID      int       `json:"pid"`
	Acquired time.Time `json:"acquired"`
}

// lockRetryDelay is how long to wait before the single retry against a live
// holder, long enough for a release that is already underway.
const lockRetryDelay = 50 * time.Millisecond

// acquireLock creates an advisory lock file with O_EXCL semantics. A lock
// older than staleAfter is taken over; a live holder gets one short-delay
// retry before ErrLockHeld. The returned release func removes the file.
//
// Multi-process guard only; in-process serialization is the caller's mutex.
func acquireLock(path string, staleAfter time.Duration) (func(), error) {
	retried := false
	for attempt := 0; attempt < 3; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			payload, _ := json.Marshal(lockPayload{PID: os.Getpid(), Acquired: time.Now().UTC()})
			_, _ = f.Write(payload)
			_ = f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
		if lockIsStale(path, staleAfter) {
			_ = os.Remove(path)
			continue
		}
		if retried {
			return nil, ErrLockHeld
		}
		retried = true
		time.Sleep(lockRetryDelay)
	}
	return nil, ErrLockHeld
}

// ErrLockHeld reports that another live process holds the advisory lock.
var ErrLockHeld = fmt.Errorf("advisory lock held")

func lockIsStale(path string, staleAfter time.Duration) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		// Holder vanished between the open and this read.
		return os.IsNotExist(err)
	}
	var payload lockPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Acquired.IsZero() {
		// Unparseable lock: fall back to file mtime.
		info, statErr := os.Stat(path)
		if statErr != nil {
			return os.IsNotExist(statErr)
		}
		return time.Since(info.ModTime()) > staleAfter
	}
	return time.Since(payload.Acquired) > staleAfter
}

// TryLock exposes advisory locking for components that share the storage
// root, such as the housekeeper's prune lock.
func TryLock(path string, staleAfter time.Duration) (func(), error) {
	return acquireLock(path, staleAfter)
}

// LockHolderPID returns the pid recorded in a lock file, for diagnostics.
func LockHolderPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var payload lockPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, fmt.Errorf("parse lock file: %w", err)
	}
	if payload.PID == 0 {
		return 0, fmt.Errorf("lock file has no pid: %s", strconv.Quote(string(data)))
	}
	return payload.PID, nil
}
