package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/logging"
)

// errNotFound is the uniform answer for unknown sessions and for sessions
// that exist in another group. Callers cannot tell the two apart.
func errNotFound(identifier string) *apperr.Error {
	return apperr.New(apperr.CodeSessionNotFound, "session %q not found", identifier).
		WithRecovery("call list_active_sessions to see your group's sessions")
}

// Engine is the session state machine. All sessions are held in memory and
// mirrored to one JSON file each under dir; the directory is rescanned at
// startup so state survives restarts.
type Engine struct {
	dir    string
	logger logging.Logger

	mu           sync.Mutex
	sessions     map[string]*Session
	aliasIndex   map[string]map[string]string // group -> alias -> session_id
	reverseAlias map[string]string            // session_id -> alias
	locks        map[string]*sync.Mutex       // per-session write serialization
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates dir if needed and loads every session blob found there.
// A blob that fails to decode is logged and skipped, never deleted.
func NewEngine(dir string, opts ...Option) (*Engine, error) {
	e := &Engine{
		dir:          dir,
		logger:       logging.Nop(),
		sessions:     make(map[string]*Session),
		aliasIndex:   make(map[string]map[string]string),
		reverseAlias: make(map[string]string),
		locks:        make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.CodeLoadError, err, "creating session directory %s", dir)
	}
	if err := e.restore(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) restore() error {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return apperr.Wrap(apperr.CodeLoadError, err, "scanning session directory %s", e.dir)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(e.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			e.logger.Warn("skipping unreadable session blob %s: %v", entry.Name(), err)
			continue
		}
		var s Session
		if err := json.Unmarshal(data, &s); err != nil || s.ID == "" {
			e.logger.Warn("skipping corrupt session blob %s: %v", entry.Name(), err)
			continue
		}
		e.sessions[s.ID] = &s
		if s.Alias != "" {
			e.groupAliases(s.Group)[s.Alias] = s.ID
			e.reverseAlias[s.ID] = s.Alias
		}
	}
	if n := len(e.sessions); n > 0 {
		e.logger.Info("restored %d session(s) from %s", n, e.dir)
	}
	return nil
}

// groupAliases returns the alias map for group, creating it if needed.
// Caller must hold e.mu.
func (e *Engine) groupAliases(group string) map[string]string {
	m, ok := e.aliasIndex[group]
	if !ok {
		m = make(map[string]string)
		e.aliasIndex[group] = m
	}
	return m
}

// sessionLock returns the mutex serializing writers of session id.
// Caller must hold e.mu.
func (e *Engine) sessionLock(id string) *sync.Mutex {
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

func (e *Engine) blobPath(id string) string {
	return filepath.Join(e.dir, id+".json")
}

// persist writes the session blob atomically. Caller must hold the
// session's lock.
func (e *Engine) persist(s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return apperr.Internal(err)
	}
	tmp, err := os.CreateTemp(e.dir, "."+s.ID+"-*")
	if err != nil {
		return apperr.Wrap(apperr.CodeLoadError, err, "persisting session %s", s.ID)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperr.Wrap(apperr.CodeLoadError, err, "persisting session %s", s.ID)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperr.Wrap(apperr.CodeLoadError, err, "persisting session %s", s.ID)
	}
	if err := os.Rename(tmpName, e.blobPath(s.ID)); err != nil {
		os.Remove(tmpName)
		return apperr.Wrap(apperr.CodeLoadError, err, "persisting session %s", s.ID)
	}
	return nil
}

// Create registers a new session under alias for group. The caller is
// responsible for checking that templateID exists in the group's catalogue.
func (e *Engine) Create(ctx context.Context, templateID, alias, group string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ValidAlias(alias) {
		return nil, apperr.New(apperr.CodeInvalidAlias,
			"alias %q must be 3-64 characters of [A-Za-z0-9_-]", alias).
			WithDetail("alias", alias)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	aliases := e.groupAliases(group)
	if existing, taken := aliases[alias]; taken {
		return nil, apperr.New(apperr.CodeAliasInUse, "alias %q is already in use", alias).
			WithDetail("alias", alias).
			WithRecovery("pick a different alias or abort the existing session").
			WithDetail("session_id", existing)
	}

	now := time.Now().UTC()
	s := &Session{
		ID:               uuid.NewString(),
		Alias:            alias,
		Group:            group,
		TemplateID:       templateID,
		GlobalParameters: make(map[string]any),
		Fragments:        []FragmentInstance{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := e.persist(s); err != nil {
		return nil, err
	}
	e.sessions[s.ID] = s
	aliases[alias] = s.ID
	e.reverseAlias[s.ID] = alias
	e.logger.Info("created session %s (alias %q, template %s, group %s)", s.ID, alias, templateID, group)
	return s.clone(), nil
}

// Resolve turns an alias or UUID into a session ID, scoped to group.
func (e *Engine) Resolve(identifier, group string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolveLocked(identifier, group)
}

func (e *Engine) resolveLocked(identifier, group string) (string, error) {
	if s, ok := e.sessions[identifier]; ok && s.Group == group {
		return s.ID, nil
	}
	if id, ok := e.aliasIndex[group][identifier]; ok {
		return id, nil
	}
	return "", errNotFound(identifier)
}

// Get returns a snapshot of the session identified by alias or UUID.
func (e *Engine) Get(identifier, group string) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := e.resolveLocked(identifier, group)
	if err != nil {
		return nil, err
	}
	return e.sessions[id].clone(), nil
}

// withSession resolves identifier, takes the per-session lock, and runs fn
// against a clone of the record. The clone is swapped in under e.mu only
// after persist succeeds, so concurrent readers never observe a session that
// is mid-mutation or that disk does not hold.
func (e *Engine) withSession(identifier, group string, fn func(*Session) error) (*Session, error) {
	e.mu.Lock()
	id, err := e.resolveLocked(identifier, group)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	lock := e.sessionLock(id)
	e.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	e.mu.Lock()
	var draft *Session
	if live, ok := e.sessions[id]; ok && live.Group == group {
		draft = live.clone()
	}
	e.mu.Unlock()
	if draft == nil {
		// Aborted between resolve and lock acquisition.
		return nil, errNotFound(identifier)
	}

	if err := fn(draft); err != nil {
		return nil, err
	}
	draft.UpdatedAt = time.Now().UTC()
	if err := e.persist(draft); err != nil {
		return nil, err
	}

	// The per-session lock excludes Abort, so the record is still present.
	e.mu.Lock()
	e.sessions[id] = draft
	e.mu.Unlock()
	return draft.clone(), nil
}

// SetGlobalParameters merges params into the session's globals, last writer
// wins per key, and marks the session render-ready. The ready flag is
// sticky: once set it survives later calls with any payload.
func (e *Engine) SetGlobalParameters(identifier string, params map[string]any, group string) (*Session, error) {
	return e.withSession(identifier, group, func(s *Session) error {
		for k, v := range params {
			s.GlobalParameters[k] = v
		}
		s.RenderReady = true
		return nil
	})
}

// AddFragment inserts a fragment instance at position. The caller validates
// fragment existence and parameters before calling.
func (e *Engine) AddFragment(identifier, fragmentID string, params map[string]any, position, group string) (AddOutput, error) {
	var out AddOutput
	_, err := e.withSession(identifier, group, func(s *Session) error {
		idx, err := insertIndex(s.Fragments, position)
		if err != nil {
			return err
		}
		instance := FragmentInstance{
			GUID:       uuid.NewString(),
			FragmentID: fragmentID,
			Parameters: params,
			CreatedAt:  time.Now().UTC(),
		}
		s.Fragments = append(s.Fragments, FragmentInstance{})
		copy(s.Fragments[idx+1:], s.Fragments[idx:])
		s.Fragments[idx] = instance
		out = AddOutput{InstanceGUID: instance.GUID, PositionIndex: idx}
		return nil
	})
	return out, err
}

// RemoveFragment deletes the instance with the given GUID.
func (e *Engine) RemoveFragment(identifier, instanceGUID, group string) error {
	_, err := e.withSession(identifier, group, func(s *Session) error {
		for i, f := range s.Fragments {
			if f.GUID == instanceGUID {
				s.Fragments = append(s.Fragments[:i], s.Fragments[i+1:]...)
				return nil
			}
		}
		return apperr.New(apperr.CodeFragmentNotFound,
			"fragment instance %q not found in session", instanceGUID).
			WithRecovery("call list_session_fragments to see current instance GUIDs")
	})
	return err
}

// ListFragments returns the session's fragment instances in order.
func (e *Engine) ListFragments(identifier, group string) ([]FragmentInstance, error) {
	s, err := e.Get(identifier, group)
	if err != nil {
		return nil, err
	}
	return s.Fragments, nil
}

// List returns summaries of the group's sessions, oldest first.
func (e *Engine) List(group string) []Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Summary
	for _, s := range e.sessions {
		if s.Group == group {
			out = append(out, s.summary())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Abort permanently deletes the session and frees its alias.
func (e *Engine) Abort(identifier, group string) error {
	e.mu.Lock()
	id, err := e.resolveLocked(identifier, group)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	lock := e.sessionLock(id)
	e.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	if !ok || s.Group != group {
		return errNotFound(identifier)
	}
	if err := os.Remove(e.blobPath(id)); err != nil && !os.IsNotExist(err) {
		return apperr.Wrap(apperr.CodeLoadError, err, "deleting session blob %s", id)
	}
	delete(e.sessions, id)
	delete(e.locks, id)
	if alias, ok := e.reverseAlias[id]; ok {
		delete(e.aliasIndex[s.Group], alias)
		delete(e.reverseAlias, id)
	}
	e.logger.Info("aborted session %s (group %s)", id, group)
	return nil
}

// ValidateForRender reports whether the session may be rendered and, when
// it may not, why.
func (e *Engine) ValidateForRender(identifier, group string) (bool, string, error) {
	s, err := e.Get(identifier, group)
	if err != nil {
		return false, "", err
	}
	if !s.RenderReady {
		return false, "global parameters have never been set", nil
	}
	return true, "", nil
}
