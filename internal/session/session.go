// Package session owns document-assembly sessions: their lifecycle, the
// group-scoped alias index, the ordered fragment list and persistence.
// Each session is one JSON blob on disk, rewritten atomically after every
// successful mutation, so the engine survives process restarts by scanning
// its directory.
package session

import (
	"regexp"
	"strings"
	"time"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
)

// aliasRe bounds what callers may use as a human-friendly session handle.
var aliasRe = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)

// FragmentInstance is one entry in a session body. The GUID is stable for
// the lifetime of the instance and never reused after removal.
type FragmentInstance struct {
	GUID       string         `json:"fragment_instance_guid"`
	FragmentID string         `json:"fragment_id"`
	Parameters map[string]any `json:"parameters"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Session is the durable record for one assembly workspace.
type Session struct {
	ID               string             `json:"session_id"`
	Alias            string             `json:"alias"`
	Group            string             `json:"group"`
	TemplateID       string             `json:"template_id"`
	GlobalParameters map[string]any     `json:"global_parameters"`
	RenderReady      bool               `json:"render_ready"`
	Fragments        []FragmentInstance `json:"fragments"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// clone returns a deep enough copy that callers can read it without
// holding the session lock.
func (s *Session) clone() *Session {
	out := *s
	out.GlobalParameters = make(map[string]any, len(s.GlobalParameters))
	for k, v := range s.GlobalParameters {
		out.GlobalParameters[k] = v
	}
	out.Fragments = make([]FragmentInstance, len(s.Fragments))
	copy(out.Fragments, s.Fragments)
	return &out
}

// Summary is the listing shape for session discovery.
type Summary struct {
	SessionID     string    `json:"session_id"`
	Alias         string    `json:"alias"`
	TemplateID    string    `json:"template_id"`
	FragmentCount int       `json:"fragment_count"`
	RenderReady   bool      `json:"render_ready"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s *Session) summary() Summary {
	return Summary{
		SessionID:     s.ID,
		Alias:         s.Alias,
		TemplateID:    s.TemplateID,
		FragmentCount: len(s.Fragments),
		RenderReady:   s.RenderReady,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// AddOutput reports where a new fragment instance landed.
type AddOutput struct {
	InstanceGUID  string `json:"instance_guid"`
	PositionIndex int    `json:"position_index"`
}

// insertIndex resolves the position grammar "start | end | before:<guid> |
// after:<guid>" against the current fragment list. Default is end.
func insertIndex(fragments []FragmentInstance, position string) (int, error) {
	switch {
	case position == "" || position == "end":
		return len(fragments), nil
	case position == "start":
		return 0, nil
	case strings.HasPrefix(position, "before:"), strings.HasPrefix(position, "after:"):
		anchor := position[strings.Index(position, ":")+1:]
		for i, f := range fragments {
			if f.GUID == anchor {
				if strings.HasPrefix(position, "after:") {
					return i + 1, nil
				}
				return i, nil
			}
		}
		return 0, apperr.New(apperr.CodeInvalidPosition,
			"anchor fragment %q not found in session", anchor).
			WithRecovery("call list_session_fragments to see valid anchor GUIDs")
	default:
		return 0, apperr.New(apperr.CodeInvalidPosition,
			"invalid position %q", position).
			WithRecovery("use start, end, before:<guid> or after:<guid>")
	}
}

// ValidAlias reports whether alias satisfies the alias grammar.
func ValidAlias(alias string) bool {
	return aliasRe.MatchString(alias)
}
