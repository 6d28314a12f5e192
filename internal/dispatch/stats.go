package dispatch

import (
	"sync"

	"github.com/google/uuid"
)

// actionStats is the per-action breakdown of a session's bytes served and
// bytes avoided.
type actionStats struct {
	Calls        int64 `json:"calls"`
	BytesServed  int64 `json:"bytes_served"`
	BytesAvoided int64 `json:"bytes_avoided"`
}

// SessionStats accumulates process-wide counters behind one mutex: the
// number of served actions, the response bytes sent, and the source bytes
// the client was spared from receiving.
type SessionStats struct {
	// id identifies this daemon run in the status response; it
	// has no meaning across restarts and is never persisted.
	id string

	mu           sync.Mutex
	toolCalls    int64
	bytesServed  int64
	bytesAvoided int64
	byAction     map[string]*actionStats
}

func newSessionStats() *SessionStats {
	return &SessionStats{
		id:       uuid.NewString(),
		byAction: make(map[string]*actionStats),
	}
}

func (s *SessionStats) record(action string, served, avoided int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolCalls++
	s.bytesServed += served
	s.bytesAvoided += avoided
	a, ok := s.byAction[action]
	if !ok {
		a = &actionStats{}
		s.byAction[action] = a
	}
	a.Calls++
	a.BytesServed += served
	a.BytesAvoided += avoided
}

// Snapshot is the JSON-safe view of the session stats returned by the
// status action.
type Snapshot struct {
	SessionID    string                 `json:"session_id"`
	ToolCalls    int64                  `json:"tool_calls"`
	BytesServed  int64                  `json:"bytes_served"`
	BytesAvoided int64                  `json:"bytes_avoided"`
	ByAction     map[string]actionStats `json:"by_action"`
}

func (s *SessionStats) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	byAction := make(map[string]actionStats, len(s.byAction))
	for k, v := range s.byAction {
		byAction[k] = *v
	}
	return Snapshot{
		SessionID:    s.id,
		ToolCalls:    s.toolCalls,
		BytesServed:  s.bytesServed,
		BytesAvoided: s.bytesAvoided,
		ByAction:     byAction,
	}
}
