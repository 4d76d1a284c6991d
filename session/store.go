// Package session keeps the browsing state of UI sessions and applies the
// intents the page sends over its socket.
package session

import (
	"bytes"
	"encoding/gob"
	"sync"

	"mcap-navigator/viewer"
)

// Store persists viewer state per session id.
type Store interface {
	// Load returns the saved state for id; ok is false when there is none.
	Load(id string) (state viewer.State, ok bool, err error)
	Save(id string, state viewer.State) error
	Close() error
}

// storedState is the serializable form of a viewer.State.
type storedState struct {
	Expanded []string
	Selected []string
}

func toStored(s viewer.State) storedState {
	return storedState{Expanded: s.ExpandedPaths(), Selected: s.SelectedPaths()}
}

func (s storedState) state() viewer.State {
	return viewer.Restore(s.Expanded, s.Selected)
}

// Serialize encodes the state using gob.
func (s storedState) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a gob encoded state.
func (s *storedState) Deserialize(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(s)
}

// MemoryStore keeps sessions for the lifetime of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]storedState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]storedState)}
}

func (m *MemoryStore) Load(id string) (viewer.State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.sessions[id]
	if !ok {
		return viewer.NewState(), false, nil
	}
	return stored.state(), true, nil
}

func (m *MemoryStore) Save(id string, state viewer.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[id] = toStored(state)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
