package session

import (
	"errors"
	"fmt"

	"mcap-navigator/viewer"
)

var ErrUnknownIntent = errors.New("unknown intent")

// Intent types sent by the page.
const (
	IntentToggle = "toggle"
	IntentSelect = "select"
	IntentClear  = "clear"
	IntentSync   = "sync"
)

// Message types sent to the page.
const (
	MessageState       = "state"
	MessageTreeChanged = "tree-changed"
	MessageError       = "error"
)

// Intent is one user action received from the page.
type Intent struct {
	Type     string `json:"type"`
	Path     string `json:"path,omitempty"`
	Additive bool   `json:"additive,omitempty"`
}

func (in Intent) msg() (viewer.Msg, error) {
	switch in.Type {
	case IntentToggle:
		return viewer.ToggleFolder{Path: in.Path}, nil
	case IntentSelect:
		return viewer.SelectFile{Path: in.Path, Additive: in.Additive}, nil
	case IntentClear:
		return viewer.ClearSelection{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, in.Type)
}

// Snapshot is the state message pushed to the page after every intent.
type Snapshot struct {
	Type      string   `json:"type"`
	Expanded  []string `json:"expanded"`
	Selected  []string `json:"selected"`
	ViewerURL string   `json:"viewerUrl"`
}

// Notice is a message without state: a tree change hint or an error.
type Notice struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
}

// Session is the state of one page, owned by its socket goroutine.
type Session struct {
	ID string

	store  Store
	state  viewer.State
	base   string
	origin string
}

// Open loads the session id from store, starting from viewer.NewState when
// it has not been seen before. base is the viewer base URL and origin the
// server origin the page sees, used for file download URLs.
func Open(store Store, id, base, origin string) (*Session, error) {
	state, _, err := store.Load(id)
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, store: store, state: state, base: base, origin: origin}, nil
}

func (s *Session) State() viewer.State {
	return s.state
}

// Handle applies in, saves the new state and returns the snapshot to send.
// Sync only returns the current snapshot.
func (s *Session) Handle(in Intent) (Snapshot, error) {
	if in.Type == IntentSync {
		return s.Snapshot(), nil
	}
	msg, err := in.msg()
	if err != nil {
		return Snapshot{}, err
	}

	next := viewer.Update(s.state, msg)
	if err := s.store.Save(s.ID, next); err != nil {
		return Snapshot{}, fmt.Errorf("save session: %w", err)
	}
	s.state = next
	return s.Snapshot(), nil
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Type:      MessageState,
		Expanded:  s.state.ExpandedPaths(),
		Selected:  s.state.SelectedPaths(),
		ViewerURL: s.state.ViewerURL(s.base, s.origin),
	}
}
