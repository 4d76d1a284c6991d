package server

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"mcap-navigator/session"
	"mcap-navigator/viewer"
)

// localOrigin carries the request base URL from the upgrade middleware to
// the socket handler.
const localOrigin = "origin"

// socketWriter serializes writes; change notices and state replies come
// from different goroutines.
type socketWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *socketWriter) send(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

// handleSocket runs one UI session: it replays the saved state, then
// applies every intent the page sends and answers with the new state.
func (s *Server) handleSocket(conn *websocket.Conn) {
	defer conn.Close()

	id := conn.Query("session")
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	origin, _ := conn.Locals(localOrigin).(string)
	log := s.log.With().Str("session", id).Logger()
	out := &socketWriter{conn: conn}

	sess, err := session.Open(s.store, id, viewer.Base(s.cfg.ViewerURL), origin)
	if err != nil {
		log.Error().Err(err).Msg("cannot open session")
		if err := out.send(session.Notice{Type: session.MessageError, Error: "cannot open session"}); err != nil {
			log.Debug().Err(err).Msg("cannot report open failure")
		}
		return
	}

	if s.notifier != nil {
		changes, cancel := s.notifier.Subscribe()
		defer cancel()
		done := make(chan struct{})
		defer close(done)

		go func() {
			for {
				select {
				case <-done:
					return
				case <-changes:
					if err := out.send(session.Notice{Type: session.MessageTreeChanged}); err != nil {
						return
					}
				}
			}
		}()
	}

	if err := out.send(sess.Snapshot()); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("socket closed")
			return
		}

		var in session.Intent
		if err := json.Unmarshal(data, &in); err != nil {
			if err := out.send(session.Notice{Type: session.MessageError, Error: "malformed intent"}); err != nil {
				return
			}
			continue
		}

		snap, err := sess.Handle(in)
		if err != nil {
			msg := "internal error"
			if errors.Is(err, session.ErrUnknownIntent) {
				msg = err.Error()
			} else {
				log.Error().Err(err).Msg("intent failed")
			}
			if err := out.send(session.Notice{Type: session.MessageError, Error: msg}); err != nil {
				return
			}
			continue
		}
		if err := out.send(snap); err != nil {
			return
		}
	}
}
