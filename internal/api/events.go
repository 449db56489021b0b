package api

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/kikitori-app/kikitori-go/internal/player"
)

// PlaybackCommand is a playback-surface message on the event channel.
type PlaybackCommand struct {
	Op      string  `json:"op"`
	Seconds float64 `json:"seconds,omitempty"`
	Rate    float64 `json:"rate,omitempty"`
	Count   int     `json:"count,omitempty"`
	Ordinal int     `json:"ordinal,omitempty"`
}

// PlaybackEvent is a server-side event on the event channel.
type PlaybackEvent struct {
	Event           string  `json:"event"`
	State           string  `json:"state,omitempty"`
	Position        float64 `json:"position,omitempty"`
	RepeatIteration int     `json:"repeat_iteration,omitempty"`
	Ordinal         int     `json:"ordinal,omitempty"`
	Message         string  `json:"message,omitempty"`
}

// handleEvents handles GET /v1/events: a websocket through which the
// playback surface drives the controller and receives highlight and
// state events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Active()
	if sess == nil {
		s.writeError(w, http.StatusNotFound, "no active session")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctrl := sess.Player

	// gorilla allows one concurrent writer; callbacks and the command
	// loop share the connection.
	var writeMu sync.Mutex
	send := func(ev PlaybackEvent) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.Debug("event write failed", "error", err)
		}
	}

	ctrl.SetHighlightFunc(func(ordinal int) {
		send(PlaybackEvent{Event: "highlight", Ordinal: ordinal})
	})
	ctrl.SetStateFunc(func(st player.State) {
		send(PlaybackEvent{
			Event:           "state",
			State:           st.String(),
			Position:        ctrl.Position(),
			RepeatIteration: ctrl.RepeatIteration(),
		})
	})
	defer func() {
		ctrl.SetHighlightFunc(nil)
		ctrl.SetStateFunc(nil)
	}()

	s.logger.Info("playback event channel opened", "item_id", sess.Item.ID)

	for {
		var cmd PlaybackCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("playback event channel closed", "error", err)
			}
			return
		}

		if err := s.applyCommand(ctrl, cmd); err != nil {
			send(PlaybackEvent{Event: "error", Message: err.Error()})
		}
	}
}

// applyCommand dispatches one playback-surface command.
func (s *Server) applyCommand(ctrl *player.Controller, cmd PlaybackCommand) error {
	switch cmd.Op {
	case "toggle":
		ctrl.TogglePlay()
	case "seek":
		ctrl.SeekTo(cmd.Seconds)
	case "rate":
		return ctrl.SetRate(cmd.Rate)
	case "repeat":
		return ctrl.SetRepeatCount(cmd.Count)
	case "select":
		_, err := ctrl.SelectSegment(cmd.Ordinal)
		return err
	case "tick":
		ctrl.OnTimeAdvance(cmd.Seconds)
	case "ended":
		ctrl.OnPlaybackEnded()
	default:
		return errors.New("unknown op: " + cmd.Op)
	}
	return nil
}
