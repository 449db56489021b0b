package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/kikitori-app/kikitori-go/internal/history"
	"github.com/kikitori-app/kikitori-go/internal/segment"
	"github.com/kikitori-app/kikitori-go/internal/session"
)

// ReadRequest represents the request body for POST /v1/read.
type ReadRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// SessionResponse describes an activated session.
type SessionResponse struct {
	ID              string            `json:"id"`
	Text            string            `json:"text"`
	DurationSeconds float64           `json:"duration_seconds"`
	SampleRate      int               `json:"sample_rate"`
	AudioURL        string            `json:"audio_url"`
	Segments        []segment.Segment `json:"segments"`
	LastPosition    float64           `json:"last_position"`
	RepeatCount     int               `json:"repeat_count"`
	PlaybackRate    float64           `json:"playback_rate"`
	State           string            `json:"state"`
}

// HistoryResponse represents the response body for GET /v1/history.
type HistoryResponse struct {
	Items []history.Item `json:"items"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the response body for GET /v1/healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func sessionResponse(sess *session.Session) SessionResponse {
	return SessionResponse{
		ID:              sess.Item.ID,
		Text:            sess.Item.Text,
		DurationSeconds: sess.Handle.Duration,
		SampleRate:      sess.Handle.SampleRate,
		AudioURL:        "/v1/audio",
		Segments:        sess.Segments,
		LastPosition:    sess.Item.LastPosition,
		RepeatCount:     sess.Item.RepeatCount,
		PlaybackRate:    sess.Item.PlaybackRate,
		State:           sess.Player.State().String(),
	}
}

// writeError sends a JSON error body with the given status.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

// handleHealthz handles GET /v1/healthz requests.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// handleRead handles POST /v1/read: synthesize text and activate a
// session for it.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	var req ReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("failed to decode read request", "error", err)
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Text == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	// The limit is in characters, matching the rune-indexed segments.
	if chars := utf8.RuneCountInString(req.Text); chars > s.cfg.MaxTextLength {
		s.logger.Warn("text exceeds max length", "chars", chars, "max", s.cfg.MaxTextLength)
		s.writeError(w, http.StatusBadRequest, "text exceeds maximum length")
		return
	}

	voice := req.Voice
	if voice == "" {
		voice = s.cfg.Voice
	}

	sess, err := s.sessions.Generate(r.Context(), req.Text, voice)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sessionResponse(sess))
}

// handleAudio handles GET /v1/audio: serve the active session's WAV.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Active()
	if sess == nil {
		s.writeError(w, http.StatusNotFound, "no active session")
		return
	}

	data := sess.Handle.Bytes()
	if data == nil {
		s.writeError(w, http.StatusNotFound, "audio released")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// handleHistory handles GET /v1/history requests.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	items := s.sessions.History()
	if items == nil {
		items = []history.Item{}
	}
	json.NewEncoder(w).Encode(HistoryResponse{Items: items})
}

// handleResume handles POST /v1/history/{id}/resume.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Resume(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sessionResponse(sess))
}

// handleDelete handles DELETE /v1/history/{id}.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.Remove(id) {
		s.writeError(w, http.StatusNotFound, "history item not found")
		return
	}

	s.logger.Info("history item removed", "item_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// writeSessionError maps session manager errors to HTTP statuses.
// Only synthesis failures are user-visible errors; everything else in
// the pipeline degrades before reaching this point.
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "history item not found")
	case errors.Is(err, session.ErrSuperseded):
		s.writeError(w, http.StatusConflict, "superseded by a newer request")
	case errors.Is(err, session.ErrSynthesis):
		s.logger.Error("synthesis failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "speech synthesis failed, try again")
	default:
		s.logger.Error("session error", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
