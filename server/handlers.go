package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lixenwraith/tonestep/audio"
	"github.com/lixenwraith/tonestep/exercise"
	"github.com/lixenwraith/tonestep/note"
	"github.com/lixenwraith/tonestep/player"
	"github.com/lixenwraith/tonestep/service"
	"github.com/lixenwraith/tonestep/voice"
)

// maxVoiceBytes bounds a single uploaded WAV
const maxVoiceBytes = 16 << 20

type startRequest struct {
	Notes       []string `json:"notes"`
	Repetitions int      `json:"repetitions"`
}

type sessionView struct {
	ID             string   `json:"id"`
	Notes          []string `json:"notes"`
	Repetitions    int      `json:"repetitions"`
	Repetition     int      `json:"repetition"`
	Root           string   `json:"root"`
	Relative       string   `json:"relative"`
	Interval       string   `json:"interval"`
	ElapsedMs      int64    `json:"elapsed_ms"`
	RootPhase      string   `json:"root_phase"`
	ChallengePhase string   `json:"challenge_phase"`
	AnswerPhase    string   `json:"answer_phase"`
	Voice          bool     `json:"voice"`
}

func newSessionView(h *player.Handle) sessionView {
	snap := h.Snapshot()
	return sessionView{
		ID:             h.ID(),
		Notes:          note.NewSet(h.Notes()...).Labels(),
		Repetitions:    h.Repetitions(),
		Repetition:     snap.Repetition,
		Root:           snap.Exercise.Root.String(),
		Relative:       snap.Exercise.Relative.String(),
		Interval:       snap.Exercise.Interval.String(),
		ElapsedMs:      snap.Elapsed.Milliseconds(),
		RootPhase:      snap.Command.Root.String(),
		ChallengePhase: snap.Command.Challenge.String(),
		AnswerPhase:    snap.Command.Answer.String(),
		Voice:          snap.Command.Voice,
	}
}

type healthView struct {
	Status   string           `json:"status"`
	Services []service.Status `json:"services,omitempty"`
}

// handleHealth answers 200 while the process serves; degraded services are listed, not fatal
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	view := healthView{Status: "ok"}
	if s.health != nil {
		view.Services = s.health()
		if !service.Healthy(view.Services) {
			view.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, note.NewSet(note.All()...).Labels())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h := s.manager.Current()
	if h == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no session running"})
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(h))
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Repetitions == 0 {
		req.Repetitions = 1
	}

	notes, err := note.ParseSet(req.Notes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	h, err := s.manager.Start(notes, req.Repetitions)
	switch {
	case errors.Is(err, exercise.ErrInvalidConfiguration):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, audio.ErrDevice):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	case err != nil:
		s.log.Error("session start error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, newSessionView(h))
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	s.manager.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]int{"keys": s.manager.Voices().Keys()})
}

// handleLoadVoices bulk-loads a JSON object of key to base64 WAV; bad entries are skipped
func (s *Server) handleLoadVoices(w http.ResponseWriter, r *http.Request) {
	var samples map[int][]byte
	if err := json.NewDecoder(io.LimitReader(r.Body, maxVoiceBytes*voice.MaxKey)).Decode(&samples); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	for key := range samples {
		if key < voice.MinKey || key > voice.MaxKey {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("voice key %d out of range", key)})
			return
		}
	}

	loaded := s.manager.LoadVoiceSamples(samples)
	writeJSON(w, http.StatusOK, map[string]int{"loaded": loaded, "skipped": len(samples) - loaded})
}

func (s *Server) handlePutVoice(w http.ResponseWriter, r *http.Request) {
	key, err := strconv.Atoi(chi.URLParam(r, "key"))
	if err != nil || key < voice.MinKey || key > voice.MaxKey {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "key must be an integer within 1-12"})
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxVoiceBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.manager.Voices().Load(key, data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
