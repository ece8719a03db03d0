// api.go - REST handlers over the session manager
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"stat-attack/economy"
	"stat-attack/game"
	"stat-attack/savefile"
	"stat-attack/session"
	"stat-attack/stats"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type createRequest struct {
	Seed *int64 `json:"seed"`
}

type cardRequest struct {
	CardID string `json:"card_id"`
}

type tapeRequest struct {
	TapeID string `json:"tape_id"`
}

type teamRequest struct {
	TapeIDs []string             `json:"tape_ids"`
	Offense game.OffenseStrategy `json:"offense"`
	Defense game.DefenseStrategy `json:"defense"`
}

type sessionResponse struct {
	SessionID string        `json:"session_id"`
	State     economy.State `json:"state"`
	LiveDuel  string        `json:"live_duel,omitempty"`
}

// HealthCheck reports whether the server and its database are up.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "database unavailable", err)
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"sessions": s.sessions.Len(),
		"time":     time.Now().UTC(),
	})
}

func (s *Server) Strategies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"offense": game.OffenseStrategies,
		"defense": game.DefenseStrategies,
	})
}

func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	id, st, err := s.sessions.Create(r.Context(), req.Seed)
	if err != nil {
		respondErr(w, "could not start a game", err)
		return
	}
	respondJSON(w, http.StatusCreated, sessionResponse{SessionID: id, State: st})
}

func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.sessions.State(id)
	if err != nil {
		respondErr(w, "could not load session", err)
		return
	}
	battleID, _, _ := s.sessions.LiveDuel(id)
	respondJSON(w, http.StatusOK, sessionResponse{SessionID: id, State: st, LiveDuel: battleID})
}

func (s *Server) BuyGametape(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	id := chi.URLParam(r, "id")
	st, err := s.sessions.BuyGametape(r.Context(), id, req.CardID)
	s.stateResult(w, id, "could not buy gametape", st, err)
}

func (s *Server) BuyPlayerCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	id := chi.URLParam(r, "id")
	st, err := s.sessions.BuyPlayerCard(r.Context(), id, req.CardID)
	s.stateResult(w, id, "could not buy player card", st, err)
}

func (s *Server) SellGametape(w http.ResponseWriter, r *http.Request) {
	var req tapeRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	id := chi.URLParam(r, "id")
	st, err := s.sessions.SellGametape(id, req.TapeID)
	s.stateResult(w, id, "could not sell gametape", st, err)
}

func (s *Server) SellPlayerCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	id := chi.URLParam(r, "id")
	st, err := s.sessions.SellPlayerCard(id, req.CardID)
	s.stateResult(w, id, "could not sell player card", st, err)
}

func (s *Server) PlayDuel(w http.ResponseWriter, r *http.Request) {
	var req tapeRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	id := chi.URLParam(r, "id")
	rep, err := s.sessions.PlayDuel(r.Context(), id, req.TapeID)
	if err != nil {
		respondErr(w, "could not play duel", err)
		return
	}
	s.notifyState(id, rep.State)
	respondJSON(w, http.StatusOK, rep)
}

func (s *Server) PlayTeamBattle(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	id := chi.URLParam(r, "id")
	strategy := game.Strategy{Offense: req.Offense, Defense: req.Defense}
	rep, err := s.sessions.PlayTeamBattle(r.Context(), id, req.TapeIDs, strategy)
	if err != nil {
		respondErr(w, "could not play team battle", err)
		return
	}
	s.notifyState(id, rep.State)
	respondJSON(w, http.StatusOK, rep)
}

// ExportSave returns the save file as a download.
func (s *Server) ExportSave(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := s.sessions.Export(id)
	if err != nil {
		respondErr(w, "could not export save", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="stat-attack-save.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ImportSave replaces the session's state with the request body. A corrupt
// save answers 422 along with the fresh game that replaced it.
func (s *Server) ImportSave(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := io.ReadAll(io.LimitReader(r.Body, maxSaveSize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read save", err)
		return
	}
	st, err := s.sessions.Import(r.Context(), id, data)
	s.loadResult(w, id, "could not import save", st, err)
}

func (s *Server) SaveSlot(w http.ResponseWriter, r *http.Request) {
	id, slot := chi.URLParam(r, "id"), chi.URLParam(r, "slot")
	if err := s.sessions.SaveSlot(r.Context(), id, slot); err != nil {
		respondErr(w, "could not save", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"slot": slot})
}

func (s *Server) LoadSlot(w http.ResponseWriter, r *http.Request) {
	id, slot := chi.URLParam(r, "id"), chi.URLParam(r, "slot")
	st, err := s.sessions.LoadSlot(r.Context(), id, slot)
	s.loadResult(w, id, "could not load save", st, err)
}

func (s *Server) ListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.sessions.ListSlots(r.Context())
	if err != nil {
		respondErr(w, "could not list saves", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"slots": slots})
}

func (s *Server) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.DeleteSlot(r.Context(), chi.URLParam(r, "slot")); err != nil {
		respondErr(w, "could not delete save", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

const maxSaveSize = 1 << 20

func (s *Server) stateResult(w http.ResponseWriter, id, msg string, st economy.State, err error) {
	if err != nil {
		respondErr(w, msg, err)
		return
	}
	s.notifyState(id, st)
	respondJSON(w, http.StatusOK, sessionResponse{SessionID: id, State: st})
}

func (s *Server) loadResult(w http.ResponseWriter, id, msg string, st economy.State, err error) {
	switch {
	case err == nil:
		s.notifyState(id, st)
		respondJSON(w, http.StatusOK, sessionResponse{SessionID: id, State: st})
	case errors.Is(err, savefile.ErrSaveCorrupt) && len(st.Players) > 0:
		s.notifyState(id, st)
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      http.StatusText(http.StatusUnprocessableEntity),
			"message":    err.Error(),
			"code":       http.StatusUnprocessableEntity,
			"session_id": id,
			"state":      st,
		})
	default:
		respondErr(w, msg, err)
	}
}

// notifyState pushes a state change made over REST to the session's sockets.
func (s *Server) notifyState(id string, st economy.State) {
	s.hub.Broadcast(id, []game.Event{{Type: "State", Data: map[string]interface{}{"state": st}}})
}

// decodeBody reads a JSON body into dst. An empty body is accepted when
// optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 64<<10))
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), nil)
	return false
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, economy.ErrUnknownTape),
		errors.Is(err, economy.ErrUnknownCard),
		errors.Is(err, savefile.ErrSlotNotFound),
		errors.Is(err, stats.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, economy.ErrInsufficientTokens):
		return http.StatusPaymentRequired

	case errors.Is(err, game.ErrInvalidStrategy),
		errors.Is(err, game.ErrInvalidTeam),
		errors.Is(err, game.ErrUnknownCommand),
		errors.Is(err, session.ErrInvalidLineup),
		errors.Is(err, savefile.ErrInvalidSlot):
		return http.StatusBadRequest

	case errors.Is(err, economy.ErrAlreadyOwned),
		errors.Is(err, economy.ErrLastCard),
		errors.Is(err, economy.ErrRetiredTape),
		errors.Is(err, economy.ErrCoachModeLocked),
		errors.Is(err, session.ErrDuelInProgress),
		errors.Is(err, session.ErrNoActiveDuel),
		errors.Is(err, session.ErrNoPlayableTape),
		errors.Is(err, game.ErrNotYourTurn),
		errors.Is(err, game.ErrBattleOver),
		errors.Is(err, game.ErrNoTimeouts),
		errors.Is(err, game.ErrNoSuchAction):
		return http.StatusConflict

	case errors.Is(err, savefile.ErrSaveCorrupt),
		errors.Is(err, economy.ErrInvalidState):
		return http.StatusUnprocessableEntity

	case errors.Is(err, session.ErrSavesDisabled):
		return http.StatusNotImplemented

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondErr answers with the status for err. Internal errors are logged
// and their detail is kept out of the response.
func respondErr(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		respondError(w, status, msg, err)
		return
	}
	respondError(w, status, err.Error(), nil)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logf("error encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		logf("error: %s - %v", message, err)
	}
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
