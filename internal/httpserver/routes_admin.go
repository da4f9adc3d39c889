// internal/httpserver/routes_admin.go
//
// Admin console endpoints: game lifecycle, teams, participant management,
// code minting (with QR), the hint ledger, analytics, and the admin event
// stream. All routes here sit behind requireAdmin.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/vaultofechoes/go-server/internal/phase"
	"github.com/vaultofechoes/go-server/internal/realtime"
	"github.com/vaultofechoes/go-server/internal/store"
)

// ------------------------------- games -------------------------------------

type createGameReq struct {
	Name string `json:"name"`
}

// handleCreateGame creates a game and seeds its hint book.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var body createGameReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json")
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		writeErr(w, http.StatusUnprocessableEntity, "invalid_name")
		return
	}
	g, err := s.store.CreateGame(r.Context(), name)
	if err != nil {
		log.Error().Err(err).Msg("create game")
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	if err := s.ledger.SeedGame(r.Context(), g.ID, s.book); err != nil {
		log.Error().Err(err).Str("game_id", g.ID).Msg("seed hint book")
		writeErr(w, http.StatusInternalServerError, "seed_failed")
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// handleListGames lists all games, newest first.
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	gs, err := s.store.ListGames(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

// handleGetGame returns one game.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// handleDeleteGame removes a game and everything under it.
func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameParam(w, r)
	if !ok {
		return
	}
	s.hub.Broadcast(g.ID, realtime.EventGameEnded, map[string]any{"deleted": true})
	if err := s.store.DeleteGame(r.Context(), g.ID); err != nil {
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ------------------------------- phase -------------------------------------

type setPhaseReq struct {
	Phase phase.Phase `json:"phase"`
}

// handleSetPhase dispatches a phase transition. Any phase may follow any
// other; the write is fire-and-forget and the broadcast goes out
// immediately.
func (s *Server) handleSetPhase(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameParam(w, r)
	if !ok {
		return
	}
	var body setPhaseReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if !body.Phase.Valid() {
		writeErr(w, http.StatusUnprocessableEntity, "unknown_phase")
		return
	}
	// Detached context: the write outlives this request.
	s.phases.SetPhase(context.Background(), g.ID, body.Phase)
	s.hub.Broadcast(g.ID, realtime.EventPhaseChanged, map[string]any{"phase": body.Phase})
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "phase": body.Phase})
}

type setJoinableReq struct {
	Joinable bool `json:"joinable"`
}

// handleSetJoinable flips the joinable flag, orthogonal to phase.
func (s *Server) handleSetJoinable(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameParam(w, r)
	if !ok {
		return
	}
	var body setJoinableReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json")
		return
	}
	s.phases.SetJoinable(context.Background(), g.ID, body.Joinable)
	s.hub.Broadcast(g.ID, realtime.EventJoinableChanged, map[string]any{"joinable": body.Joinable})
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "joinable": body.Joinable})
}

// ------------------------------- teams -------------------------------------

type createTeamReq struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameParam(w, r)
	if !ok {
		return
	}
	var body createTeamReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json")
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		writeErr(w, http.StatusUnprocessableEntity, "invalid_name")
		return
	}
	t, err := s.store.CreateTeam(r.Context(), g.ID, name, body.Color)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameParam(w, r)
	if !ok {
		return
	}
	ts, err := s.store.ListTeams(r.Context(), g.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameParam(w, r)
	if !ok {
		return
	}
	ps, err := s.store.ListParticipants(r.Context(), g.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

type assignTeamReq struct {
	TeamID string `json:"teamId"`
}

// handleAssignTeam moves a participant onto a team (or off, with "").
func (s *Server) handleAssignTeam(w http.ResponseWriter, r *http.Request) {
	pid := chi.URLParam(r, "participantID")
	var body assignTeamReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json")
		return
	}
	err := s.store.AssignTeam(r.Context(), pid, body.TeamID)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		writeErr(w, http.StatusNotFound, "unknown_participant")
		return
	default:
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	if p, err := s.store.GetParticipant(r.Context(), pid); err == nil {
		s.hub.Broadcast(p.GameID, realtime.EventTeamAssigned, map[string]string{
			"participantId": pid,
			"teamId":        body.TeamID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleResetProgress wipes a participant back to the initial all-false
// record. The only way out of a completed room.
func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	pid := chi.URLParam(r, "participantID")
	p, err := s.store.GetParticipant(r.Context(), pid)
	if err != nil {
		writeErr(w, http.StatusNotFound, "unknown_participant")
		return
	}
	if err := s.store.ResetProgress(r.Context(), pid); err != nil {
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	s.hub.Broadcast(p.GameID, realtime.EventProgressUpdate, map[string]any{
		"participantId": pid,
		"reset":         true,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ------------------------------- codes -------------------------------------

type mintCodeReq struct {
	Count int `json:"count"`
}

// handleMintCode mints one or more codes for a game. Minting is gated on
// the joinable flag, same as redemption: a closed game takes no new codes.
func (s *Server) handleMintCode(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameParam(w, r)
	if !ok {
		return
	}
	if !g.Joinable {
		writeErr(w, http.StatusConflict, "not_joinable")
		return
	}
	var body mintCodeReq
	_ = json.NewDecoder(r.Body).Decode(&body)
	count := body.Count
	if count < 1 {
		count = 1
	}
	if count > 50 {
		writeErr(w, http.StatusUnprocessableEntity, "count_too_large")
		return
	}
	minted := make([]string, 0, count)
	for i := 0; i < count; i++ {
		code, err := s.minter.Mint(r.Context(), g.ID)
		if err != nil {
			log.Error().Err(err).Str("game_id", g.ID).Msg("mint code")
			writeErr(w, http.StatusInternalServerError, "mint_failed")
			return
		}
		minted = append(minted, code)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"codes": minted})
}

func (s *Server) handleListCodes(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameParam(w, r)
	if !ok {
		return
	}
	cs, err := s.store.ListCodes(r.Context(), g.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// handleCodeQR renders a code's join link as a PNG QR, for printing.
func (s *Server) handleCodeQR(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameParam(w, r)
	if !ok {
		return
	}
	code := strings.ToUpper(chi.URLParam(r, "code"))
	cs, err := s.store.ListCodes(r.Context(), g.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	found := false
	for _, c := range cs {
		if c.Code == code {
			found = true
			break
		}
	}
	if !found {
		writeErr(w, http.StatusNotFound, "unknown_code")
		return
	}

	origin := getEnv("CLIENT_ORIGIN", "http://localhost:5173")
	joinURL := origin + "/join?code=" + url.QueryEscape(code)
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "qr_failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// ------------------------------- hints -------------------------------------

func (s *Server) handleListHints(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameParam(w, r)
	if !ok {
		return
	}
	hs, err := s.ledger.ListByGame(r.Context(), g.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, hs)
}

type revealHintReq struct {
	TeamID string `json:"teamId"`
}

// handleRevealHint adds a team to a hint's revealed-to set and pushes the
// hint text to that game's streams.
func (s *Server) handleRevealHint(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameParam(w, r)
	if !ok {
		return
	}
	hintID := chi.URLParam(r, "hintID")
	var body revealHintReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if strings.TrimSpace(body.TeamID) == "" {
		writeErr(w, http.StatusUnprocessableEntity, "invalid_team")
		return
	}
	err := s.ledger.Reveal(r.Context(), hintID, body.TeamID)
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		writeErr(w, http.StatusNotFound, "unknown_hint")
		return
	default:
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	s.hub.Broadcast(g.ID, realtime.EventHintRevealed, map[string]string{
		"hintId": hintID,
		"teamId": body.TeamID,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ----------------------------- analytics -----------------------------------

// handleAnalytics summarizes a game: headcount, per-room completion counts,
// and the per-participant completion grid.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameParam(w, r)
	if !ok {
		return
	}
	comp, err := s.store.RoomCompletion(r.Context(), g.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	perRoom := make(map[string]int)
	nexusReady := 0
	for _, byRoom := range comp {
		all := true
		for room, done := range byRoom {
			if done {
				perRoom[string(room)]++
			} else {
				all = false
			}
		}
		if all && len(byRoom) > 0 {
			nexusReady++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game":            g,
		"participants":    len(comp),
		"roomCompletions": perRoom,
		"nexusReady":      nexusReady,
		"grid":            comp,
	})
}

// ------------------------------- events ------------------------------------

// handleAdminEvents streams a game's events to the console.
func (s *Server) handleAdminEvents(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameParam(w, r)
	if !ok {
		return
	}
	me, _ := r.Context().Value(ctxAdminKey{}).(*adminUser)
	label := "admin"
	if me != nil {
		label = "admin:" + me.ID
	}
	s.streamEvents(w, r, g.ID, label)
}

// ------------------------------ shared -------------------------------------

// gameParam resolves and loads the {gameID} URL parameter.
func (s *Server) gameParam(w http.ResponseWriter, r *http.Request) (*store.Game, bool) {
	g, err := s.store.GetGame(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "unknown_game")
		} else {
			writeErr(w, http.StatusInternalServerError, "db_error")
		}
		return nil, false
	}
	return g, true
}
