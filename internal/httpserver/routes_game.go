// internal/httpserver/routes_game.go
//
// Participant-facing endpoints: joining with a code, the three rooms, the
// answer/navigate loop, the nexus, revealed hints, and the event stream.
//
// Answer handling is the heart of it. Evaluation and state transitions
// happen in memory first; persistence is dispatched fire-and-forget and the
// response reflects the optimistic state. A malformed input is messaged as
// invalid and never consumes an attempt; a wrong answer escalates the
// in-character messaging once the attempt threshold is crossed.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vaultofechoes/go-server/internal/codes"
	"github.com/vaultofechoes/go-server/internal/oracle"
	"github.com/vaultofechoes/go-server/internal/phase"
	"github.com/vaultofechoes/go-server/internal/progress"
	"github.com/vaultofechoes/go-server/internal/puzzle"
	"github.com/vaultofechoes/go-server/internal/realtime"
	"github.com/vaultofechoes/go-server/internal/rooms"
	"github.com/vaultofechoes/go-server/internal/store"
)

// ------------------------------- join --------------------------------------

type joinReq struct {
	Code string `json:"code"`
}

// handleJoin redeems a participant code, creates the session, and hands the
// client its token.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var body joinReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(body.Code))
	if !codes.Valid(code) {
		writeErr(w, http.StatusUnprocessableEntity, "invalid_code_format")
		return
	}

	p, err := s.store.RedeemCode(r.Context(), code)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		writeErr(w, http.StatusNotFound, "unknown_code")
		return
	case errors.Is(err, store.ErrCodeUsed):
		writeErr(w, http.StatusConflict, "code_used")
		return
	case errors.Is(err, store.ErrNotJoinable):
		writeErr(w, http.StatusConflict, "not_joinable")
		return
	default:
		log.Error().Err(err).Str("code", code).Msg("redeem code")
		writeErr(w, http.StatusInternalServerError, "join_failed")
		return
	}

	tok, exp, err := signJWT(p.ID, p.Code, "participant")
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	setAuthCookie(w, tok, exp)

	s.hub.Broadcast(p.GameID, realtime.EventParticipantJoined, map[string]string{
		"participantId": p.ID,
		"code":          p.Code,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"participant": p,
		"token":       tok,
	})
}

// ------------------------------ identity -----------------------------------

// handleMe returns the participant, their game, and a progress overview.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, set, ok := s.loadParticipant(w, r)
	if !ok {
		return
	}
	g, err := s.store.GetGame(r.Context(), p.GameID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"participant":   p,
		"game":          g,
		"rooms":         roomSummaries(set),
		"keys":          set.Keys(),
		"nexusUnlocked": set.NexusUnlocked(),
	})
}

type setNameReq struct {
	Name string `json:"name"`
}

// handleSetName sets the display name, once.
func (s *Server) handleSetName(w http.ResponseWriter, r *http.Request) {
	var body setNameReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json")
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" || len(name) > 32 {
		writeErr(w, http.StatusUnprocessableEntity, "invalid_name")
		return
	}
	err := s.store.SetDisplayName(r.Context(), participantID(r), name)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNameSet):
		writeErr(w, http.StatusConflict, "name_already_set")
		return
	default:
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "displayName": name})
}

// ------------------------------- rooms -------------------------------------

// roomSummary is the participant-facing view of one room's progress.
type roomSummary struct {
	ID           rooms.ID `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Theme        string   `json:"theme"`
	PuzzleCount  int      `json:"puzzleCount"`
	SolvedCount  int      `json:"solvedCount"`
	PuzzleIndex  int      `json:"puzzleIndex"`
	Complete     bool     `json:"complete"`
	KeyCollected bool     `json:"keyCollected"`
}

func roomSummaries(set progress.Set) []roomSummary {
	out := make([]roomSummary, 0, len(rooms.All()))
	for _, id := range rooms.All() {
		room, _ := rooms.Get(id)
		st := set[id]
		out = append(out, roomSummary{
			ID:           id,
			Name:         room.Name,
			Description:  room.Description,
			Theme:        room.Theme,
			PuzzleCount:  len(room.Puzzles),
			SolvedCount:  st.SolvedCount(),
			PuzzleIndex:  st.PuzzleIndex,
			Complete:     st.Complete,
			KeyCollected: st.KeyCollected,
		})
	}
	return out
}

// handleListRooms lists all three rooms with this participant's progress.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	_, set, ok := s.loadParticipant(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms":         roomSummaries(set),
		"keys":          set.Keys(),
		"nexusUnlocked": set.NexusUnlocked(),
	})
}

// puzzleView is the participant-facing shape of one puzzle. The evaluator
// and its secret never leave the server.
type puzzleView struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Prompt   string `json:"prompt"`
	Solved   bool   `json:"solved"`
	Active   bool   `json:"active"`
}

// handleRoomView returns a room's intro, its puzzle list, and the active
// puzzle for this participant.
func (s *Server) handleRoomView(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomParam(w, r)
	if !ok {
		return
	}
	_, set, ok := s.loadParticipant(w, r)
	if !ok {
		return
	}
	st := set[room.ID]

	views := make([]puzzleView, len(room.Puzzles))
	for i, pz := range room.Puzzles {
		views[i] = puzzleView{
			ID:       pz.ID,
			Title:    pz.Title,
			Subtitle: pz.Subtitle,
			Solved:   st.Solved[pz.ID],
			Active:   i == st.PuzzleIndex,
		}
		if views[i].Active || views[i].Solved {
			views[i].Prompt = pz.Prompt
		}
	}
	resp := map[string]any{
		"id":           room.ID,
		"name":         room.Name,
		"intro":        room.Intro,
		"keyName":      room.KeyName,
		"puzzles":      views,
		"puzzleIndex":  st.PuzzleIndex,
		"complete":     st.Complete,
		"keyCollected": st.KeyCollected,
	}
	if st.Complete {
		resp["outro"] = room.Outro
	}
	writeJSON(w, http.StatusOK, resp)
}

// ------------------------------- answer ------------------------------------

type answerReq struct {
	Input string `json:"input"`
}

// answerRes is the outcome envelope for both room and nexus answers.
type answerRes struct {
	Outcome       puzzle.Outcome `json:"outcome"`
	Message       string         `json:"message"`
	Bulls         int            `json:"bulls,omitempty"`
	Cows          int            `json:"cows,omitempty"`
	Attempts      int            `json:"attempts,omitempty"`
	PuzzleIndex   int            `json:"puzzleIndex"`
	RoomComplete  bool           `json:"roomComplete"`
	KeyCollected  bool           `json:"keyCollected"`
	NexusUnlocked bool           `json:"nexusUnlocked"`
	Outro         string         `json:"outro,omitempty"`
}

// handleAnswer evaluates an attempt at the participant's active puzzle in
// the room. Invalid input is free; wrong answers count toward the hint
// escalation; a solve advances (or completes) the room optimistically and
// persists in the background.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomParam(w, r)
	if !ok {
		return
	}
	p, set, ok := s.loadParticipant(w, r)
	if !ok {
		return
	}
	var body answerReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json")
		return
	}

	st := set[room.ID]
	pz := room.Puzzles[st.PuzzleIndex]
	if st.Solved[pz.ID] {
		writeErr(w, http.StatusConflict, "puzzle_already_solved")
		return
	}
	puzzleKey := string(room.ID) + "/" + pz.ID
	res := pz.Eval.Evaluate(body.Input)

	switch res.Outcome {
	case puzzle.OutcomeInvalid:
		writeJSON(w, http.StatusOK, answerRes{
			Outcome:     res.Outcome,
			Message:     pz.InvalidMsg,
			PuzzleIndex: st.PuzzleIndex,
		})
		return

	case puzzle.OutcomeWrong:
		attempts := s.bumpAttempts(p.ID, puzzleKey)
		msg := pz.AttemptMessage(attempts)
		// Constraint feedback names the violated rule directly.
		if res.Reason != "" {
			if m, ok := rooms.RegulatorReasonMsg[res.Reason]; ok {
				msg = m
			}
		}
		writeJSON(w, http.StatusOK, answerRes{
			Outcome:     res.Outcome,
			Message:     msg,
			Bulls:       res.Bulls,
			Cows:        res.Cows,
			Attempts:    attempts,
			PuzzleIndex: st.PuzzleIndex,
		})
		return
	}

	// Solved.
	change, err := st.RecordSolve(pz.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "progress_error")
		return
	}
	s.clearAttempts(p.ID, puzzleKey)
	s.persistRoom(p.ID, st)

	s.hub.Broadcast(p.GameID, realtime.EventProgressUpdate, map[string]any{
		"participantId": p.ID,
		"room":          room.ID,
		"puzzleId":      pz.ID,
		"solvedCount":   st.SolvedCount(),
		"complete":      st.Complete,
		"keyCollected":  st.KeyCollected,
	})

	resp := answerRes{
		Outcome:       res.Outcome,
		Message:       pz.SolvedMsg,
		Bulls:         res.Bulls,
		PuzzleIndex:   st.PuzzleIndex,
		RoomComplete:  st.Complete,
		KeyCollected:  st.KeyCollected,
		NexusUnlocked: set.NexusUnlocked(),
	}
	if change == progress.Completed {
		resp.Outro = room.Outro
	}
	writeJSON(w, http.StatusOK, resp)
}

// ------------------------------ navigate -----------------------------------

type navigateReq struct {
	PuzzleID string `json:"puzzleId"`
}

// handleNavigate moves the active puzzle within a room, guarded by the
// frontier rule: nothing past the first unsolved puzzle.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	room, ok := s.roomParam(w, r)
	if !ok {
		return
	}
	p, set, ok := s.loadParticipant(w, r)
	if !ok {
		return
	}
	var body navigateReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json")
		return
	}
	st := set[room.ID]
	if !st.NavigateTo(body.PuzzleID) {
		writeErr(w, http.StatusConflict, "puzzle_locked")
		return
	}
	s.persistRoom(p.ID, st)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "puzzleIndex": st.PuzzleIndex})
}

// ------------------------------- nexus -------------------------------------

// handleNexusView shows the convergence chamber, or the locked view with
// per-room key status when fragments are missing.
func (s *Server) handleNexusView(w http.ResponseWriter, r *http.Request) {
	_, set, ok := s.loadParticipant(w, r)
	if !ok {
		return
	}
	if !set.NexusUnlocked() {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error": "nexus_locked",
			"keys":  set.Keys(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       rooms.Nexus.ID,
		"title":    rooms.Nexus.Title,
		"subtitle": rooms.Nexus.Subtitle,
		"prompt":   rooms.Nexus.Prompt,
	})
}

// handleNexusAnswer evaluates the final answer. A solve ends the game:
// phase moves to ended and every client is told.
func (s *Server) handleNexusAnswer(w http.ResponseWriter, r *http.Request) {
	p, set, ok := s.loadParticipant(w, r)
	if !ok {
		return
	}
	if !set.NexusUnlocked() {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error": "nexus_locked",
			"keys":  set.Keys(),
		})
		return
	}
	var body answerReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json")
		return
	}

	pz := rooms.Nexus
	puzzleKey := "nexus/" + pz.ID
	res := pz.Eval.Evaluate(body.Input)

	switch res.Outcome {
	case puzzle.OutcomeInvalid:
		writeJSON(w, http.StatusOK, answerRes{Outcome: res.Outcome, Message: pz.InvalidMsg, NexusUnlocked: true})
		return
	case puzzle.OutcomeWrong:
		attempts := s.bumpAttempts(p.ID, puzzleKey)
		writeJSON(w, http.StatusOK, answerRes{
			Outcome:       res.Outcome,
			Message:       pz.AttemptMessage(attempts),
			Attempts:      attempts,
			NexusUnlocked: true,
		})
		return
	}

	s.clearAttempts(p.ID, puzzleKey)
	s.phases.SetPhase(context.Background(), p.GameID, phase.Ended)
	s.hub.Broadcast(p.GameID, realtime.EventGameEnded, map[string]any{
		"participantId": p.ID,
		"winner":        true,
	})
	writeJSON(w, http.StatusOK, answerRes{
		Outcome:       res.Outcome,
		Message:       pz.SolvedMsg,
		NexusUnlocked: true,
	})
}

// --------------------------- contradiction ---------------------------------

// handleContradiction asks AURELIA whether two of her statements contradict
// each other, given the clues the player has gathered. Part of the network
// room's identity puzzle; AURELIA sometimes lies, and the verdict is
// returned as-is.
func (s *Server) handleContradiction(w http.ResponseWriter, r *http.Request) {
	if s.oracle == nil {
		writeErr(w, http.StatusServiceUnavailable, "oracle_offline")
		return
	}
	var q oracle.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if strings.TrimSpace(q.Statement1) == "" || strings.TrimSpace(q.Statement2) == "" {
		writeErr(w, http.StatusUnprocessableEntity, "missing_statements")
		return
	}
	v, err := s.oracle.Check(r.Context(), q)
	if err != nil {
		log.Warn().Err(err).Msg("contradiction oracle")
		writeErr(w, http.StatusBadGateway, "oracle_error")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ------------------------------- hints -------------------------------------

// handleMyHints lists the hints revealed to the participant's team. A
// teamless participant sees none.
func (s *Server) handleMyHints(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetParticipant(r.Context(), participantID(r))
	if err != nil {
		writeErr(w, http.StatusUnauthorized, "invalid_token")
		return
	}
	if p.TeamID == "" {
		writeJSON(w, http.StatusOK, map[string]any{"hints": []any{}})
		return
	}
	hs, err := s.ledger.ListForTeam(r.Context(), p.GameID, p.TeamID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hints": hs})
}

// ------------------------------- events ------------------------------------

// handleParticipantEvents streams the participant's game events over SSE.
func (s *Server) handleParticipantEvents(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetParticipant(r.Context(), participantID(r))
	if err != nil {
		writeErr(w, http.StatusUnauthorized, "invalid_token")
		return
	}
	s.streamEvents(w, r, p.GameID, p.ID)
}

// streamEvents is the shared SSE loop for participant and admin streams.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, gameID, label string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "streaming_unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ch := s.hub.Subscribe(gameID, label)
	defer s.hub.Unsubscribe(gameID, ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-ch:
			_, _ = w.Write([]byte("event: " + msg.Event + "\ndata: " + msg.Data + "\n\n"))
			flusher.Flush()
		}
	}
}

// ------------------------------ shared -------------------------------------

// roomParam resolves and validates the {room} URL parameter.
func (s *Server) roomParam(w http.ResponseWriter, r *http.Request) (rooms.Room, bool) {
	id := rooms.ID(chi.URLParam(r, "room"))
	room, ok := rooms.Get(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "unknown_room")
	}
	return room, ok
}

// loadParticipant fetches the authenticated participant and their progress.
func (s *Server) loadParticipant(w http.ResponseWriter, r *http.Request) (*store.Participant, progress.Set, bool) {
	p, err := s.store.GetParticipant(r.Context(), participantID(r))
	if err != nil {
		writeErr(w, http.StatusUnauthorized, "invalid_token")
		return nil, nil, false
	}
	set, err := s.store.LoadProgress(r.Context(), p.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "db_error")
		return nil, nil, false
	}
	return p, set, true
}

// persistRoom dispatches the room record write off the request path. The
// response reflects the in-memory state; a failed write is logged and the
// client is notified on its event stream.
func (s *Server) persistRoom(pid string, st *progress.State) {
	snapshot := *st
	snapshot.Solved = make(map[string]bool, len(st.Solved))
	for k, v := range st.Solved {
		snapshot.Solved[k] = v
	}
	ch := store.Async(log.Logger, "save room progress", func() error {
		return s.store.SaveRoomProgress(context.Background(), pid, &snapshot)
	})
	go func() {
		if err := <-ch; err != nil {
			if p, gerr := s.store.GetParticipant(context.Background(), pid); gerr == nil {
				s.hub.Broadcast(p.GameID, realtime.EventErrorNotice, map[string]string{
					"participantId": pid,
					"error":         "progress_write_failed",
				})
			}
		}
	}()
}
