// internal/httpserver/server.go
//
// HTTP server wiring for the Vault of Echoes backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", POST /join.
//   - Participant endpoints (require participant token): rooms, answers,
//     navigation, nexus, revealed hints, SSE stream.
//   - Admin console endpoints (require admin auth): /admin/*.
//   - JWT + cookie handling for both admin accounts and anonymous
//     participant sessions.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Participant identity is the redeemed code's session, not an account;
//     there is no password on the participant side.
//   - Progress writes off the answer path are dispatched fire-and-forget;
//     the response reflects the in-memory state.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vaultofechoes/go-server/internal/codes"
	"github.com/vaultofechoes/go-server/internal/hints"
	"github.com/vaultofechoes/go-server/internal/oracle"
	"github.com/vaultofechoes/go-server/internal/phase"
	"github.com/vaultofechoes/go-server/internal/realtime"
	"github.com/vaultofechoes/go-server/internal/store"
)

// Server bundles router, persistence, realtime hub, and the game services.
type Server struct {
	r      *chi.Mux
	store  store.Store
	db     *sql.DB
	hub    *realtime.Hub
	ledger *hints.Ledger
	minter *codes.Service
	phases *phase.Controller
	book   *hints.Book
	oracle oracle.Checker // nil when no model is configured

	// Wrong-attempt counters per participant+puzzle, session-scoped.
	// Losing them on restart only resets hint escalation, never progress.
	mu       sync.Mutex
	attempts map[string]int
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, db *sql.DB, hub *realtime.Hub, ledger *hints.Ledger,
	minter *codes.Service, phases *phase.Controller, book *hints.Book,
	checker oracle.Checker) *Server {

	s := &Server{
		r:        chi.NewRouter(),
		store:    st,
		db:       db,
		hub:      hub,
		ledger:   ledger,
		minter:   minter,
		phases:   phases,
		book:     book,
		oracle:   checker,
		attempts: make(map[string]int),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(jsonContentType) // default JSON responses
	s.r.Use(corsFromEnv)     // credentials-friendly CORS

	// Request deadline for everything except the SSE streams, which stay
	// open until the client goes away.
	timeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "60s"))
	if err != nil {
		timeout = 60 * time.Second
	}
	timed := chimw.Timeout(timeout)

	// --- diagnostics + public surface ---
	s.r.Group(func(r chi.Router) {
		r.Use(timed)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"vault-of-echoes","endpoints":["/health","POST /join","/rooms","/admin/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Post("/join", s.handleJoin)
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
	})

	// Participant surface.
	s.r.Group(func(r chi.Router) {
		r.Use(s.requireParticipant())
		r.Get("/events", s.handleParticipantEvents)
		r.Group(func(r chi.Router) {
			r.Use(timed)
			r.Get("/me", s.handleMe)
			r.Post("/me/name", s.handleSetName)
			r.Get("/rooms", s.handleListRooms)
			r.Get("/rooms/{room}", s.handleRoomView)
			r.Post("/rooms/{room}/answer", s.handleAnswer)
			r.Post("/rooms/{room}/navigate", s.handleNavigate)
			r.Get("/nexus", s.handleNexusView)
			r.Post("/nexus/answer", s.handleNexusAnswer)
			r.Post("/contradiction", s.handleContradiction)
			r.Get("/hints", s.handleMyHints)
		})
	})

	// Admin console.
	s.r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin())
		r.Route("/admin/games", func(r chi.Router) {
			r.With(timed).Post("/", s.handleCreateGame)
			r.With(timed).Get("/", s.handleListGames)
			r.Route("/{gameID}", func(r chi.Router) {
				r.Get("/events", s.handleAdminEvents)
				r.Group(func(r chi.Router) {
					r.Use(timed)
					r.Get("/", s.handleGetGame)
					r.Delete("/", s.handleDeleteGame)
					r.Put("/phase", s.handleSetPhase)
					r.Put("/joinable", s.handleSetJoinable)
					r.Post("/teams", s.handleCreateTeam)
					r.Get("/teams", s.handleListTeams)
					r.Get("/participants", s.handleListParticipants)
					r.Post("/codes", s.handleMintCode)
					r.Get("/codes", s.handleListCodes)
					r.Get("/codes/{code}/qr", s.handleCodeQR)
					r.Get("/hints", s.handleListHints)
					r.Post("/hints/{hintID}/reveal", s.handleRevealHint)
					r.Get("/analytics", s.handleAnalytics)
				})
			})
		})
		r.Group(func(r chi.Router) {
			r.Use(timed)
			r.Get("/auth/me", s.handleAdminMe)
			r.Put("/admin/participants/{participantID}/team", s.handleAssignTeam)
			r.Post("/admin/participants/{participantID}/reset", s.handleResetProgress)
		})
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ helpers ------------------------------------

// writeJSON encodes v; encoding failures are already past the status line.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr emits the uniform error envelope.
func writeErr(w http.ResponseWriter, status int, code string) {
	http.Error(w, `{"error":"`+code+`"}`, status)
}

// attemptKey scopes the wrong-attempt counter.
func attemptKey(participantID, puzzleKey string) string {
	return fmt.Sprintf("%s|%s", participantID, puzzleKey)
}

func (s *Server) bumpAttempts(participantID, puzzleKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := attemptKey(participantID, puzzleKey)
	s.attempts[k]++
	return s.attempts[k]
}

func (s *Server) clearAttempts(participantID, puzzleKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, attemptKey(participantID, puzzleKey))
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
