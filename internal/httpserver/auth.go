// internal/httpserver/auth.go
//
// Two token audiences share one signing secret:
//   - admins: username/password accounts in the admins table, role "admin".
//   - participants: anonymous sessions minted at code redemption, role
//     "participant". No password; possession of the token is the identity.

package httpserver

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Request payloads for signup/login.
type signupReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// adminUser is placed into request context by requireAdmin.
type adminUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ctxAdminKey / ctxParticipantKey are context key types for auth identities.
type ctxAdminKey struct{}
type ctxParticipantKey struct{}

// participantID extracts the authenticated participant ID from context.
func participantID(r *http.Request) string {
	id, _ := r.Context().Value(ctxParticipantKey{}).(string)
	return id
}

// ------------------------------ handlers -----------------------------------

// handleSignup creates a new admin account, signs a JWT, and sets the cookie.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body signupReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.createAdmin(body.Username, body.Password)
	if err != nil {
		if err.Error() == "username taken" {
			writeErr(w, http.StatusConflict, "username_taken")
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	tok, exp, err := signJWT(u.ID, u.Username, "admin")
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	setAuthCookie(w, tok, exp)
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username})
}

// handleLogin authenticates an admin and sets the cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.findAdminByUsername(strings.TrimSpace(body.Username))
	if err != nil || !checkPassword(u.PasswordHash, body.Password) {
		writeErr(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	tok, exp, err := signJWT(u.ID, u.Username, "admin")
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	setAuthCookie(w, tok, exp)
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username})
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearAuthCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleAdminMe returns the authenticated admin identity.
func (s *Server) handleAdminMe(w http.ResponseWriter, r *http.Request) {
	me, _ := r.Context().Value(ctxAdminKey{}).(*adminUser)
	if me == nil {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, me)
}

// ------------------------- admin account storage ---------------------------

// adminRow matches the admins table shape.
type adminRow struct {
	ID           string
	Username     string
	PasswordHash string
}

// createAdmin validates input, checks uniqueness, hashes password, inserts.
func (s *Server) createAdmin(username, pw string) (*adminRow, error) {
	username = strings.TrimSpace(username)
	if err := validateSignup(username, pw); err != nil {
		return nil, err
	}
	var exists int
	_ = s.db.QueryRow(`SELECT 1 FROM admins WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if exists == 1 {
		return nil, errors.New("username taken")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	id := genID()
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.Exec(`INSERT INTO admins (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		id, username, string(h), now); err != nil {
		return nil, err
	}
	return &adminRow{ID: id, Username: username, PasswordHash: string(h)}, nil
}

func (s *Server) findAdminByUsername(username string) (*adminRow, error) {
	row := s.db.QueryRow(`SELECT id, username, password_hash FROM admins WHERE lower(username)=lower(?)`, username)
	return scanAdmin(row)
}
func (s *Server) findAdminByID(id string) (*adminRow, error) {
	row := s.db.QueryRow(`SELECT id, username, password_hash FROM admins WHERE id=?`, id)
	return scanAdmin(row)
}

func scanAdmin(row *sql.Row) (*adminRow, error) {
	var u adminRow
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
		return nil, err
	}
	return &u, nil
}

// checkPassword is a bcrypt verifier.
func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// validateSignup enforces basic username/password rules.
func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8-100 chars")
	}
	return nil
}

// genID creates a 22-char URL-safe, crypto-random identifier (no padding).
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	s := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b[:])
	if len(s) > 22 {
		return s[:22]
	}
	return s
}

// ------------------------------ JWT & cookies ------------------------------

// signJWT creates an HS256 JWT with id/name/role and a configurable expiry
// (JWT_EXPIRES_DAYS; default 14).
func signJWT(id, name, role string) (string, time.Time, error) {
	secret := getEnv("JWT_SECRET", "dev_secret_change_me")
	days := 14
	if v := os.Getenv("JWT_EXPIRES_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			days = n
		}
	}
	exp := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   id,
		"name": name,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  time.Now().Unix(),
	})
	ss, err := t.SignedString([]byte(secret))
	return ss, exp, err
}

// parseJWT validates a token and returns its claims.
func parseJWT(tokenStr string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(getEnv("JWT_SECRET", "dev_secret_change_me")), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// setAuthCookie writes the auth token cookie with appropriate security attributes.
func setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	name := getEnv("COOKIE_NAME", "vault_token")
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// clearAuthCookie deletes the auth token cookie.
func clearAuthCookie(w http.ResponseWriter) {
	name := getEnv("COOKIE_NAME", "vault_token")
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		MaxAge:   -1,
	})
}

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func bearerOrCookie(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(getEnv("COOKIE_NAME", "vault_token")); err == nil {
		return c.Value
	}
	return ""
}

// ---------------------------- auth middleware ------------------------------

// requireAdmin enforces a valid admin JWT and injects adminUser into context.
func (s *Server) requireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerOrCookie(r)
			if tokenStr == "" {
				writeErr(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			claims, err := parseJWT(tokenStr)
			if err != nil {
				writeErr(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			id, _ := claims["id"].(string)
			name, _ := claims["name"].(string)
			role, _ := claims["role"].(string)
			if id == "" || role != "admin" {
				writeErr(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			// Ensure admin still exists
			if _, err := s.findAdminByID(id); err != nil {
				writeErr(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			ctx := context.WithValue(r.Context(), ctxAdminKey{}, &adminUser{ID: id, Username: name})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireParticipant enforces a valid participant JWT and injects the
// participant ID into context. The participant row must still exist; a
// deleted game invalidates its sessions.
func (s *Server) requireParticipant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerOrCookie(r)
			if tokenStr == "" {
				writeErr(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			claims, err := parseJWT(tokenStr)
			if err != nil {
				writeErr(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			id, _ := claims["id"].(string)
			role, _ := claims["role"].(string)
			if id == "" || role != "participant" {
				writeErr(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			if _, err := s.store.GetParticipant(r.Context(), id); err != nil {
				writeErr(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			ctx := context.WithValue(r.Context(), ctxParticipantKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
