// internal/store/sqlite.go
//
// SQLite-backed Store implementation.
//
// Conventions:
//   - Timestamps are RFC3339 TEXT columns, always UTC.
//   - Booleans are INTEGER 0/1.
//   - Monotonic progress flags are written with MAX(old, new) so a stale
//     writer can never flip a completion flag back to false; the only
//     false-ward transition is the explicit whole-record reset.
//   - Multi-row state transitions (redeem+create, save progress+solves,
//     reset) run inside a single transaction.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vaultofechoes/go-server/internal/phase"
	"github.com/vaultofechoes/go-server/internal/progress"
	"github.com/vaultofechoes/go-server/internal/rooms"
)

// SQLite implements Store over a *sql.DB opened with the sqlite3 driver.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

// DB exposes the underlying handle for packages that keep their own query
// layer (hints, admin users).
func (s *SQLite) DB() *sql.DB { return s.db }

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

func parseRFC3339(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// -------------------------------- games ------------------------------------

func (s *SQLite) CreateGame(ctx context.Context, name string) (*Game, error) {
	g := &Game{
		ID:        uuid.NewString(),
		Name:      name,
		Phase:     phase.Lobby,
		Joinable:  true,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (id, name, phase, joinable, created_at) VALUES (?,?,?,1,?)`,
		g.ID, g.Name, string(g.Phase), g.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return g, nil
}

func (s *SQLite) GetGame(ctx context.Context, id string) (*Game, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, phase, joinable, created_at FROM games WHERE id=?`, id)
	return scanGame(row)
}

func scanGame(row *sql.Row) (*Game, error) {
	var g Game
	var ph, created string
	var joinable int
	if err := row.Scan(&g.ID, &g.Name, &ph, &joinable, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	g.Phase = phase.Phase(ph)
	g.Joinable = joinable == 1
	g.CreatedAt = parseRFC3339(created)
	return &g, nil
}

func (s *SQLite) ListGames(ctx context.Context) ([]*Game, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, phase, joinable, created_at FROM games ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Game{}
	for rows.Next() {
		var g Game
		var ph, created string
		var joinable int
		if err := rows.Scan(&g.ID, &g.Name, &ph, &joinable, &created); err != nil {
			return nil, err
		}
		g.Phase = phase.Phase(ph)
		g.Joinable = joinable == 1
		g.CreatedAt = parseRFC3339(created)
		out = append(out, &g)
	}
	return out, rows.Err()
}

func (s *SQLite) SetGamePhase(ctx context.Context, gameID string, p phase.Phase) error {
	return s.updateGameField(ctx, gameID, `UPDATE games SET phase=? WHERE id=?`, string(p))
}

func (s *SQLite) SetGameJoinable(ctx context.Context, gameID string, joinable bool) error {
	v := 0
	if joinable {
		v = 1
	}
	return s.updateGameField(ctx, gameID, `UPDATE games SET joinable=? WHERE id=?`, v)
}

func (s *SQLite) updateGameField(ctx context.Context, gameID, query string, val any) error {
	res, err := s.db.ExecContext(ctx, query, val, gameID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) DeleteGame(ctx context.Context, gameID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id=?`, gameID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// -------------------------------- teams ------------------------------------

func (s *SQLite) CreateTeam(ctx context.Context, gameID, name, color string) (*Team, error) {
	t := &Team{ID: uuid.NewString(), GameID: gameID, Name: name, Color: color}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO teams (id, game_id, name, color) VALUES (?,?,?,?)`,
		t.ID, t.GameID, t.Name, t.Color)
	if err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}
	return t, nil
}

func (s *SQLite) ListTeams(ctx context.Context, gameID string) ([]*Team, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, game_id, name, color FROM teams WHERE game_id=? ORDER BY name`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Team{}
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.GameID, &t.Name, &t.Color); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// ----------------------------- participants --------------------------------

func (s *SQLite) GetParticipant(ctx context.Context, id string) (*Participant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, game_id, code, display_name, team_id, joined_at FROM participants WHERE id=?`, id)
	var p Participant
	var joined string
	if err := row.Scan(&p.ID, &p.GameID, &p.Code, &p.DisplayName, &p.TeamID, &joined); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.JoinedAt = parseRFC3339(joined)
	return &p, nil
}

func (s *SQLite) ListParticipants(ctx context.Context, gameID string) ([]*Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, game_id, code, display_name, team_id, joined_at
		 FROM participants WHERE game_id=? ORDER BY joined_at`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Participant{}
	for rows.Next() {
		var p Participant
		var joined string
		if err := rows.Scan(&p.ID, &p.GameID, &p.Code, &p.DisplayName, &p.TeamID, &joined); err != nil {
			return nil, err
		}
		p.JoinedAt = parseRFC3339(joined)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *SQLite) AssignTeam(ctx context.Context, participantID, teamID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE participants SET team_id=? WHERE id=?`, teamID, participantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDisplayName sets the name exactly once; a second attempt fails with
// ErrNameSet. Immutability is enforced in the UPDATE predicate, so two
// racing first writes cannot both win.
func (s *SQLite) SetDisplayName(ctx context.Context, participantID, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE participants SET display_name=? WHERE id=? AND display_name=''`,
		name, participantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetParticipant(ctx, participantID); err != nil {
			return err
		}
		return ErrNameSet
	}
	return nil
}

// -------------------------------- codes ------------------------------------

func (s *SQLite) InsertCode(ctx context.Context, gameID, code string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO codes (code, game_id, redeemed, created_at) VALUES (?,?,0,?)`,
		code, gameID, nowRFC3339())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCodeExists
	}
	return nil
}

func (s *SQLite) ListCodes(ctx context.Context, gameID string) ([]*Code, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, game_id, redeemed, created_at FROM codes WHERE game_id=? ORDER BY created_at`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Code{}
	for rows.Next() {
		var c Code
		var redeemed int
		var created string
		if err := rows.Scan(&c.Code, &c.GameID, &redeemed, &created); err != nil {
			return nil, err
		}
		c.Redeemed = redeemed == 1
		c.CreatedAt = parseRFC3339(created)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// RedeemCode consumes the code and creates the participant plus the default
// all-false progress rows, all in one transaction. Codes are unique per
// game; if the same code exists in several games the newest joinable game
// wins.
func (s *SQLite) RedeemCode(ctx context.Context, code string) (*Participant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var gameID string
	var redeemed, joinable int
	err = tx.QueryRowContext(ctx,
		`SELECT c.game_id, c.redeemed, g.joinable
		 FROM codes c JOIN games g ON g.id = c.game_id
		 WHERE c.code=?
		 ORDER BY g.joinable DESC, g.created_at DESC LIMIT 1`, code).
		Scan(&gameID, &redeemed, &joinable)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if redeemed == 1 {
		return nil, ErrCodeUsed
	}
	if joinable != 1 {
		return nil, ErrNotJoinable
	}

	// Guard against a racing redemption of the same code.
	res, err := tx.ExecContext(ctx,
		`UPDATE codes SET redeemed=1 WHERE game_id=? AND code=? AND redeemed=0`, gameID, code)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrCodeUsed
	}

	p := &Participant{
		ID:       uuid.NewString(),
		GameID:   gameID,
		Code:     code,
		JoinedAt: time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO participants (id, game_id, code, display_name, team_id, joined_at)
		 VALUES (?,?,?,'','',?)`,
		p.ID, p.GameID, p.Code, p.JoinedAt.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	for _, room := range rooms.All() {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO progress (participant_id, room, puzzle_index, complete, key_collected)
			 VALUES (?,?,0,0,0)`, p.ID, string(room))
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

// ------------------------------- progress ----------------------------------

func (s *SQLite) LoadProgress(ctx context.Context, participantID string) (progress.Set, error) {
	set := progress.NewSet()

	rows, err := s.db.QueryContext(ctx,
		`SELECT room, puzzle_index, complete, key_collected FROM progress WHERE participant_id=?`,
		participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var room string
		var idx, complete, key int
		if err := rows.Scan(&room, &idx, &complete, &key); err != nil {
			return nil, err
		}
		st, ok := set[rooms.ID(room)]
		if !ok {
			continue
		}
		st.PuzzleIndex = idx
		st.Complete = complete == 1
		st.KeyCollected = key == 1
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	solveRows, err := s.db.QueryContext(ctx,
		`SELECT room, puzzle_id FROM solves WHERE participant_id=?`, participantID)
	if err != nil {
		return nil, err
	}
	defer solveRows.Close()
	for solveRows.Next() {
		var room, pid string
		if err := solveRows.Scan(&room, &pid); err != nil {
			return nil, err
		}
		if st, ok := set[rooms.ID(room)]; ok {
			st.Solved[pid] = true
		}
	}
	return set, solveRows.Err()
}

// SaveRoomProgress writes one room's record and solve set atomically.
// Completion flags are merged with MAX so they never regress, and the
// key-implies-complete coupling is enforced here as well as in the tracker.
func (s *SQLite) SaveRoomProgress(ctx context.Context, participantID string, st *progress.State) error {
	complete := st.Complete
	if st.KeyCollected {
		complete = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO progress (participant_id, room, puzzle_index, complete, key_collected)
		 VALUES (?,?,?,?,?)
		 ON CONFLICT(participant_id, room) DO UPDATE SET
		   puzzle_index  = excluded.puzzle_index,
		   complete      = MAX(progress.complete, excluded.complete),
		   key_collected = MAX(progress.key_collected, excluded.key_collected)`,
		participantID, string(st.Room), st.PuzzleIndex, b2i(complete), b2i(st.KeyCollected))
	if err != nil {
		return err
	}
	for pid, solved := range st.Solved {
		if !solved {
			continue
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO solves (participant_id, room, puzzle_id) VALUES (?,?,?)`,
			participantID, string(st.Room), pid)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLite) ResetProgress(ctx context.Context, participantID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`UPDATE progress SET puzzle_index=0, complete=0, key_collected=0 WHERE participant_id=?`,
		participantID)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM solves WHERE participant_id=?`, participantID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) RoomCompletion(ctx context.Context, gameID string) (map[string]map[rooms.ID]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, pr.room, pr.complete
		 FROM participants p JOIN progress pr ON pr.participant_id = p.id
		 WHERE p.game_id=?`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]map[rooms.ID]bool)
	for rows.Next() {
		var pid, room string
		var complete int
		if err := rows.Scan(&pid, &room, &complete); err != nil {
			return nil, err
		}
		if out[pid] == nil {
			out[pid] = make(map[rooms.ID]bool)
		}
		out[pid][rooms.ID(room)] = complete == 1
	}
	return out, rows.Err()
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
