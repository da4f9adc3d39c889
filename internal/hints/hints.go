// internal/hints/hints.go
//
// Hint book and disclosure ledger.
//
// Hints are authored per puzzle in a YAML book, copied into the database
// when a game is created, and disclosed to teams one at a time from the
// admin console. Disclosure is append-only: revealing a hint adds the team
// to the hint's revealed-to set and nothing ever removes it short of the
// game being deleted.

package hints

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed book.yaml
var defaultBook []byte

// Hint is one disclosable hint row, with the set of teams it has been
// revealed to.
type Hint struct {
	ID         string   `json:"id"`
	GameID     string   `json:"gameId"`
	PuzzleKey  string   `json:"puzzleKey"`
	Ordinal    int      `json:"ordinal"`
	Text       string   `json:"text"`
	RevealedTo []string `json:"revealedTo"`
}

// Book is the authored hint content, keyed by room/puzzle.
type Book struct {
	Hints []BookEntry `yaml:"hints"`
}

// BookEntry holds the ordered hint texts for one puzzle.
type BookEntry struct {
	Puzzle string   `yaml:"puzzle"`
	Texts  []string `yaml:"texts"`
}

// DefaultBook parses the embedded hint book.
func DefaultBook() (*Book, error) {
	return ParseBook(defaultBook)
}

// ParseBook decodes a YAML hint book and validates its shape.
func ParseBook(data []byte) (*Book, error) {
	var b Book
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse hint book: %w", err)
	}
	for _, e := range b.Hints {
		if e.Puzzle == "" {
			return nil, fmt.Errorf("hint book: entry with empty puzzle key")
		}
		if len(e.Texts) == 0 {
			return nil, fmt.Errorf("hint book: %s has no hint texts", e.Puzzle)
		}
	}
	return &b, nil
}

// Ledger reads and writes hint rows and their revealed-to sets.
type Ledger struct {
	db *sql.DB
}

// NewLedger wraps an open database.
func NewLedger(db *sql.DB) *Ledger { return &Ledger{db: db} }

// SeedGame copies the book into the hints table for a freshly created game.
func (l *Ledger) SeedGame(ctx context.Context, gameID string, book *Book) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, e := range book.Hints {
		for i, text := range e.Texts {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO hints (id, game_id, puzzle_key, ordinal, text) VALUES (?, ?, ?, ?, ?)`,
				uuid.NewString(), gameID, e.Puzzle, i, text)
			if err != nil {
				return fmt.Errorf("seed hints: %w", err)
			}
		}
	}
	return tx.Commit()
}

// Reveal adds teamID to the hint's revealed-to set. Revealing the same
// hint to the same team again is a no-op, not an error; two concurrent
// reveals to different teams both land.
func (l *Ledger) Reveal(ctx context.Context, hintID, teamID string) error {
	var exists int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM hints WHERE id = ?`, hintID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return sql.ErrNoRows
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO hint_reveals (hint_id, team_id) VALUES (?, ?)`,
		hintID, teamID)
	return err
}

// RevealedTo reports whether a hint has been disclosed to a team.
func (l *Ledger) RevealedTo(ctx context.Context, hintID, teamID string) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM hint_reveals WHERE hint_id = ? AND team_id = ?`,
		hintID, teamID).Scan(&n)
	return n > 0, err
}

// ListByGame returns every hint of a game with its revealed-to set, in
// puzzle-key then ordinal order.
func (l *Ledger) ListByGame(ctx context.Context, gameID string) ([]*Hint, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, game_id, puzzle_key, ordinal, text FROM hints
		 WHERE game_id = ? ORDER BY puzzle_key, ordinal`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Hint
	byID := make(map[string]*Hint)
	for rows.Next() {
		h := &Hint{RevealedTo: []string{}}
		if err := rows.Scan(&h.ID, &h.GameID, &h.PuzzleKey, &h.Ordinal, &h.Text); err != nil {
			return nil, err
		}
		out = append(out, h)
		byID[h.ID] = h
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rev, err := l.db.QueryContext(ctx,
		`SELECT r.hint_id, r.team_id FROM hint_reveals r
		 JOIN hints h ON h.id = r.hint_id WHERE h.game_id = ?
		 ORDER BY r.team_id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rev.Close()
	for rev.Next() {
		var hintID, teamID string
		if err := rev.Scan(&hintID, &teamID); err != nil {
			return nil, err
		}
		if h, ok := byID[hintID]; ok {
			h.RevealedTo = append(h.RevealedTo, teamID)
		}
	}
	return out, rev.Err()
}

// ListForTeam returns only the hints already disclosed to one team, for
// the participant-facing view.
func (l *Ledger) ListForTeam(ctx context.Context, gameID, teamID string) ([]*Hint, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT h.id, h.game_id, h.puzzle_key, h.ordinal, h.text
		 FROM hints h JOIN hint_reveals r ON r.hint_id = h.id
		 WHERE h.game_id = ? AND r.team_id = ?
		 ORDER BY h.puzzle_key, h.ordinal`, gameID, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Hint
	for rows.Next() {
		h := &Hint{RevealedTo: []string{teamID}}
		if err := rows.Scan(&h.ID, &h.GameID, &h.PuzzleKey, &h.Ordinal, &h.Text); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
