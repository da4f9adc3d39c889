// internal/store/store.go
//
// Entity types and the persistence interface for the game server.
//
// The interface mirrors the document-store boundary the game logic depends
// on: get-one, get-many-by-parent, partial-field updates, and whole-record
// replacement, keyed game → sub-collection → record. Implementations may be
// backed by SQLite (this package), Postgres, or memory.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/vaultofechoes/go-server/internal/phase"
	"github.com/vaultofechoes/go-server/internal/progress"
	"github.com/vaultofechoes/go-server/internal/rooms"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCodeExists is returned when a minted code collides within its game.
	ErrCodeExists = errors.New("code already exists in game")
	// ErrCodeUsed is returned when redeeming an already-redeemed code.
	ErrCodeUsed = errors.New("code already redeemed")
	// ErrNotJoinable is returned when redeeming into a closed game.
	ErrNotJoinable = errors.New("game is not joinable")
	// ErrNameSet is returned when a participant tries to rename themselves.
	ErrNameSet = errors.New("display name already set")
)

// Game is one escape-room session instance.
type Game struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Phase     phase.Phase `json:"phase"`
	Joinable  bool        `json:"joinable"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Team is a pure grouping entity inside one game.
type Team struct {
	ID     string `json:"id"`
	GameID string `json:"gameId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

// Participant is one human who redeemed a code into a game.
// TeamID is a back-reference only; empty means unassigned.
type Participant struct {
	ID          string    `json:"id"`
	GameID      string    `json:"gameId"`
	Code        string    `json:"code"`
	DisplayName string    `json:"displayName"`
	TeamID      string    `json:"teamId"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// Code is a one-time join token scoped to a game.
type Code struct {
	Code      string    `json:"code"`
	GameID    string    `json:"gameId"`
	Redeemed  bool      `json:"redeemed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the persistence boundary for all game entities.
type Store interface {
	// Games.
	CreateGame(ctx context.Context, name string) (*Game, error)
	GetGame(ctx context.Context, id string) (*Game, error)
	ListGames(ctx context.Context) ([]*Game, error)
	SetGamePhase(ctx context.Context, gameID string, p phase.Phase) error
	SetGameJoinable(ctx context.Context, gameID string, joinable bool) error
	// DeleteGame finishes a game; children cascade (teams, participants,
	// codes, hints, progress).
	DeleteGame(ctx context.Context, gameID string) error

	// Teams.
	CreateTeam(ctx context.Context, gameID, name, color string) (*Team, error)
	ListTeams(ctx context.Context, gameID string) ([]*Team, error)

	// Participants.
	GetParticipant(ctx context.Context, id string) (*Participant, error)
	ListParticipants(ctx context.Context, gameID string) ([]*Participant, error)
	AssignTeam(ctx context.Context, participantID, teamID string) error
	SetDisplayName(ctx context.Context, participantID, name string) error

	// Codes. RedeemCode atomically consumes an unredeemed code in a
	// joinable game and creates the participant with default progress.
	InsertCode(ctx context.Context, gameID, code string) error
	ListCodes(ctx context.Context, gameID string) ([]*Code, error)
	RedeemCode(ctx context.Context, code string) (*Participant, error)

	// Progress. SaveRoomProgress persists one room's record and its solve
	// set in a single transaction.
	LoadProgress(ctx context.Context, participantID string) (progress.Set, error)
	SaveRoomProgress(ctx context.Context, participantID string, st *progress.State) error
	ResetProgress(ctx context.Context, participantID string) error

	// RoomCompletion returns per-room completion flags for every
	// participant of a game, for the admin analytics view.
	RoomCompletion(ctx context.Context, gameID string) (map[string]map[rooms.ID]bool, error)
}
