// internal/phase/phase.go
//
// Game lifecycle phase and the admin-facing controller.
//
// Phases: lobby → assigning → playing → voting → ended, but transitions are
// admin-triggered only and deliberately unvalidated: any phase may jump to
// any other. A forward-only sequence was considered and rejected (see
// DESIGN.md); game masters routinely need to move backward mid-session.
//
// The joinable flag is orthogonal to phase. When false, both code minting
// and code redemption are rejected.
//
// Writes are fire-and-forget: the controller dispatches the store write on
// its own goroutine and returns a result channel the caller may observe.
// Failed writes are logged; the controller never retries.

package phase

import (
	"context"

	"github.com/rs/zerolog"
)

// Phase is a game's lifecycle stage.
type Phase string

const (
	Lobby     Phase = "lobby"
	Assigning Phase = "assigning"
	Playing   Phase = "playing"
	Voting    Phase = "voting"
	Ended     Phase = "ended"
)

// All lists phases in their nominal order.
func All() []Phase { return []Phase{Lobby, Assigning, Playing, Voting, Ended} }

// Valid reports whether p names a known phase.
func (p Phase) Valid() bool {
	switch p {
	case Lobby, Assigning, Playing, Voting, Ended:
		return true
	}
	return false
}

// Writer is the slice of the store the controller needs.
type Writer interface {
	SetGamePhase(ctx context.Context, gameID string, p Phase) error
	SetGameJoinable(ctx context.Context, gameID string, joinable bool) error
}

// Controller applies admin phase and joinable writes asynchronously.
type Controller struct {
	w   Writer
	log zerolog.Logger
}

func NewController(w Writer, log zerolog.Logger) *Controller {
	return &Controller{w: w, log: log}
}

// SetPhase dispatches the phase write and returns a channel carrying its
// result. Any phase may follow any other; only unknown phase names are
// rejected, synchronously.
func (c *Controller) SetPhase(ctx context.Context, gameID string, next Phase) <-chan error {
	ch := make(chan error, 1)
	if !next.Valid() {
		ch <- errInvalidPhase(next)
		close(ch)
		return ch
	}
	go func() {
		err := c.w.SetGamePhase(ctx, gameID, next)
		if err != nil {
			c.log.Error().Err(err).Str("gameId", gameID).Str("phase", string(next)).Msg("phase write failed")
		}
		ch <- err
		close(ch)
	}()
	return ch
}

// SetJoinable dispatches the joinable write, same contract as SetPhase.
func (c *Controller) SetJoinable(ctx context.Context, gameID string, joinable bool) <-chan error {
	ch := make(chan error, 1)
	go func() {
		err := c.w.SetGameJoinable(ctx, gameID, joinable)
		if err != nil {
			c.log.Error().Err(err).Str("gameId", gameID).Bool("joinable", joinable).Msg("joinable write failed")
		}
		ch <- err
		close(ch)
	}()
	return ch
}

type errInvalidPhase Phase

func (e errInvalidPhase) Error() string { return "invalid phase: " + string(e) }
