// internal/progress/tracker.go
//
// Per-participant, per-room progress state machine and the cross-room
// aggregator.
//
// State machine per room: Locked(0) → Locked(1) → ... → Complete, driven
// only by solves of puzzles in the room's fixed order. Complete is terminal;
// the only way out is an explicit whole-record Reset. All boolean fields are
// monotonic (false→true) between resets.
//
// The room-complete and key-collected flags flip together in a single
// transition: observers never see a state where one is true and the other
// false. Key collection always implies storyline completion.

package progress

import (
	"errors"

	"github.com/vaultofechoes/go-server/internal/rooms"
)

// ErrUnknownPuzzle is returned when a puzzle id is not part of the room.
var ErrUnknownPuzzle = errors.New("unknown puzzle for room")

// Change describes the effect of a RecordSolve call.
type Change int

const (
	NoChange  Change = iota // already solved: idempotent no-op
	Advanced                // frontier moved to the next puzzle
	Completed               // last puzzle solved: room complete, key collected
)

// State is the progress record for one participant in one room.
type State struct {
	Room         rooms.ID
	PuzzleIndex  int             // 0-based index of the active puzzle
	Solved       map[string]bool // by puzzle id
	Complete     bool
	KeyCollected bool
}

// NewState returns the initial state for a room: index 0, nothing solved.
func NewState(room rooms.ID) *State {
	return &State{Room: room, Solved: make(map[string]bool)}
}

// RecordSolve marks puzzleID solved. Solving the last puzzle in the room's
// sequence sets Complete and KeyCollected in the same transition; otherwise
// the frontier advances. Calling with an already-solved id is a no-op.
func (s *State) RecordSolve(puzzleID string) (Change, error) {
	room, ok := rooms.Get(s.Room)
	if !ok {
		return NoChange, ErrUnknownPuzzle
	}
	if room.PuzzleIndex(puzzleID) < 0 {
		return NoChange, ErrUnknownPuzzle
	}
	if s.Solved[puzzleID] {
		return NoChange, nil
	}
	s.Solved[puzzleID] = true

	if frontier := s.frontier(room); frontier >= 0 {
		s.PuzzleIndex = frontier
		return Advanced, nil
	}

	// Every puzzle solved: completion and key collection are one transition.
	s.PuzzleIndex = len(room.Puzzles) - 1
	s.Complete = true
	s.KeyCollected = true
	return Completed, nil
}

// NavigateTo moves the active puzzle to puzzleID if allowed: any solved
// puzzle or the current frontier is navigable, but nothing past the first
// unsolved puzzle. Once the room is complete, every puzzle is navigable.
// Returns false (and leaves state untouched) when the target is locked.
func (s *State) NavigateTo(puzzleID string) bool {
	room, ok := rooms.Get(s.Room)
	if !ok {
		return false
	}
	idx := room.PuzzleIndex(puzzleID)
	if idx < 0 {
		return false
	}
	if frontier := s.frontier(room); frontier >= 0 && idx > frontier {
		return false
	}
	s.PuzzleIndex = idx
	return true
}

// Reset returns the record to its initial state. There is no per-puzzle
// reset; this is the only transition out of Complete.
func (s *State) Reset() {
	s.PuzzleIndex = 0
	s.Solved = make(map[string]bool)
	s.Complete = false
	s.KeyCollected = false
}

// frontier returns the index of the first unsolved puzzle, or -1 when all
// puzzles are solved.
func (s *State) frontier(room rooms.Room) int {
	for i, p := range room.Puzzles {
		if !s.Solved[p.ID] {
			return i
		}
	}
	return -1
}

// SolvedCount reports how many puzzles in the room are solved.
func (s *State) SolvedCount() int {
	n := 0
	for _, v := range s.Solved {
		if v {
			n++
		}
	}
	return n
}

// ------------------------------ aggregator ---------------------------------

// Set holds one participant's state for all three rooms.
type Set map[rooms.ID]*State

// NewSet builds the default all-false progress set.
func NewSet() Set {
	set := make(Set, len(rooms.All()))
	for _, id := range rooms.All() {
		set[id] = NewState(id)
	}
	return set
}

// NexusUnlocked is the derived cross-room predicate: true iff every room's
// key fragment is collected. It is recomputed on each call and never stored,
// so it can never go stale against the per-room flags.
func (set Set) NexusUnlocked() bool {
	for _, id := range rooms.All() {
		st, ok := set[id]
		if !ok || !st.KeyCollected {
			return false
		}
	}
	return true
}

// Keys reports the key-fragment flag per room.
func (set Set) Keys() map[rooms.ID]bool {
	out := make(map[rooms.ID]bool, len(set))
	for _, id := range rooms.All() {
		st, ok := set[id]
		out[id] = ok && st.KeyCollected
	}
	return out
}
