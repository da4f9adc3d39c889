// internal/oracle/oracle.go
//
// AURELIA's contradiction oracle, backing the identity puzzle in the
// Shrouded Network. AURELIA occasionally lies; players cross-check pairs of
// her statements against clues gathered across the rooms, and the oracle
// rules on whether the pair is contradictory.

package oracle

import "context"

// Query is a pair of AURELIA statements plus whatever clues the player has
// collected in each room. Clue fields may be empty.
type Query struct {
	Statement1   string `json:"statement1"`
	Statement2   string `json:"statement2"`
	ArchiveClues string `json:"archiveClues"`
	WellClues    string `json:"wellClues"`
	NetworkClues string `json:"networkClues"`
}

// Verdict is the oracle's ruling on a statement pair.
type Verdict struct {
	Contradictory bool   `json:"contradictory"`
	Explanation   string `json:"explanation"`
}

// Checker rules on whether two statements contradict each other.
type Checker interface {
	Check(ctx context.Context, q Query) (Verdict, error)
}
