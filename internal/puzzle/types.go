// internal/puzzle/types.go
//
// Core type definitions for puzzle evaluation.
// Defines:
//   - Outcome: coarse verdict of a single attempt (solved/wrong/invalid).
//   - Result: verdict plus any strategy-specific feedback (bulls/cows, reason).
//   - Evaluator: the contract every puzzle strategy implements.

package puzzle

// Outcome is the verdict for a single attempt.
//
// OutcomeInvalid means the input was malformed for the puzzle's format and
// must be messaged differently from a wrong answer: it never consumes an
// attempt.
type Outcome string

const (
	OutcomeSolved  Outcome = "solved"
	OutcomeWrong   Outcome = "wrong"
	OutcomeInvalid Outcome = "invalid"
)

// Result carries the verdict of one evaluation.
// Bulls/Cows are populated only by the cipher strategy; Reason is populated
// only by the constraint strategy (the name of the first failed predicate).
type Result struct {
	Outcome Outcome `json:"outcome"`
	Bulls   int     `json:"bulls,omitempty"`
	Cows    int     `json:"cows,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// Evaluator scores a raw text input against a fixed secret.
// Implementations are stateless; callers own attempt counting.
type Evaluator interface {
	Evaluate(input string) Result
}
