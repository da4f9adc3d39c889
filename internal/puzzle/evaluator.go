// internal/puzzle/evaluator.go
//
// The five puzzle evaluation strategies.
// Responsibilities:
//   - Permutation: input must use digits 1..N each exactly once.
//   - Cipher: classic bulls-and-cows scoring against a fixed digit secret.
//   - Phrase: normalized free-text comparison.
//   - Choice: one designated option among a fixed set.
//   - Constraint: ordered predicates over three integers plus a designated
//     solution triple.
//
// Notes:
//   - All strategies are pure; malformed input yields OutcomeInvalid and is
//     distinct from a wrong answer.
//   - Cows counting follows standard Mastermind rules for repeated digits:
//     sum over distinct guess digits of min(count in secret, count in guess),
//     minus bulls.

package puzzle

import (
	"strconv"
	"strings"
)

// ----------------------------- permutation ---------------------------------

// Permutation accepts a string that uses each digit 1..N exactly once and
// matches the target ordering. Target itself must be such a permutation.
type Permutation struct {
	Target string
}

func (p Permutation) Evaluate(input string) Result {
	guess := strings.TrimSpace(input)
	if !isPermutation(guess, len(p.Target)) {
		return Result{Outcome: OutcomeInvalid}
	}
	if guess == p.Target {
		return Result{Outcome: OutcomeSolved}
	}
	return Result{Outcome: OutcomeWrong}
}

// isPermutation reports whether s is exactly the digits 1..n, each once.
func isPermutation(s string, n int) bool {
	if len(s) != n {
		return false
	}
	var seen [10]bool
	for _, r := range s {
		d := int(r - '0')
		if d < 1 || d > n || seen[d] {
			return false
		}
		seen[d] = true
	}
	return true
}

// ------------------------------- cipher ------------------------------------

// Cipher scores a guess against a fixed-length digit secret with
// bulls-and-cows feedback. Solved iff every digit is a bull.
type Cipher struct {
	Secret string
}

func (c Cipher) Evaluate(input string) Result {
	guess := strings.TrimSpace(input)
	if len(guess) != len(c.Secret) || !isDigits(guess) {
		return Result{Outcome: OutcomeInvalid}
	}
	bulls, cows := Score(c.Secret, guess)
	out := OutcomeWrong
	if bulls == len(c.Secret) {
		out = OutcomeSolved
	}
	return Result{Outcome: out, Bulls: bulls, Cows: cows}
}

// Score computes bulls and cows for a guess of the same length as secret.
//
// Bulls: positions where the digits agree. Cows: for each distinct digit in
// the guess, min(occurrences in secret, occurrences in guess), summed, minus
// bulls. This reproduces Mastermind scoring including repeated digits.
func Score(secret, guess string) (bulls, cows int) {
	for i := 0; i < len(secret); i++ {
		if guess[i] == secret[i] {
			bulls++
		}
	}
	var inSecret, inGuess [10]int
	for i := 0; i < len(secret); i++ {
		inSecret[secret[i]-'0']++
		inGuess[guess[i]-'0']++
	}
	matched := 0
	for d := 0; d < 10; d++ {
		if inGuess[d] < inSecret[d] {
			matched += inGuess[d]
		} else {
			matched += inSecret[d]
		}
	}
	cows = matched - bulls
	return bulls, cows
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ------------------------------- phrase ------------------------------------

// Phrase matches free text against a target after normalization.
type Phrase struct {
	Target string
}

func (p Phrase) Evaluate(input string) Result {
	guess := Normalize(input)
	if guess == "" {
		return Result{Outcome: OutcomeInvalid}
	}
	if guess == Normalize(p.Target) {
		return Result{Outcome: OutcomeSolved}
	}
	return Result{Outcome: OutcomeWrong}
}

// Normalize trims, upper-cases, strips internal whitespace and underscores,
// and folds en-dashes to hyphens.
func Normalize(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '_':
			// dropped
		case r == '–': // en-dash
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ------------------------------- choice ------------------------------------

// Choice accepts exactly one of a fixed option set, with one correct answer.
// An input outside the option set is invalid rather than wrong: the UI only
// ever submits listed options, so anything else is a malformed request.
type Choice struct {
	Options []string
	Correct string
}

func (c Choice) Evaluate(input string) Result {
	guess := strings.ToUpper(strings.TrimSpace(input))
	ok := false
	for _, opt := range c.Options {
		if guess == opt {
			ok = true
			break
		}
	}
	if !ok {
		return Result{Outcome: OutcomeInvalid}
	}
	if guess == c.Correct {
		return Result{Outcome: OutcomeSolved}
	}
	return Result{Outcome: OutcomeWrong}
}

// ----------------------------- constraint ----------------------------------

// Predicate is one named condition over the (P, H, R) triple.
type Predicate struct {
	Name  string
	Holds func(p, h, r int) bool
}

// Constraint evaluates three integers against an ordered predicate list and
// a single designated solution. All predicates must hold AND the triple must
// equal the designated solution; other triples satisfying every predicate
// are still rejected (a puzzle-design choice, not a bug). On failure the
// Result names the first unsatisfied predicate in priority order.
type Constraint struct {
	Predicates []Predicate
	Solution   [3]int
}

// Evaluate parses "P,H,R" (comma or whitespace separated) and scores it.
func (c Constraint) Evaluate(input string) Result {
	p, h, r, ok := parseTriple(input)
	if !ok {
		return Result{Outcome: OutcomeInvalid}
	}
	return c.EvaluateTriple(p, h, r)
}

func (c Constraint) EvaluateTriple(p, h, r int) Result {
	for _, pred := range c.Predicates {
		if !pred.Holds(p, h, r) {
			return Result{Outcome: OutcomeWrong, Reason: pred.Name}
		}
	}
	if [3]int{p, h, r} != c.Solution {
		return Result{Outcome: OutcomeWrong}
	}
	return Result{Outcome: OutcomeSolved}
}

func parseTriple(input string) (p, h, r int, ok bool) {
	fields := strings.FieldsFunc(input, func(c rune) bool {
		return c == ',' || c == ' ' || c == '\t'
	})
	if len(fields) != 3 {
		return 0, 0, 0, false
	}
	vals := make([]int, 3)
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return 0, 0, 0, false
		}
		vals[i] = n
	}
	return vals[0], vals[1], vals[2], true
}
