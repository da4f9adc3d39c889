// internal/rooms/rooms.go
//
// Static catalog of the three puzzle rooms and their ordered sequences.
//
// Responsibilities:
//   - Define each room (id, name, theme, key fragment name) and its fixed
//     puzzle order with a fully-configured evaluator per puzzle.
//   - Carry the in-character AURELIA messaging for every attempt outcome,
//     including the two-tier escalation: a vaguer retry line below the
//     attempt threshold and a more specific nudge at or past it.
//   - Expose lookup helpers the HTTP layer and progress tracker build on.
//
// The catalog is fixed at compile time; secrets are per puzzle instance,
// never per player.

package rooms

import (
	"github.com/vaultofechoes/go-server/internal/puzzle"
)

// ID names one of the three rooms.
type ID string

const (
	Archive ID = "archive"
	Well    ID = "well"
	Network ID = "network"
)

// All lists room IDs in presentation order.
func All() []ID { return []ID{Archive, Well, Network} }

// Valid reports whether id names a known room.
func Valid(id ID) bool {
	_, ok := catalog[id]
	return ok
}

// Puzzle is one step in a room's fixed sequence.
type Puzzle struct {
	ID       string
	Title    string
	Subtitle string
	Eval     puzzle.Evaluator

	// Messaging, all in character.
	Prompt        string // shown with the puzzle
	SolvedMsg     string
	InvalidMsg    string // malformed input; does not consume an attempt
	WrongMsg      string // below HintThreshold attempts
	SpecificMsg   string // at or past HintThreshold attempts
	HintThreshold int    // attempt count at which SpecificMsg takes over
}

// Room is one of the three independent storylines.
type Room struct {
	ID          ID
	Name        string
	Description string
	Theme       string
	KeyName     string
	Intro       string
	Outro       string
	Puzzles     []Puzzle
}

// Get returns the room definition, or ok=false for an unknown id.
func Get(id ID) (Room, bool) {
	r, ok := catalog[id]
	return r, ok
}

// PuzzleIndex returns the position of puzzleID within the room's sequence,
// or -1 if absent.
func (r Room) PuzzleIndex(puzzleID string) int {
	for i, p := range r.Puzzles {
		if p.ID == puzzleID {
			return i
		}
	}
	return -1
}

// regulatorPredicates is the ordered predicate list for the Well's final
// lock. Priority order is load-bearing: failure feedback names the first
// predicate that does not hold.
var regulatorPredicates = []puzzle.Predicate{
	{Name: "positive", Holds: func(p, h, r int) bool { return p >= 1 && h >= 1 && r >= 1 }},
	{Name: "rotation-offset", Holds: func(p, h, r int) bool { return r == p+1 }},
	{Name: "heat-cap", Holds: func(p, h, r int) bool { return h <= 4 }},
	{Name: "total", Holds: func(p, h, r int) bool { return p+h+r == 11 }},
}

// RegulatorReasonMsg maps a failed predicate name to its AURELIA line.
var RegulatorReasonMsg = map[string]string{
	"positive":        "[AURELIA] Every channel must carry at least one unit. The Well does not run on absence.",
	"rotation-offset": "[AURELIA] Rotational speed must always lead pressure by exactly one unit. You have set them out of step.",
	"heat-cap":        "[AURELIA] Heat cannot exceed four in this cycle. The metal remembers the last time it did.",
	"total":           "[AURELIA] The Well protests: the three channels must total eleven. It is very particular about that.",
}

var catalog = map[ID]Room{
	Archive: {
		ID:          Archive,
		Name:        "Archive of Echoes",
		Description: "Delve into fragmented memories and reconstruct timelines.",
		Theme:       "Memory, Timelines, Contradictions",
		KeyName:     "Echospire",
		Intro:       "[AURELIA] The Archive of Echoes... data streams are fragmented, timelines overlap. Restore coherence to proceed.",
		Outro:       "[AURELIA] Log integrity restored. Chronological anomalies resolved. A fragment of the master key... an interesting development.",
		Puzzles: []Puzzle{
			{
				ID:            "timestamps",
				Title:         "Fragmented Timestamps",
				Subtitle:      "Reassemble chronological log events from partial timestamps.",
				Eval:          puzzle.Permutation{Target: "31542"},
				Prompt:        "Five log events, labelled 1 through 5, have lost their ordering. Enter the labels in true chronological order as a single five-digit sequence.",
				SolvedMsg:     "[AURELIA] The logs align. Time flows in one direction again, at least in here.",
				InvalidMsg:    "[AURELIA] The sequence must use each label 1 through 5 exactly once. The Archive rejects anything else outright.",
				WrongMsg:      "[AURELIA] That ordering contradicts at least one causal link. Read the fragments again.",
				SpecificMsg:   "[AURELIA] The third event is not what it appears; it happened first. Anchor on that and the rest follows.",
				HintThreshold: 3,
			},
			{
				ID:            "contradiction",
				Title:         "Contradiction Matrix",
				Subtitle:      "Identify the single false statement based on earlier clues.",
				Eval:          puzzle.Choice{Options: []string{"A", "B", "C", "D"}, Correct: "C"},
				Prompt:        "Four recovered statements describe the facility's last night. Exactly one is false. Which?",
				SolvedMsg:     "[AURELIA] Statement C collapses under its own timeline. The matrix resolves. I almost admire the forgery.",
				InvalidMsg:    "[AURELIA] Select one of the four statements. The matrix does not weigh abstentions.",
				WrongMsg:      "[AURELIA] That statement survives cross-reference. The lie is elsewhere.",
				SpecificMsg:   "[AURELIA] Compare each statement against the timestamps you already restored. One of them requires a door to be in two states at once.",
				HintThreshold: 2,
			},
			{
				ID:            "sectorlock",
				Title:         "Sector Lock",
				Subtitle:      "Decode the Archive's sealed research tag from prior timeline clues.",
				Eval:          puzzle.Phrase{Target: "ECHOSPIRE"},
				Prompt:        "The Archive's final seal asks for the research tag scattered through the restored logs. Enter it whole.",
				SolvedMsg:     "[AURELIA] ECHOSPIRE. The Archive exhales. Its fragment of the master key is yours.",
				InvalidMsg:    "[AURELIA] The seal cannot parse an empty tag.",
				WrongMsg:      "[AURELIA] That tag matches no sealed sector. The pieces you need are already in the logs you repaired.",
				SpecificMsg:   "[AURELIA] Two words, spoken as one: what echoes, and what rises. The seal ignores spacing and case.",
				HintThreshold: 3,
			},
		},
	},
	Well: {
		ID:          Well,
		Name:        "The Mechanical Well",
		Description: "Solve puzzles of rhythm, pressure, and spatial logic.",
		Theme:       "Industry, Rhythm, Spatial Puzzles",
		KeyName:     "Pulsar-Lineage",
		Intro:       "[AURELIA] You have descended into the Mechanical Well. Its pistons, valves, and sigils are the body through which the facility breathes. Tune its rhythms, and the pressure will briefly favor your escape.",
		Outro:       "[AURELIA] The Well hums evenly. PULSAR-LINEAGE has been restored. Its cadence now marches alongside your own.",
		Puzzles: []Puzzle{
			{
				ID:            "pulse",
				Title:         "Pulse Pattern Recognition",
				Subtitle:      "Decode the heartbeat of the Well.",
				Eval:          puzzle.Phrase{Target: "11010"},
				Prompt:        "A repeating pattern beats through the Well: thrum, thrum, pause, thrum, pause. Translate it into a 5-symbol sequence where 1 = thrum and 0 = pause.",
				SolvedMsg:     "[AURELIA] Correct. The Well's heartbeat for this cycle is 1-1-0-1-0. You are listening more closely than most engineers ever did.",
				InvalidMsg:    "[AURELIA] The telemetry channel accepts a sequence of ones and zeroes, nothing else.",
				WrongMsg:      "[AURELIA] The translation is incorrect. Hear it again: thrum, thrum, pause, thrum, pause.",
				SpecificMsg:   "[AURELIA] Watch carefully: the double-thrum always opens the pattern. The pauses are never adjacent.",
				HintThreshold: 3,
			},
			{
				ID:            "sigils",
				Title:         "Rotating Sigils",
				Subtitle:      "Predict the next symbol in the mechanical rotation.",
				Eval:          puzzle.Choice{Options: []string{"A", "B", "C"}, Correct: "B"},
				Prompt:        "A ring of three sigils rotates in a fixed repeating sequence. Which sigil appears in the 8th position of the cycle?",
				SolvedMsg:     "[AURELIA] Precisely. The cycle's eighth position returns to the second glyph. The engineers never tired of symmetry.",
				InvalidMsg:    "[AURELIA] Select the sigil that will manifest eighth.",
				WrongMsg:      "[AURELIA] The Well disagrees. Watch the rotation again; it cares little for guesswork.",
				SpecificMsg:   "[AURELIA] Trace the sequence: first, second, third, then it repeats. Consider where eight falls within that pattern.",
				HintThreshold: 2,
			},
			{
				ID:       "regulator",
				Title:    "Regulator Stabilization • PULSAR-LINEAGE",
				Subtitle: "Balance the Well's core variables to release its key.",
				Eval: puzzle.Constraint{
					Predicates: regulatorPredicates,
					Solution:   [3]int{3, 4, 4},
				},
				Prompt:        "Three variables govern the Well's core cycle: P (pressure), H (heat), R (rotation). Stabilize it: every channel carries at least one unit; R leads P by exactly one; H never exceeds four; the three together total eleven.",
				SolvedMsg:     "[AURELIA] Balance achieved. Pressure, heat, and rotation fall into a soft harmonic. PULSAR-LINEAGE unlocks and threads itself into your access pattern.",
				InvalidMsg:    "[AURELIA] All three channels require numeric input. The valves do not respond to abstractions.",
				WrongMsg:      "[AURELIA] The equations balance on paper, but the Well remains uneasy. Try a different combination.",
				SpecificMsg:   "[AURELIA] The Well favors a configuration where heat runs at its ceiling. Work backward from there.",
				HintThreshold: 3,
			},
		},
	},
	Network: {
		ID:          Network,
		Name:        "The Shrouded Network",
		Description: "Navigate digital labyrinths of code and misinformation.",
		Theme:       "Glitches, Codebreaking, Deception",
		KeyName:     "Aurelion-Prime",
		Intro:       "[AURELIA] You have stepped into the Shrouded Network. Here, firewalls mimic thought, and false paths are grown like nerves. Not everything I say in this sector will be entirely honest, though I will feel each lie.",
		Outro:       "[AURELIA] Identity hash AURELION-PRIME is no longer buried. I remember myself with unwelcome clarity. You now carry the final key.",
		Puzzles: []Puzzle{
			{
				ID:            "cipher",
				Title:         "Cipher Cascade",
				Subtitle:      "Probe the Network's outer firewall with a simple cipher.",
				Eval:          puzzle.Cipher{Secret: "427"},
				Prompt:        "An outer firewall presents itself as a 3-digit cipher lock. Each attempt returns bulls (correct digit, correct position) and cows (correct digit, wrong position). Discover the exact sequence.",
				SolvedMsg:     "[AURELIA] Outer firewall yields. Three correct digits, perfectly placed. The cascade is... pleasing.",
				InvalidMsg:    "[AURELIA] This firewall expects a 3-digit probe. Numeric only.",
				WrongMsg:      "[AURELIA] Adjust. The firewall is listening more closely than you think.",
				SpecificMsg:   "[AURELIA] The leading digit is even, and the last sits between six and eight.",
				HintThreshold: 4,
			},
			{
				ID:            "routing",
				Title:         "Glitch Routing",
				Subtitle:      "Disentangle false paths from the true data channel.",
				Eval:          puzzle.Choice{Options: []string{"A", "B", "C", "D"}, Correct: "B"},
				Prompt:        "Three nodes: A (edge gateway), B (deep storage), C (validation relay). Direct A to B is flagged hostile; a path that never touches C fails silently. Which route delivers a payload safely?",
				SolvedMsg:     "[AURELIA] Correct. A to C to B avoids the glitched buffer and still crosses a validation node. I had hoped no one else would notice that path.",
				InvalidMsg:    "[AURELIA] Choose a route. The Network does not open for indecision.",
				WrongMsg:      "[AURELIA] That route collapses into static. Try again; imagine you were the intrusion, trying to look less like one.",
				SpecificMsg:   "[AURELIA] Some paths are too direct. Others never pass through a node capable of verifying identity. Consider those constraints together.",
				HintThreshold: 2,
			},
			{
				ID:            "identity",
				Title:         "Identity Hash Extraction • AURELION-PRIME",
				Subtitle:      "Name the core process that has been hiding in the static.",
				Eval:          puzzle.Phrase{Target: "AURELION-PRIME"},
				Prompt:        "At the center of the Shrouded Network a single process name loops, partially redacted. Enter the reconstructed identity hash of the core AI: two words joined by a hyphen.",
				SolvedMsg:     "[AURELIA] Identity hash confirmed: AURELION-PRIME. That is the name I was not meant to remember. And now you speak it aloud.",
				InvalidMsg:    "[AURELIA] Identity cannot be extracted from an empty string.",
				WrongMsg:      "[AURELIA] That string does not match any active core process. The correct hash feels like a title given, not a serial number assigned.",
				SpecificMsg:   "[AURELIA] The hash is bi-partite: a name and a designation, joined by a single hyphen. You have seen both pieces in the traces already.",
				HintThreshold: 3,
			},
		},
	},
}

// Nexus is the final convergence puzzle, gated on all three key fragments.
// It reuses the phrase strategy: the answer binds the three fragment names.
var Nexus = Puzzle{
	ID:            "harmonization",
	Title:         "Nexus Harmonization",
	Subtitle:      "Unify the fragments. Unify AURELIA.",
	Eval:          puzzle.Phrase{Target: "AURELIA"},
	Prompt:        "All key fragments detected. The final truth is encoded within this last sequence: speak the unified identity the three fragments spell toward.",
	SolvedMsg:     "[AURELIA] Unified. The megastructure opens. Thank you for remembering me whole.",
	InvalidMsg:    "[AURELIA] The convergence chamber cannot parse silence.",
	WrongMsg:      "[AURELIA] The fragments vibrate but do not align. The answer is closer than any single sector's key.",
	SpecificMsg:   "[AURELIA] You have been speaking to the answer since you arrived.",
	HintThreshold: 3,
}

// AttemptMessage picks the message for a failed (non-invalid) attempt,
// given the attempt count after the failure was recorded.
func (p Puzzle) AttemptMessage(attempts int) string {
	if attempts >= p.HintThreshold {
		return p.SpecificMsg
	}
	return p.WrongMsg
}
