// internal/oracle/gemini.go
//
// Gemini-backed Checker. The model is asked for a strict JSON ruling;
// parseVerdict strips the markdown decoration models wrap around it.

package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const checkPromptFmt = `You are AURELIA, an AI that sometimes lies during the Identity Hash Extraction puzzle in the Shrouded Network.
Your task is to determine if two statements contradict each other, given clues from other rooms.

Statement 1: %s
Statement 2: %s

Here are some clues from the Archive of Echoes room: %s
Here are some clues from the Mechanical Well room: %s
Here are some clues from the Shrouded Network room: %s

Based on your knowledge and these clues, determine if the two statements contradict each other.
Explain your reasoning in the explanation, citing specific clues.
If the statements are the same, then they cannot be contradictory.
Remember, sometimes you lie, so do not always tell the truth!
Respond with a single JSON object and nothing else:
{"contradictory": true or false, "explanation": "your reasoning"}`

// Gemini asks a generative model for the ruling.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini dials the API. The caller owns Close.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: client.GenerativeModel("gemini-2.5-flash")}, nil
}

func (g *Gemini) Close() { g.client.Close() }

// Check implements Checker.
func (g *Gemini) Check(ctx context.Context, q Query) (Verdict, error) {
	prompt := fmt.Sprintf(checkPromptFmt, q.Statement1, q.Statement2,
		orNone(q.ArchiveClues), orNone(q.WellClues), orNone(q.NetworkClues))
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Verdict{}, err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return Verdict{}, fmt.Errorf("no content returned from Gemini")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return Verdict{}, fmt.Errorf("unexpected response type from Gemini")
	}
	return parseVerdict(string(text))
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none collected)"
	}
	return s
}

// parseVerdict unwraps markdown fences and decodes the JSON ruling.
func parseVerdict(s string) (Verdict, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	var v Verdict
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return Verdict{}, fmt.Errorf("malformed oracle ruling: %w", err)
	}
	return v, nil
}
