// internal/codes/gemini.go
//
// Gemini-backed code minter.

package codes

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const mintPrompt = `Generate a single memorable two-word code for a game participant.
Rules:
- exactly two English words joined by a single hyphen
- all uppercase letters, no digits, no other punctuation
- evocative but family-friendly (e.g. COSMIC-BEACON, SILVER-PHOENIX)
Respond with the code only, nothing else.`

// Gemini mints codes by asking a generative model. Output is cleaned and
// validated; anything off-format is an error and the caller falls back.
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

// MintCode implements Minter.
func (g *Gemini) MintCode(ctx context.Context) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(mintPrompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content returned from Gemini")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response type from Gemini")
	}
	code := cleanCode(string(text))
	if !Valid(code) {
		return "", fmt.Errorf("model returned malformed code %q", code)
	}
	return code, nil
}

// cleanCode strips the decoration models like to add around short answers.
func cleanCode(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.Trim(s, "`\"' \n")
	// Keep the first line only.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.ToUpper(strings.TrimSpace(s))
}
