// internal/codes/codes.go
//
// Participant code minting.
//
// A code is a memorable two-word token, all caps, hyphen-joined
// (e.g. COSMIC-BEACON). Codes are minted by an admin, handed out on
// paper or QR, and redeemed exactly once. Minting prefers a generative
// model for variety and falls back to local word lists when the model is
// unavailable or misbehaves; either way the result must match the code
// format and be unique within its game.

package codes

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/vaultofechoes/go-server/internal/store"
)

// codePattern is the canonical code shape: two all-caps words, one hyphen.
var codePattern = regexp.MustCompile(`^[A-Z]+-[A-Z]+$`)

// Valid reports whether s is a well-formed participant code.
func Valid(s string) bool { return codePattern.MatchString(s) }

// Minter produces candidate codes. Candidates are not guaranteed unique;
// the Service layers uniqueness on top.
type Minter interface {
	MintCode(ctx context.Context) (string, error)
}

// inserter is the slice of the store the service needs.
type inserter interface {
	InsertCode(ctx context.Context, gameID, code string) error
}

// Service mints codes and records them against a game, retrying on
// collision. The fallback minter covers primary failures (network, quota,
// malformed output).
type Service struct {
	primary  Minter
	fallback Minter
	store    inserter
	log      zerolog.Logger
}

// NewService builds a minting service. primary may be nil, in which case
// only the fallback is used.
func NewService(primary, fallback Minter, st inserter, log zerolog.Logger) *Service {
	return &Service{primary: primary, fallback: fallback, store: st, log: log}
}

// maxMintAttempts bounds the collision-retry loop. With two-word codes the
// space is large enough that hitting this means something else is wrong.
const maxMintAttempts = 5

// Mint produces a code unique within gameID and stores it unredeemed.
func (s *Service) Mint(ctx context.Context, gameID string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		code, err := s.candidate(ctx)
		if err != nil {
			return "", err
		}
		switch err := s.store.InsertCode(ctx, gameID, code); {
		case err == nil:
			return code, nil
		case errors.Is(err, store.ErrCodeExists):
			s.log.Debug().Str("code", code).Str("game_id", gameID).Msg("code collision, reminting")
			lastErr = err
		default:
			return "", err
		}
	}
	return "", fmt.Errorf("mint code: %d attempts exhausted: %w", maxMintAttempts, lastErr)
}

func (s *Service) candidate(ctx context.Context) (string, error) {
	if s.primary != nil {
		code, err := s.primary.MintCode(ctx)
		if err == nil {
			return code, nil
		}
		s.log.Warn().Err(err).Msg("primary minter failed, using fallback")
	}
	return s.fallback.MintCode(ctx)
}
