// internal/codes/words.go
//
// Local word-pair minter, used when no model is configured or the model
// output is unusable.

package codes

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

var adjectives = []string{
	"AMBER", "ARGENT", "AZURE", "BOLD", "BRIGHT", "BRONZE", "CALM",
	"CLEVER", "COBALT", "COSMIC", "CRIMSON", "CRYSTAL", "DUSKY", "EMBER",
	"FABLED", "FERAL", "GILDED", "GLASS", "GOLDEN", "HIDDEN", "HOLLOW",
	"IRON", "IVORY", "JADE", "LUCID", "LUNAR", "MARBLE", "MIDNIGHT",
	"NIMBLE", "OBSIDIAN", "OPAL", "PALE", "QUIET", "RADIANT", "RAPID",
	"SCARLET", "SILENT", "SILVER", "SOLAR", "STORM", "SWIFT", "UMBER",
	"VELVET", "VIVID", "WILD", "WINTER", "ZEPHYR",
}

var nouns = []string{
	"ANCHOR", "ARROW", "BEACON", "CANYON", "CIPHER", "COMET", "COMPASS",
	"CROWN", "DELTA", "ECHO", "EMBER", "FALCON", "FLARE", "GARNET",
	"GLACIER", "HARBOR", "HAWK", "HORIZON", "LANTERN", "LYNX", "MERIDIAN",
	"NEBULA", "ORACLE", "ORBIT", "OTTER", "PHOENIX", "PRISM", "QUASAR",
	"RAVEN", "REEF", "RIDGE", "RIVER", "SIGNAL", "SPARROW", "SPIRE",
	"SUMMIT", "TALON", "TEMPEST", "THISTLE", "TIDE", "VERTEX", "VOYAGE",
	"WALKER", "WILLOW", "ZENITH",
}

// WordPair mints codes by joining a random adjective and noun. It uses
// crypto/rand so two servers minting for the same game do not walk the
// same sequence.
type WordPair struct{}

// MintCode implements Minter.
func (WordPair) MintCode(_ context.Context) (string, error) {
	adj, err := pick(adjectives)
	if err != nil {
		return "", err
	}
	noun, err := pick(nouns)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", adj, noun), nil
}

func pick(words []string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return "", err
	}
	return words[n.Int64()], nil
}
