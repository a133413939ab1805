// Package lots parses scraped prize listings ("liste des lots") of a loto
// evening and tracks the claim cursor across their quine / double quine /
// carton plein groups.
package lots

import (
	"strings"

	"github.com/titof2710/Loto-sub000/pkg/loto"
)

// Lot is one prize entry of a listing, ordered by its printed number.
// Tier is whatever was literally read from the source text, even when it
// disagrees with the expected cyclic tier for that position.
type Lot struct {
	Number      int       `json:"number"`
	Tier        loto.Tier `json:"tier"`
	Description string    `json:"description"`
	Synthesized bool      `json:"synthesized,omitempty"` // gap-filled, not read from source
}

// tierForToken maps a printed tier token to its tier. Tokens are the ones
// found on real listings: Q, DQ, CP.
func tierForToken(tok string) (loto.Tier, bool) {
	switch strings.ToUpper(tok) {
	case "Q":
		return loto.TierQuine, true
	case "DQ":
		return loto.TierDoubleQuine, true
	case "CP":
		return loto.TierCartonPlein, true
	}
	return "", false
}

// cyclicTier returns the tier implied by a lot's position in the usual
// Q -> DQ -> CP rotation.
func cyclicTier(lotNumber int) loto.Tier {
	return loto.Tiers[(lotNumber-1)%3]
}
