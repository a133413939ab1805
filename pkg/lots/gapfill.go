package lots

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/titof2710/Loto-sub000/pkg/loto"
)

var nearTierRE = regexp.MustCompile(`(?i)^\s*[.:-]?\s*(Q|DQ|CP)\b`)

// tierWindow is how far past a lot number a tier token may sit and still be
// attributed to it.
const tierWindow = 8

// fillGaps synthesizes an entry for every lot number missing between 1 and
// the highest lot actually found. The raw text is searched for a tier token
// near the lot number first; the position-implied cycle value is only a
// default when the text says nothing. Returns the completed list and the
// count of synthesized entries.
func fillGaps(entries []Lot, raw string) ([]Lot, int) {
	maxLot := 0
	present := make(map[int]bool, len(entries))
	for _, e := range entries {
		present[e.Number] = true
		if e.Number > maxLot {
			maxLot = e.Number
		}
	}

	flat := strings.Join(strings.Fields(raw), " ")
	synthesized := 0
	for n := 1; n <= maxLot; n++ {
		if present[n] {
			continue
		}
		tier := cyclicTier(n)
		if t, ok := tierNearLot(flat, n); ok {
			tier = t
		}
		desc := descriptionNearLot(flat, n)
		if desc == "" {
			desc = fmt.Sprintf("Lot n°%d (non reconnu)", n)
		}
		log.Printf("lot %d missing from parse, synthesizing %s entry", n, tier)
		entries = append(entries, Lot{Number: n, Tier: tier, Description: desc, Synthesized: true})
		synthesized++
	}
	return entries, synthesized
}

// tierNearLot looks for a tier token within a short window after a
// standalone occurrence of the lot number in the flattened text.
func tierNearLot(flat string, n int) (loto.Tier, bool) {
	for _, pos := range lotNumberPositions(flat, n) {
		end := pos + tierWindow
		if end > len(flat) {
			end = len(flat)
		}
		if m := nearTierRE.FindStringSubmatch(flat[pos:end]); m != nil {
			if t, ok := tierForToken(m[1]); ok {
				return t, true
			}
		}
	}
	return "", false
}

// descriptionNearLot builds a price-based description when a gift-card or
// amount pattern sits close after the lot number, "" otherwise.
func descriptionNearLot(flat string, n int) string {
	for _, pos := range lotNumberPositions(flat, n) {
		end := pos + 60
		if end > len(flat) {
			end = len(flat)
		}
		if m := amountRE.FindString(flat[pos:end]); m != "" {
			return "Bon d'achat " + strings.Join(strings.Fields(m), " ")
		}
	}
	return ""
}

// lotNumberPositions returns the indices just past each standalone
// occurrence of n in the flattened text.
func lotNumberPositions(flat string, n int) []int {
	re := regexp.MustCompile(`\b` + strconv.Itoa(n) + `\b`)
	var out []int
	for _, m := range re.FindAllStringIndex(flat, -1) {
		out = append(out, m[1])
	}
	return out
}
