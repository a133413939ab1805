package lots

import (
	"log"
	"regexp"
	"strconv"
	"strings"
)

// maxFlexibleLots bounds the lot numbers the flexible pass will anchor on;
// real evenings rarely list more than 24 lots.
const maxFlexibleLots = 24

// maxDescriptionLen is the soft cap before a flexible-pass description gets
// truncated at a currency-amount boundary.
const maxDescriptionLen = 80

var (
	anchorRE = regexp.MustCompile(`(?i)\b(\d{1,2})[\s.:-]+(Q|DQ|CP)\b`)
	amountRE = regexp.MustCompile(`(?i)\d+\s*(?:€|euros?)`)
)

type anchor struct {
	num   int
	tier  string
	start int // index of the anchor in the flattened text
	end   int // index just past the anchor, where the description starts
}

// parseFlexible is the secondary pass for listings whose line structure OCR
// destroyed: the whole text is flattened and scanned for `<lot> <tier>`
// anchors anywhere. For each lot number only the first textual occurrence
// counts; each description runs from the end of its anchor to the start of
// the next anchor in TEXT order, which is not necessarily lot-number order.
func parseFlexible(raw string) []Lot {
	flat := strings.Join(strings.Fields(raw), " ")

	var anchors []anchor
	taken := make(map[int]bool)
	for _, m := range anchorRE.FindAllStringSubmatchIndex(flat, -1) {
		num, _ := strconv.Atoi(flat[m[2]:m[3]])
		if num < 1 || num > maxFlexibleLots || taken[num] {
			continue
		}
		taken[num] = true
		anchors = append(anchors, anchor{
			num:   num,
			tier:  flat[m[4]:m[5]],
			start: m[0],
			end:   m[1],
		})
	}

	var out []Lot
	for i, a := range anchors {
		tier, ok := tierForToken(a.tier)
		if !ok {
			continue
		}
		if tier != cyclicTier(a.num) {
			log.Printf("flexible pass: lot %d read as %s, cycle implies %s; keeping read value", a.num, tier, cyclicTier(a.num))
		}
		descEnd := len(flat)
		if i+1 < len(anchors) {
			descEnd = anchors[i+1].start
		}
		desc := cleanDescription(flat[a.end:descEnd])
		out = append(out, Lot{Number: a.num, Tier: tier, Description: truncateDescription(desc)})
	}
	return out
}

// truncateDescription caps an over-long description, preferring to cut just
// after a currency amount so "bon d'achat 50 €" survives intact.
func truncateDescription(s string) string {
	if len(s) <= maxDescriptionLen {
		return s
	}
	if loc := lastAmountWithin(s, maxDescriptionLen); loc > 0 {
		return strings.TrimSpace(s[:loc])
	}
	return strings.TrimSpace(s[:maxDescriptionLen])
}

// lastAmountWithin returns the end index of the last currency amount that
// finishes within limit, 0 when there is none.
func lastAmountWithin(s string, limit int) int {
	best := 0
	for _, m := range amountRE.FindAllStringIndex(s, -1) {
		if m[1] <= limit && m[1] > best {
			best = m[1]
		}
	}
	return best
}
