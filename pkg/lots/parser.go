package lots

import (
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// A listing is OCR'd once and cached, so a missed entry is costly: a tier
// the app doesn't know about can't be displayed during play. The pipeline
// therefore trades over-inclusion (synthesized placeholders) for
// completeness, and never overrides a tier that was actually read.

// minPrimaryEntries is the acceptance floor of the line-oriented pass.
const minPrimaryEntries = 6

// ParseResult carries the parsed entries plus the signals a caller needs to
// decide whether to prompt for correction.
type ParseResult struct {
	Entries     []Lot
	Confidence  float64
	Pass        string // "primary" or "flexible"
	Synthesized int    // entries invented by gap filling
}

var lineRE = regexp.MustCompile(`(?i)^\s*(\d{1,2})[\s.:-]+(Q|DQ|CP)\b\s*(?:x\s*\d+\s+)?(.*)$`)

// ParseLotList parses a raw OCR'd prize listing. The line-oriented primary
// pass runs first; its result is accepted only when it found at least
// minPrimaryEntries entries including lot 1, otherwise the flexible
// whole-text pass takes over. Either way, gaps up to the highest lot number
// found are filled with synthesized placeholders. Output is sorted by lot
// number. An empty input yields an empty result, not an error.
func ParseLotList(raw string) ParseResult {
	primary := parseLines(raw)
	chosen := primary
	pass := "primary"
	if !acceptPrimary(primary) {
		chosen = parseFlexible(raw)
		pass = "flexible"
	}

	entries, synthesized := fillGaps(chosen, raw)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Number < entries[j].Number })

	conf := 0.0
	if len(entries) > 0 {
		conf = float64(len(entries)-synthesized) / float64(len(entries))
		if pass == "flexible" && conf > 0.8 {
			conf = 0.8
		}
	}
	return ParseResult{Entries: entries, Confidence: conf, Pass: pass, Synthesized: synthesized}
}

func acceptPrimary(entries []Lot) bool {
	if len(entries) < minPrimaryEntries {
		return false
	}
	for _, e := range entries {
		if e.Number == 1 {
			return true
		}
	}
	return false
}

// parseLines is the primary pass: one lot per line, tier token taken
// literally as read.
func parseLines(raw string) []Lot {
	var out []Lot
	seen := make(map[int]bool)
	for _, line := range strings.Split(raw, "\n") {
		m := lineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		if num < 1 || seen[num] {
			continue
		}
		tier, ok := tierForToken(m[2])
		if !ok {
			continue
		}
		if tier != cyclicTier(num) {
			log.Printf("lot %d read as %s, cycle implies %s; keeping read value", num, tier, cyclicTier(num))
		}
		seen[num] = true
		out = append(out, Lot{Number: num, Tier: tier, Description: cleanDescription(m[3])})
	}
	return out
}

// cleanDescription strips stray punctuation and collapses whitespace.
func cleanDescription(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, " .,;:-*|")
	return s
}
