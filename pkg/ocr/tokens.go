package ocr

import (
	"sort"
	"strconv"
	"strings"
)

// ExtractNumberTokens parses a raw OCR blob into unique, sorted loto numbers
// (1..90). exclude lists literal noise substrings stripped before scanning:
// brand watermarks, and the carton's serial number once known, so serial
// digits never leak into the grid. Values outside 1..90 are silently dropped,
// OCR noise is expected here.
func ExtractNumberTokens(raw string, exclude []string) []int {
	text := normalizeOCRText(raw)
	for _, pat := range exclude {
		pat = strings.TrimSpace(pat)
		if pat == "" {
			continue
		}
		text = replaceFold(text, pat, " ")
	}

	seen := make(map[int]bool)
	var out []int
	accept := func(n int) {
		if isLotoNumber(n) && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	for _, run := range digitRuns(text) {
		switch len(run) {
		case 1, 2:
			n, _ := strconv.Atoi(run)
			accept(n)
		case 3:
			for _, n := range splitTriple(run) {
				accept(n)
			}
		default:
			for _, n := range splitLongRun(run) {
				accept(n)
			}
		}
	}

	sort.Ints(out)
	return out
}

// ExtractFromSource runs token extraction over either source shape. For an
// annotated source each token is scanned on its own so run boundaries follow
// the detected words instead of accidental adjacency in the joined text.
func ExtractFromSource(src TextSource, exclude []string) []int {
	if !src.Annotated() {
		return ExtractNumberTokens(src.Text(), exclude)
	}
	seen := make(map[int]bool)
	var out []int
	for _, tok := range src.Tokens() {
		for _, n := range ExtractNumberTokens(tok.Text, exclude) {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	sort.Ints(out)
	return out
}

// digitRuns returns the maximal contiguous digit substrings of text, in order.
func digitRuns(text string) []string {
	var runs []string
	start := -1
	for i, r := range text {
		if r >= '0' && r <= '9' {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			runs = append(runs, text[start:i])
			start = -1
		}
	}
	if start != -1 {
		runs = append(runs, text[start:])
	}
	return runs
}

// splitTriple resolves an ambiguous 3-digit run. Both splits are tried;
// when both are valid the 1-digit-then-2-digit reading wins ("711" -> 7, 11).
func splitTriple(run string) []int {
	a1, _ := strconv.Atoi(run[:1])
	a2, _ := strconv.Atoi(run[1:])
	if a1 >= 1 && a1 <= 9 && a2 >= 10 && a2 <= 90 {
		return []int{a1, a2}
	}
	b1, _ := strconv.Atoi(run[:2])
	b2, _ := strconv.Atoi(run[2:])
	if b1 >= 10 && b1 <= 90 && b2 >= 1 && b2 <= 9 {
		return []int{b1, b2}
	}
	return nil
}

// splitLongRun greedily consumes a run of 4+ digits: two digits when they
// form 10..90, else one digit when 1..9, else the position is skipped.
func splitLongRun(run string) []int {
	var out []int
	for i := 0; i < len(run); {
		if i+2 <= len(run) {
			if n, _ := strconv.Atoi(run[i : i+2]); n >= 10 && n <= 90 {
				out = append(out, n)
				i += 2
				continue
			}
		}
		if n, _ := strconv.Atoi(run[i : i+1]); n >= 1 && n <= 9 {
			out = append(out, n)
		}
		i++
	}
	return out
}

// replaceFold removes every case-insensitive occurrence of pat from text.
func replaceFold(text, pat, repl string) string {
	lower := strings.ToLower(text)
	pat = strings.ToLower(pat)
	var b strings.Builder
	for {
		i := strings.Index(lower, pat)
		if i == -1 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:i])
		b.WriteString(repl)
		text = text[i+len(pat):]
		lower = lower[i+len(pat):]
	}
}
