package ocr

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// frenchNumbers maps normalized spoken phrases to values 1..90, including
// the Belgian/Swiss variants for 70, 80 and 90.
var frenchNumbers = buildFrenchNumbers()

// frenchPhrases is the phrase list sorted longest first, so "vingt et un"
// is consumed before "vingt" ever gets a chance to match inside it.
var frenchPhrases = sortPhrases(frenchNumbers)

// ParseSpokenNumbers extracts loto numbers from a speech transcript. Bare
// 1-2 digit substrings are taken first, then French number words, longest
// phrase first; consumed phrases are blanked from the working text so they
// cannot match twice. Each value appears once, digits in discovery order
// followed by word matches in text order.
func ParseSpokenNumbers(transcript string) []int {
	work := normalizeTranscript(transcript)

	seen := make(map[int]bool)
	var out []int
	accept := func(n int) {
		if isLotoNumber(n) && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	// Digit pass. Runs longer than two digits are left alone: a transcript
	// is not an OCR blob, a long run there is noise rather than glued numbers.
	for _, run := range digitRuns(work) {
		if len(run) > 2 {
			continue
		}
		n, _ := strconv.Atoi(run)
		accept(n)
	}
	work = blankDigits(work)

	// Word pass, longest phrase first, pure fold over the remaining text.
	type match struct{ pos, val int }
	var matches []match
	for _, phrase := range frenchPhrases {
		for {
			pos := indexPhrase(work, phrase)
			if pos == -1 {
				break
			}
			matches = append(matches, match{pos: pos, val: frenchNumbers[phrase]})
			work = work[:pos] + strings.Repeat(" ", len(phrase)) + work[pos+len(phrase):]
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })
	for _, m := range matches {
		accept(m.val)
	}
	return out
}

// normalizeTranscript lowercases and folds hyphens/apostrophes to spaces so
// "vingt-et-un" and "vingt et un" read the same.
func normalizeTranscript(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '-', '\'', '’':
			return ' '
		}
		return r
	}, s)
	return s
}

// indexPhrase finds phrase in text at word boundaries, -1 when absent.
func indexPhrase(text, phrase string) int {
	from := 0
	for {
		i := strings.Index(text[from:], phrase)
		if i == -1 {
			return -1
		}
		pos := from + i
		if boundaryAt(text, pos) && boundaryAt(text, pos+len(phrase)) {
			return pos
		}
		from = pos + 1
	}
}

// boundaryAt reports whether position i sits on a word boundary.
func boundaryAt(text string, i int) bool {
	if i == 0 || i == len(text) {
		return true
	}
	prev := rune(text[i-1])
	cur := rune(text[i])
	return !unicode.IsLetter(prev) || !unicode.IsLetter(cur)
}

// blankDigits replaces digits with spaces, keeping positions stable.
func blankDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return ' '
		}
		return r
	}, s)
}

func buildFrenchNumbers() map[string]int {
	units := []string{"un", "deux", "trois", "quatre", "cinq", "six", "sept", "huit", "neuf"}
	m := map[string]int{
		"dix": 10, "onze": 11, "douze": 12, "treize": 13, "quatorze": 14,
		"quinze": 15, "seize": 16, "dix sept": 17, "dix huit": 18, "dix neuf": 19,
	}
	for i, u := range units {
		m[u] = i + 1
	}

	tens := map[string]int{"vingt": 20, "trente": 30, "quarante": 40, "cinquante": 50, "soixante": 60}
	for w, v := range tens {
		m[w] = v
		m[w+" et un"] = v + 1
		for i, u := range units[1:] {
			m[w+" "+u] = v + 2 + i
		}
	}

	// 70-79, metropolitan French builds on soixante.
	m["soixante dix"] = 70
	m["soixante et onze"] = 71
	for i, t := range []string{"douze", "treize", "quatorze", "quinze", "seize"} {
		m["soixante "+t] = 72 + i
	}
	m["soixante dix sept"] = 77
	m["soixante dix huit"] = 78
	m["soixante dix neuf"] = 79

	// 80-90.
	m["quatre vingt"] = 80
	m["quatre vingts"] = 80
	for i, u := range units {
		m["quatre vingt "+u] = 81 + i
	}
	m["quatre vingt dix"] = 90

	// Regional variants (Belgium, Switzerland).
	m["septante"] = 70
	m["septante et un"] = 71
	for i, u := range units[1:] {
		m["septante "+u] = 72 + i
	}
	for _, w := range []string{"huitante", "octante"} {
		m[w] = 80
		m[w+" et un"] = 81
		for i, u := range units {
			m[w+" "+u] = 81 + i
		}
	}
	m["nonante"] = 90

	return m
}

func sortPhrases(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}
