package ocr

import "strings"

// snippet returns a shortened version of text (ASCII only) for logging.
func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

// normalizeOCRText collapses whitespace and replaces newlines/tabs.
func normalizeOCRText(t string) string {
	t = strings.ReplaceAll(t, "\n", " ")
	t = strings.ReplaceAll(t, "\t", " ")
	return strings.Join(strings.Fields(t), " ")
}

// onlyDigits extracts decimal digits from a string.
func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// isLotoNumber reports whether n is a playable number.
func isLotoNumber(n int) bool { return n >= 1 && n <= 90 }
