package loto

import "sort"

// Progress is the derived play state of one carton against a called set.
// It has no lifecycle of its own: always recomputed, never persisted.
type Progress struct {
	CardID          string  `json:"card_id"`
	BoardID         string  `json:"board_id,omitempty"`
	Marked          []int   `json:"marked"`
	LineCounts      [3]int  `json:"line_counts"`
	LinesComplete   [3]bool `json:"lines_complete"`
	MissingLine     []int   `json:"missing_line"`      // to finish the closest single row
	MissingDouble   []int   `json:"missing_double"`    // to finish the two closest rows
	MissingFullCard []int   `json:"missing_full_card"` // plain set difference over all 15
}

// CompletedRows counts the rows whose 5 numbers are all called.
func (p Progress) CompletedRows() int {
	n := 0
	for _, ok := range p.LinesComplete {
		if ok {
			n++
		}
	}
	return n
}

// ComputeProgress derives the carton's progress from the called set.
// Pure and idempotent: identical inputs yield identical output.
func ComputeProgress(card *Card, called map[int]bool) Progress {
	p := Progress{CardID: card.ID}

	for _, n := range card.Numbers {
		if called[n] {
			p.Marked = append(p.Marked, n)
		}
	}
	sort.Ints(p.Marked)

	var missingPerRow [3][]int
	for row := 0; row < 3; row++ {
		for _, n := range card.RowNumbers(row) {
			if called[n] {
				p.LineCounts[row]++
			} else {
				missingPerRow[row] = append(missingPerRow[row], n)
			}
		}
		p.LinesComplete[row] = len(missingPerRow[row]) == 0 && len(card.RowNumbers(row)) > 0
	}

	// Rows ranked by marked count descending, ties broken by lowest index.
	ranked := []int{0, 1, 2}
	sort.SliceStable(ranked, func(i, j int) bool {
		return p.LineCounts[ranked[i]] > p.LineCounts[ranked[j]]
	})

	if p.CompletedRows() == 0 {
		p.MissingLine = append([]int(nil), missingPerRow[ranked[0]]...)
		sort.Ints(p.MissingLine)
	} else {
		p.MissingLine = []int{}
	}

	if p.CompletedRows() < 2 {
		for _, row := range ranked[:2] {
			p.MissingDouble = append(p.MissingDouble, missingPerRow[row]...)
		}
		sort.Ints(p.MissingDouble)
	} else {
		p.MissingDouble = []int{}
	}

	p.MissingFullCard = []int{}
	for _, n := range card.Numbers {
		if !called[n] {
			p.MissingFullCard = append(p.MissingFullCard, n)
		}
	}
	return p
}
