package loto

import (
	"log"
	"sort"
)

// PlacedNumber is one OCR-detected number with its detected grid slot.
type PlacedNumber struct {
	Number int
	Row    int
	Col    int
}

// BuildCard constructs a carton from exactly 15 plain numbers. Numbers are
// grouped into their fixed column, sorted ascending, and stacked top to
// bottom. This guarantees vertical ordering but NOT five numbers per row;
// when rows come out unbalanced the build still succeeds and the imbalance
// is logged. Use BuildCardPositioned when OCR slot positions are available.
func BuildCard(numbers []int) (*Card, error) {
	if err := validateNumbers(numbers); err != nil {
		return nil, err
	}

	var cols [9][]int
	for _, n := range numbers {
		c := ColumnFor(n)
		cols[c] = append(cols[c], n)
	}

	card := &Card{Numbers: sortedCopy(numbers)}
	for c := 0; c < 9; c++ {
		sort.Ints(cols[c])
		for i, n := range cols[c] {
			card.Grid[i][c] = n
		}
	}

	for row := 0; row < 3; row++ {
		if got := len(card.RowNumbers(row)); got != 5 {
			log.Printf("carton build: row %d has %d numbers (expected 5); positions unknown, layout approximated", row, got)
		}
	}
	return card, nil
}

// BuildCardPositioned constructs a carton from OCR tokens that carry detected
// row/column slots. Duplicate placements at the same cell keep the first-seen
// token; the conflict is logged, not treated as an error. Structural
// invariants are re-validated after placement.
func BuildCardPositioned(entries []PlacedNumber) (*Card, error) {
	if len(entries) != 15 {
		return nil, invalidCard("expected 15 placed numbers, got %d", len(entries))
	}

	card := &Card{}
	kept := make([]int, 0, 15)
	for _, e := range entries {
		if e.Number < 1 || e.Number > 90 {
			return nil, invalidCard("number %d out of range 1..90", e.Number)
		}
		if e.Row < 0 || e.Row > 2 || e.Col < 0 || e.Col > 8 {
			return nil, invalidCard("number %d placed outside grid at (%d,%d)", e.Number, e.Row, e.Col)
		}
		if ColumnFor(e.Number) != e.Col {
			return nil, invalidCard("number %d detected in column %d, belongs in column %d", e.Number, e.Col, ColumnFor(e.Number))
		}
		if prev := card.Grid[e.Row][e.Col]; prev != 0 {
			log.Printf("carton build: cell (%d,%d) already holds %d, dropping conflicting token %d", e.Row, e.Col, prev, e.Number)
			continue
		}
		card.Grid[e.Row][e.Col] = e.Number
		kept = append(kept, e.Number)
	}

	if err := validateNumbers(kept); err != nil {
		return nil, err
	}
	card.Numbers = sortedCopy(kept)
	return card, nil
}

func validateNumbers(numbers []int) error {
	if len(numbers) != 15 {
		return invalidCard("expected 15 numbers, got %d", len(numbers))
	}
	seen := make(map[int]bool, 15)
	var colCount [9]int
	for _, n := range numbers {
		if n < 1 || n > 90 {
			return invalidCard("number %d out of range 1..90", n)
		}
		if seen[n] {
			return invalidCard("duplicate number %d", n)
		}
		seen[n] = true
		c := ColumnFor(n)
		colCount[c]++
		if colCount[c] > 3 {
			return invalidCard("column %d holds more than 3 numbers", c)
		}
	}
	return nil
}
