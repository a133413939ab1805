package loto

import (
	"reflect"
	"testing"
)

// testCard returns a row-balanced carton built from detected positions:
// row0 = 1 12 31 52 74, row1 = 5 15 38 57 79, row2 = 9 23 45 61 90.
func testCard(t *testing.T) *Card {
	t.Helper()
	entries := []PlacedNumber{
		{1, 0, 0}, {5, 1, 0}, {9, 2, 0},
		{12, 0, 1}, {15, 1, 1},
		{23, 2, 2},
		{31, 0, 3}, {38, 1, 3},
		{45, 2, 4},
		{52, 0, 5}, {57, 1, 5},
		{61, 2, 6},
		{74, 0, 7}, {79, 1, 7},
		{90, 2, 8},
	}
	card, err := BuildCardPositioned(entries)
	if err != nil {
		t.Fatalf("test card build failed: %v", err)
	}
	return card
}

func calledSet(nums ...int) map[int]bool {
	s := make(map[int]bool, len(nums))
	for _, n := range nums {
		s[n] = true
	}
	return s
}

func TestProgressIdempotent(t *testing.T) {
	card := testCard(t)
	called := calledSet(1, 12, 5, 23)
	a := ComputeProgress(card, called)
	b := ComputeProgress(card, called)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("progress not idempotent: %+v vs %+v", a, b)
	}
}

func TestProgressLineCompletion(t *testing.T) {
	card := testCard(t)
	p := ComputeProgress(card, calledSet(1, 12, 31, 52, 74))
	if !p.LinesComplete[0] || p.LinesComplete[1] || p.LinesComplete[2] {
		t.Fatalf("expected only row 0 complete: %+v", p.LinesComplete)
	}
	if len(p.MissingLine) != 0 {
		t.Fatalf("line tier satisfied, MissingLine should be empty: %v", p.MissingLine)
	}
	// double tier still needs the full next-best row
	if len(p.MissingDouble) != 5 {
		t.Fatalf("expected 5 missing for double got %v", p.MissingDouble)
	}
	if len(p.MissingFullCard) != 10 {
		t.Fatalf("expected 10 missing for full card got %d", len(p.MissingFullCard))
	}
}

func TestProgressBestRowSelection(t *testing.T) {
	card := testCard(t)
	// four of row1 marked, one of row2
	p := ComputeProgress(card, calledSet(5, 15, 38, 57, 9))
	if !reflect.DeepEqual(p.MissingLine, []int{79}) {
		t.Fatalf("expected [79] got %v", p.MissingLine)
	}
}

func TestProgressTieBreaksLowestRow(t *testing.T) {
	card := testCard(t)
	p := ComputeProgress(card, map[int]bool{})
	if !reflect.DeepEqual(p.MissingLine, []int{1, 12, 31, 52, 74}) {
		t.Fatalf("tie should pick row 0, got %v", p.MissingLine)
	}
}

func TestProgressDoubleUnion(t *testing.T) {
	card := testCard(t)
	// row0 complete, row1 missing one: double needs exactly that one
	p := ComputeProgress(card, calledSet(1, 12, 31, 52, 74, 5, 15, 38, 57))
	if !reflect.DeepEqual(p.MissingDouble, []int{79}) {
		t.Fatalf("expected [79] got %v", p.MissingDouble)
	}
}

func TestProgressFullCardBoundary(t *testing.T) {
	card := testCard(t)
	all := calledSet(card.Numbers...)
	// extra called numbers not on the card change nothing
	all[2] = true
	all[88] = true
	p := ComputeProgress(card, all)
	if len(p.MissingFullCard) != 0 {
		t.Fatalf("expected empty missing full card got %v", p.MissingFullCard)
	}
	if p.CompletedRows() != 3 {
		t.Fatalf("expected 3 complete rows got %d", p.CompletedRows())
	}
	if len(p.MissingLine) != 0 || len(p.MissingDouble) != 0 {
		t.Fatalf("satisfied tiers should report nothing missing")
	}
}

func TestProgressMonotonic(t *testing.T) {
	card := testCard(t)
	s1 := calledSet(1, 5, 9)
	s2 := calledSet(1, 5, 9, 12, 15, 23)
	p1 := ComputeProgress(card, s1)
	p2 := ComputeProgress(card, s2)
	for row := 0; row < 3; row++ {
		if p2.LineCounts[row] < p1.LineCounts[row] {
			t.Fatalf("row %d count regressed", row)
		}
	}
	if len(p2.MissingFullCard) > len(p1.MissingFullCard) {
		t.Fatalf("missing full card grew with more calls")
	}
}
