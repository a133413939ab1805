package loto

import "sort"

// Cell is one slot of the 3x9 carton grid. Value 0 means a blank cell.
type Cell struct {
	Value int `json:"value"`
	Row   int `json:"row"`
	Col   int `json:"col"`
}

// Card is one playable carton: 15 numbers laid out on a 3x9 grid.
// Immutable after construction; corrections go through a rebuild.
type Card struct {
	ID           string    `json:"id"`
	Position     int       `json:"position"` // 0..11 slot on the planche
	Grid         [3][9]int `json:"grid"`     // 0 = blank cell
	Numbers      []int     `json:"numbers"`  // 15 unique values, ascending
	SerialNumber string    `json:"serial_number,omitempty"`
}

// Board is a planche: the set of cartons scanned together from one sheet.
type Board struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Cartons  []*Card `json:"cartons"`
	ImageURL string  `json:"image_url,omitempty"`
}

// ColumnFor returns the fixed carton column of a loto number.
// 1-9 -> col 0, 10-19 -> col 1, ... 80-89 -> col 7, 90 -> col 8.
func ColumnFor(n int) int {
	if n < 10 {
		return 0
	}
	if n == 90 {
		return 8
	}
	return n / 10
}

// Has reports whether the carton carries the number.
func (c *Card) Has(n int) bool {
	for _, v := range c.Numbers {
		if v == n {
			return true
		}
	}
	return false
}

// RowNumbers returns the numbers present on one row, left to right.
func (c *Card) RowNumbers(row int) []int {
	out := make([]int, 0, 5)
	for col := 0; col < 9; col++ {
		if v := c.Grid[row][col]; v != 0 {
			out = append(out, v)
		}
	}
	return out
}

// Cells returns the populated cells of the grid in row-major order.
func (c *Card) Cells() []Cell {
	out := make([]Cell, 0, 15)
	for row := 0; row < 3; row++ {
		for col := 0; col < 9; col++ {
			if v := c.Grid[row][col]; v != 0 {
				out = append(out, Cell{Value: v, Row: row, Col: col})
			}
		}
	}
	return out
}

func sortedCopy(nums []int) []int {
	out := append([]int(nil), nums...)
	sort.Ints(out)
	return out
}
