package ocr

import (
	"image"
	"strconv"

	"github.com/titof2710/Loto-sub000/pkg/loto"
)

// placeAnnotations maps word annotations onto carton grid slots by dividing
// the image bounds into 3 rows and 9 columns and bucketing each token by the
// center of its box. Tokens that don't read as a single 1-2 digit number are
// skipped; multi-number words (glued cells) fall back to the whole-text path.
func placeAnnotations(tokens []TokenAnnotation, bounds image.Rectangle) []loto.PlacedNumber {
	w := bounds.Dx()
	h := bounds.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	var placed []loto.PlacedNumber
	for _, tok := range tokens {
		digits := onlyDigits(tok.Text)
		if len(digits) == 0 || len(digits) > 2 || len(digits) != len(tok.Text) {
			continue
		}
		n, _ := strconv.Atoi(digits)
		if !isLotoNumber(n) {
			continue
		}
		cx := (tok.Box.Min.X+tok.Box.Max.X)/2 - bounds.Min.X
		cy := (tok.Box.Min.Y+tok.Box.Max.Y)/2 - bounds.Min.Y
		row := cy * 3 / h
		col := cx * 9 / w
		if row < 0 || row > 2 || col < 0 || col > 8 {
			continue
		}
		placed = append(placed, loto.PlacedNumber{Number: n, Row: row, Col: col})
	}
	return placed
}
