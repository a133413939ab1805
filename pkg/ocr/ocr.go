package ocr

import (
	"fmt"
	"log"
	"os"

	"github.com/titof2710/Loto-sub000/pkg/loto"
)

// CardScan is the digitization result for one carton sub-image. Card is nil
// when fewer than 15 numbers were recognized; Confidence tells the caller
// how much to trust the result before prompting a human for correction.
type CardScan struct {
	Card         *loto.Card
	Numbers      []int
	SerialNumber string
	Confidence   float64
	RawText      string
}

// ExtractCardFromImage performs preprocessing + multi-pass Tesseract OCR on
// one carton sub-image and attempts to reconstruct the full 3x9 grid.
// The positioned path (word bounding boxes bucketed into grid cells) is
// preferred; when it cannot account for all 15 cells the whole-text token
// extraction takes over and the layout is approximated column by column.
// A scan that finds some but not 15 numbers is NOT an error: the partial
// result comes back with a proportional confidence so the UI can ask for
// manual completion.
func ExtractCardFromImage(path string, exclude []string) (CardScan, error) {
	variants, annotations, bounds, err := runCardOCRPasses(path)
	if err != nil {
		return CardScan{}, fmt.Errorf("ocr passes: %w", err)
	}

	scan := CardScan{RawText: variants["aggregate"]}
	scan.SerialNumber = FindSerialNumber(variants["textOrig"])
	if scan.SerialNumber != "" {
		exclude = append(append([]string(nil), exclude...), scan.SerialNumber)
	}

	// Positioned path first.
	if placed := placeAnnotations(annotations, bounds); len(placed) == 15 {
		if card, err := loto.BuildCardPositioned(placed); err == nil {
			card.SerialNumber = scan.SerialNumber
			scan.Card = card
			scan.Numbers = card.Numbers
			scan.Confidence = 0.9
			return scan, nil
		} else {
			log.Printf("positioned carton build rejected, falling back to text scan: %v", err)
		}
	}

	numbers := ExtractFromSource(WholeText(scan.RawText), exclude)
	scan.Numbers = numbers
	if len(numbers) == 0 {
		return scan, ErrNoNumbers
	}
	if len(numbers) < 15 {
		scan.Confidence = float64(len(numbers)) / 15
		log.Printf("carton scan low confidence: %d/15 numbers, snippet=%q", len(numbers), snippet(variants["text"], 120))
		return scan, nil
	}
	if len(numbers) > 15 {
		// Over-detection is OCR noise too; surface it for human correction
		// rather than guessing which values to drop.
		scan.Confidence = float64(15) / float64(len(numbers))
		return scan, &loto.InvalidCardError{Reason: fmt.Sprintf("detected %d numbers, expected 15", len(numbers))}
	}

	card, err := loto.BuildCard(numbers)
	if err != nil {
		return scan, err
	}
	card.SerialNumber = scan.SerialNumber
	scan.Card = card
	scan.Confidence = 0.75
	return scan, nil
}

// DigitizePlanche splits a planche photo into its 12 carton cells and scans
// each one. Per-cell failures do not abort the planche: the failed slot
// comes back as a low-confidence CardScan for manual entry.
func DigitizePlanche(path string, exclude []string) ([]CardScan, error) {
	cells, err := SplitPlancheImage(path)
	defer func() {
		for _, p := range cells {
			_ = os.Remove(p)
		}
	}()
	if err != nil {
		return nil, fmt.Errorf("split planche: %w", err)
	}

	scans := make([]CardScan, 0, len(cells))
	for i, cell := range cells {
		scan, err := ExtractCardFromImage(cell, exclude)
		if err != nil {
			log.Printf("planche cell %d scan incomplete: %v", i, err)
		}
		if scan.Card != nil {
			scan.Card.Position = i
		}
		scans = append(scans, scan)
	}
	return scans, nil
}

// FindSerialNumber isolates the carton serial: the longest digit run of five
// or more, which no sequence of playable numbers produces column-aligned on
// a real carton. Returns "" when absent.
func FindSerialNumber(text string) string {
	best := ""
	for _, run := range digitRuns(text) {
		if len(run) >= 5 && len(run) > len(best) {
			best = run
		}
	}
	return best
}
