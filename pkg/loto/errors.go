package loto

import (
	"errors"
	"fmt"
	"log"
	"os"
)

// ErrAlreadyCalled is returned when a number is appended twice to a sequence.
var ErrAlreadyCalled = errors.New("number already called")

// ErrOutOfRange is returned for called numbers outside 1..90.
var ErrOutOfRange = errors.New("number out of range 1..90")

// InvalidCardError is the typed failure of the card builders. It is an
// expected, routine outcome (bad OCR, bad manual entry) that callers surface
// to a human for correction.
type InvalidCardError struct {
	Reason string
}

func (e *InvalidCardError) Error() string {
	return "invalid carton: " + e.Reason
}

func invalidCard(format string, args ...interface{}) error {
	return &InvalidCardError{Reason: fmt.Sprintf(format, args...)}
}

// invariant reports a programming-logic fault that should be unreachable.
// Panics when LOTO_DEV is set, otherwise logs and continues: derived state
// is always recomputed from the call log so a missed invariant cannot
// corrupt anything durable.
func invariant(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if os.Getenv("LOTO_DEV") != "" {
		panic("loto invariant: " + msg)
	}
	log.Printf("loto invariant violated (ignored): %s", msg)
}
