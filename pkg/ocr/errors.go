package ocr

import "errors"

// ErrNoNumbers is returned when no loto number at all can be extracted from a scan.
var ErrNoNumbers = errors.New("no numbers detected")
