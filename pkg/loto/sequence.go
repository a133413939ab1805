package loto

import "time"

// CallSource tells how a number entered the sequence.
type CallSource string

const (
	SourceManual CallSource = "manual"
	SourceVoice  CallSource = "voice"
)

// CalledNumber is one entry of the call log.
type CalledNumber struct {
	Number int        `json:"number"`
	Order  int        `json:"order"` // 1-based, dense
	Source CallSource `json:"source"`
	At     time.Time  `json:"at"`
}

// CalledNumberSequence is the append-only log of called numbers and the
// single source of truth for ordering. It is mutated only via Call and
// UndoLast; the caller owns serialization between input sources.
type CalledNumberSequence struct {
	calls []CalledNumber
	set   map[int]bool
}

// NewCalledNumberSequence returns an empty sequence.
func NewCalledNumberSequence() *CalledNumberSequence {
	return &CalledNumberSequence{set: make(map[int]bool, 90)}
}

// RestoreSequence rebuilds a sequence from persisted entries, re-densifying
// the order field.
func RestoreSequence(calls []CalledNumber) *CalledNumberSequence {
	s := NewCalledNumberSequence()
	for _, c := range calls {
		if c.Number < 1 || c.Number > 90 || s.set[c.Number] {
			invariant("persisted call log holds invalid entry %d", c.Number)
			continue
		}
		c.Order = len(s.calls) + 1
		s.calls = append(s.calls, c)
		s.set[c.Number] = true
	}
	return s
}

// Call appends a number. Each number may appear only once per partie.
func (s *CalledNumberSequence) Call(n int, src CallSource) (CalledNumber, error) {
	if n < 1 || n > 90 {
		return CalledNumber{}, ErrOutOfRange
	}
	if s.set[n] {
		return CalledNumber{}, ErrAlreadyCalled
	}
	c := CalledNumber{Number: n, Order: len(s.calls) + 1, Source: src, At: time.Now()}
	s.calls = append(s.calls, c)
	s.set[n] = true
	return c, nil
}

// UndoLast removes the most recently called number.
func (s *CalledNumberSequence) UndoLast() (CalledNumber, bool) {
	if len(s.calls) == 0 {
		return CalledNumber{}, false
	}
	last := s.calls[len(s.calls)-1]
	s.calls = s.calls[:len(s.calls)-1]
	delete(s.set, last.Number)
	return last, true
}

// Contains reports whether n has been called.
func (s *CalledNumberSequence) Contains(n int) bool { return s.set[n] }

// Len returns the number of calls so far.
func (s *CalledNumberSequence) Len() int { return len(s.calls) }

// Calls returns a copy of the log in call order.
func (s *CalledNumberSequence) Calls() []CalledNumber {
	return append([]CalledNumber(nil), s.calls...)
}

// Set returns a snapshot of the called numbers as a set.
func (s *CalledNumberSequence) Set() map[int]bool {
	out := make(map[int]bool, len(s.set))
	for n := range s.set {
		out[n] = true
	}
	return out
}
