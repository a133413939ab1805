package loto

import "sync"

// Session is the single mutation point of a running partie: it owns the call
// log and the derived win history for the planches being played. Manual taps
// and voice input all come through the same lock so that no two numbers are
// appended without an intervening progress recomputation. A call either
// lands fully (appended, wins computed) or not at all.
type Session struct {
	mu     sync.Mutex
	boards []*Board
	seq    *CalledNumberSequence
	wins   []WinEvent
}

// NewSession starts a session over the given planches.
func NewSession(boards []*Board) *Session {
	return &Session{boards: boards, seq: NewCalledNumberSequence()}
}

// ResumeSession rebuilds a session from a persisted call log. The entries
// are restored as recorded (source and timestamp included), then the win
// history is re-derived by walking the log the same way live calls do.
func ResumeSession(boards []*Board, calls []CalledNumber) *Session {
	s := NewSession(boards)
	s.seq = RestoreSequence(calls)

	before := make(map[int]bool, 90)
	for _, call := range s.seq.Calls() {
		after := make(map[int]bool, len(before)+1)
		for n := range before {
			after[n] = true
		}
		after[call.Number] = true

		for _, b := range s.boards {
			for _, card := range b.Cartons {
				for _, e := range DetectWins(card, before, after, call.Number, call.Order) {
					e.BoardID = b.ID
					s.wins = append(s.wins, e)
				}
			}
		}
		before = after
	}
	return s
}

// CallNumber appends a number and returns the win events it triggered.
func (s *Session) CallNumber(n int, src CallSource) (CalledNumber, []WinEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.seq.Set()
	call, err := s.seq.Call(n, src)
	if err != nil {
		return CalledNumber{}, nil, err
	}
	after := s.seq.Set()

	var fired []WinEvent
	for _, b := range s.boards {
		for _, card := range b.Cartons {
			for _, e := range DetectWins(card, before, after, n, call.Order) {
				e.BoardID = b.ID
				fired = append(fired, e)
			}
		}
	}
	s.wins = append(s.wins, fired...)
	return call, fired, nil
}

// UndoLast removes the most recent call and retracts the win events it
// triggered, returning both.
func (s *Session) UndoLast() (CalledNumber, []WinEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.seq.UndoLast()
	if !ok {
		return CalledNumber{}, nil, false
	}
	var retracted []WinEvent
	for _, e := range s.wins {
		if e.Number == last.Number {
			retracted = append(retracted, e)
		}
	}
	for _, e := range retracted {
		s.wins = RetractEvent(s.wins, e.CardID, e.Tier)
	}
	return last, retracted, true
}

// ClearCalls wipes the call log and win history, keeping the planches.
// Used when play moves to the next lot group after a carton plein.
func (s *Session) ClearCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = NewCalledNumberSequence()
	s.wins = nil
}

// Calls returns a copy of the call log.
func (s *Session) Calls() []CalledNumber {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.Calls()
}

// Wins returns a copy of the win history.
func (s *Session) Wins() []WinEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WinEvent(nil), s.wins...)
}

// ProgressAll recomputes the progress of every carton in play.
func (s *Session) ProgressAll() []Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	called := s.seq.Set()
	var out []Progress
	for _, b := range s.boards {
		for _, card := range b.Cartons {
			p := ComputeProgress(card, called)
			p.BoardID = b.ID
			out = append(out, p)
		}
	}
	return out
}
