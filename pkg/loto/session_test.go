package loto

import (
	"reflect"
	"testing"
	"time"
)

func testSession(t *testing.T) *Session {
	t.Helper()
	card := testCard(t)
	card.ID = "c1"
	board := &Board{ID: "p1", Name: "planche 1", Cartons: []*Card{card}}
	return NewSession([]*Board{board})
}

func TestSessionCallEmitsWins(t *testing.T) {
	s := testSession(t)
	for _, n := range []int{1, 12, 31, 52} {
		if _, fired, err := s.CallNumber(n, SourceManual); err != nil || len(fired) != 0 {
			t.Fatalf("call %d: err=%v fired=%v", n, err, fired)
		}
	}
	_, fired, err := s.CallNumber(74, SourceManual)
	if err != nil {
		t.Fatalf("call 74: %v", err)
	}
	if len(fired) != 1 || fired[0].Tier != TierQuine || fired[0].BoardID != "p1" {
		t.Fatalf("expected quine on planche p1, got %v", fired)
	}
}

func TestSessionUndoRoundTrip(t *testing.T) {
	s := testSession(t)
	for _, n := range []int{1, 12, 31, 52} {
		s.CallNumber(n, SourceManual)
	}
	beforeProgress := s.ProgressAll()
	beforeWins := s.Wins()

	if _, fired, err := s.CallNumber(74, SourceManual); err != nil || len(fired) != 1 {
		t.Fatalf("call 74: err=%v fired=%v", err, fired)
	}
	undone, retracted, ok := s.UndoLast()
	if !ok || undone.Number != 74 {
		t.Fatalf("undo: %v %v", undone, ok)
	}
	if len(retracted) != 1 || retracted[0].Tier != TierQuine {
		t.Fatalf("expected quine retraction got %v", retracted)
	}
	if !reflect.DeepEqual(s.ProgressAll(), beforeProgress) {
		t.Fatalf("progress did not round-trip through undo")
	}
	if !reflect.DeepEqual(s.Wins(), beforeWins) {
		t.Fatalf("win history did not round-trip through undo")
	}
}

func TestSessionDuplicateCallLeavesNoTrace(t *testing.T) {
	s := testSession(t)
	s.CallNumber(30, SourceManual)
	before := s.Calls()
	if _, _, err := s.CallNumber(30, SourceVoice); err == nil {
		t.Fatalf("expected duplicate rejection")
	}
	if !reflect.DeepEqual(s.Calls(), before) {
		t.Fatalf("failed call mutated the log")
	}
}

func TestSessionResumeReplaysWins(t *testing.T) {
	s := testSession(t)
	for _, n := range []int{1, 12, 31, 52, 74} {
		s.CallNumber(n, SourceManual)
	}
	calls := s.Calls()

	card := testCard(t)
	card.ID = "c1"
	resumed := ResumeSession([]*Board{{ID: "p1", Cartons: []*Card{card}}}, calls)
	wins := resumed.Wins()
	if len(wins) != 1 || wins[0].Tier != TierQuine {
		t.Fatalf("resume lost win history: %v", wins)
	}
}

func TestSessionResumeKeepsCallLog(t *testing.T) {
	at := time.Date(2026, 1, 10, 20, 30, 0, 0, time.UTC)
	calls := []CalledNumber{
		{Number: 12, Order: 1, Source: SourceVoice, At: at},
		{Number: 45, Order: 2, Source: SourceManual, At: at.Add(time.Minute)},
	}

	card := testCard(t)
	card.ID = "c1"
	resumed := ResumeSession([]*Board{{ID: "p1", Cartons: []*Card{card}}}, calls)

	got := resumed.Calls()
	if len(got) != 2 {
		t.Fatalf("expected 2 calls got %d", len(got))
	}
	for i, c := range calls {
		if !got[i].At.Equal(c.At) {
			t.Fatalf("call %d timestamp rewritten: want %v got %v", c.Number, c.At, got[i].At)
		}
		if got[i].Source != c.Source {
			t.Fatalf("call %d source rewritten: want %s got %s", c.Number, c.Source, got[i].Source)
		}
	}
}

func TestSessionClearCalls(t *testing.T) {
	s := testSession(t)
	for _, n := range []int{1, 12, 31, 52, 74} {
		s.CallNumber(n, SourceManual)
	}
	s.ClearCalls()
	if len(s.Calls()) != 0 || len(s.Wins()) != 0 {
		t.Fatalf("clear left state behind")
	}
}
