package loto

import "testing"

func callAndCollect(t *testing.T, card *Card, numbers []int) []WinEvent {
	t.Helper()
	seq := NewCalledNumberSequence()
	var events []WinEvent
	for _, n := range numbers {
		before := seq.Set()
		call, err := seq.Call(n, SourceManual)
		if err != nil {
			t.Fatalf("call %d: %v", n, err)
		}
		events = append(events, DetectWins(card, before, seq.Set(), n, call.Order)...)
	}
	return events
}

func TestWinOncePerTier(t *testing.T) {
	card := testCard(t)
	// row0, then row1, then row2
	order := []int{1, 12, 31, 52, 74, 5, 15, 38, 57, 79, 9, 23, 45, 61, 90}
	events := callAndCollect(t, card, order)

	counts := map[Tier]int{}
	for _, e := range events {
		counts[e.Tier]++
	}
	if counts[TierQuine] != 1 || counts[TierDoubleQuine] != 1 || counts[TierCartonPlein] != 1 {
		t.Fatalf("expected each tier once, got %v", counts)
	}
}

func TestWinEventTiming(t *testing.T) {
	card := testCard(t)
	order := []int{1, 12, 31, 52, 74, 5, 15, 38, 57, 79, 9, 23, 45, 61, 90}
	events := callAndCollect(t, card, order)

	if len(events) != 3 {
		t.Fatalf("expected 3 events got %d", len(events))
	}
	if events[0].Tier != TierQuine || events[0].Number != 74 {
		t.Fatalf("quine should fire on 74: %+v", events[0])
	}
	if events[1].Tier != TierDoubleQuine || events[1].Number != 79 {
		t.Fatalf("double quine should fire on 79: %+v", events[1])
	}
	if events[2].Tier != TierCartonPlein || events[2].Number != 90 {
		t.Fatalf("carton plein should fire on 90: %+v", events[2])
	}
	if events[2].Order != 15 {
		t.Fatalf("carton plein order should be 15, got %d", events[2].Order)
	}
}

func TestWinCarriesCardIdentity(t *testing.T) {
	card := testCard(t)
	card.ID = "c1"
	card.Position = 3
	card.SerialNumber = "552901"
	events := callAndCollect(t, card, []int{1, 12, 31, 52, 74})
	if len(events) != 1 {
		t.Fatalf("expected 1 event got %d", len(events))
	}
	e := events[0]
	if e.CardID != "c1" || e.Position != 4 || e.SerialNumber != "552901" {
		t.Fatalf("event identity wrong: %+v", e)
	}
}

func TestNoEventWithoutCrossing(t *testing.T) {
	card := testCard(t)
	events := callAndCollect(t, card, []int{1, 12, 31, 52})
	if len(events) != 0 {
		t.Fatalf("expected no events got %v", events)
	}
}

func TestRetractEvent(t *testing.T) {
	events := []WinEvent{
		{CardID: "a", Tier: TierQuine, Number: 74},
		{CardID: "b", Tier: TierQuine, Number: 79},
	}
	kept := RetractEvent(events, "a", TierQuine)
	if len(kept) != 1 || kept[0].CardID != "b" {
		t.Fatalf("retraction wrong: %v", kept)
	}
}

func TestRetractEventMissingPanicsInDev(t *testing.T) {
	t.Setenv("LOTO_DEV", "1")
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on missing retraction")
		}
	}()
	RetractEvent([]WinEvent{{CardID: "a", Tier: TierQuine}}, "a", TierCartonPlein)
}

func TestRetractEventMissingLogsAndContinues(t *testing.T) {
	t.Setenv("LOTO_DEV", "")
	events := []WinEvent{{CardID: "a", Tier: TierQuine}}
	kept := RetractEvent(events, "b", TierQuine)
	if len(kept) != 1 || kept[0].CardID != "a" {
		t.Fatalf("history should be unchanged, got %v", kept)
	}
}
