package loto

// Tier is a win category, both for win events and prize groups.
type Tier string

const (
	TierQuine       Tier = "quine"        // one completed row
	TierDoubleQuine Tier = "double_quine" // two completed rows
	TierCartonPlein Tier = "carton_plein" // all 15 numbers
)

// Tiers lists the tiers in claim order within a prize group.
var Tiers = []Tier{TierQuine, TierDoubleQuine, TierCartonPlein}

// WinEvent records one carton crossing a win threshold. Fully derived from
// the call log: an undo that removes its triggering number retracts it.
type WinEvent struct {
	CardID       string `json:"card_id"`
	BoardID      string `json:"board_id,omitempty"`
	Tier         Tier   `json:"tier"`
	Number       int    `json:"number"` // triggering call
	Order        int    `json:"order"`  // call order at emission time
	Position     int    `json:"position"`
	SerialNumber string `json:"serial_number,omitempty"`
}

// DetectWins compares a carton's progress immediately before and after one
// newly-called number and emits the tiers crossed by that call. The three
// gates are independent: a single number may complete a line, a double and a
// carton plein at once, in that precedence order. Each tier fires at most
// once per carton over a strictly growing sequence because crossings are
// edge-triggered.
func DetectWins(card *Card, before, after map[int]bool, triggering, order int) []WinEvent {
	pb := ComputeProgress(card, before)
	pa := ComputeProgress(card, after)

	event := func(t Tier) WinEvent {
		return WinEvent{
			CardID:       card.ID,
			Tier:         t,
			Number:       triggering,
			Order:        order,
			Position:     card.Position + 1,
			SerialNumber: card.SerialNumber,
		}
	}

	var events []WinEvent
	if pb.CompletedRows() == 0 && pa.CompletedRows() >= 1 {
		events = append(events, event(TierQuine))
	}
	if pb.CompletedRows() < 2 && pa.CompletedRows() >= 2 {
		events = append(events, event(TierDoubleQuine))
	}
	if len(pb.MissingFullCard) > 0 && len(pa.MissingFullCard) == 0 {
		events = append(events, event(TierCartonPlein))
	}
	return events
}

// RetractEvent removes one specific event from the history and returns the
// remainder. Retracting an event that is not present is a logic fault (the
// caller only retracts events it previously recorded) and goes through the
// invariant guard.
func RetractEvent(events []WinEvent, cardID string, tier Tier) []WinEvent {
	for i, e := range events {
		if e.CardID == cardID && e.Tier == tier {
			return append(events[:i:i], events[i+1:]...)
		}
	}
	invariant("retract of missing win event card=%s tier=%s", cardID, tier)
	return events
}
