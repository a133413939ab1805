package lots

import "github.com/titof2710/Loto-sub000/pkg/loto"

// Cursor walks a parsed lot list during play: within one group of three lots
// it advances quine -> double quine -> carton plein, then jumps to the next
// group. It only ever moves forward; selecting a new list resets it.
type Cursor struct {
	group int       // index of the group's first lot in the list, multiple of 3
	tier  loto.Tier // tier currently being played within the group
}

// NewCursor returns a cursor at the start of the first group.
func NewCursor() *Cursor {
	return &Cursor{tier: loto.TierQuine}
}

// RestoreCursor rebuilds a persisted cursor. Invalid values snap back to the
// start rather than pointing somewhere undefined.
func RestoreCursor(group int, tier loto.Tier) *Cursor {
	if group < 0 || group%3 != 0 {
		group = 0
	}
	if tierOffset(tier) == -1 {
		tier = loto.TierQuine
	}
	return &Cursor{group: group, tier: tier}
}

// Current returns the lot being played, or false when the cursor has walked
// past the end of the list (or the list is empty).
func (c *Cursor) Current(list []Lot) (Lot, bool) {
	idx := c.group + tierOffset(c.tier)
	if idx < 0 || idx >= len(list) {
		return Lot{}, false
	}
	return list[idx], true
}

// Advance moves to the next tier, or to the next group after carton plein.
func (c *Cursor) Advance() {
	switch c.tier {
	case loto.TierQuine:
		c.tier = loto.TierDoubleQuine
	case loto.TierDoubleQuine:
		c.tier = loto.TierCartonPlein
	default:
		c.NextGroup()
	}
}

// NextGroup skips directly to the quine of the following group. Clearing
// the called-number log for the new group belongs to the session owner,
// not to the cursor.
func (c *Cursor) NextGroup() {
	c.group += 3
	c.tier = loto.TierQuine
}

// Reset puts the cursor back at the first group, for a newly selected list.
func (c *Cursor) Reset() {
	c.group = 0
	c.tier = loto.TierQuine
}

// GroupIndex returns the list index of the current group's first lot.
func (c *Cursor) GroupIndex() int { return c.group }

// TierInGroup returns the tier currently being played.
func (c *Cursor) TierInGroup() loto.Tier { return c.tier }

func tierOffset(t loto.Tier) int {
	switch t {
	case loto.TierQuine:
		return 0
	case loto.TierDoubleQuine:
		return 1
	case loto.TierCartonPlein:
		return 2
	}
	return -1
}
