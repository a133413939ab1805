package main

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/titof2710/Loto-sub000/models"
	"github.com/titof2710/Loto-sub000/pkg/loto"
	"github.com/titof2710/Loto-sub000/pkg/lots"

	"gorm.io/datatypes"
)

// partieLocks serializes mutations per partie so a manual tap and a voice
// batch can never interleave between the call log read and its write-back.
var partieLocks sync.Map // partie id -> *sync.Mutex

func lockPartie(id uint) *sync.Mutex {
	v, _ := partieLocks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// refreshPartie re-reads the partie row in place. The row used for the
// ownership check is loaded before the partie lock is taken, so a concurrent
// mutation may have committed in between; mutating handlers reload right
// after locking so the session replays the current call log and cursor, not
// a stale snapshot.
func refreshPartie(p *models.Partie) error {
	return db.First(p, p.ID).Error
}

// cartonToCard rebuilds the in-memory carton from its persisted JSON columns.
// Failed or incomplete scan rows are not playable.
func cartonToCard(ct *models.Carton) (*loto.Card, error) {
	if ct.Failed {
		return nil, fmt.Errorf("carton %d marked failed: %s", ct.ID, ct.FailedReason)
	}
	if len(ct.Numbers) == 0 {
		return nil, fmt.Errorf("carton %d has no numbers", ct.ID)
	}
	card := &loto.Card{
		ID:           strconv.FormatUint(uint64(ct.ID), 10),
		Position:     ct.Position,
		SerialNumber: ct.SerialNumber,
	}
	if err := json.Unmarshal(ct.Numbers, &card.Numbers); err != nil {
		return nil, fmt.Errorf("carton %d numbers: %w", ct.ID, err)
	}
	if len(ct.Grid) > 0 {
		if err := json.Unmarshal(ct.Grid, &card.Grid); err != nil {
			return nil, fmt.Errorf("carton %d grid: %w", ct.ID, err)
		}
	}
	return card, nil
}

// boardsForPartie loads the planches in play with their playable cartons.
// A carton that cannot be decoded is skipped with a warning so one bad scan
// row does not block the whole evening.
func boardsForPartie(p *models.Partie) ([]*loto.Board, error) {
	var ids []uint
	if len(p.PlancheIDs) > 0 {
		if err := json.Unmarshal(p.PlancheIDs, &ids); err != nil {
			return nil, fmt.Errorf("partie %d planche ids: %w", p.ID, err)
		}
	}
	var boards []*loto.Board
	for _, pid := range ids {
		var planche models.Planche
		if err := db.Preload("Cartons").First(&planche, pid).Error; err != nil {
			return nil, fmt.Errorf("planche %d: %w", pid, err)
		}
		b := &loto.Board{
			ID:       strconv.FormatUint(uint64(planche.ID), 10),
			Name:     planche.Name,
			ImageURL: planche.ImagePath,
		}
		for i := range planche.Cartons {
			card, err := cartonToCard(&planche.Cartons[i])
			if err != nil {
				log.Printf("partie %d: skipping carton: %v", p.ID, err)
				continue
			}
			b.Cartons = append(b.Cartons, card)
		}
		boards = append(boards, b)
	}
	return boards, nil
}

// sessionForPartie replays the persisted call log into a live session.
func sessionForPartie(p *models.Partie) (*loto.Session, error) {
	boards, err := boardsForPartie(p)
	if err != nil {
		return nil, err
	}
	var calls []loto.CalledNumber
	if len(p.CalledNumbers) > 0 {
		if err := json.Unmarshal(p.CalledNumbers, &calls); err != nil {
			return nil, fmt.Errorf("partie %d call log: %w", p.ID, err)
		}
	}
	return loto.ResumeSession(boards, calls), nil
}

// persistCalls writes the session's call log back to the partie row.
func persistCalls(p *models.Partie, s *loto.Session) error {
	raw, err := json.Marshal(s.Calls())
	if err != nil {
		return err
	}
	p.CalledNumbers = datatypes.JSON(raw)
	return db.Model(&models.Partie{}).Where("id = ?", p.ID).Update("called_numbers", p.CalledNumbers).Error
}

// cursorForPartie rebuilds the prize cursor from the persisted fields.
func cursorForPartie(p *models.Partie) *lots.Cursor {
	return lots.RestoreCursor(p.LotGroup, loto.Tier(p.LotTier))
}

// persistCursor writes the cursor position back to the partie row.
func persistCursor(p *models.Partie, c *lots.Cursor) error {
	p.LotGroup = c.GroupIndex()
	p.LotTier = string(c.TierInGroup())
	return db.Model(&models.Partie{}).Where("id = ?", p.ID).
		Updates(map[string]interface{}{"lot_group": p.LotGroup, "lot_tier": p.LotTier}).Error
}

// lotsForPartie returns the parsed prize list the partie plays against,
// nil when no tirage is selected.
func lotsForPartie(p *models.Partie) ([]lots.Lot, error) {
	if p.TirageID == nil {
		return nil, nil
	}
	var t models.Tirage
	if err := db.First(&t, *p.TirageID).Error; err != nil {
		return nil, fmt.Errorf("tirage %d: %w", *p.TirageID, err)
	}
	var list []lots.Lot
	if len(t.Lots) > 0 {
		if err := json.Unmarshal(t.Lots, &list); err != nil {
			return nil, fmt.Errorf("tirage %d lots: %w", t.ID, err)
		}
	}
	return list, nil
}

// advanceCursorOnWins moves the prize cursor when a detected win claims the
// tier currently being played. A carton plein closes the lot group: the call
// log is wiped so the next group starts from an empty board.
func advanceCursorOnWins(p *models.Partie, s *loto.Session, events []loto.WinEvent) error {
	if len(events) == 0 {
		return nil
	}
	cur := cursorForPartie(p)
	moved := false
	closing := false
	for _, e := range events {
		if e.Tier != cur.TierInGroup() {
			continue
		}
		if cur.TierInGroup() == loto.TierCartonPlein {
			closing = true
		}
		cur.Advance()
		moved = true
	}
	if !moved {
		return nil
	}
	if err := persistCursor(p, cur); err != nil {
		return err
	}
	if closing {
		s.ClearCalls()
		return persistCalls(p, s)
	}
	return nil
}

// recordWins persists detected win events as history rows.
func recordWins(p *models.Partie, events []loto.WinEvent) {
	for _, e := range events {
		plancheID, _ := strconv.ParseUint(e.BoardID, 10, 64)
		rec := models.WinRecord{
			PartieID:     p.ID,
			CartonID:     e.CardID,
			PlancheID:    uint(plancheID),
			Tier:         string(e.Tier),
			Number:       e.Number,
			CallOrder:    e.Order,
			Position:     e.Position,
			SerialNumber: e.SerialNumber,
		}
		if err := db.Create(&rec).Error; err != nil {
			log.Printf("failed to record win (partie=%d carton=%s tier=%s): %v", p.ID, e.CardID, e.Tier, err)
		}
	}
}

// removeWins deletes the history rows of retracted win events.
func removeWins(p *models.Partie, events []loto.WinEvent) {
	for _, e := range events {
		if err := db.Where("partie_id = ? AND carton_id = ? AND tier = ?", p.ID, e.CardID, string(e.Tier)).
			Delete(&models.WinRecord{}).Error; err != nil {
			log.Printf("failed to remove win (partie=%d carton=%s tier=%s): %v", p.ID, e.CardID, e.Tier, err)
		}
	}
}
