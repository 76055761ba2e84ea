package game

import (
	"fmt"

	"github.com/lox/holdemd/poker"
)

// SeatSnapshot is the durable form of one occupied seat, hole cards included.
type SeatSnapshot struct {
	Index            int          `json:"index"`
	Identity         string       `json:"identity"`
	Chips            int          `json:"chips"`
	CurrentBet       int          `json:"currentBet"`
	TotalContributed int          `json:"totalContributed"`
	Folded           bool         `json:"folded"`
	AllIn            bool         `json:"allIn"`
	Acted            bool         `json:"acted"`
	Hole             []poker.Card `json:"hole,omitempty"`
}

// TableSnapshot is a complete serialization of the table, sufficient to
// resume an in-progress hand after a restart. Deck order is preserved.
type TableSnapshot struct {
	NumSeats         int            `json:"numSeats"`
	Rules            Rules          `json:"rules"`
	Seats            []SeatSnapshot `json:"seats"`
	Deck             []poker.Card   `json:"deck"`
	Community        []poker.Card   `json:"community"`
	Pot              int            `json:"pot"`
	CurrentBetToCall int            `json:"currentBetToCall"`
	LastRaiseAmount  int            `json:"lastRaiseAmount"`
	DealerIndex      int            `json:"dealerIndex"`
	TurnIndex        int            `json:"turnIndex"`
	Stage            Stage          `json:"stage"`
	HandStartTotal   int            `json:"handStartTotal"`
}

// Snapshot captures the full table state.
func (t *Table) Snapshot() TableSnapshot {
	snap := TableSnapshot{
		NumSeats:         len(t.seats),
		Rules:            t.rules,
		Community:        append([]poker.Card(nil), t.community...),
		Pot:              t.pot,
		CurrentBetToCall: t.currentBetToCall,
		LastRaiseAmount:  t.lastRaiseAmount,
		DealerIndex:      t.dealerIndex,
		TurnIndex:        t.turnIndex,
		Stage:            t.stage,
		HandStartTotal:   t.handStartTotal,
	}
	if t.deck != nil {
		snap.Deck = append([]poker.Card(nil), t.deck.Remaining()...)
	}
	for i, s := range t.seats {
		if s == nil {
			continue
		}
		snap.Seats = append(snap.Seats, SeatSnapshot{
			Index:            i,
			Identity:         s.Identity,
			Chips:            s.Chips,
			CurrentBet:       s.CurrentBet,
			TotalContributed: s.TotalContributed,
			Folded:           s.Folded,
			AllIn:            s.AllIn,
			Acted:            s.Acted,
			Hole:             append([]poker.Card(nil), s.Hole...),
		})
	}
	return snap
}

// RestoreTable rebuilds a table from a snapshot, validating card uniqueness
// across deck, community and hole cards before accepting it.
func RestoreTable(snap TableSnapshot) (*Table, error) {
	if snap.NumSeats < 2 {
		return nil, fmt.Errorf("restoring table: invalid seat count %d", snap.NumSeats)
	}

	t := NewTable(snap.NumSeats, snap.Rules)
	t.community = append([]poker.Card(nil), snap.Community...)
	t.pot = snap.Pot
	t.currentBetToCall = snap.CurrentBetToCall
	t.lastRaiseAmount = snap.LastRaiseAmount
	t.dealerIndex = snap.DealerIndex
	t.turnIndex = snap.TurnIndex
	t.stage = snap.Stage
	t.handStartTotal = snap.HandStartTotal

	seen := make(map[poker.Card]bool, 52)
	track := func(cards []poker.Card) error {
		for _, c := range cards {
			if seen[c] {
				return fmt.Errorf("restoring table: duplicate card %s", c)
			}
			seen[c] = true
		}
		return nil
	}

	if len(snap.Deck) > 0 {
		if err := track(snap.Deck); err != nil {
			return nil, err
		}
		t.deck = poker.NewDeckFromCards(snap.Deck)
	}
	if err := track(snap.Community); err != nil {
		return nil, err
	}

	for _, ss := range snap.Seats {
		if ss.Index < 0 || ss.Index >= snap.NumSeats {
			return nil, fmt.Errorf("restoring table: seat index %d out of range", ss.Index)
		}
		if t.seats[ss.Index] != nil {
			return nil, fmt.Errorf("restoring table: duplicate seat index %d", ss.Index)
		}
		if err := track(ss.Hole); err != nil {
			return nil, err
		}
		t.seats[ss.Index] = &Seat{
			Identity:         ss.Identity,
			Chips:            ss.Chips,
			CurrentBet:       ss.CurrentBet,
			TotalContributed: ss.TotalContributed,
			Folded:           ss.Folded,
			AllIn:            ss.AllIn,
			Acted:            ss.Acted,
			Hole:             append([]poker.Card(nil), ss.Hole...),
		}
	}

	if t.stage != Waiting && len(seen) != 52 {
		return nil, fmt.Errorf("restoring table: %d cards accounted for, want 52", len(seen))
	}
	return t, nil
}
