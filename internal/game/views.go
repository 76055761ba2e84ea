package game

import "github.com/lox/holdemd/poker"

// SeatView is the public projection of a seat: everything except the hole
// cards and session bookkeeping.
type SeatView struct {
	Identity         string `json:"identity"`
	Chips            int    `json:"chips"`
	CurrentBet       int    `json:"currentBet"`
	TotalContributed int    `json:"totalContributed"`
	Folded           bool   `json:"folded"`
	AllIn            bool   `json:"allIn"`
	InHand           bool   `json:"inHand"`
	Connected        bool   `json:"connected"`
}

// PublicView is the table projection broadcast to every participant.
type PublicView struct {
	Seats            []*SeatView  `json:"seats"`
	Community        []poker.Card `json:"community"`
	Pot              int          `json:"pot"`
	Stage            Stage        `json:"stage"`
	CurrentBetToCall int          `json:"currentBetToCall"`
	CurrentTurnIndex int          `json:"currentTurnIndex"`
	DealerIndex      int          `json:"dealerIndex"`
	LastRaiseAmount  int          `json:"lastRaiseAmount"`
}

// PrivateView is sent to one seat only: its own hole cards and index.
type PrivateView struct {
	MyIndex int          `json:"myIndex"`
	MyHole  []poker.Card `json:"myHole"`
}

// PublicView renders the broadcastable projection of the table. Connected
// status is session-layer knowledge and is filled in by the caller via
// connected, which may be nil.
func (t *Table) PublicView(connected func(identity string) bool) PublicView {
	view := PublicView{
		Seats:            make([]*SeatView, len(t.seats)),
		Community:        append([]poker.Card(nil), t.community...),
		Pot:              t.pot,
		Stage:            t.stage,
		CurrentBetToCall: t.currentBetToCall,
		CurrentTurnIndex: t.turnIndex,
		DealerIndex:      t.dealerIndex,
		LastRaiseAmount:  t.lastRaiseAmount,
	}
	for i, s := range t.seats {
		if s == nil {
			continue
		}
		sv := &SeatView{
			Identity:         s.Identity,
			Chips:            s.Chips,
			CurrentBet:       s.CurrentBet,
			TotalContributed: s.TotalContributed,
			Folded:           s.Folded,
			AllIn:            s.AllIn,
			InHand:           s.InHand(),
		}
		if connected != nil {
			sv.Connected = connected(s.Identity)
		}
		view.Seats[i] = sv
	}
	return view
}

// PrivateView renders the seat-local projection for idx. Returns false when
// the seat is empty.
func (t *Table) PrivateView(idx int) (PrivateView, bool) {
	s := t.Seat(idx)
	if s == nil {
		return PrivateView{}, false
	}
	return PrivateView{
		MyIndex: idx,
		MyHole:  append([]poker.Card(nil), s.Hole...),
	}, true
}
