package poker

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Deck holds the undealt remainder of a 52-card deck. The card at index zero
// is the next card dealt.
type Deck struct {
	cards []Card
}

// NewShuffledDeck creates a full 52-card deck shuffled with crypto/rand.
// Deck order decides who wins money, so the shuffle draws from the OS
// entropy source rather than a seeded PRNG.
func NewShuffledDeck() *Deck {
	cards := make([]Card, 0, 52)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(rank, suit))
		}
	}

	// Fisher-Yates with uniform indices from crypto/rand.
	for i := len(cards) - 1; i > 0; i-- {
		j := cryptoIntn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return &Deck{cards: cards}
}

// NewDeckFromCards builds a deck with an explicit order. Used by tests and by
// snapshot rehydration; gameplay decks come from NewShuffledDeck.
func NewDeckFromCards(cards []Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	copy(d.cards, cards)
	return d
}

// Deal removes and returns the top n cards.
func (d *Deck) Deal(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, fmt.Errorf("deal %d: only %d cards remain", n, len(d.cards))
	}
	dealt := make([]Card, n)
	copy(dealt, d.cards[:n])
	d.cards = d.cards[n:]
	return dealt, nil
}

// Remaining returns the undealt cards in order. The caller must not mutate
// the returned slice.
func (d *Deck) Remaining() []Card {
	return d.cards
}

// Len returns the number of undealt cards.
func (d *Deck) Len() int {
	return len(d.cards)
}

// cryptoIntn returns a uniform int in [0, n) using rejection sampling over
// crypto/rand. Panics if the entropy source fails: a table that cannot
// shuffle must not deal.
func cryptoIntn(n int) int {
	if n <= 0 {
		panic("cryptoIntn: n must be positive")
	}

	max := ^uint64(0) - ^uint64(0)%uint64(n)
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			panic("poker: entropy source unavailable: " + err.Error())
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < max {
			return int(v % uint64(n))
		}
	}
}
