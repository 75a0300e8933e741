// Package deck provides the 52-card deck primitives the engine deals from.
// All operations are non-mutating: Shuffle returns a fresh permutation and
// Deal/DealN return the dealt cards alongside the remaining deck, so a deck
// slice stored in a snapshot is never changed underneath its owner.
package deck

import (
	"fmt"
	rand "math/rand/v2"
)

// Size is the number of cards in a standard deck.
const Size = 52

// New returns the 52 cards of a standard deck in canonical suit/rank order.
func New() []Card {
	cards := make([]Card, 0, Size)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return cards
}

// Shuffle returns a uniformly random permutation of cards using Fisher-Yates.
// The input slice is left untouched.
func Shuffle(cards []Card, rng *rand.Rand) []Card {
	shuffled := make([]Card, len(cards))
	copy(shuffled, cards)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// Deal takes the top card, returning it and the remaining deck.
func Deal(cards []Card) (Card, []Card, error) {
	if len(cards) == 0 {
		return Card{}, nil, fmt.Errorf("deal from empty deck")
	}
	return cards[0], cards[1:], nil
}

// DealN takes n cards from the top, returning them and the remaining deck.
// n may be zero; dealing more cards than remain is an error.
func DealN(cards []Card, n int) ([]Card, []Card, error) {
	if n < 0 {
		return nil, cards, fmt.Errorf("deal %d cards: count must be non-negative", n)
	}
	if n > len(cards) {
		return nil, cards, fmt.Errorf("deal %d cards: only %d remaining", n, len(cards))
	}
	return cards[:n:n], cards[n:], nil
}
