// Package evaluator ranks the best five-card poker hand available from a
// player's hole cards plus the shared board. Every C(n,5) subset of the
// combined cards is scored into a category with a kicker sequence, and the
// maximum under Compare is returned. The category/kicker structure (rather
// than an opaque rank index) is what the engine needs to detect split pots
// and to report results.
package evaluator

import (
	"fmt"
	"sort"

	"github.com/feltkit/holdem/internal/deck"
)

// Category enumerates hand tiers from weakest to strongest.
type Category int

const (
	HighCard Category = iota + 1
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns a human-readable category name.
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// Evaluation is the scored result for one five-card hand: the category, its
// tie-break kicker sequence (most significant first), and the five cards
// that produced it.
type Evaluation struct {
	Category Category    `json:"category"`
	Kickers  []int       `json:"kickers"`
	Cards    []deck.Card `json:"cards"`
}

// Evaluate returns the best five-card evaluation obtainable from the given
// hole and community cards. At least five cards in total are required.
func Evaluate(holeCards, communityCards []deck.Card) (Evaluation, error) {
	all := make([]deck.Card, 0, len(holeCards)+len(communityCards))
	all = append(all, holeCards...)
	all = append(all, communityCards...)

	if len(all) < 5 {
		return Evaluation{}, fmt.Errorf("evaluate hand: need at least 5 cards, got %d", len(all))
	}

	var best Evaluation
	first := true
	forEachFive(all, func(subset [5]deck.Card) {
		ev := scoreFive(subset)
		if first || Compare(ev, best) > 0 {
			best = ev
			first = false
		}
	})
	return best, nil
}

// Compare orders two evaluations: positive if a beats b, negative if b beats
// a, zero for an exact tie (split pot). Categories compare first, then the
// kicker sequences element-wise with missing trailing elements read as 0.
// The ordering is total and transitive.
func Compare(a, b Evaluation) int {
	if a.Category != b.Category {
		return int(a.Category) - int(b.Category)
	}
	n := len(a.Kickers)
	if len(b.Kickers) > n {
		n = len(b.Kickers)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(a.Kickers) {
			av = a.Kickers[i]
		}
		if i < len(b.Kickers) {
			bv = b.Kickers[i]
		}
		if av != bv {
			return av - bv
		}
	}
	return 0
}

// forEachFive invokes fn for every 5-card subset of cards.
func forEachFive(cards []deck.Card, fn func([5]deck.Card)) {
	n := len(cards)
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						fn([5]deck.Card{cards[a], cards[b], cards[c], cards[d], cards[e]})
					}
				}
			}
		}
	}
}

// scoreFive scores exactly five cards into a category and kicker sequence.
func scoreFive(cards [5]deck.Card) Evaluation {
	values := make([]int, 5)
	flush := true
	for i, c := range cards {
		values[i] = int(c.Rank)
		if c.Suit != cards[0].Suit {
			flush = false
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))

	straightHigh, straight := straightHigh(values)

	// Count ranks: counts holds rank -> multiplicity, groups the ranks
	// bucketed by multiplicity, each bucket sorted descending.
	counts := make(map[int]int, 5)
	for _, v := range values {
		counts[v]++
	}
	groups := make(map[int][]int)
	for v, n := range counts {
		groups[n] = append(groups[n], v)
	}
	for _, g := range groups {
		sort.Sort(sort.Reverse(sort.IntSlice(g)))
	}

	five := cards[:]

	switch {
	case straight && flush && straightHigh == int(deck.Ace):
		return Evaluation{Category: RoyalFlush, Kickers: []int{straightHigh}, Cards: five}
	case straight && flush:
		return Evaluation{Category: StraightFlush, Kickers: []int{straightHigh}, Cards: five}
	case len(groups[4]) == 1:
		return Evaluation{Category: FourOfAKind, Kickers: []int{groups[4][0], groups[1][0]}, Cards: five}
	case len(groups[3]) == 1 && len(groups[2]) == 1:
		return Evaluation{Category: FullHouse, Kickers: []int{groups[3][0], groups[2][0]}, Cards: five}
	case flush:
		return Evaluation{Category: Flush, Kickers: values, Cards: five}
	case straight:
		return Evaluation{Category: Straight, Kickers: []int{straightHigh}, Cards: five}
	case len(groups[3]) == 1:
		k := groups[1]
		return Evaluation{Category: ThreeOfAKind, Kickers: []int{groups[3][0], k[0], k[1]}, Cards: five}
	case len(groups[2]) == 2:
		pairs := groups[2]
		return Evaluation{Category: TwoPair, Kickers: []int{pairs[0], pairs[1], groups[1][0]}, Cards: five}
	case len(groups[2]) == 1:
		k := groups[1]
		return Evaluation{Category: Pair, Kickers: []int{groups[2][0], k[0], k[1], k[2]}, Cards: five}
	default:
		return Evaluation{Category: HighCard, Kickers: values, Cards: five}
	}
}

// straightHigh reports whether the (descending-sorted) values form five
// consecutive ranks and returns the high card. The wheel A-2-3-4-5 is a
// straight whose high card is 5: the ace plays low there and only there.
func straightHigh(sorted []int) (int, bool) {
	for i := 1; i < 5; i++ {
		if sorted[i] != sorted[0]-i {
			// Wheel: A,5,4,3,2 sorted descending.
			if sorted[0] == int(deck.Ace) && sorted[1] == 5 && sorted[2] == 4 && sorted[3] == 3 && sorted[4] == 2 {
				return 5, true
			}
			return 0, false
		}
	}
	return sorted[0], true
}
