package poker

import (
	"fmt"
)

var table *lookupTable

func init() {
	table = newLookupTable()
}

// RankClass maps an evaluator rank (1..7462, lower is stronger) to one of the
// ten hand categories. The royal flush is the single rank-1 class.
func RankClass(rank int32) int32 {
	if rank <= 0 {
		panic(fmt.Sprintf("rank %d is less than one", rank))
	}
	if rank == RoyalFlush {
		return RoyalFlush
	}

	targets := [...]int32{
		maxStraightFlush,
		maxFourOfAKind,
		maxFullHouse,
		maxFlush,
		maxStraight,
		maxThreeOfAKind,
		maxTwoPair,
		maxPair,
		maxHighCard,
	}

	for _, target := range targets {
		if rank <= target {
			return maxToRankClass[target]
		}
	}

	panic(fmt.Sprintf("rank %d is unknown", rank))
}

// RankString returns the display name of the rank's category,
// e.g. "Full House".
func RankString(rank int32) string {
	return rankClassToString[RankClass(rank)]
}

// Evaluate ranks the best five-card hand that can be made from 5, 6 or 7
// distinct cards. Lower ranks are stronger. The returned cards are the best
// five-card combination. The result does not depend on input order.
func Evaluate(cards []Card) (int32, []Card) {
	switch len(cards) {
	case 5:
		return five(cards...)
	case 6:
		return six(cards...)
	case 7:
		return seven(cards...)
	default:
		panic("Only support 5, 6 and 7 cards.")
	}
}

func five(cards ...Card) (int32, []Card) {
	if cards[0]&cards[1]&cards[2]&cards[3]&cards[4]&0xF000 != 0 {
		handOR := (cards[0] | cards[1] | cards[2] | cards[3] | cards[4]) >> 16
		prime := primeProductFromRankBits(int32(handOR))
		return table.flushLookup[prime], cards
	}

	prime := primeProductFromHand(cards)
	return table.unsuitedLookup[prime], cards
}

func six(cards ...Card) (int32, []Card) {
	var minimum int32 = maxHighCard
	targets := make([]Card, len(cards))
	var bestCards []Card = make([]Card, 5)
	for i := 0; i < len(cards); i++ {
		copy(targets, cards)
		targets := append(targets[:i], targets[i+1:]...)

		score, evaluatedCards := five(targets...)
		if score < minimum {
			minimum = score
			copy(bestCards, evaluatedCards)
		}
	}
	return minimum, bestCards
}

func seven(cards ...Card) (int32, []Card) {
	var minimum int32 = maxHighCard
	targets := make([]Card, len(cards))
	var bestCards []Card = make([]Card, 5)
	for i := 0; i < len(cards); i++ {
		copy(targets, cards)
		targets := append(targets[:i], targets[i+1:]...)

		score, evaluatedCards := six(targets...)
		if score < minimum {
			minimum = score
			copy(bestCards, evaluatedCards)
		}
	}

	return minimum, bestCards
}
