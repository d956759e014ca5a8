package poker

import (
	"fmt"
	"strings"
)

// Card packs a playing card into an int32:
// +--------+--------+--------+--------+
// |xxxbbbbb|bbbbbbbb|ssssrrrr|xxpppppp|
// +--------+--------+--------+--------+
// b = rank bit (one of 13), s = suit, r = rank (0..12), p = rank prime.
// The prime lets a 5-card hand be identified by the product of its cards.
type Card int32

var (
	intRanks [13]int32
	strRanks = "23456789TJQKA"
	primes   = []int32{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41}
)

var (
	charRankToIntRank = map[uint8]int32{}
	charSuitToIntSuit = map[uint8]int32{
		's': 1, // spades
		'h': 2, // hearts
		'd': 4, // diamonds
		'c': 8, // clubs
	}
	intSuitToCharSuit = "xshxdxxxc"
)

var (
	prettySuits = map[int32]string{
		1: "♠", // spades
		2: "♥", // hearts
		4: "♦", // diamonds
		8: "♣", // clubs
	}
	redSuits = map[int32]bool{2: true, 4: true}

	displayRanks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}
)

func init() {
	for i := 0; i < 13; i++ {
		intRanks[i] = int32(i)
	}

	for i := range strRanks {
		charRankToIntRank[strRanks[i]] = intRanks[i]
	}
}

// NewCard parses the two character form "As", "Td", "9c".
func NewCard(s string) Card {
	rankInt := charRankToIntRank[s[0]]
	suitInt := charSuitToIntSuit[s[1]]
	rankPrime := primes[rankInt]

	bitRank := int32(1) << uint32(rankInt) << 16
	suit := suitInt << 12
	rank := rankInt << 8

	return Card(bitRank | suit | rank | rankPrime)
}

func NewCards(s ...string) []Card {
	cards := make([]Card, len(s))
	for i := range s {
		cards[i] = NewCard(s[i])
	}
	return cards
}

func (c Card) MarshalJSON() ([]byte, error) {
	return []byte("\"" + c.String() + "\""), nil
}

func (c *Card) UnmarshalJSON(b []byte) error {
	*c = NewCard(string(b[1:3]))
	return nil
}

func (c Card) String() string {
	return string(strRanks[c.Rank()]) + string(intSuitToCharSuit[c.Suit()])
}

// Rank returns the 0-based rank, 0 = deuce, 12 = ace.
func (c Card) Rank() int32 {
	return (int32(c) >> 8) & 0xF
}

func (c Card) Suit() int32 {
	return (int32(c) >> 12) & 0xF
}

func (c Card) BitRank() int32 {
	return (int32(c) >> 16) & 0x1FFF
}

func (c Card) Prime() int32 {
	return int32(c) & 0x3F
}

// SuitGlyph returns the unicode suit symbol shown at the table.
func (c Card) SuitGlyph() string {
	return prettySuits[c.Suit()]
}

// Color returns "red" for hearts/diamonds, "black" otherwise.
func (c Card) Color() string {
	if redSuits[c.Suit()] {
		return "red"
	}
	return "black"
}

// RankDisplay returns the rank as shown at the table ("2".."10", "J".."A").
func (c Card) RankDisplay() string {
	return displayRanks[c.Rank()]
}

func primeProductFromHand(cards []Card) int32 {
	product := int32(1)

	for _, card := range cards {
		product *= (int32(card) & 0xFF)
	}

	return product
}

func primeProductFromRankBits(rankBits int32) int32 {
	product := int32(1)

	for _, i := range intRanks {
		if rankBits&(1<<uint(i)) != 0 {
			product *= primes[i]
		}
	}

	return product
}

func CardToString(card Card) string {
	return fmt.Sprintf("%s%s", string(strRanks[card.Rank()]), prettySuits[card.Suit()])
}

func CardsToString(cards []Card) string {
	var b strings.Builder
	b.Grow(32)
	fmt.Fprintf(&b, "[")
	for _, c := range cards {
		fmt.Fprintf(&b, " %s ", CardToString(c))
	}
	fmt.Fprintf(&b, "]")
	return b.String()
}
