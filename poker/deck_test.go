package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeckHas52DistinctCards(t *testing.T) {
	deck := NewDeck(nil)
	require.Equal(t, 52, deck.Remaining())

	seen := map[Card]bool{}
	for _, card := range deck.Draw(52) {
		assert.False(t, seen[card], "duplicate card %s", card)
		seen[card] = true
	}
	assert.Len(t, seen, 52)
	assert.True(t, deck.Empty())
}

func TestDrawAndBurnAccounting(t *testing.T) {
	deck := NewDeck(nil)
	deck.Draw(6)
	deck.Burn()
	deck.Draw(3)
	deck.Burn()
	deck.Draw(1)
	assert.Equal(t, 52-12, deck.Remaining())
}

func TestDeckFromScript(t *testing.T) {
	playerCards := []CardsInAscii{
		{"Ah", "Ad"},
		{"Kc", "Kd"},
	}
	deck := DeckFromScript(playerCards, CardsInAscii{"2c", "7d", "Ts"}, NewCard("4h"), NewCard("9s"))

	// round-robin deal: p1, p2, p1, p2
	hole := deck.Draw(4)
	assert.Equal(t, NewCard("Ah"), hole[0])
	assert.Equal(t, NewCard("Kc"), hole[1])
	assert.Equal(t, NewCard("Ad"), hole[2])
	assert.Equal(t, NewCard("Kd"), hole[3])

	deck.Burn()
	flop := deck.Draw(3)
	assert.Equal(t, NewCards("2c", "7d", "Ts"), flop)
	deck.Burn()
	assert.Equal(t, NewCard("4h"), deck.Draw(1)[0])
	deck.Burn()
	assert.Equal(t, NewCard("9s"), deck.Draw(1)[0])
}

func TestCardProperties(t *testing.T) {
	card := NewCard("Th")
	assert.Equal(t, "Th", card.String())
	assert.Equal(t, "10", card.RankDisplay())
	assert.Equal(t, "♥", card.SuitGlyph())
	assert.Equal(t, "red", card.Color())

	card = NewCard("As")
	assert.Equal(t, "A", card.RankDisplay())
	assert.Equal(t, "black", card.Color())
}
