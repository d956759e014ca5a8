package poker

import (
	crypto_rand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

var fullDeck *Deck

func init() {
	fullDeck = &Deck{cards: initializeFullCards()}
}

// Deck is a stack of cards dealt from the top. A fresh deck holds all 52.
type Deck struct {
	cards []Card
}

func newSeed() rand.Source {
	var b [8]byte
	_, err := crypto_rand.Read(b[:])
	if err != nil {
		panic("cannot seed math/rand package with cryptographically secure random number generator")
	}
	return rand.NewSource(int64(binary.LittleEndian.Uint64(b[:])))
}

// NewDeck returns a freshly shuffled 52-card deck. A nil source uses a
// crypto-seeded generator.
func NewDeck(source rand.Source) *Deck {
	if source == nil {
		source = newSeed()
	}
	deck := &Deck{}
	deck.shuffle(rand.New(source))
	return deck
}

func NewDeckNoShuffle() *Deck {
	deck := &Deck{}
	deck.cards = make([]Card, len(fullDeck.cards))
	copy(deck.cards, fullDeck.cards)
	return deck
}

func (deck *Deck) shuffle(randGen *rand.Rand) {
	deck.cards = make([]Card, len(fullDeck.cards))
	copy(deck.cards, fullDeck.cards)

	for i := len(deck.cards) - 1; i > 0; i-- {
		loc := randGen.Intn(i + 1)
		deck.cards[i], deck.cards[loc] = deck.cards[loc], deck.cards[i]
	}
}

// Draw removes and returns the top n cards.
func (deck *Deck) Draw(n int) []Card {
	cards := make([]Card, n)
	copy(cards, deck.cards[:n])
	deck.cards = deck.cards[n:]
	return cards
}

// Burn discards the top card before a street is dealt.
func (deck *Deck) Burn() {
	if len(deck.cards) > 0 {
		deck.cards = deck.cards[1:]
	}
}

func (deck *Deck) Remaining() int {
	return len(deck.cards)
}

func (deck *Deck) Empty() bool {
	return len(deck.cards) == 0
}

func (deck *Deck) PrettyPrint() string {
	return CardsToString(deck.cards)
}

type CardsInAscii []string

// DeckFromScript builds a deck that deals the given hole cards and board in
// round-robin deal order, with a burn before each street. Used by tests.
func DeckFromScript(playerCards []CardsInAscii, flop CardsInAscii, turn Card, river Card) *Deck {
	deck := NewDeck(nil)
	noOfPlayers := len(playerCards)
	for i, cards := range playerCards {
		for j, cardStr := range cards {
			deckIndex := i + j*noOfPlayers
			deck.placeCard(NewCard(cardStr), deckIndex)
		}
	}

	// board starts after the hole cards and a burn
	deckIndex := noOfPlayers * len(playerCards[0])
	deckIndex++
	for _, cardStr := range flop {
		deck.placeCard(NewCard(cardStr), deckIndex)
		deckIndex++
	}
	deckIndex++
	deck.placeCard(turn, deckIndex)
	deckIndex++
	deckIndex++
	deck.placeCard(river, deckIndex)

	return deck
}

// placeCard swaps a card into a deck position.
func (deck *Deck) placeCard(card Card, deckIndex int) {
	cardLoc := deck.getCardLoc(card)
	if cardLoc < 0 {
		panic(fmt.Sprintf("Deck.placeCard unable to find card %s in deck", CardToString(card)))
	}
	deck.cards[deckIndex], deck.cards[cardLoc] = deck.cards[cardLoc], deck.cards[deckIndex]
}

func (deck *Deck) getCardLoc(cardToLocate Card) int {
	for i, card := range deck.cards {
		if card == cardToLocate {
			return i
		}
	}
	return -1
}

func initializeFullCards() []Card {
	var cards []Card

	for _, rank := range strRanks {
		for suit := range charSuitToIntSuit {
			cards = append(cards, NewCard(string(rank)+string(suit)))
		}
	}

	return cards
}
