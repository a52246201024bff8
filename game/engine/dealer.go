package engine

import (
	"math/rand"
	"time"
)

// NewDeck returns the 52 cards in suit-major order, all face-down.
func NewDeck() []Card {
	cards := make([]Card, 0, DeckSize)
	for _, suit := range AllSuits {
		for rank := Ace; rank <= King; rank++ {
			cards = append(cards, Card{Suit: suit, Rank: rank})
		}
	}
	return cards
}

// Shuffle shuffles cards in place using Fisher-Yates driven by rng.
func Shuffle(cards []Card, rng *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Deal shuffles a fresh deck with rng and lays out a new game: tableau pile i
// receives i+1 cards with only the last one face-up, the rest go face-down to
// the stock. The same rng state always produces the same layout.
func Deal(rng *rand.Rand) *GameState {
	deck := NewDeck()
	Shuffle(deck, rng)

	gs := &GameState{}
	next := 0
	for i := 0; i < NumTableau; i++ {
		pile := make(Pile, 0, i+1)
		for j := 0; j <= i; j++ {
			c := deck[next]
			c.FaceUp = j == i
			pile = append(pile, c)
			next++
		}
		gs.Tableau[i] = pile
	}
	for i := range gs.Foundations {
		gs.Foundations[i] = Pile{}
	}
	gs.Waste = Pile{}
	gs.Stock = append(Pile{}, deck[next:]...)
	return gs
}

// DealSeeded deals a game from a seeded source and records the seed.
func DealSeeded(seed int64) *GameState {
	gs := Deal(rand.New(rand.NewSource(seed)))
	gs.Seed = seed
	return gs
}

// DealNewGame deals a game for the given seed, or a fresh seed when nil.
func DealNewGame(seed *int64) *GameState {
	if seed != nil {
		return DealSeeded(*seed)
	}
	return DealSeeded(NewSeed())
}

// NewSeed returns a seed for callers that did not supply one.
func NewSeed() int64 {
	return time.Now().UnixNano()
}
