package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func up(s Suit, r Rank) Card   { return Card{Suit: s, Rank: r, FaceUp: true} }
func down(s Suit, r Rank) Card { return Card{Suit: s, Rank: r} }

// layout describes the piles a test cares about; every card not placed is
// put face-down into the stock so the state always holds all 52 cards.
type layout struct {
	tableau     [NumTableau]Pile
	foundations [NumFoundations]Pile
	waste       Pile
	stock       Pile
	fillStock   bool
}

func buildState(t *testing.T, l layout) *GameState {
	t.Helper()

	gs := &GameState{}
	var used [DeckSize]bool
	mark := func(p Pile) Pile {
		out := Pile{}
		for _, c := range p {
			require.False(t, used[c.key()], "card %s placed twice in fixture", c)
			used[c.key()] = true
			out = append(out, c)
		}
		return out
	}

	for i := range l.tableau {
		gs.Tableau[i] = mark(l.tableau[i])
	}
	for i := range l.foundations {
		gs.Foundations[i] = mark(l.foundations[i])
	}
	gs.Waste = mark(l.waste)
	gs.Stock = mark(l.stock)

	if l.fillStock {
		for _, c := range NewDeck() {
			if !used[c.key()] {
				gs.Stock = append(gs.Stock, c)
			}
		}
	}
	return gs
}

// leftover returns all cards not in the given piles, face-down, in deck order.
func leftover(piles ...Pile) Pile {
	var used [DeckSize]bool
	for _, p := range piles {
		for _, c := range p {
			used[c.key()] = true
		}
	}
	out := Pile{}
	for _, c := range NewDeck() {
		if !used[c.key()] {
			out = append(out, c)
		}
	}
	return out
}

// fullFoundation returns Ace..top of suit, face-up.
func fullFoundation(s Suit, top Rank) Pile {
	p := Pile{}
	for r := Ace; r <= top; r++ {
		p = append(p, up(s, r))
	}
	return p
}

func requireValid(t *testing.T, gs *GameState) {
	t.Helper()
	require.NoError(t, CheckInvariants(gs))
}
