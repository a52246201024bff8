package engine

import "fmt"

// IsWon reports whether every foundation holds all thirteen cards of its suit.
func IsWon(gs *GameState) bool {
	for _, f := range gs.Foundations {
		if f.Len() != int(King) {
			return false
		}
	}
	return true
}

// CheckInvariants verifies the structural rules every reachable state obeys:
// exactly 52 distinct cards, foundations built Ace upwards in their own suit,
// a face-down stock, a face-up waste, and tableau piles whose face-up cards
// form a single valid run that is never covered by a face-down card.
// It returns an *InvariantError listing every problem found.
func CheckInvariants(gs *GameState) error {
	var problems []string
	var seen [DeckSize]PileID
	var present [DeckSize]bool

	visit := func(id PileID, p Pile) {
		for i, c := range p {
			if !c.Suit.Valid() || !c.Rank.Valid() {
				problems = append(problems, fmt.Sprintf("%s[%d]: invalid card %d/%d", id, i, c.Suit, c.Rank))
				continue
			}
			k := c.key()
			if present[k] {
				problems = append(problems, fmt.Sprintf("%s duplicated in %s and %s", c, seen[k], id))
				continue
			}
			present[k] = true
			seen[k] = id
		}
	}

	for i, p := range gs.Tableau {
		visit(Tableau(i), p)
	}
	for i, p := range gs.Foundations {
		visit(Foundation(i), p)
	}
	visit(Waste, gs.Waste)
	visit(Stock, gs.Stock)

	if n := gs.CardCount(); n != DeckSize {
		problems = append(problems, fmt.Sprintf("%d cards on the table, want %d", n, DeckSize))
	}
	for k, ok := range present {
		if !ok {
			c := Card{Suit: Suit(k / int(King)), Rank: Rank(k%int(King) + 1)}
			problems = append(problems, fmt.Sprintf("%s is missing", c))
		}
	}

	for i, p := range gs.Foundations {
		for j, c := range p {
			if c.Suit != Suit(i) {
				problems = append(problems, fmt.Sprintf("%s holds %s", Foundation(i), c))
			}
			if c.Rank != Rank(j+1) {
				problems = append(problems, fmt.Sprintf("%s has %s at position %d", Foundation(i), c, j))
			}
			if !c.FaceUp {
				problems = append(problems, fmt.Sprintf("%s has face-down %s", Foundation(i), c))
			}
		}
	}

	for _, c := range gs.Waste {
		if !c.FaceUp {
			problems = append(problems, fmt.Sprintf("waste has face-down %s", c))
		}
	}
	for _, c := range gs.Stock {
		if c.FaceUp {
			problems = append(problems, fmt.Sprintf("stock has face-up %s", c))
		}
	}

	for i, p := range gs.Tableau {
		if p.IsEmpty() {
			continue
		}
		start := p.FaceUpFrom()
		if start == p.Len() {
			problems = append(problems, fmt.Sprintf("%s exposes a face-down top", Tableau(i)))
			continue
		}
		for _, c := range p[:start] {
			if c.FaceUp {
				problems = append(problems, fmt.Sprintf("%s has face-up %s under a face-down card", Tableau(i), c))
			}
		}
		if r := checkRun(p[start:]); r != ReasonNone {
			problems = append(problems, fmt.Sprintf("%s face-up run is broken (%s)", Tableau(i), r))
		}
	}

	if gs.Score < 0 {
		problems = append(problems, fmt.Sprintf("negative score %d", gs.Score))
	}
	if gs.Moves < 0 {
		problems = append(problems, fmt.Sprintf("negative move count %d", gs.Moves))
	}

	if len(problems) > 0 {
		return &InvariantError{Problems: problems}
	}
	return nil
}
