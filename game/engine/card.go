package engine

import (
	"fmt"
	"strings"
)

// Suit identifies one of the four card suits. The numeric value doubles as the
// index of the foundation pile that collects the suit.
type Suit uint8

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

// NumSuits is the number of suits (and foundation piles).
const NumSuits = 4

var suitNames = [NumSuits]string{"hearts", "diamonds", "clubs", "spades"}

// AllSuits lists suits in foundation order.
var AllSuits = [NumSuits]Suit{Hearts, Diamonds, Clubs, Spades}

// Valid reports whether s is one of the four suits.
func (s Suit) Valid() bool {
	return s < NumSuits
}

// Red reports whether the suit is hearts or diamonds.
func (s Suit) Red() bool {
	return s == Hearts || s == Diamonds
}

func (s Suit) String() string {
	if !s.Valid() {
		return fmt.Sprintf("suit(%d)", uint8(s))
	}
	return suitNames[s]
}

// MarshalText encodes the suit by name so persisted games stay readable.
func (s Suit) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid suit %d", uint8(s))
	}
	return []byte(suitNames[s]), nil
}

// UnmarshalText decodes a suit name.
func (s *Suit) UnmarshalText(text []byte) error {
	parsed, err := ParseSuit(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSuit converts a suit name (case-insensitive) into a Suit.
func ParseSuit(name string) (Suit, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range suitNames {
		if n == name {
			return Suit(i), nil
		}
	}
	return 0, fmt.Errorf("unknown suit %q", name)
}

// Rank is a card rank from Ace (1) to King (13).
type Rank uint8

const (
	Ace   Rank = 1
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
)

// Valid reports whether r is within Ace..King.
func (r Rank) Valid() bool {
	return r >= Ace && r <= King
}

func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}
	return fmt.Sprintf("%d", uint8(r))
}

// Card is a playing card together with its orientation.
type Card struct {
	Suit   Suit `json:"suit"`
	Rank   Rank `json:"rank"`
	FaceUp bool `json:"face_up"`
}

// Red reports whether the card is a heart or a diamond.
func (c Card) Red() bool {
	return c.Suit.Red()
}

func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}

// key packs the identity into 0..51 for presence checks.
func (c Card) key() int {
	return int(c.Suit)*int(King) + int(c.Rank) - 1
}
