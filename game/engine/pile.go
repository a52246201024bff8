package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// PileKind tags the four kinds of pile on the table.
type PileKind uint8

const (
	TableauPile PileKind = iota
	FoundationPile
	WastePile
	StockPile
)

const (
	// NumTableau is the number of build piles.
	NumTableau = 7
	// NumFoundations is the number of foundation piles, one per suit.
	NumFoundations = NumSuits
	// DeckSize is the number of cards in play at all times.
	DeckSize = 52
)

func (k PileKind) String() string {
	switch k {
	case TableauPile:
		return "tableau"
	case FoundationPile:
		return "foundation"
	case WastePile:
		return "waste"
	case StockPile:
		return "stock"
	}
	return fmt.Sprintf("pile-kind(%d)", uint8(k))
}

// PileID names a pile. Index is only meaningful for tableau and foundation piles.
type PileID struct {
	Kind  PileKind
	Index int
}

// Tableau returns the id of tableau pile i.
func Tableau(i int) PileID { return PileID{Kind: TableauPile, Index: i} }

// Foundation returns the id of foundation pile i.
func Foundation(i int) PileID { return PileID{Kind: FoundationPile, Index: i} }

// Waste is the id of the waste pile.
var Waste = PileID{Kind: WastePile}

// Stock is the id of the stock pile.
var Stock = PileID{Kind: StockPile}

// Valid reports whether the id refers to a pile that exists on the table.
func (id PileID) Valid() bool {
	switch id.Kind {
	case TableauPile:
		return id.Index >= 0 && id.Index < NumTableau
	case FoundationPile:
		return id.Index >= 0 && id.Index < NumFoundations
	case WastePile, StockPile:
		return id.Index == 0
	}
	return false
}

func (id PileID) String() string {
	switch id.Kind {
	case TableauPile, FoundationPile:
		return fmt.Sprintf("%s:%d", id.Kind, id.Index)
	}
	return id.Kind.String()
}

// MarshalText encodes the id as "tableau:3", "foundation:0", "waste" or "stock".
func (id PileID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the text form produced by MarshalText.
func (id *PileID) UnmarshalText(text []byte) error {
	parsed, err := ParsePileID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParsePileID parses a pile id. It checks the syntax only; range checks are
// left to the operations so they can report them as invalid requests.
func ParsePileID(s string) (PileID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	name, idx, hasIdx := strings.Cut(s, ":")

	var kind PileKind
	switch name {
	case "tableau", "t":
		kind = TableauPile
	case "foundation", "f":
		kind = FoundationPile
	case "waste", "w":
		kind = WastePile
	case "stock", "s":
		kind = StockPile
	default:
		return PileID{}, fmt.Errorf("unknown pile %q", s)
	}

	if kind == WastePile || kind == StockPile {
		if hasIdx {
			return PileID{}, fmt.Errorf("pile %q takes no index", name)
		}
		return PileID{Kind: kind}, nil
	}

	if !hasIdx {
		return PileID{}, fmt.Errorf("pile %q needs an index", name)
	}
	n, err := strconv.Atoi(idx)
	if err != nil {
		return PileID{}, fmt.Errorf("invalid pile index %q: %w", idx, err)
	}
	return PileID{Kind: kind, Index: n}, nil
}

// Pile is an ordered run of cards; the last element is the top.
type Pile []Card

// Len returns the number of cards in the pile.
func (p Pile) Len() int { return len(p) }

// IsEmpty reports whether the pile holds no cards.
func (p Pile) IsEmpty() bool { return len(p) == 0 }

// Top returns the top card and false when the pile is empty.
func (p Pile) Top() (Card, bool) {
	if len(p) == 0 {
		return Card{}, false
	}
	return p[len(p)-1], true
}

// FaceUpFrom returns the index of the first card of the face-up suffix, or
// len(p) when the top is face-down or the pile is empty.
func (p Pile) FaceUpFrom() int {
	i := len(p)
	for i > 0 && p[i-1].FaceUp {
		i--
	}
	return i
}

// clone returns an independent, never-nil copy so empty piles encode as [].
func (p Pile) clone() Pile {
	out := make(Pile, len(p))
	copy(out, p)
	return out
}

// revealTop flips the top card face-up if there is one.
func (p Pile) revealTop() {
	if len(p) > 0 {
		p[len(p)-1].FaceUp = true
	}
}
