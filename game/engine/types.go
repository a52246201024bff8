package engine

// Reason explains why a move was rejected. The empty reason means accepted.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonEmptySource    Reason = "empty-source"
	ReasonWrongRank      Reason = "wrong-rank"
	ReasonWrongColor     Reason = "wrong-color"
	ReasonWrongSuit      Reason = "wrong-suit"
	ReasonFaceDownCard   Reason = "face-down-card"
	ReasonPileOutOfRange Reason = "pile-out-of-range"
)

// Outcome is the result of a move attempt that reached the rules.
type Outcome struct {
	Accepted bool   `json:"accepted"`
	Reason   Reason `json:"reason,omitempty"`
}

func accepted() Outcome { return Outcome{Accepted: true} }

func rejected(r Reason) Outcome { return Outcome{Reason: r} }

// DrawAction says what a draw request did.
type DrawAction string

const (
	DrawActionDraw    DrawAction = "draw"
	DrawActionRecycle DrawAction = "recycle"
	// DrawActionNone is reported when both stock and waste are empty.
	DrawActionNone    DrawAction = "none"
)

// DrawOutcome describes a draw-or-recycle request.
type DrawOutcome struct {
	Action DrawAction `json:"action"`
	Card   *Card      `json:"card,omitempty"` // card moved to the waste on a draw
}

// GameState is the complete state of one deal. It is owned by a single caller;
// nothing in this package keeps a reference to it between calls.
type GameState struct {
	DealID      string               `json:"deal_id,omitempty"`
	Seed        int64                `json:"seed"`
	Tableau     [NumTableau]Pile     `json:"tableau"`
	Foundations [NumFoundations]Pile `json:"foundations"`
	Waste       Pile                 `json:"waste"`
	Stock       Pile                 `json:"stock"`
	Score       int                  `json:"score"`
	Moves       int                  `json:"moves"`
}

// Pile returns the pile named by id, or false if id does not exist.
func (gs *GameState) Pile(id PileID) (Pile, bool) {
	p := gs.pileRef(id)
	if p == nil {
		return nil, false
	}
	return *p, true
}

// pileRef returns a pointer to the pile slot so executors can reslice it.
func (gs *GameState) pileRef(id PileID) *Pile {
	if !id.Valid() {
		return nil
	}
	switch id.Kind {
	case TableauPile:
		return &gs.Tableau[id.Index]
	case FoundationPile:
		return &gs.Foundations[id.Index]
	case WastePile:
		return &gs.Waste
	case StockPile:
		return &gs.Stock
	}
	return nil
}

// Clone returns a deep copy of the state.
func (gs *GameState) Clone() *GameState {
	out := *gs
	for i := range gs.Tableau {
		out.Tableau[i] = gs.Tableau[i].clone()
	}
	for i := range gs.Foundations {
		out.Foundations[i] = gs.Foundations[i].clone()
	}
	out.Waste = gs.Waste.clone()
	out.Stock = gs.Stock.clone()
	return &out
}

// CardCount returns the number of cards across every pile.
func (gs *GameState) CardCount() int {
	n := gs.Waste.Len() + gs.Stock.Len()
	for _, p := range gs.Tableau {
		n += p.Len()
	}
	for _, p := range gs.Foundations {
		n += p.Len()
	}
	return n
}

// MoveHistoryEntry records one attempted action, accepted or not.
type MoveHistoryEntry struct {
	Action     string `json:"action"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	CardIndex  int    `json:"card_index,omitempty"`
	Cards      int    `json:"cards,omitempty"`
	Accepted   bool   `json:"accepted"`
	Reason     Reason `json:"reason,omitempty"`
	Score      int    `json:"score"`
	Moves      int    `json:"moves"`
	Timestamp  int64  `json:"timestamp"`
	MoveNumber int    `json:"move_number"`
}

// Action names used in move history.
const (
	ActionDraw              = "draw"
	ActionRecycle           = "recycle"
	ActionMoveTableau       = "move_tableau"
	ActionMoveFoundation    = "move_foundation"
	ActionWasteToTableau    = "waste_to_tableau"
	ActionWasteToFoundation = "waste_to_foundation"
	ActionNewDeal           = "new_deal"
)
