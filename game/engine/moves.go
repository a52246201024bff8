package engine

// Library entry points operating on a caller-owned state with classic scoring.
// Every accepted mutation is followed by an invariant check; a failure there is
// returned as an *InvariantError and points at an executor defect.

// TryMoveTableau moves the run starting at cardIndex of tableau pile src onto
// tableau pile dst.
func TryMoveTableau(gs *GameState, src PileID, cardIndex int, dst PileID) (Outcome, error) {
	return settle(gs)(gs.MoveTableauRun(src, cardIndex, dst, DefaultScoring()))
}

// TryMoveFoundation moves the top card of src (tableau or waste) onto the
// foundation with the given index.
func TryMoveFoundation(gs *GameState, src PileID, cardIndex int, foundation int) (Outcome, error) {
	return settle(gs)(gs.MoveToFoundation(src, cardIndex, Foundation(foundation), DefaultScoring()))
}

// TryMoveWasteToTableau moves the top waste card onto tableau pile dst.
func TryMoveWasteToTableau(gs *GameState, dst PileID) (Outcome, error) {
	return settle(gs)(gs.MoveWasteToTableau(dst, DefaultScoring()))
}

// TryMoveWasteToFoundation moves the top waste card onto the given foundation.
func TryMoveWasteToFoundation(gs *GameState, foundation int) (Outcome, error) {
	return settle(gs)(gs.MoveWasteToFoundation(Foundation(foundation), DefaultScoring()))
}

// DrawOrRecycle draws one card, or recycles the waste when the stock is empty.
func DrawOrRecycle(gs *GameState) (DrawOutcome, error) {
	out := gs.DrawFromStock(DefaultScoring())
	if out.Action == DrawActionNone {
		return out, nil
	}
	return out, CheckInvariants(gs)
}

func settle(gs *GameState) func(Outcome, error) (Outcome, error) {
	return func(out Outcome, err error) (Outcome, error) {
		if err != nil || !out.Accepted {
			return out, err
		}
		if err := CheckInvariants(gs); err != nil {
			return out, err
		}
		return out, nil
	}
}

// Move describes one action that the rules would currently accept.
type Move struct {
	Action    string  `json:"action"`
	From      *PileID `json:"from,omitempty"`
	CardIndex int     `json:"card_index"`
	To        *PileID `json:"to,omitempty"`
	Cards     int     `json:"cards,omitempty"`
}

// LegalMoves lists every move the rules accept in the current state, in a
// stable order: foundation moves, waste moves, tableau runs, then the draw.
// It only inspects the position one move deep, and it leaves out shifting a
// whole pile onto an empty one since that changes nothing.
func LegalMoves(gs *GameState) []Move {
	var moves []Move
	add := func(action string, from PileID, idx int, to PileID, cards int) {
		f, t := from, to
		moves = append(moves, Move{Action: action, From: &f, CardIndex: idx, To: &t, Cards: cards})
	}

	for i, p := range gs.Tableau {
		top, ok := p.Top()
		if !ok || !top.FaceUp {
			continue
		}
		dst := Foundation(int(top.Suit))
		if CanMoveToFoundation(top, gs.Foundations[top.Suit], top.Suit) {
			add(ActionMoveFoundation, Tableau(i), p.Len()-1, dst, 1)
		}
	}

	if top, ok := gs.Waste.Top(); ok {
		if CanMoveToFoundation(top, gs.Foundations[top.Suit], top.Suit) {
			add(ActionWasteToFoundation, Waste, gs.Waste.Len()-1, Foundation(int(top.Suit)), 1)
		}
		for j, dst := range gs.Tableau {
			if CanMoveToTableau(top, dst) {
				add(ActionWasteToTableau, Waste, gs.Waste.Len()-1, Tableau(j), 1)
			}
		}
	}

	for i, src := range gs.Tableau {
		for start := src.FaceUpFrom(); start < src.Len(); start++ {
			if checkRun(src[start:]) != ReasonNone {
				continue
			}
			for j, dst := range gs.Tableau {
				if i == j || (start == 0 && dst.IsEmpty()) {
					continue
				}
				if CanMoveToTableau(src[start], dst) {
					add(ActionMoveTableau, Tableau(i), start, Tableau(j), src.Len()-start)
				}
			}
		}
	}

	if !gs.Stock.IsEmpty() {
		moves = append(moves, Move{Action: ActionDraw})
	} else if !gs.Waste.IsEmpty() {
		moves = append(moves, Move{Action: ActionRecycle})
	}
	return moves
}
