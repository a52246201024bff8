package engine

// The executor methods below validate completely before touching any pile, so
// a rejected or invalid request leaves the state exactly as it was.

// MoveTableauRun moves the cards from startIndex to the top of the tableau
// pile src onto the tableau pile dst. Legality is decided by the bottom card
// of the run; the run itself is re-checked and a malformed one is reported as
// an invariant fault.
func (gs *GameState) MoveTableauRun(src PileID, startIndex int, dst PileID, sc Scoring) (Outcome, error) {
	if src.Kind != TableauPile || !src.Valid() {
		return Outcome{}, invalidRequest("source %s is not a tableau pile", src)
	}
	if dst.Kind != TableauPile || !dst.Valid() {
		return Outcome{}, invalidRequest("destination %s is not a tableau pile", dst)
	}
	if src == dst {
		return Outcome{}, invalidRequest("source and destination are both %s", src)
	}

	from, to := gs.pileRef(src), gs.pileRef(dst)
	if from.IsEmpty() {
		return rejected(ReasonEmptySource), nil
	}
	if startIndex < 0 || startIndex >= from.Len() {
		return Outcome{}, invalidRequest("card index %d outside %s (%d cards)", startIndex, src, from.Len())
	}

	run := (*from)[startIndex:]
	if !run[0].FaceUp {
		return rejected(ReasonFaceDownCard), nil
	}
	if r := checkRun(run); r != ReasonNone {
		return Outcome{}, &InvariantError{Problems: []string{
			"run at " + src.String() + " is not a valid sequence: " + string(r),
		}}
	}
	if r := CheckTableauMove(run[0], *to); r != ReasonNone {
		return rejected(r), nil
	}

	*to = append(*to, run...)
	*from = (*from)[:startIndex]
	from.revealTop()

	gs.Moves++
	gs.Score += sc.TableauMove
	return accepted(), nil
}

// MoveWasteToTableau moves the top waste card onto tableau pile dst.
func (gs *GameState) MoveWasteToTableau(dst PileID, sc Scoring) (Outcome, error) {
	if dst.Kind != TableauPile || !dst.Valid() {
		return Outcome{}, invalidRequest("destination %s is not a tableau pile", dst)
	}
	card, ok := gs.Waste.Top()
	if !ok {
		return rejected(ReasonEmptySource), nil
	}
	to := gs.pileRef(dst)
	if r := CheckTableauMove(card, *to); r != ReasonNone {
		return rejected(r), nil
	}

	*to = append(*to, card)
	gs.Waste = gs.Waste[:gs.Waste.Len()-1]

	gs.Moves++
	gs.Score += sc.TableauMove
	return accepted(), nil
}

// MoveWasteToFoundation moves the top waste card onto foundation pile dst.
func (gs *GameState) MoveWasteToFoundation(dst PileID, sc Scoring) (Outcome, error) {
	return gs.MoveToFoundation(Waste, gs.Waste.Len()-1, dst, sc)
}

// MoveToFoundation moves the single card at cardIndex of src (a tableau pile
// or the waste) onto foundation pile dst. Only the top card can move.
func (gs *GameState) MoveToFoundation(src PileID, cardIndex int, dst PileID, sc Scoring) (Outcome, error) {
	if !src.Valid() || (src.Kind != TableauPile && src.Kind != WastePile) {
		return Outcome{}, invalidRequest("source %s cannot feed a foundation", src)
	}
	if dst.Kind != FoundationPile || !dst.Valid() {
		return Outcome{}, invalidRequest("destination %s is not a foundation", dst)
	}

	from, to := gs.pileRef(src), gs.pileRef(dst)
	if from.IsEmpty() {
		return rejected(ReasonEmptySource), nil
	}
	if cardIndex != from.Len()-1 {
		return Outcome{}, invalidRequest("card index %d is not the top of %s (%d cards)", cardIndex, src, from.Len())
	}

	card := (*from)[cardIndex]
	if !card.FaceUp {
		return rejected(ReasonFaceDownCard), nil
	}
	if r := CheckFoundationMove(card, *to, Suit(dst.Index)); r != ReasonNone {
		return rejected(r), nil
	}

	*to = append(*to, card)
	*from = (*from)[:cardIndex]
	if src.Kind == TableauPile {
		from.revealTop()
	}

	gs.Moves++
	gs.Score += sc.FoundationMove
	return accepted(), nil
}

// DrawFromStock turns the top stock card onto the waste. With an empty stock
// it recycles instead: the waste, reversed and face-down, becomes the stock.
// A recycle is not a move and leaves the counters alone.
func (gs *GameState) DrawFromStock(sc Scoring) DrawOutcome {
	if n := gs.Stock.Len(); n > 0 {
		card := gs.Stock[n-1]
		card.FaceUp = true
		gs.Stock = gs.Stock[:n-1]
		gs.Waste = append(gs.Waste, card)

		gs.Moves++
		gs.Score -= sc.DrawPenalty
		if gs.Score < 0 {
			gs.Score = 0
		}
		return DrawOutcome{Action: DrawActionDraw, Card: &card}
	}

	if gs.Waste.IsEmpty() {
		return DrawOutcome{Action: DrawActionNone}
	}

	stock := make(Pile, 0, gs.Waste.Len())
	for i := gs.Waste.Len() - 1; i >= 0; i-- {
		c := gs.Waste[i]
		c.FaceUp = false
		stock = append(stock, c)
	}
	gs.Stock = stock
	gs.Waste = Pile{}
	return DrawOutcome{Action: DrawActionRecycle}
}
