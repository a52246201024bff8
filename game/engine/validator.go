package engine

// CheckTableauMove returns why card may not land on dest, or ReasonNone.
// Only Kings start an empty pile; otherwise the top must be face-up, of the
// opposite color and exactly one rank higher.
func CheckTableauMove(card Card, dest Pile) Reason {
	top, ok := dest.Top()
	if !ok {
		if card.Rank != King {
			return ReasonWrongRank
		}
		return ReasonNone
	}
	if !top.FaceUp {
		return ReasonFaceDownCard
	}
	if top.Red() == card.Red() {
		return ReasonWrongColor
	}
	if top.Rank != card.Rank+1 {
		return ReasonWrongRank
	}
	return ReasonNone
}

// CanMoveToTableau reports whether card may be placed on dest.
func CanMoveToTableau(card Card, dest Pile) bool {
	return CheckTableauMove(card, dest) == ReasonNone
}

// CheckFoundationMove returns why card may not land on the foundation dest
// collecting suit, or ReasonNone.
func CheckFoundationMove(card Card, dest Pile, suit Suit) Reason {
	if card.Suit != suit {
		return ReasonWrongSuit
	}
	top, ok := dest.Top()
	if !ok {
		if card.Rank != Ace {
			return ReasonWrongRank
		}
		return ReasonNone
	}
	if card.Rank != top.Rank+1 {
		return ReasonWrongRank
	}
	return ReasonNone
}

// CanMoveToFoundation reports whether card may be placed on dest.
func CanMoveToFoundation(card Card, dest Pile, suit Suit) bool {
	return CheckFoundationMove(card, dest, suit) == ReasonNone
}

// checkRun verifies that run is face-up, descends by one and alternates color.
func checkRun(run Pile) Reason {
	for i, c := range run {
		if !c.FaceUp {
			return ReasonFaceDownCard
		}
		if i == 0 {
			continue
		}
		prev := run[i-1]
		if prev.Red() == c.Red() {
			return ReasonWrongColor
		}
		if prev.Rank != c.Rank+1 {
			return ReasonWrongRank
		}
	}
	return ReasonNone
}
