package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

var suitSymbols = map[engine.Suit]string{
	engine.Hearts:   "♥",
	engine.Diamonds: "♦",
	engine.Clubs:    "♣",
	engine.Spades:   "♠",
}

// cardText renders a face-up card as rank and suit symbol, e.g. "10♠".
func cardText(c engine.Card) string {
	return c.Rank.String() + suitSymbols[c.Suit]
}

func topText(p engine.Pile) string {
	top, ok := p.Top()
	if !ok {
		return "--"
	}
	if !top.FaceUp {
		return "##"
	}
	return cardText(top)
}

// formatTableauPile prints a pile bottom to top, face-up cards with their index.
func formatTableauPile(p engine.Pile) string {
	if p.IsEmpty() {
		return "(empty)"
	}
	parts := make([]string, len(p))
	for i, c := range p {
		if c.FaceUp {
			parts[i] = fmt.Sprintf("[%d]%s", i, cardText(c))
		} else {
			parts[i] = "##"
		}
	}
	return strings.Join(parts, " ")
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d | Moves: %d | Seed: %d\n", state.Score, state.Moves, state.Seed)
	fmt.Fprintf(&b, "Stock: %d cards | Waste: %s (%d cards)\n\n", state.Stock.Len(), topText(state.Waste), state.Waste.Len())

	b.WriteString("Foundations:\n")
	for i, f := range state.Foundations {
		fmt.Fprintf(&b, "  foundation:%d  %s (%d/13)\n", i, topText(f), f.Len())
	}

	b.WriteString("\nTableau (bottom to top):\n")
	for i, p := range state.Tableau {
		fmt.Fprintf(&b, "  tableau:%d  %s\n", i, formatTableauPile(p))
	}

	if engine.IsWon(state) {
		b.WriteString("\n🎉 All foundations complete. You won!\n")
	}
	return b.String()
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Accepted {
		b.WriteString("✓ ")
	} else {
		b.WriteString("✗ ")
	}
	b.WriteString(result.Message)
	b.WriteString("\n\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	fmt.Fprintf(&b, "Config: %s\n", session.ConfigName)
	fmt.Fprintf(&b, "Created: %s\n", session.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Last accessed: %s\n", session.LastAccessedAt.Format(time.RFC3339))
	if session.Won {
		b.WriteString("Status: won\n")
	} else {
		b.WriteString("Status: in play\n")
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(session.GameState))
	return b.String()
}

func formatMoveEntry(m engine.MoveHistoryEntry) string {
	var what string
	switch m.Action {
	case engine.ActionDraw, engine.ActionRecycle:
		what = m.Action
	case engine.ActionNewDeal:
		what = "new deal"
	default:
		what = fmt.Sprintf("%s %s[%d] -> %s", m.Action, m.From, m.CardIndex, m.To)
		if m.Action == engine.ActionWasteToTableau || m.Action == engine.ActionWasteToFoundation {
			what = fmt.Sprintf("%s -> %s", m.Action, m.To)
		}
	}

	status := "ok"
	if !m.Accepted {
		status = "rejected"
		if m.Reason != "" {
			status += ": " + string(m.Reason)
		}
	}

	return fmt.Sprintf("#%d %s (%s) score=%d", m.MoveNumber, what, status, m.Score)
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (page %d of %d, %d total):\n\n", history.Page, history.TotalPages, history.TotalMoves)
	if len(history.Moves) == 0 {
		b.WriteString("No moves yet\n")
		return b.String()
	}
	for _, m := range history.Moves {
		b.WriteString(formatMoveEntry(m))
		b.WriteString("\n")
	}
	if history.HasNext {
		fmt.Fprintf(&b, "\nMore entries on page %d\n", history.Page+1)
	}
	return b.String()
}

func formatLegalMoves(moves []engine.Move) string {
	if len(moves) == 0 {
		return "No legal moves. Start a new deal."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Legal moves (%d):\n", len(moves))
	for _, m := range moves {
		switch {
		case m.From == nil || m.To == nil:
			fmt.Fprintf(&b, "- %s\n", m.Action)
		case m.Action == engine.ActionMoveTableau:
			fmt.Fprintf(&b, "- %s from=%s card_index=%d to=%s (%d cards)\n", m.Action, m.From, m.CardIndex, m.To, m.Cards)
		default:
			fmt.Fprintf(&b, "- %s from=%s card_index=%d to=%s\n", m.Action, m.From, m.CardIndex, m.To)
		}
	}
	return b.String()
}
