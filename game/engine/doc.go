// Package engine provides the rules of Klondike solitaire (draw one).
//
// The engine package implements:
//   - The card and pile model (seven tableau piles, four foundations, waste, stock)
//   - Seeded, reproducible dealing with a Fisher-Yates shuffle
//   - Pure move validators for tableau and foundation placements
//   - Atomic move executors with scoring and move counting
//   - Drawing from the stock and recycling the waste
//   - Win detection and invariant checking
//
// Core Types:
//
// GameState is a plain value describing one deal; every operation takes it
// explicitly and there is no package-level game state. PileID names a pile
// from the closed set Tableau(i), Foundation(i), Waste and Stock. GameEngine
// wraps a GameState with a rule set and a move history for hosting layers.
//
// Usage:
//
//	seed := int64(42)
//	state := engine.DealNewGame(&seed)
//
//	out, err := engine.TryMoveTableau(state, engine.Tableau(6), 6, engine.Tableau(2))
//	if err != nil {
//		// invalid pile or card index, or an invariant fault
//	}
//	if !out.Accepted {
//		fmt.Println("rejected:", out.Reason)
//	}
//
//	engine.DrawOrRecycle(state)
//	won := engine.IsWon(state)
//
// Outcomes:
//
// Illegal moves are not errors: they come back as an Outcome with Accepted
// false and a Reason, and the state is left untouched. Requests naming a pile
// or card that does not exist return a *RequestError. A state that breaks a
// structural invariant yields an *InvariantError.
//
// Scoring:
//
// Classic scoring awards 10 points per tableau move, 50 per foundation move
// and takes 5 per draw, never dropping below zero. Recycling the waste is
// free and does not count as a move.
package engine
