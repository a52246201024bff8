package engine

import (
	"errors"
	"fmt"

	"github.com/coder/quartz"
	"github.com/google/uuid"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	NewDeal(seed *int64) *GameState
	IsWon() bool
	GetScore() int
	GetMoves() int

	// Move operations
	Draw() (DrawOutcome, error)
	MoveTableau(src PileID, cardIndex int, dst PileID) (Outcome, error)
	MoveFoundation(src PileID, cardIndex int, foundation int) (Outcome, error)
	MoveWasteToTableau(dst PileID) (Outcome, error)
	MoveWasteToFoundation(foundation int) (Outcome, error)
	LegalMoves() []Move

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

// GameEngine implements the Engine interface on top of a single GameState.
// It is not safe for concurrent use; callers serialize access per game.
type GameEngine struct {
	state   *GameState
	config  *GameConfig
	clock   quartz.Clock
	history []MoveHistoryEntry
}

// Option configures a GameEngine.
type Option func(*GameEngine)

// WithClock sets the clock used to timestamp history entries.
func WithClock(clock quartz.Clock) Option {
	return func(e *GameEngine) {
		e.clock = clock
	}
}

// NewEngine creates a game engine for config and deals the first game. A nil
// seed picks a fresh one.
func NewEngine(config *GameConfig, seed *int64, opts ...Option) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	e := &GameEngine{
		config:  config,
		clock:   quartz.NewReal(),
		history: []MoveHistoryEntry{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state = e.deal(seed)
	return e, nil
}

// NewEngineWithDefaults creates an engine with the classic rule set
func NewEngineWithDefaults(seed *int64) *GameEngine {
	e, err := NewEngine(DefaultGameConfig(), seed)
	if err != nil {
		panic(fmt.Sprintf("default config rejected: %v", err))
	}
	return e
}

func (e *GameEngine) deal(seed *int64) *GameState {
	gs := DealNewGame(seed)
	gs.DealID = uuid.NewString()
	return gs
}

// GetState returns the live game state. Callers that hand it to another
// goroutine should Clone it first.
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState replaces the game state (used for persistence loading). The state
// must satisfy every invariant.
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if err := CheckInvariants(state); err != nil {
		return err
	}
	e.state = state
	return nil
}

// NewDeal replaces the game with a fresh deal. History is cumulative and keeps
// running across deals.
func (e *GameEngine) NewDeal(seed *int64) *GameState {
	e.state = e.deal(seed)
	e.record(MoveHistoryEntry{Action: ActionNewDeal, Accepted: true})
	return e.state
}

// IsWon reports whether all foundations are complete.
func (e *GameEngine) IsWon() bool {
	return IsWon(e.state)
}

// GetScore returns the current score
func (e *GameEngine) GetScore() int {
	return e.state.Score
}

// GetMoves returns the number of accepted moves in the current deal
func (e *GameEngine) GetMoves() int {
	return e.state.Moves
}

// Draw draws from the stock or recycles the waste.
func (e *GameEngine) Draw() (DrawOutcome, error) {
	out := e.state.DrawFromStock(e.config.Scoring)
	entry := MoveHistoryEntry{Action: ActionDraw, From: Stock.String(), To: Waste.String(), Accepted: true}
	switch out.Action {
	case DrawActionRecycle:
		entry = MoveHistoryEntry{Action: ActionRecycle, From: Waste.String(), To: Stock.String(), Accepted: true}
	case DrawActionNone:
		entry.Accepted = false
		entry.Reason = ReasonEmptySource
	}
	e.record(entry)

	if out.Action == DrawActionNone {
		return out, nil
	}
	return out, CheckInvariants(e.state)
}

// MoveTableau moves a run between tableau piles.
func (e *GameEngine) MoveTableau(src PileID, cardIndex int, dst PileID) (Outcome, error) {
	cards := 0
	if p, ok := e.state.Pile(src); ok && cardIndex >= 0 && cardIndex < p.Len() {
		cards = p.Len() - cardIndex
	}
	out, err := e.state.MoveTableauRun(src, cardIndex, dst, e.config.Scoring)
	return e.finish(MoveHistoryEntry{
		Action:    ActionMoveTableau,
		From:      src.String(),
		To:        dst.String(),
		CardIndex: cardIndex,
		Cards:     cards,
	}, out, err)
}

// MoveFoundation moves the top card of a tableau pile or the waste to a foundation.
func (e *GameEngine) MoveFoundation(src PileID, cardIndex int, foundation int) (Outcome, error) {
	dst := Foundation(foundation)
	out, err := e.state.MoveToFoundation(src, cardIndex, dst, e.config.Scoring)
	return e.finish(MoveHistoryEntry{
		Action:    ActionMoveFoundation,
		From:      src.String(),
		To:        dst.String(),
		CardIndex: cardIndex,
		Cards:     1,
	}, out, err)
}

// MoveWasteToTableau moves the top waste card to a tableau pile.
func (e *GameEngine) MoveWasteToTableau(dst PileID) (Outcome, error) {
	out, err := e.state.MoveWasteToTableau(dst, e.config.Scoring)
	return e.finish(MoveHistoryEntry{
		Action: ActionWasteToTableau,
		From:   Waste.String(),
		To:     dst.String(),
		Cards:  1,
	}, out, err)
}

// MoveWasteToFoundation moves the top waste card to a foundation.
func (e *GameEngine) MoveWasteToFoundation(foundation int) (Outcome, error) {
	dst := Foundation(foundation)
	out, err := e.state.MoveWasteToFoundation(dst, e.config.Scoring)
	return e.finish(MoveHistoryEntry{
		Action: ActionWasteToFoundation,
		From:   Waste.String(),
		To:     dst.String(),
		Cards:  1,
	}, out, err)
}

// finish records the attempt and checks invariants after an accepted move.
func (e *GameEngine) finish(entry MoveHistoryEntry, out Outcome, err error) (Outcome, error) {
	var reqErr *RequestError
	switch {
	case err == nil:
		entry.Accepted = out.Accepted
		entry.Reason = out.Reason
		e.record(entry)
	case errors.As(err, &reqErr):
		entry.Reason = reqErr.Reason
		e.record(entry)
		return out, err
	default:
		return out, err
	}

	if out.Accepted {
		if err := CheckInvariants(e.state); err != nil {
			return out, err
		}
	}
	return out, nil
}

// LegalMoves lists the moves the rules currently accept.
func (e *GameEngine) LegalMoves() []Move {
	return LegalMoves(e.state)
}

// Apply performs a move in the form LegalMoves produces. A draw or recycle
// is accepted unless both stock and waste are empty.
func (e *GameEngine) Apply(m Move) (Outcome, error) {
	switch m.Action {
	case ActionDraw, ActionRecycle:
		out, err := e.Draw()
		if out.Action == DrawActionNone {
			return rejected(ReasonEmptySource), err
		}
		return accepted(), err
	case ActionWasteToTableau:
		if m.To == nil {
			return Outcome{}, invalidRequest("%s needs a destination", m.Action)
		}
		return e.MoveWasteToTableau(*m.To)
	}

	if m.From == nil || m.To == nil {
		return Outcome{}, invalidRequest("%s needs a source and a destination", m.Action)
	}
	switch m.Action {
	case ActionMoveTableau:
		return e.MoveTableau(*m.From, m.CardIndex, *m.To)
	case ActionMoveFoundation:
		return e.MoveFoundation(*m.From, m.CardIndex, m.To.Index)
	case ActionWasteToFoundation:
		return e.MoveWasteToFoundation(m.To.Index)
	}
	return Outcome{}, invalidRequest("unknown action %q", m.Action)
}

// GetConfig returns the current rule set
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig switches the rule set and deals a new game
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	e.config = config
	e.NewDeal(nil)
	return nil
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.history
}

// SetMoveHistory restores a persisted history.
func (e *GameEngine) SetMoveHistory(history []MoveHistoryEntry) {
	if history == nil {
		history = []MoveHistoryEntry{}
	}
	e.history = history
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.history) == 0 {
		return nil
	}
	return &e.history[len(e.history)-1]
}

func (e *GameEngine) record(entry MoveHistoryEntry) {
	entry.Score = e.state.Score
	entry.Moves = e.state.Moves
	entry.Timestamp = e.clock.Now().Unix()
	entry.MoveNumber = len(e.history) + 1
	e.history = append(e.history, entry)
}
