package service

import (
	"time"

	"github.com/wricardo/klondike/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	Won            bool               `json:"won"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
	Watchers       int                `json:"watchers"` // live feed clients, filled by the API
}

// ListOptions orders and limits session listings
type ListOptions struct {
	Sort  string `json:"sort"`  // "created" or "accessed" (default)
	Order string `json:"order"` // "asc" or "desc" (default)
	Limit int    `json:"limit"` // 0 means no limit
}

// MoveResult contains the result of a card move. Rejected moves come back
// with Accepted false and a Reason; the state is unchanged in that case.
type MoveResult struct {
	Accepted  bool                     `json:"accepted"`
	Reason    engine.Reason            `json:"reason,omitempty"`
	Message   string                   `json:"message"`
	Won       bool                     `json:"won"`
	Move      *engine.MoveHistoryEntry `json:"move,omitempty"`
	GameState *engine.GameState        `json:"game_state"`
}

// DrawResult contains the result of a draw request
type DrawResult struct {
	Action    engine.DrawAction        `json:"action"`
	Card      *engine.Card             `json:"card,omitempty"`
	Message   string                   `json:"message"`
	Move      *engine.MoveHistoryEntry `json:"move,omitempty"`
	GameState *engine.GameState        `json:"game_state"`
}

// TableauMoveRequest moves the run starting at CardIndex of From onto To.
type TableauMoveRequest struct {
	From      engine.PileID `json:"from"`
	CardIndex int           `json:"card_index"`
	To        engine.PileID `json:"to"`
}

// FoundationMoveRequest moves the top card of From (tableau or waste) onto
// the foundation with index Foundation.
type FoundationMoveRequest struct {
	From       engine.PileID `json:"from"`
	CardIndex  int           `json:"card_index"`
	Foundation int           `json:"foundation"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a rule set
type ConfigInfo struct {
	Filename    string         `json:"filename"`
	ConfigID    string         `json:"config_id"` // The identifier to use for session creation
	Name        string         `json:"name"`      // Display name
	Description string         `json:"description"`
	Scoring     engine.Scoring `json:"scoring"`
}
