package session

import (
	"time"

	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage. The caller holds the session lock.
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions.
// The rule set is stored by id and as a copy, so a session survives its
// config file being removed.
type PersistedSessionData struct {
	ID             string                    `json:"id"`
	ConfigName     string                    `json:"config_name"`
	Config         *engine.GameConfig        `json:"config,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
	LastAccessedAt time.Time                 `json:"last_accessed_at"`
	GameState      *engine.GameState         `json:"game_state"`
	History        []engine.MoveHistoryEntry `json:"history"`
}
