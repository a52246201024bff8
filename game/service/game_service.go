package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/klondike/game/engine"
)

// Sentinels shared with the session and config packages, which re-export
// them so every layer agrees on one value.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string, seed *int64) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context, opts ListOptions) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Draw(ctx context.Context, sessionID string) (*DrawResult, error)
	MoveTableau(ctx context.Context, sessionID string, req TableauMoveRequest) (*MoveResult, error)
	MoveFoundation(ctx context.Context, sessionID string, req FoundationMoveRequest) (*MoveResult, error)
	MoveWasteToTableau(ctx context.Context, sessionID string, to engine.PileID) (*MoveResult, error)
	MoveWasteToFoundation(ctx context.Context, sessionID string, foundation int) (*MoveResult, error)
	NewDeal(ctx context.Context, sessionID string, seed *int64) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	LegalMoves(ctx context.Context, sessionID string) ([]engine.Move, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations. UpdateLastAccessed and
// Save read the session, so callers hold its lock.
type SessionManager interface {
	Create(id string, config *engine.GameConfig, seed *int64) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(session *Session) error
	Save(session *Session) error
}

// ConfigManager handles rule-set loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Session represents an active game session. The embedded mutex serializes
// every operation on the session's engine; hold it while touching Engine.
type Session struct {
	sync.Mutex

	ID             string
	ConfigID       string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time

	evicted bool
}

// Evict marks the session as dropped from its manager. The caller holds the
// lock. An evicted session is never written to storage again; look the id up
// again to reach the live copy, if any.
func (s *Session) Evict() {
	s.evicted = true
}

// Evicted reports whether Evict was called. The caller holds the lock.
func (s *Session) Evicted() bool {
	return s.evicted
}
