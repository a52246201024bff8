package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/wricardo/klondike/game/engine"
)

// maxLookups bounds how often withSession looks a session up again after
// finding the copy it locked evicted.
const maxLookups = 3

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	logger   *log.Logger
}

// Option configures the game service.
type Option func(*gameServiceImpl)

// WithLogger sets the logger used for storage failures that do not fail the
// request.
func WithLogger(logger *log.Logger) Option {
	return func(s *gameServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given rule-set name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "classic"
	}
	return configName
}

// CreateSession creates a new game session and deals its first game
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string, seed *int64) (*SessionInfo, error) {
	var config *engine.GameConfig
	var err error
	configID := configName

	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found, available configs: %v: %w", configName, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found, use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.getConfigID(config.Name)
	}

	// Let the session manager generate the ID
	sess, err := s.sessions.Create("", config, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sess.Lock()
	defer sess.Unlock()
	sess.ConfigID = configID
	if err := s.sessions.Save(sess); err != nil {
		s.logger.Warn("failed to persist session", "session", sess.ID, "err", err)
	}

	return s.info(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	var info *SessionInfo
	err := s.withSession(sessionID, func(sess *Session) error {
		info = s.info(sess)
		return nil
	})
	return info, err
}

// ListSessions returns all active sessions, sorted and limited per opts
func (s *gameServiceImpl) ListSessions(ctx context.Context, opts ListOptions) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		sess.Lock()
		result = append(result, s.info(sess))
		sess.Unlock()
	}

	if opts.Sort == "" {
		opts.Sort = "accessed"
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].LastAccessedAt, result[j].LastAccessedAt
		if opts.Sort == "created" {
			a, b = result[i].CreatedAt, result[j].CreatedAt
		}
		if a.Equal(b) {
			return result[i].ID < result[j].ID
		}
		if opts.Order == "asc" {
			return a.Before(b)
		}
		return a.After(b)
	})

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(sessionID)
}

// Draw turns one stock card onto the waste, or recycles the waste
func (s *gameServiceImpl) Draw(ctx context.Context, sessionID string) (*DrawResult, error) {
	var result *DrawResult
	err := s.withSession(sessionID, func(sess *Session) error {
		out, err := sess.Engine.Draw()
		if err != nil {
			return fmt.Errorf("draw: %w", err)
		}

		result = &DrawResult{
			Action:    out.Action,
			Card:      out.Card,
			Move:      lastMove(sess.Engine),
			GameState: sess.Engine.GetState().Clone(),
		}
		switch out.Action {
		case engine.DrawActionDraw:
			result.Message = fmt.Sprintf("Drew %s", out.Card)
		case engine.DrawActionRecycle:
			result.Message = "Turned the waste over into the stock"
		default:
			result.Message = "Stock and waste are both empty"
		}
		return nil
	})
	return result, err
}

// MoveTableau moves a run of face-up cards between tableau piles
func (s *gameServiceImpl) MoveTableau(ctx context.Context, sessionID string, req TableauMoveRequest) (*MoveResult, error) {
	return s.move(sessionID, func(e *engine.GameEngine) (engine.Outcome, error) {
		return e.MoveTableau(req.From, req.CardIndex, req.To)
	})
}

// MoveFoundation moves the top card of a tableau pile or the waste to a foundation
func (s *gameServiceImpl) MoveFoundation(ctx context.Context, sessionID string, req FoundationMoveRequest) (*MoveResult, error) {
	return s.move(sessionID, func(e *engine.GameEngine) (engine.Outcome, error) {
		return e.MoveFoundation(req.From, req.CardIndex, req.Foundation)
	})
}

// MoveWasteToTableau moves the top waste card onto a tableau pile
func (s *gameServiceImpl) MoveWasteToTableau(ctx context.Context, sessionID string, to engine.PileID) (*MoveResult, error) {
	return s.move(sessionID, func(e *engine.GameEngine) (engine.Outcome, error) {
		return e.MoveWasteToTableau(to)
	})
}

// MoveWasteToFoundation moves the top waste card onto a foundation
func (s *gameServiceImpl) MoveWasteToFoundation(ctx context.Context, sessionID string, foundation int) (*MoveResult, error) {
	return s.move(sessionID, func(e *engine.GameEngine) (engine.Outcome, error) {
		return e.MoveWasteToFoundation(foundation)
	})
}

func (s *gameServiceImpl) move(sessionID string, apply func(*engine.GameEngine) (engine.Outcome, error)) (*MoveResult, error) {
	var result *MoveResult
	err := s.withSession(sessionID, func(sess *Session) error {
		out, err := apply(sess.Engine)
		if err != nil {
			return err
		}

		state := sess.Engine.GetState()
		result = &MoveResult{
			Accepted:  out.Accepted,
			Reason:    out.Reason,
			Won:       engine.IsWon(state),
			Move:      lastMove(sess.Engine),
			GameState: state.Clone(),
		}
		result.Message = describeMove(result)
		return nil
	})
	return result, err
}

// NewDeal replaces the session's game with a fresh deal
func (s *gameServiceImpl) NewDeal(ctx context.Context, sessionID string, seed *int64) (*engine.GameState, error) {
	var state *engine.GameState
	err := s.withSession(sessionID, func(sess *Session) error {
		state = sess.Engine.NewDeal(seed).Clone()
		return nil
	})
	return state, err
}

// GetGameState returns a snapshot of the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	var state *engine.GameState
	err := s.withSession(sessionID, func(sess *Session) error {
		state = sess.Engine.GetState().Clone()
		return nil
	})
	return state, err
}

// LegalMoves lists the moves the rules accept right now
func (s *gameServiceImpl) LegalMoves(ctx context.Context, sessionID string) ([]engine.Move, error) {
	var moves []engine.Move
	err := s.withSession(sessionID, func(sess *Session) error {
		moves = sess.Engine.LegalMoves()
		return nil
	})
	if moves == nil && err == nil {
		moves = []engine.Move{}
	}
	return moves, err
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	var history []engine.MoveHistoryEntry
	err := s.withSession(sessionID, func(sess *Session) error {
		history = append([]engine.MoveHistoryEntry(nil), sess.Engine.GetMoveHistory()...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paginate(history, opts), nil
}

func paginate(history []engine.MoveHistoryEntry, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	// Calculate pagination
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

// ListConfigs returns available rule sets
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific rule set
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a rule set to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// withSession runs fn with the session locked, then stamps the access time
// and persists. The access is recorded even when fn fails, since rejected
// and invalid attempts still land in the move history. A session evicted
// while we waited for its lock is looked up again.
func (s *gameServiceImpl) withSession(sessionID string, fn func(sess *Session) error) error {
	for i := 0; i < maxLookups; i++ {
		sess, err := s.sessions.Get(sessionID)
		if err != nil {
			return fmt.Errorf("session %s: %w", sessionID, err)
		}

		sess.Lock()
		if sess.Evicted() {
			sess.Unlock()
			continue
		}

		fnErr := fn(sess)
		if err := s.sessions.UpdateLastAccessed(sess); err != nil {
			s.logger.Warn("failed to persist session after access", "session", sess.ID, "err", err)
		}
		sess.Unlock()
		return fnErr
	}
	return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
}

// info builds a SessionInfo. Callers hold the session lock.
func (s *gameServiceImpl) info(sess *Session) *SessionInfo {
	configID := sess.ConfigID
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	state := sess.Engine.GetState()
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID, // Return the config_id, not the display name
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Won:            engine.IsWon(state),
		GameState:      state.Clone(),
		GameConfig:     sess.Config,
	}
}

func lastMove(e *engine.GameEngine) *engine.MoveHistoryEntry {
	last := e.GetLastMove()
	if last == nil {
		return nil
	}
	m := *last
	return &m
}

var reasonText = map[engine.Reason]string{
	engine.ReasonEmptySource:  "the source pile is empty",
	engine.ReasonWrongRank:    "the card's rank does not fit there",
	engine.ReasonWrongColor:   "tableau cards must alternate colors",
	engine.ReasonWrongSuit:    "foundations are built up in a single suit",
	engine.ReasonFaceDownCard: "face-down cards cannot be moved or built on",
}

// ReasonText returns a human-readable explanation of a rejection reason.
func ReasonText(r engine.Reason) string {
	if text, ok := reasonText[r]; ok {
		return text
	}
	return string(r)
}

func describeMove(r *MoveResult) string {
	if !r.Accepted {
		return fmt.Sprintf("Move rejected (%s): %s", r.Reason, ReasonText(r.Reason))
	}

	msg := "Move accepted"
	if m := r.Move; m != nil {
		noun := "cards"
		if m.Cards == 1 {
			noun = "card"
		}
		msg = fmt.Sprintf("Moved %d %s from %s to %s", m.Cards, noun, m.From, m.To)
	}
	if r.Won {
		msg += ". All foundations are complete, the game is won!"
	}
	return msg
}

// IsInvalidRequest reports whether err was caused by a malformed move
// request rather than a rule rejection or a server fault.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, engine.ErrInvalidRequest)
}
