package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager handles game session lifecycle.
//
// The registry lock guards the session map only. Methods that take a
// *service.Session expect the caller to hold that session's lock. Locks are
// taken session first, then registry; the manager never waits on a session
// lock while holding the registry lock.
type Manager struct {
	sessions    map[string]*service.Session
	persistence SessionPersistence
	logger      *log.Logger
	clock       quartz.Clock
	mu          sync.RWMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for access times, expiry and move history.
func WithClock(clock quartz.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithPersistence enables write-through persistence.
func WithPersistence(p SessionPersistence) Option {
	return func(m *Manager) {
		m.persistence = p
	}
}

// NewManager creates a new session manager. A nil logger discards output.
func NewManager(logger *log.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	m := &Manager{
		sessions: make(map[string]*service.Session),
		logger:   logger,
		clock:    quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewManagerWithPersistence creates a new session manager with persistence
func NewManagerWithPersistence(persistence SessionPersistence, logger *log.Logger, opts ...Option) *Manager {
	return NewManager(logger, append([]Option{WithPersistence(persistence)}, opts...)...)
}

// Create creates a new session with the given ID and configuration. An empty
// id gets a random one.
func (m *Manager) Create(id string, config *engine.GameConfig, seed *int64) (*service.Session, error) {
	if id != "" && !validID(id) {
		return nil, ErrInvalidSessionID
	}

	eng, err := engine.NewEngine(config, seed, engine.WithClock(m.clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	m.mu.Lock()
	if id == "" {
		id = m.generateSessionID()
	} else if m.sessionExists(id) || (m.persistence != nil && m.persistence.Exists(id)) {
		m.mu.Unlock()
		return nil, ErrSessionAlreadyExists
	}

	now := m.clock.Now()
	session := &service.Session{
		ID:             id,
		Engine:         eng,
		Config:         config,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[strings.ToLower(id)] = session
	m.mu.Unlock()

	// Auto-save; a storage failure does not fail the creation
	session.Lock()
	err = m.Save(session)
	session.Unlock()
	if err != nil {
		m.logger.Warn("failed to persist session", "id", id, "err", err)
	}

	m.logger.Debug("session created", "id", id, "config", config.Name, "seed", eng.GetState().Seed)
	return session, nil
}

// Get retrieves a session by ID (case-insensitive), loading it from
// persistence when it is not in memory.
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if exists {
		return session, nil
	}

	if m.persistence == nil || !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}

	loaded, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another caller may have loaded it first
	if existing, ok := m.sessions[strings.ToLower(id)]; ok {
		return existing, nil
	}
	// Or deleted it while we were reading the file
	if !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}
	m.sessions[strings.ToLower(id)] = loaded
	m.logger.Debug("session loaded from storage", "id", id)
	return loaded, nil
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}

	return result
}

// Delete removes a session from memory and storage. It waits for any
// operation holding the session lock and evicts the session, so a request
// that already looked it up cannot write it back.
func (m *Manager) Delete(id string) error {
	lowerID := strings.ToLower(id)

	for {
		m.mu.RLock()
		session := m.sessions[lowerID]
		m.mu.RUnlock()

		if session != nil {
			session.Lock()
		}
		m.mu.Lock()
		if m.sessions[lowerID] != session {
			// Loaded or replaced while we waited; lock the current copy
			m.mu.Unlock()
			if session != nil {
				session.Unlock()
			}
			continue
		}

		err := m.deleteLocked(id, session)
		m.mu.Unlock()
		if session != nil {
			session.Unlock()
		}
		return err
	}
}

// deleteLocked drops the registered copy and the stored file. The caller
// holds the registry lock and, when session is not nil, its lock.
func (m *Manager) deleteLocked(id string, session *service.Session) error {
	if session != nil {
		delete(m.sessions, strings.ToLower(id))
		session.Evict()
	}

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if session == nil {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory removes a session from memory only (not from persistence)
func (m *Manager) DeleteFromMemory(id string) error {
	lowerID := strings.ToLower(id)

	m.mu.RLock()
	session, exists := m.sessions[lowerID]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	session.Lock()
	defer session.Unlock()
	if !m.evict(session) {
		return ErrSessionNotFound
	}
	return nil
}

// evict drops session from the registry if it is still the registered copy.
// The caller holds the session lock.
func (m *Manager) evict(session *service.Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(session.ID)
	if m.sessions[key] != session {
		return false
	}
	delete(m.sessions, key)
	session.Evict()
	return true
}

// UpdateLastAccessed stamps the session with the current time and writes it
// through to storage. The caller holds the session lock. Evicted sessions
// are left alone.
func (m *Manager) UpdateLastAccessed(session *service.Session) error {
	if session == nil {
		return ErrSessionNotFound
	}
	if session.Evicted() {
		return nil
	}
	session.LastAccessedAt = m.clock.Now()
	return m.Save(session)
}

// Save writes a session to persistence. The caller holds the session lock.
// Evicted sessions are skipped.
func (m *Manager) Save(session *service.Session) error {
	if session == nil {
		return ErrSessionNotFound
	}
	if m.persistence == nil || session.Evicted() {
		return nil
	}
	return m.persistence.Save(session)
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the
// given duration from memory. Persisted copies stay on disk, and a removed
// session is evicted under its lock so only the reloaded copy is live.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := m.clock.Now().Add(-maxAge)

	removed := 0
	for _, session := range m.List() {
		session.Lock()
		if session.LastAccessedAt.Before(cutoff) && m.evict(session) {
			removed++
		}
		session.Unlock()
	}

	if removed > 0 {
		m.logger.Info("expired sessions removed", "count", removed, "max_age", maxAge)
	}
	return removed
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID generates a random 4-character session ID that is not in
// use. The caller holds the registry lock.
func (m *Manager) generateSessionID() string {
	for {
		// Generate 2 random bytes (4 hex characters)
		bytes := make([]byte, 2)
		_, _ = rand.Read(bytes)
		id := hex.EncodeToString(bytes)
		if !m.sessionExists(id) && (m.persistence == nil || !m.persistence.Exists(id)) {
			return id
		}
	}
}

func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}

// LoadPersistedSessions loads all persisted sessions into memory
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	sessionIDs, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loadedCount := 0
	for _, id := range sessionIDs {
		if m.sessionExists(id) {
			continue
		}

		session, err := m.persistence.Load(id)
		if err != nil {
			m.logger.Warn("failed to load persisted session", "id", id, "err", err)
			continue
		}

		m.sessions[strings.ToLower(id)] = session
		loadedCount++
	}

	if loadedCount > 0 {
		m.logger.Info("loaded persisted sessions", "count", loadedCount)
	}

	return nil
}

// SaveAllSessions saves all in-memory sessions to persistence
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	errorCount := 0
	for _, session := range m.List() {
		session.Lock()
		err := m.Save(session)
		session.Unlock()
		if err != nil {
			m.logger.Warn("failed to save session", "id", session.ID, "err", err)
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d sessions", errorCount)
	}

	return nil
}
