package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

// FilePersistence implements SessionPersistence using file system storage
type FilePersistence struct {
	sessionsDir   string
	configManager service.ConfigManager
	engineOpts    []engine.Option
}

// NewFilePersistence creates a new file-based session persistence layer.
// Engine options are applied to every engine rebuilt by Load.
func NewFilePersistence(sessionsDir string, configManager service.ConfigManager, opts ...engine.Option) (*FilePersistence, error) {
	// Create sessions directory if it doesn't exist
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &FilePersistence{
		sessionsDir:   sessionsDir,
		configManager: configManager,
		engineOpts:    opts,
	}, nil
}

// Save persists a session to a JSON file
func (fp *FilePersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if !validID(session.ID) {
		return ErrInvalidSessionID
	}

	configID := session.ConfigID
	if configID == "" {
		var err error
		configID, err = fp.getConfigIDFromName(session.Config.Name)
		if err != nil {
			return fmt.Errorf("failed to get config ID: %w", err)
		}
	}

	data := PersistedSessionData{
		ID:             session.ID,
		ConfigName:     configID, // Store config ID, not display name
		Config:         session.Config,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      session.Engine.GetState(),
		History:        session.Engine.GetMoveHistory(),
	}

	// Marshal to JSON with indentation for readability
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	// Write to a temp file and rename so a crash never leaves half a session
	filePath := fp.getFilePath(session.ID)
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Load retrieves a session from a JSON file
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	if !validID(id) {
		return nil, ErrSessionNotFound
	}
	data, err := ReadSessionFile(fp.getFilePath(id))
	if err != nil {
		return nil, err
	}

	// Load the rule set, falling back to the stored copy
	gameConfig, err := fp.configManager.LoadConfig(data.ConfigName)
	if err != nil {
		if data.Config == nil {
			return nil, fmt.Errorf("failed to load config '%s': %w", data.ConfigName, err)
		}
		gameConfig = data.Config
	}

	if data.GameState == nil {
		return nil, fmt.Errorf("session %s has no game state", id)
	}

	gameEngine, err := engine.NewEngine(gameConfig, &data.GameState.Seed, fp.engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}

	// Restore the game; SetState rejects states that break the rules
	if err := gameEngine.SetState(data.GameState); err != nil {
		return nil, fmt.Errorf("failed to set game state: %w", err)
	}
	gameEngine.SetMoveHistory(data.History)

	session := &service.Session{
		ID:             data.ID,
		ConfigID:       data.ConfigName,
		Engine:         gameEngine,
		Config:         gameConfig,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}

	return session, nil
}

// ReadSessionFile decodes a persisted session without rebuilding its engine.
func ReadSessionFile(path string) (*PersistedSessionData, error) {
	jsonData, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	return &data, nil
}

// Delete removes a session file
func (fp *FilePersistence) Delete(id string) error {
	// Check if file exists
	if !fp.Exists(id) {
		return ErrSessionNotFound
	}

	if err := os.Remove(fp.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	return nil
}

// ListAll returns all persisted session IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessionIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			// Remove .json extension to get session ID
			sessionIDs = append(sessionIDs, strings.TrimSuffix(name, ".json"))
		}
	}

	return sessionIDs, nil
}

// Exists checks if a session file exists
func (fp *FilePersistence) Exists(id string) bool {
	if !validID(id) {
		return false
	}
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

// getFilePath returns the full file path for a session ID
func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.sessionsDir, fmt.Sprintf("%s.json", id))
}

// getConfigIDFromName returns the config ID (filename without extension) from display name
func (fp *FilePersistence) getConfigIDFromName(displayName string) (string, error) {
	configs, err := fp.configManager.ListConfigs()
	if err != nil {
		return "", fmt.Errorf("failed to list configs: %w", err)
	}

	for _, config := range configs {
		if config.Name == displayName {
			return config.ConfigID, nil
		}
	}

	// If not found, assume the displayName is already the config ID
	return displayName, nil
}

// validID rejects ids that could escape the sessions directory.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}
