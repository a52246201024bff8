package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultConfigName is the rule set used when a session names none.
const DefaultConfigName = "classic"

// Extensions lists the rule-config file extensions in lookup order.
var Extensions = []string{".json", ".yaml", ".yml", ".hcl"}

// Manager handles rule-set loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.GameConfig
	configs       map[string]*engine.GameConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.GameConfig),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadDefaultConfig()

	return m, nil
}

// LoadConfig loads a rule set by name. The name may carry one of the
// supported extensions; without one every extension is tried in order.
func (m *Manager) LoadConfig(name string) (*engine.GameConfig, error) {
	id := configID(name)

	m.mu.RLock()
	// Check cache first
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(name)
}

// load reads and caches a rule set. Callers hold the write lock.
func (m *Manager) load(name string) (*engine.GameConfig, error) {
	id := configID(name)
	if config, exists := m.configs[id]; exists {
		return config, nil
	}
	if id == "" || id != filepath.Base(id) || strings.Contains(id, "..") {
		return nil, ErrConfigNotFound
	}

	candidates := []string{name}
	if !hasKnownExtension(name) {
		candidates = candidates[:0]
		for _, ext := range Extensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, filename := range candidates {
		config, err := LoadFile(filepath.Join(m.configDir, filename))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		m.configs[id] = config
		return config, nil
	}
	return nil, ErrConfigNotFound
}

// LoadFile reads a single rule-config file, choosing the decoder by extension,
// and validates the result.
func LoadFile(path string) (*engine.GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", os.ErrNotExist, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := Decode(filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := engine.ValidateGameConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return config, nil
}

// ListConfigs returns information about all available rule sets
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || !hasKnownExtension(entry.Name()) {
			continue
		}

		id := configID(entry.Name())
		if seen[id] {
			continue
		}

		// Try to load the config to get details
		config, err := m.LoadConfig(entry.Name())
		if err != nil {
			// Skip invalid configs
			continue
		}
		seen[id] = true

		configs = append(configs, &service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    id, // This is the identifier to use for session creation
			Name:        config.Name,
			Description: config.Description,
			Scoring:     config.Scoring,
		})
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// GetDefault returns the default rule set
func (m *Manager) GetDefault() *engine.GameConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default rule set by name
func (m *Manager) SetDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	config, err := m.load(name)
	if err != nil {
		return err
	}
	m.defaultConfig = config
	return nil
}

// RefreshCache drops every cached rule set and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configs = make(map[string]*engine.GameConfig)
	m.loadDefaultConfig()
	return nil
}

// loadDefaultConfig picks classic, then the first loadable file, then the
// built-in classic rules. Callers hold the write lock.
func (m *Manager) loadDefaultConfig() {
	if config, err := m.load(DefaultConfigName); err == nil {
		m.defaultConfig = config
		return
	}

	entries, err := os.ReadDir(m.configDir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() || !hasKnownExtension(entry.Name()) {
				continue
			}
			if config, err := m.load(entry.Name()); err == nil {
				m.defaultConfig = config
				return
			}
		}
	}

	m.defaultConfig = engine.DefaultGameConfig()
}

// SaveConfig saves a rule set to disk. The extension of name picks the file
// format; names without one are written as JSON.
func (m *Manager) SaveConfig(name string, config *engine.GameConfig) error {
	// Validate config before saving
	if err := engine.ValidateGameConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	id := configID(name)
	if id == "" || id != filepath.Base(id) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: bad config name %q", ErrInvalidConfig, name)
	}

	filename := name
	if !hasKnownExtension(filename) {
		filename = name + ".json"
	}

	data, err := Encode(filename, config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(m.configDir, filename)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.configs[id] = config
	m.mu.Unlock()

	return nil
}

// configID strips a known extension from a config name.
func configID(name string) string {
	ext := filepath.Ext(name)
	for _, known := range Extensions {
		if ext == known {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

func hasKnownExtension(name string) bool {
	return configID(name) != name
}
