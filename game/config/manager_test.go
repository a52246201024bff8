package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/klondike/game/engine"
)

func createValidConfig() *engine.GameConfig {
	return &engine.GameConfig{
		Name:        "Test Config",
		Description: "Test configuration",
		Scoring:     engine.DefaultScoring(),
	}
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.GameConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	path := filepath.Join(dir, filename)
	err = os.WriteFile(path, data, 0644)
	if err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func writeRaw(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", filename, err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()

		classic := createValidConfig()
		classic.Name = "Classic"
		writeConfigFile(t, dir, "classic", classic)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Classic" {
			t.Errorf("Expected classic to be the default, got %s", manager.GetDefault().Name)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory falls back to built-in rules", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed even without config files, got error: %v", err)
		}

		defaultConfig := manager.GetDefault()
		if defaultConfig == nil {
			t.Fatal("Expected default config to be available")
		}
		if defaultConfig.Scoring != engine.DefaultScoring() {
			t.Errorf("Expected classic scoring, got %+v", defaultConfig.Scoring)
		}
	})

	t.Run("first loadable file when classic is missing", func(t *testing.T) {
		dir := t.TempDir()
		writeRaw(t, dir, "aaa.json", `{"name": ""}`)
		other := createValidConfig()
		other.Name = "Other"
		writeConfigFile(t, dir, "other", other)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Other" {
			t.Errorf("Expected 'Other' as default, got %s", manager.GetDefault().Name)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()

	writeConfigFile(t, dir, "classic", createValidConfig())

	relaxed := createValidConfig()
	relaxed.Name = "Relaxed"
	relaxed.Scoring.DrawPenalty = 0
	writeConfigFile(t, dir, "relaxed", relaxed)

	writeRaw(t, dir, "vegas.yaml", `
name: Vegas
description: Foundation cards pay, nothing else does
scoring:
  tableau_move: 0
  foundation_move: 5
  draw_penalty: 0
`)
	writeRaw(t, dir, "speed.hcl", `
name        = "Speed"
description = "Cheap draws"

scoring {
  draw_penalty = 1
}
`)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("relaxed")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.Name != "Relaxed" {
			t.Errorf("Expected config name 'Relaxed', got '%s'", config.Name)
		}
		if config.Scoring.DrawPenalty != 0 {
			t.Errorf("Expected draw penalty 0, got %d", config.Scoring.DrawPenalty)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		config, err := manager.LoadConfig("relaxed.json")
		if err != nil {
			t.Fatalf("Failed to load config with extension: %v", err)
		}
		if config.Name != "Relaxed" {
			t.Errorf("Expected config name 'Relaxed', got '%s'", config.Name)
		}
	})

	t.Run("load yaml", func(t *testing.T) {
		config, err := manager.LoadConfig("vegas")
		if err != nil {
			t.Fatalf("Failed to load yaml config: %v", err)
		}
		want := engine.Scoring{TableauMove: 0, FoundationMove: 5, DrawPenalty: 0}
		if config.Scoring != want {
			t.Errorf("Expected %+v, got %+v", want, config.Scoring)
		}
	})

	t.Run("load hcl with partial scoring", func(t *testing.T) {
		config, err := manager.LoadConfig("speed.hcl")
		if err != nil {
			t.Fatalf("Failed to load hcl config: %v", err)
		}
		want := engine.Scoring{TableauMove: 10, FoundationMove: 50, DrawPenalty: 1}
		if config.Scoring != want {
			t.Errorf("Expected %+v, got %+v", want, config.Scoring)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		config1, _ := manager.LoadConfig("relaxed")

		config2, err := manager.LoadConfig("relaxed")
		if err != nil {
			t.Fatalf("Failed to load config from cache: %v", err)
		}

		// Should be the same pointer (cached)
		if config1 != config2 {
			t.Error("Expected config to be loaded from cache")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := manager.LoadConfig("non-existent")
		if err != ErrConfigNotFound {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("path traversal is not found", func(t *testing.T) {
		_, err := manager.LoadConfig("../etc/passwd")
		if err != ErrConfigNotFound {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		writeRaw(t, dir, "invalid.json", `{"name": ""}`)

		_, err := manager.LoadConfig("invalid")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		writeRaw(t, dir, "malformed.json", `{"name": "Malformed", invalid json}`)

		_, err := manager.LoadConfig("malformed")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig for malformed JSON, got %v", err)
		}
	})

	t.Run("negative scoring rejected", func(t *testing.T) {
		writeRaw(t, dir, "broken.yml", "name: Broken\ndescription: x\nscoring:\n  draw_penalty: -3\n")

		_, err := manager.LoadConfig("broken")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()

	configs := []struct {
		filename string
		name     string
	}{
		{"classic", "Classic"},
		{"easy", "Easy"},
		{"medium", "Medium"},
	}

	for _, cfg := range configs {
		config := createValidConfig()
		config.Name = cfg.name
		writeConfigFile(t, dir, cfg.filename, config)
	}
	writeRaw(t, dir, "hard.hcl", "name = \"Hard\"\ndescription = \"Expensive draws\"\nscoring {\n  draw_penalty = 20\n}\n")

	// Files that should be ignored
	writeRaw(t, dir, "readme.txt", "readme")
	writeRaw(t, dir, "broken.json", "{")

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configList, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configList) != 4 {
		t.Fatalf("Expected 4 configs, got %d", len(configList))
	}

	// Sorted by config id
	wantIDs := []string{"classic", "easy", "hard", "medium"}
	for i, info := range configList {
		if info.ConfigID != wantIDs[i] {
			t.Errorf("Position %d: expected %s, got %s", i, wantIDs[i], info.ConfigID)
		}
	}
	if configList[2].Filename != "hard.hcl" || configList[2].Scoring.DrawPenalty != 20 {
		t.Errorf("Unexpected hcl entry %+v", *configList[2])
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	for _, name := range []string{"saved", "saved-yaml.yaml", "saved-hcl.hcl"} {
		t.Run(name, func(t *testing.T) {
			config := createValidConfig()
			config.Name = name
			config.Scoring.FoundationMove = 15

			if err := manager.SaveConfig(name, config); err != nil {
				t.Fatalf("Failed to save config: %v", err)
			}

			filename := name
			if filepath.Ext(name) == "" {
				filename += ".json"
			}
			loaded, err := LoadFile(filepath.Join(dir, filename))
			if err != nil {
				t.Fatalf("Failed to read back %s: %v", filename, err)
			}
			if *loaded != *config {
				t.Errorf("Round trip mismatch: %+v vs %+v", *loaded, *config)
			}
		})
	}

	if err := manager.SaveConfig("bad", &engine.GameConfig{Name: "bad"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if err := manager.SaveConfig("../escape", createValidConfig()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for a path, got %v", err)
	}
}

func TestManager_SetDefaultAndRefresh(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())

	relaxed := createValidConfig()
	relaxed.Name = "Relaxed"
	writeConfigFile(t, dir, "relaxed", relaxed)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if err := manager.SetDefault("relaxed"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if manager.GetDefault().Name != "Relaxed" {
		t.Errorf("Expected Relaxed default, got %s", manager.GetDefault().Name)
	}
	if err := manager.SetDefault("missing"); err != ErrConfigNotFound {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}

	// Modify the file on disk; the cache keeps the old value until refreshed.
	relaxed.Description = "changed"
	writeConfigFile(t, dir, "relaxed", relaxed)

	cached, _ := manager.LoadConfig("relaxed")
	if cached.Description == "changed" {
		t.Error("Expected cached value before refresh")
	}

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}
	reloaded, _ := manager.LoadConfig("relaxed")
	if reloaded.Description != "changed" {
		t.Errorf("Expected refreshed description, got %s", reloaded.Description)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()

	for i := 1; i <= 5; i++ {
		config := createValidConfig()
		config.Name = fmt.Sprintf("Config%d", i)
		writeConfigFile(t, dir, fmt.Sprintf("config%d", i), config)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			configName := fmt.Sprintf("config%d", (id%5)+1)
			if _, err := manager.LoadConfig(configName); err != nil {
				errs <- err
			}
			if id%10 == 0 {
				_, _ = manager.ListConfigs()
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}

	manager.mu.RLock()
	cached := len(manager.configs)
	manager.mu.RUnlock()
	if cached < 5 {
		t.Errorf("Expected at least 5 configs in cache, got %d", cached)
	}
}
