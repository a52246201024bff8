package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/wricardo/klondike/game/config"
	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

func newTestPersistence(t *testing.T) (*FilePersistence, *config.Manager, string) {
	t.Helper()
	tempDir := t.TempDir()

	configManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	persistence, err := NewFilePersistence(tempDir, configManager)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	return persistence, configManager, tempDir
}

func newTestSession(t *testing.T, id string, cfg *engine.GameConfig, seed int64) *service.Session {
	t.Helper()
	eng, err := engine.NewEngine(cfg, &seed)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return &service.Session{
		ID:             id,
		ConfigID:       "classic",
		Engine:         eng,
		Config:         cfg,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
}

func TestFilePersistence(t *testing.T) {
	persistence, configManager, tempDir := newTestPersistence(t)
	gameConfig := configManager.GetDefault()
	session := newTestSession(t, "test1", gameConfig, 42)

	t.Run("Save and Load Session", func(t *testing.T) {
		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		if !persistence.Exists("test1") {
			t.Error("Session file should exist after save")
		}

		loaded, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}

		if loaded.ID != session.ID {
			t.Errorf("Expected ID %s, got %s", session.ID, loaded.ID)
		}
		if loaded.ConfigID != "classic" {
			t.Errorf("Expected config ID classic, got %s", loaded.ConfigID)
		}
		if loaded.Config.Name != session.Config.Name {
			t.Errorf("Expected config name %s, got %s", session.Config.Name, loaded.Config.Name)
		}
		if !loaded.CreatedAt.Equal(session.CreatedAt) {
			t.Errorf("Expected CreatedAt %v, got %v", session.CreatedAt, loaded.CreatedAt)
		}
		got, want := loaded.Engine.GetState(), session.Engine.GetState()
		if got.Seed != want.Seed || got.DealID != want.DealID {
			t.Errorf("Deal not restored: got seed %d deal %s", got.Seed, got.DealID)
		}
		for i := range want.Tableau {
			if len(got.Tableau[i]) != len(want.Tableau[i]) {
				t.Errorf("Tableau %d: expected %d cards, got %d", i, len(want.Tableau[i]), len(got.Tableau[i]))
			}
		}
	})

	t.Run("Save State Changes", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			if _, err := session.Engine.Draw(); err != nil {
				t.Fatalf("Draw failed: %v", err)
			}
		}

		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save updated session: %v", err)
		}

		loaded, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load updated session: %v", err)
		}

		got, want := loaded.Engine.GetState(), session.Engine.GetState()
		if got.Waste.Len() != 3 || got.Stock.Len() != want.Stock.Len() {
			t.Errorf("Stock/waste not persisted: waste %d stock %d", got.Waste.Len(), got.Stock.Len())
		}
		if got.Score != want.Score || got.Moves != want.Moves {
			t.Errorf("Counters not persisted: score %d moves %d", got.Score, got.Moves)
		}
		if len(loaded.Engine.GetMoveHistory()) != len(session.Engine.GetMoveHistory()) {
			t.Errorf("Move history not persisted correctly")
		}
		if err := engine.CheckInvariants(got); err != nil {
			t.Errorf("Loaded state breaks invariants: %v", err)
		}
	})

	t.Run("List All Sessions", func(t *testing.T) {
		session2 := newTestSession(t, "test2", gameConfig, 7)
		if err := persistence.Save(session2); err != nil {
			t.Fatalf("Failed to save second session: %v", err)
		}
		// Stray files are ignored
		os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("x"), 0644)

		ids, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("Failed to list sessions: %v", err)
		}
		sort.Strings(ids)
		if len(ids) != 2 || ids[0] != "test1" || ids[1] != "test2" {
			t.Errorf("Expected [test1 test2], got %v", ids)
		}
	})

	t.Run("Delete Session", func(t *testing.T) {
		if err := persistence.Delete("test2"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if persistence.Exists("test2") {
			t.Error("Session file should not exist after delete")
		}
		if err := persistence.Delete("test2"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Load Non-existent Session", func(t *testing.T) {
		if _, err := persistence.Load("nope"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Reject Path IDs", func(t *testing.T) {
		bad := newTestSession(t, "../evil", gameConfig, 1)
		if err := persistence.Save(bad); err != ErrInvalidSessionID {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
		if persistence.Exists("../evil") {
			t.Error("Path-like IDs should never exist")
		}
	})
}

func TestFilePersistence_ConfigFallback(t *testing.T) {
	persistence, _, _ := newTestPersistence(t)

	custom := &engine.GameConfig{
		Name:        "Scratch Rules",
		Description: "Rules that only live in the session file",
		Scoring:     engine.Scoring{TableauMove: 1, FoundationMove: 2, DrawPenalty: 3},
	}
	session := newTestSession(t, "orphan", custom, 11)
	session.ConfigID = "scratch"

	if err := persistence.Save(session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	loaded, err := persistence.Load("orphan")
	if err != nil {
		t.Fatalf("Failed to load session with removed config: %v", err)
	}
	if loaded.Config.Scoring != custom.Scoring {
		t.Errorf("Expected stored scoring %+v, got %+v", custom.Scoring, loaded.Config.Scoring)
	}
	if loaded.ConfigID != "scratch" {
		t.Errorf("Expected config ID scratch, got %s", loaded.ConfigID)
	}
}

func TestFilePersistence_ConfigIDFromName(t *testing.T) {
	persistence, configManager, tempDir := newTestPersistence(t)

	session := newTestSession(t, "named", configManager.GetDefault(), 3)
	session.ConfigID = ""

	if err := persistence.Save(session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	data, err := ReadSessionFile(filepath.Join(tempDir, "named.json"))
	if err != nil {
		t.Fatalf("Failed to read session file: %v", err)
	}
	if data.ConfigName != "classic" {
		t.Errorf("Expected config id classic resolved from display name, got %q", data.ConfigName)
	}
}

func TestFilePersistence_RejectsCorruptState(t *testing.T) {
	persistence, configManager, tempDir := newTestPersistence(t)

	session := newTestSession(t, "corrupt", configManager.GetDefault(), 5)
	if err := persistence.Save(session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	path := filepath.Join(tempDir, "corrupt.json")
	data, err := ReadSessionFile(path)
	if err != nil {
		t.Fatalf("Failed to read session file: %v", err)
	}
	// Drop a card so the 52-card invariant fails
	data.GameState.Stock = data.GameState.Stock[1:]
	raw, _ := json.Marshal(data)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("Failed to rewrite session file: %v", err)
	}

	if _, err := persistence.Load("corrupt"); err == nil {
		t.Error("Expected error loading a state that breaks invariants")
	}

	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to rewrite session file: %v", err)
	}
	if _, err := persistence.Load("corrupt"); err == nil {
		t.Error("Expected error loading malformed JSON")
	}
}
