package engine

import "fmt"

// Scoring holds the points awarded per accepted action.
type Scoring struct {
	TableauMove    int `json:"tableau_move" yaml:"tableau_move"`
	FoundationMove int `json:"foundation_move" yaml:"foundation_move"`
	DrawPenalty    int `json:"draw_penalty" yaml:"draw_penalty"`
}

// Classic scoring: +10 for tableau moves, +50 for foundation moves, -5 per draw.
const (
	DefaultTableauPoints    = 10
	DefaultFoundationPoints = 50
	DefaultDrawPenalty      = 5

	// MaxPoints bounds any single scoring entry in a rule set.
	MaxPoints = 1000
)

// DefaultScoring returns the classic scoring table.
func DefaultScoring() Scoring {
	return Scoring{
		TableauMove:    DefaultTableauPoints,
		FoundationMove: DefaultFoundationPoints,
		DrawPenalty:    DefaultDrawPenalty,
	}
}

// GameConfig is a named rule set a session is played under.
type GameConfig struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Scoring     Scoring `json:"scoring" yaml:"scoring"`
}

// DefaultGameConfig returns the classic rule set.
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:        "classic",
		Description: "Klondike, draw one, unlimited passes through the stock",
		Scoring:     DefaultScoring(),
	}
}

// ValidateGameConfig checks a rule set for correctness
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	entries := []struct {
		name  string
		value int
	}{
		{"tableau_move", config.Scoring.TableauMove},
		{"foundation_move", config.Scoring.FoundationMove},
		{"draw_penalty", config.Scoring.DrawPenalty},
	}
	for _, e := range entries {
		if e.value < 0 || e.value > MaxPoints {
			return fmt.Errorf("config validation: scoring.%s must be between 0 and %d, got %d", e.name, MaxPoints, e.value)
		}
	}
	return nil
}
