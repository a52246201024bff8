// Command validate checks the rule-config files in a directory (default
// ../configs). For every .json, .yaml, .yml or .hcl file it checks:
//   - the file decodes in the format its extension names
//   - name, description and every scoring entry are present and in range
//   - the file name matches the rule set's name
//   - sample games played under the rules keep every invariant and never
//     drive the score below zero
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/klondike/game/config"
	"github.com/wricardo/klondike/game/engine"
)

// sampleSeeds are the deals every rule set is played on.
var sampleSeeds = []int64{1, 2, 3, 42, 2024}

// maxSampleMoves bounds each sample game; first-legal-move play can cycle.
const maxSampleMoves = 300

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single rule-config file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	cfg, err := config.LoadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.fail("Failed to read file: %v", err)
		} else {
			result.fail("Invalid config: %v", err)
		}
		return result
	}

	base := strings.TrimSuffix(result.File, filepath.Ext(result.File))
	if !strings.EqualFold(base, cfg.Name) {
		result.fail("File name %q does not match rule set name %q", base, cfg.Name)
	}

	if result.Valid {
		playResult := validatePlayability(cfg)
		result.Valid = playResult.Valid
		result.Errors = append(result.Errors, playResult.Errors...)
	}

	if result.Valid {
		result.info("Name: %s", cfg.Name)
		result.info("Scoring: tableau +%d, foundation +%d, draw -%d",
			cfg.Scoring.TableauMove, cfg.Scoring.FoundationMove, cfg.Scoring.DrawPenalty)
	}

	return result
}

// validatePlayability plays a few seeded games under cfg, always taking the
// first legal move, and checks that every accepted move keeps the state
// consistent and the score non-negative.
func validatePlayability(cfg *engine.GameConfig) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	totalMoves, bestFoundation := 0, 0
	for _, seed := range sampleSeeds {
		seed := seed
		game, err := engine.NewEngine(cfg, &seed)
		if err != nil {
			result.fail("Rules rejected by the engine: %v", err)
			return result
		}

		for i := 0; i < maxSampleMoves && !game.IsWon(); i++ {
			moves := game.LegalMoves()
			if len(moves) == 0 {
				break
			}
			out, err := game.Apply(moves[0])
			if err != nil {
				result.fail("Seed %d move %d: %v", seed, i+1, err)
				break
			}
			if !out.Accepted {
				result.fail("Seed %d move %d: legal move %s rejected (%s)", seed, i+1, moves[0].Action, out.Reason)
				break
			}
			if game.GetScore() < 0 {
				result.fail("Seed %d move %d: score went negative (%d)", seed, i+1, game.GetScore())
				break
			}
		}

		totalMoves += game.GetMoves()
		placed := 0
		for _, f := range game.GetState().Foundations {
			placed += f.Len()
		}
		if placed > bestFoundation {
			bestFoundation = placed
		}
	}

	if result.Valid {
		result.info("Playability: %d sample deals, %d moves, up to %d cards on foundations",
			len(sampleSeeds), totalMoves, bestFoundation)
	}
	return result
}

// configFiles lists the rule-config files in dir in name order.
func configFiles(dir string) ([]string, error) {
	var files []string
	for _, ext := range config.Extensions {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// main validates every rule-config file in the directory given as the first
// argument, printing a concise report and exiting non-zero if any is invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := configFiles(configDir)
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No config files found in %s\n", configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
