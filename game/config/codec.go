package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/klondike/game/engine"
)

// hclConfig mirrors engine.GameConfig for HCL files:
//
//	name        = "vegas"
//	description = "..."
//	scoring {
//	  foundation_move = 5
//	}
type hclConfig struct {
	Name        string      `hcl:"name"`
	Description string      `hcl:"description"`
	Scoring     *hclScoring `hcl:"scoring,block"`
}

type hclScoring struct {
	TableauMove    *int `hcl:"tableau_move,optional"`
	FoundationMove *int `hcl:"foundation_move,optional"`
	DrawPenalty    *int `hcl:"draw_penalty,optional"`
}

// Decode parses a rule set. The format follows the extension of filename.
// Scoring entries missing from the file fall back to the classic values.
func Decode(filename string, data []byte) (*engine.GameConfig, error) {
	config := &engine.GameConfig{Scoring: engine.DefaultScoring()}

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case ".hcl":
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCL(data, filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
		}

		var raw hclConfig
		diags = gohcl.DecodeBody(file.Body, nil, &raw)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
		}

		config.Name = raw.Name
		config.Description = raw.Description
		if s := raw.Scoring; s != nil {
			if s.TableauMove != nil {
				config.Scoring.TableauMove = *s.TableauMove
			}
			if s.FoundationMove != nil {
				config.Scoring.FoundationMove = *s.FoundationMove
			}
			if s.DrawPenalty != nil {
				config.Scoring.DrawPenalty = *s.DrawPenalty
			}
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	return config, nil
}

// Encode renders a rule set in the format named by the extension of filename.
func Encode(filename string, config *engine.GameConfig) ([]byte, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		return json.MarshalIndent(config, "", "  ")
	case ".yaml", ".yml":
		return yaml.Marshal(config)
	case ".hcl":
		s := config.Scoring
		f := hclwrite.NewEmptyFile()
		gohcl.EncodeIntoBody(&hclConfig{
			Name:        config.Name,
			Description: config.Description,
			Scoring: &hclScoring{
				TableauMove:    &s.TableauMove,
				FoundationMove: &s.FoundationMove,
				DrawPenalty:    &s.DrawPenalty,
			},
		}, f.Body())
		return f.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
}
