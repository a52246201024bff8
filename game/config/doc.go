// Package config provides rule-set management for the Klondike server.
//
// The config package handles:
//   - Loading rule sets from JSON, YAML or HCL files
//   - Configuration validation
//   - Default rule-set selection
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Rule sets live in the configs directory, one file per set. The file name
// without its extension is the config id used when creating sessions. Each
// rule set defines a name, a description and a scoring table:
//
//	{
//	  "name": "classic",
//	  "description": "Klondike, draw one, unlimited passes through the stock",
//	  "scoring": {"tableau_move": 10, "foundation_move": 50, "draw_penalty": 5}
//	}
//
// The same rule set in HCL; missing scoring entries keep their classic value:
//
//	name        = "classic"
//	description = "Klondike, draw one, unlimited passes through the stock"
//	scoring {
//	  draw_penalty = 5
//	}
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//
//	// Load specific rule set
//	rules, err := manager.LoadConfig("vegas")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Get default rule set
//	defaultRules := manager.GetDefault()
//
//	// List available rule sets
//	configs, err := manager.ListConfigs()
//
// When no classic file exists the first loadable file becomes the default,
// and with an empty directory the built-in classic rules are used.
package config
