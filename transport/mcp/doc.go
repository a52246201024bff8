// Package mcp exposes the Klondike REST API as Model Context Protocol tools.
//
// The Client holds no game state. Every tool call becomes one or two HTTP
// requests against the REST server, and the JSON responses are rendered as
// plain text an agent can read: tableau piles bottom to top with face-down
// cards hidden as ## and face-up cards tagged with their index.
//
// Tools:
//
//	create_session, list_sessions, get_session
//	game_state, draw, move_tableau, move_foundation
//	waste_to_tableau, waste_to_foundation, new_deal
//	legal_moves, move_history, list_configs, game_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
// Piles are named as in the REST API ("tableau:3", "waste"). A bare number is
// accepted wherever a tableau pile is expected.
package mcp
