// Package api provides the HTTP REST API for the Klondike server.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"config_id": "vegas", "seed": 42}, both optional)
//   - GET /api/sessions - List sessions (?sort=accessed|created&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session, with the number of live feed watchers
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/draw - Draw one card, or recycle the waste
//   - POST /api/sessions/{id}/moves/tableau - {"from": "tableau:2", "card_index": 3, "to": "tableau:5"}
//   - POST /api/sessions/{id}/moves/foundation - {"from": "waste", "card_index": 4, "foundation": 1}
//   - POST /api/sessions/{id}/moves/waste-to-tableau - {"to": "tableau:0"}
//   - POST /api/sessions/{id}/moves/waste-to-foundation - {"foundation": 2}
//   - POST /api/sessions/{id}/new-deal - {"seed": 7} (optional)
//   - GET /api/sessions/{id}/legal-moves - Moves the rules accept right now
//   - GET /api/sessions/{id}/history - Move history (?page=1&limit=20&order=desc)
//
// Configuration:
//   - GET /api/configs - List rule sets
//   - GET /api/configs/{name} - Get a rule set
//   - POST /api/configs - Save a rule set
//
// Other:
//   - GET /ws?session={id} - Websocket feed of state changes
//   - GET /health - Liveness check
//
// Status codes:
//
// A move the rules reject is not an error: it returns 200 with
// "accepted": false and a "reason". Naming a pile or card that does not exist
// returns 400, an unknown session or rule set 404, and a state that breaks
// its invariants 500. Errors are JSON:
//
//	{"error": "error message"}
//
// Usage:
//
//	server := api.NewServer(gameService, hub, logger)
//	http.ListenAndServe(":8080", server)
package api
