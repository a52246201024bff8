// Package websocket provides the live game feed for the Klondike server.
//
// A central Hub owns every connection. Clients subscribe to one session with
// the ?session=ID query parameter and receive a JSON message after each
// accepted move, draw and new deal:
//
//	{"session_id": "ab12", "event": "draw", "game_state": {...}}
//
// Events are EventMove, EventDraw, EventNewDeal and EventDeleted. Incoming
// client messages are read only to keep the connection alive.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Concurrency:
//
// Only the Run goroutine touches the client registry. Broadcasts are queued
// and never block the caller; a full queue drops the update, and a client
// whose send buffer is full is disconnected.
package websocket
