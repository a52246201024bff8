// Package session provides session management for the Klondike server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Write-through JSON persistence of deals, counters and move history
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the session registry. It satisfies service.SessionManager.
// FilePersistence stores one JSON file per session and rebuilds the engine
// on load, refusing any stored state that breaks the game invariants.
//
// Session Identifiers:
//
// Generated IDs are 4 hex characters from crypto/rand. Lookups are
// case-insensitive.
//
// Concurrency:
//
// The registry lock only guards the session map. Per-game serialization is
// the session's own mutex, which callers hold around UpdateLastAccessed and
// Save. Cleanup reads access times under each session's lock without
// holding the registry lock, so a long move never stalls the registry.
//
// Usage:
//
//	manager := session.NewManager(logger, session.WithPersistence(store))
//
//	sess, err := manager.Create("", config, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sessionID)
//
// Cleanup:
//
// CleanupExpiredSessions evicts idle sessions from memory using the
// manager's clock. Persisted copies remain and are reloaded on the next Get.
package session
