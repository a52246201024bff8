// Package service provides the business logic layer for the Klondike server.
//
// The service package implements:
//   - Multi-session game management
//   - Rule-set lookup and storage
//   - Move, draw and new-deal processing
//   - Move history pagination
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages rule-set loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own engine and a mutex; every
// operation runs with that mutex held, so two requests against one game are
// applied one after the other while different games proceed in parallel.
// Game states leave the service as clones and never alias the live state.
//
// Usage:
//
//	sessionMgr := session.NewManager(logger)
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr, service.WithLogger(logger))
//
//	info, err := gameService.CreateSession(ctx, "classic", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.MoveTableau(ctx, info.ID, service.TableauMoveRequest{
//		From: engine.Tableau(6), CardIndex: 6, To: engine.Tableau(2),
//	})
//
// Results:
//
// Rule rejections are not errors: MoveResult carries Accepted=false and the
// reason. Errors are reserved for unknown sessions (ErrSessionNotFound),
// malformed requests (engine.ErrInvalidRequest) and invariant faults
// (engine.ErrInvariantViolation).
package service
