package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/wricardo/klondike/game/config"
	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
	"github.com/wricardo/klondike/transport/websocket"
)

const (
	// maxBodyBytes bounds request bodies; every request here is a few fields.
	maxBodyBytes = 1 << 20

	// watcherLookupTimeout bounds the wait for the hub's client count.
	watcherLookupTimeout = time.Second
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *log.Logger
}

// NewServer creates a new API server. hub may be nil when no live feed is
// wanted; a nil logger discards output.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("", s.handleIndex).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/draw", s.handleDraw).Methods("POST")
	api.HandleFunc("/sessions/{id}/moves/tableau", s.handleMoveTableau).Methods("POST")
	api.HandleFunc("/sessions/{id}/moves/foundation", s.handleMoveFoundation).Methods("POST")
	api.HandleFunc("/sessions/{id}/moves/waste-to-tableau", s.handleWasteToTableau).Methods("POST")
	api.HandleFunc("/sessions/{id}/moves/waste-to-foundation", s.handleWasteToFoundation).Methods("POST")
	api.HandleFunc("/sessions/{id}/new-deal", s.handleNewDeal).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/sessions/{id}/legal-moves", s.handleLegalMoves).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service and engine errors onto HTTP statuses.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, config.ErrConfigNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case service.IsInvalidRequest(err), errors.Is(err, config.ErrInvalidConfig):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrInvariantViolation):
		s.logger.Error("invariant violation", "path", r.URL.Path, "err", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) broadcast(sessionID, event string, state *engine.GameState) {
	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, event, state)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name": "klondike",
		"endpoints": []string{
			"POST /api/sessions",
			"GET /api/sessions",
			"GET /api/sessions/{id}",
			"DELETE /api/sessions/{id}",
			"GET /api/sessions/{id}/state",
			"POST /api/sessions/{id}/draw",
			"POST /api/sessions/{id}/moves/tableau",
			"POST /api/sessions/{id}/moves/foundation",
			"POST /api/sessions/{id}/moves/waste-to-tableau",
			"POST /api/sessions/{id}/moves/waste-to-foundation",
			"POST /api/sessions/{id}/new-deal",
			"GET /api/sessions/{id}/history",
			"GET /api/sessions/{id}/legal-moves",
			"GET /api/configs",
			"POST /api/configs",
			"GET /api/configs/{name}",
		},
	})
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
		Seed       *int64 `json:"seed,omitempty"`
	}

	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	configID := req.ConfigID
	if configID == "" {
		configID = req.ConfigName
	}

	session, err := s.service.CreateSession(r.Context(), configID, req.Seed)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.logger.Info("session created", "session", session.ID, "config", session.ConfigName)
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := service.ListOptions{
		Sort:  query.Get("sort"),
		Order: query.Get("order"),
	}
	if opts.Sort == "" {
		opts.Sort = "accessed"
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	sessions, err := s.service.ListSessions(r.Context(), opts)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
		"sort":     opts.Sort,
		"order":    opts.Order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	if s.hub != nil {
		ctx, cancel := context.WithTimeout(r.Context(), watcherLookupTimeout)
		defer cancel()
		if n, err := s.hub.ClientCount(ctx, session.ID); err == nil {
			session.Watchers = n
		} else {
			s.logger.Debug("watcher count unavailable", "session", session.ID, "err", err)
		}
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventDeleted, nil)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.Draw(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	if result.Action != engine.DrawActionNone {
		s.broadcast(sessionID, websocket.EventDraw, result.GameState)
	}
	s.logger.Debug("draw", "session", sessionID, "action", result.Action, "stock", result.GameState.Stock.Len())

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleMoveTableau(w http.ResponseWriter, r *http.Request) {
	var req service.TableauMoveRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	sessionID := mux.Vars(r)["id"]
	s.respondMove(w, r, sessionID)(s.service.MoveTableau(r.Context(), sessionID, req))
}

func (s *Server) handleMoveFoundation(w http.ResponseWriter, r *http.Request) {
	var req service.FoundationMoveRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	sessionID := mux.Vars(r)["id"]
	s.respondMove(w, r, sessionID)(s.service.MoveFoundation(r.Context(), sessionID, req))
}

func (s *Server) handleWasteToTableau(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To *engine.PileID `json:"to"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.To == nil {
		respondError(w, http.StatusBadRequest, "to is required")
		return
	}

	sessionID := mux.Vars(r)["id"]
	s.respondMove(w, r, sessionID)(s.service.MoveWasteToTableau(r.Context(), sessionID, *req.To))
}

func (s *Server) handleWasteToFoundation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Foundation *int `json:"foundation"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Foundation == nil {
		respondError(w, http.StatusBadRequest, "foundation is required")
		return
	}

	sessionID := mux.Vars(r)["id"]
	s.respondMove(w, r, sessionID)(s.service.MoveWasteToFoundation(r.Context(), sessionID, *req.Foundation))
}

// respondMove writes a move result. Rejections are ordinary 200 responses.
func (s *Server) respondMove(w http.ResponseWriter, r *http.Request, sessionID string) func(*service.MoveResult, error) {
	return func(result *service.MoveResult, err error) {
		if err != nil {
			s.respondServiceError(w, r, err)
			return
		}

		if result.Accepted {
			s.broadcast(sessionID, websocket.EventMove, result.GameState)
		}
		s.logger.Info("move", "session", sessionID, "accepted", result.Accepted, "reason", result.Reason, "score", result.GameState.Score, "won", result.Won)

		respondJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleNewDeal(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Seed *int64 `json:"seed,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := s.service.NewDeal(r.Context(), sessionID, req.Seed)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.broadcast(sessionID, websocket.EventNewDeal, state)
	s.logger.Info("new deal", "session", sessionID, "seed", state.Seed)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "New game dealt",
		"state":   state,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetMoveHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleLegalMoves(w http.ResponseWriter, r *http.Request) {
	moves, err := s.service.LegalMoves(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(moves),
		"moves": moves,
	})
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.service.LoadConfig(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		engine.GameConfig
		ConfigID string `json:"config_id,omitempty"`
	}
	req.Scoring = engine.DefaultScoring()

	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	configID := req.ConfigID
	if configID == "" {
		configID = req.Name
	}

	gameConfig := req.GameConfig
	if err := s.service.SaveConfig(r.Context(), configID, &gameConfig); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "live feed disabled")
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session parameter required")
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
