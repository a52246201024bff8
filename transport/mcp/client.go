package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Klondike Solitaire",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Klondike Solitaire - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GOAL:
Build all four foundations from Ace to King, one suit per foundation.

PILES:
tableau:0..tableau:6, foundation:0..foundation:3, waste, stock.

AVAILABLE TOOLS:
- create_session / list_sessions / get_session: manage games
- game_state: show the table with card indexes
- draw: turn one stock card onto the waste, or recycle the waste when the stock is empty
- move_tableau: move a face-up run between tableau piles
- move_foundation: move a top card onto a foundation
- waste_to_tableau / waste_to_foundation: play the waste card
- legal_moves: list every move the rules currently accept
- new_deal: start over with a fresh shuffle
- move_history: view past attempts
- list_configs: list scoring rule sets
- game_instructions: full rules

Rejected moves leave the game untouched and report why.`),
	)

	c.registerTools()
}

func sessionProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func pileProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description + ` ("tableau:0".."tableau:6", "waste", or "t:3" shorthand)`,
	}
}

func intProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session and deal the first game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Rule set to use (optional, see list_configs)",
				},
				"seed": intProp("Shuffle seed for a reproducible deal (optional)"),
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sort": map[string]interface{}{
					"type": "string",
					"enum": []string{"accessed", "created"},
				},
				"limit": intProp("Maximum sessions to return"),
			},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Show the table: tableau with card indexes, foundations, waste, stock and score",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "draw",
		Description: "Draw one card from the stock to the waste. With an empty stock the waste is turned back into the stock.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleDraw)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_tableau",
		Description: "Move the face-up run starting at card_index of one tableau pile onto another tableau pile",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"from":       pileProp("Source tableau pile"),
				"card_index": intProp("Index of the first card of the run, 0 is the bottom of the pile"),
				"to":         pileProp("Destination tableau pile"),
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why you are making this move",
				},
			},
			Required: []string{"session_id", "from", "card_index", "to"},
		},
	}, c.handleMoveTableau)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_foundation",
		Description: "Move the top card of a tableau pile or the waste onto a foundation",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"from":       pileProp("Source pile, a tableau pile or the waste"),
				"card_index": intProp("Index of the top card (optional, defaults to the top)"),
				"foundation": intProp("Foundation index: 0 hearts, 1 diamonds, 2 clubs, 3 spades"),
			},
			Required: []string{"session_id", "from", "foundation"},
		},
	}, c.handleMoveFoundation)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "waste_to_tableau",
		Description: "Move the top waste card onto a tableau pile",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"to":         pileProp("Destination tableau pile"),
			},
			Required: []string{"session_id", "to"},
		},
	}, c.handleWasteToTableau)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "waste_to_foundation",
		Description: "Move the top waste card onto a foundation",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"foundation": intProp("Foundation index: 0 hearts, 1 diamonds, 2 clubs, 3 spades"),
			},
			Required: []string{"session_id", "foundation"},
		},
	}, c.handleWasteToFoundation)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "new_deal",
		Description: "Abandon the current game and deal a fresh one",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"seed":       intProp("Shuffle seed (optional)"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleNewDeal)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "legal_moves",
		Description: "List every move the rules accept right now",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleLegalMoves)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get the move history of a session, including rejected attempts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"page":       intProp("Page number (default 1)"),
				"limit":      intProp("Entries per page (default 20)"),
				"order": map[string]interface{}{
					"type": "string",
					"enum": []string{"asc", "desc"},
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available scoring rule sets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the complete rules of Klondike as played here",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// Argument helpers

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

// intArg reads a JSON number (or numeric string) argument.
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

// pileArg accepts a pile id string or a bare tableau index.
func pileArg(args map[string]interface{}, key string) (engine.PileID, error) {
	if n, ok := args[key].(float64); ok {
		return engine.Tableau(int(n)), nil
	}
	s := stringArg(args, key)
	if s == "" {
		return engine.PileID{}, fmt.Errorf("%s is required", key)
	}
	return engine.ParsePileID(s)
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if configID := stringArg(args, "config_id"); configID != "" {
		body["config_id"] = configID
	}
	if seed, ok := intArg(args, "seed"); ok {
		body["seed"] = seed
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s", session.ID, session.ConfigName, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	query := url.Values{}
	if s := stringArg(args, "sort"); s != "" {
		query.Set("sort", s)
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}

	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions?"+query.Encode(), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "in play"
		if s.Won {
			status = "won"
		}
		score := 0
		if s.GameState != nil {
			score = s.GameState.Score
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Score: %d, %s, Created: %s)\n",
			s.ID, s.ConfigName, score, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleDraw(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var result service.DrawResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/draw"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result.Message + "\n\n" + formatGameState(result.GameState)), nil
}

func (c *Client) handleMoveTableau(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	from, err := pileArg(args, "from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := pileArg(args, "to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cardIndex, ok := intArg(args, "card_index")
	if !ok {
		return mcp.NewToolResultError("card_index is required"), nil
	}

	body := service.TableauMoveRequest{From: from, CardIndex: cardIndex, To: to}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/moves/tableau"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleMoveFoundation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	from, err := pileArg(args, "from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	foundation, ok := intArg(args, "foundation")
	if !ok {
		return mcp.NewToolResultError("foundation is required"), nil
	}

	var result service.MoveResult
	if from == engine.Waste {
		err = c.apiCall(ctx, "POST", sessionPath(sessionID, "/moves/waste-to-foundation"),
			map[string]int{"foundation": foundation}, &result)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatMoveResult(&result)), nil
	}

	cardIndex, ok := intArg(args, "card_index")
	if !ok {
		// Default to the top card of the source pile
		var state engine.GameState
		if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		pile, exists := state.Pile(from)
		if !exists {
			return mcp.NewToolResultError(fmt.Sprintf("no such pile %s", from)), nil
		}
		cardIndex = pile.Len() - 1
	}

	body := service.FoundationMoveRequest{From: from, CardIndex: cardIndex, Foundation: foundation}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/moves/foundation"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleWasteToTableau(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	to, err := pileArg(args, "to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/moves/waste-to-tableau"), map[string]engine.PileID{"to": to}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleWasteToFoundation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	foundation, ok := intArg(args, "foundation")
	if !ok {
		return mcp.NewToolResultError("foundation is required"), nil
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/moves/waste-to-foundation"), map[string]int{"foundation": foundation}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleNewDeal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	body := map[string]interface{}{}
	if seed, ok := intArg(args, "seed"); ok {
		body["seed"] = seed
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/new-deal"), body, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleLegalMoves(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var response struct {
		Count int           `json:"count"`
		Moves []engine.Move `json:"moves"`
	}
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/legal-moves"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLegalMoves(response.Moves)), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	if order := stringArg(args, "order"); order != "" {
		query.Set("order", order)
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/history?"+query.Encode()), nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Scoring: tableau +%d, foundation +%d, draw -%d\n\n",
			cfg.Name, cfg.ConfigID, cfg.Description,
			cfg.Scoring.TableauMove, cfg.Scoring.FoundationMove, cfg.Scoring.DrawPenalty)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Klondike Solitaire - Complete Instructions

OBJECTIVE:
Move all 52 cards onto the four foundations, each built from Ace up to King in a single suit.

THE TABLE:
• Tableau: seven piles. Pile i starts with i+1 cards, only the top one face up.
• Stock: the 24 undealt cards, face down.
• Waste: cards turned over from the stock. Only its top card is playable.
• Foundations: four piles, empty at the start. Each belongs to one suit:
  foundation:0 hearts, foundation:1 diamonds, foundation:2 clubs, foundation:3 spades.

MOVES:
• draw: turn the top stock card face up onto the waste. When the stock is empty,
  draw turns the whole waste back over into the stock (unlimited passes).
• move_tableau: move a face-up card together with every card above it onto
  another tableau pile. The moved run's bottom card must be one rank lower and
  the opposite color of the destination's top card. Only a King (with its run)
  may go onto an empty tableau pile.
• move_foundation / waste_to_foundation: move a single top card onto a
  foundation. An Ace starts an empty foundation; after that the next rank of the
  same suit follows.
• waste_to_tableau: play the top waste card onto a tableau pile by the tableau rules.

After a tableau move or a foundation move leaves a face-down card on top of its
pile, that card is turned face up automatically.

CARD INDEXES:
game_state prints each tableau pile bottom to top. Face-down cards show as ##;
face-up cards carry their index in brackets, e.g. [4]9♦. Use that number as
card_index for move_tableau.

SCORING (classic rules, see list_configs for others):
• +10 for a card moved onto the tableau from the waste
• +50 for a card moved onto a foundation
• -5 for each draw (never below 0)

REJECTIONS:
Illegal moves are rejected with a reason and the game does not change:
empty-source, wrong-rank, wrong-color, wrong-suit, face-down-card.
Naming a pile or card that does not exist is an invalid request.

TIPS:
• legal_moves lists everything you can do right now.
• Free face-down cards early, they are the bottleneck.
• Kings are the only cards that can fill an empty column, so empty a column
  when a King is ready to move into it.`
