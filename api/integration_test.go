package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/klondike/game/config"
	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
	"github.com/wricardo/klondike/game/session"
	"github.com/wricardo/klondike/transport/websocket"
)

type liveServer struct {
	url string
	hub *websocket.Hub
}

func startLiveServer(t *testing.T) *liveServer {
	t.Helper()
	logger := log.New(io.Discard)

	configs, err := config.NewManager("../configs")
	require.NoError(t, err)
	sessions := session.NewManager(logger)
	gameService := service.NewGameService(sessions, configs)

	ctx, cancel := context.WithCancel(context.Background())
	hub := websocket.NewHub(logger)
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	httpServer := httptest.NewServer(NewServer(gameService, hub, logger))
	t.Cleanup(func() {
		httpServer.Close()
		cancel()
		<-done
	})
	return &liveServer{url: httpServer.URL, hub: hub}
}

func (ls *liveServer) do(t *testing.T, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ls.url+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestLive_SessionLifecycle(t *testing.T) {
	ls := startLiveServer(t)

	var created service.SessionInfo
	status := ls.do(t, "POST", "/api/sessions", map[string]interface{}{"config_id": "vegas", "seed": 2024}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "vegas", created.ConfigName)
	assert.Equal(t, int64(2024), created.GameState.Seed)
	assert.Len(t, created.ID, 4)

	base := "/api/sessions/" + created.ID

	// A face-down card cannot be moved: a 200 rejection
	var rejected service.MoveResult
	status = ls.do(t, "POST", base+"/moves/tableau", map[string]interface{}{"from": "tableau:6", "card_index": 0, "to": "tableau:0"}, &rejected)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, rejected.Accepted)
	assert.Equal(t, engine.ReasonFaceDownCard, rejected.Reason)

	// A pile that does not exist is a bad request
	var errBody map[string]string
	status = ls.do(t, "POST", base+"/moves/tableau", map[string]interface{}{"from": "tableau:7", "card_index": 0, "to": "tableau:0"}, &errBody)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, errBody["error"])

	var draw service.DrawResult
	status = ls.do(t, "POST", base+"/draw", nil, &draw)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, engine.DrawActionDraw, draw.Action)
	require.NotNil(t, draw.Card)
	assert.Equal(t, 23, draw.GameState.Stock.Len())

	// Every legal move the server lists is accepted
	var legal struct {
		Moves []engine.Move `json:"moves"`
	}
	require.Equal(t, http.StatusOK, ls.do(t, "GET", base+"/legal-moves", nil, &legal))
	require.NotEmpty(t, legal.Moves)

	var history service.HistoryResponse
	require.Equal(t, http.StatusOK, ls.do(t, "GET", base+"/history?order=asc", nil, &history))
	assert.Equal(t, 3, history.TotalMoves, "rejected and invalid attempts are recorded too")

	var fresh struct {
		State *engine.GameState `json:"state"`
	}
	require.Equal(t, http.StatusOK, ls.do(t, "POST", base+"/new-deal", map[string]int{"seed": 2024}, &fresh))
	assert.Equal(t, created.GameState.Tableau, fresh.State.Tableau, "same seed gives the same deal")
	assert.Equal(t, 0, fresh.State.Score)

	require.Equal(t, http.StatusOK, ls.do(t, "DELETE", base, nil, nil))
	assert.Equal(t, http.StatusNotFound, ls.do(t, "GET", base+"/state", nil, nil))
}

func TestLive_UnknownConfig(t *testing.T) {
	ls := startLiveServer(t)

	var errBody map[string]string
	status := ls.do(t, "POST", "/api/sessions", map[string]string{"config_id": "no-such-rules"}, &errBody)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, errBody["error"], "classic")
}

func TestLive_WebSocketFeed(t *testing.T) {
	ls := startLiveServer(t)

	var created service.SessionInfo
	require.Equal(t, http.StatusCreated, ls.do(t, "POST", "/api/sessions", map[string]int{"seed": 5}, &created))

	wsURL := "ws" + strings.TrimPrefix(ls.url, "http") + "/ws?session=" + created.ID
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		n, err := ls.hub.ClientCount(context.Background(), created.ID)
		return err == nil && n == 1
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, http.StatusOK, ls.do(t, "POST", "/api/sessions/"+created.ID+"/draw", nil, nil))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var message websocket.Message
	require.NoError(t, json.Unmarshal(data, &message))
	assert.Equal(t, created.ID, message.SessionID)
	assert.Equal(t, websocket.EventDraw, message.Event)
	require.NotNil(t, message.GameState)
	assert.Equal(t, 1, message.GameState.Waste.Len())
}

func TestLive_WebSocketSessionIDIgnoresCase(t *testing.T) {
	ls := startLiveServer(t)

	var created service.SessionInfo
	require.Equal(t, http.StatusCreated, ls.do(t, "POST", "/api/sessions", map[string]int{"seed": 6}, &created))

	// Watch under the upper-case id, play under the lower-case one
	upper := strings.ToUpper(created.ID)
	wsURL := "ws" + strings.TrimPrefix(ls.url, "http") + "/ws?session=" + upper
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		n, err := ls.hub.ClientCount(context.Background(), created.ID)
		return err == nil && n == 1
	}, time.Second, 5*time.Millisecond)

	var watched service.SessionInfo
	require.Equal(t, http.StatusOK, ls.do(t, "GET", "/api/sessions/"+upper, nil, &watched))
	assert.Equal(t, 1, watched.Watchers)

	require.Equal(t, http.StatusOK, ls.do(t, "POST", "/api/sessions/"+strings.ToLower(created.ID)+"/draw", nil, nil))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var message websocket.Message
	require.NoError(t, json.Unmarshal(data, &message))
	assert.Equal(t, websocket.EventDraw, message.Event)
}

func TestLive_WebSocketUnknownSession(t *testing.T) {
	ls := startLiveServer(t)

	wsURL := "ws" + strings.TrimPrefix(ls.url, "http") + "/ws?session=none"
	_, resp, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
