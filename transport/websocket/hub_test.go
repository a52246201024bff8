package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/klondike/game/engine"
)

func newTestHub() *Hub {
	return NewHub(log.New(io.Discard))
}

func newTestClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
}

func testState(seed int64) *engine.GameState {
	return engine.NewEngineWithDefaults(&seed).GetState().Clone()
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	require.NotNil(t, hub)
	assert.NotNil(t, hub.sessions)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.NotNil(t, hub.logger, "nil logger should be replaced")
}

func TestHubRegisterClient(t *testing.T) {
	hub := newTestHub()
	client := newTestClient(hub, "test-session")

	hub.registerClient(client)

	require.Contains(t, hub.sessions, "test-session")
	assert.True(t, hub.sessions["test-session"][client])
	assert.Len(t, hub.sessions["test-session"], 1)
}

func TestHubUnregisterClient(t *testing.T) {
	hub := newTestHub()
	client := newTestClient(hub, "test-session")

	hub.registerClient(client)
	hub.unregisterClient(client)

	assert.NotContains(t, hub.sessions, "test-session", "empty sessions are cleaned up")

	_, open := <-client.send
	assert.False(t, open, "send channel should be closed")

	// A second unregister is a no-op and must not double-close
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := newTestHub()
	sessionID := "multi-client-session"

	client1 := newTestClient(hub, sessionID)
	client2 := newTestClient(hub, sessionID)

	hub.registerClient(client1)
	hub.registerClient(client2)
	assert.Len(t, hub.sessions[sessionID], 2)

	hub.unregisterClient(client1)
	assert.Len(t, hub.sessions[sessionID], 1)
	assert.True(t, hub.sessions[sessionID][client2])
}

func TestHubBroadcastOnlyReachesSession(t *testing.T) {
	hub := newTestHub()

	watching := newTestClient(hub, "watched")
	other := newTestClient(hub, "other")
	hub.registerClient(watching)
	hub.registerClient(other)

	state := testState(12)
	hub.broadcastMessage(&Message{SessionID: "watched", Event: EventDraw, GameState: state})

	select {
	case data := <-watching.send:
		var message Message
		require.NoError(t, json.Unmarshal(data, &message))
		assert.Equal(t, "watched", message.SessionID)
		assert.Equal(t, EventDraw, message.Event)
		require.NotNil(t, message.GameState)
		assert.Equal(t, state.DealID, message.GameState.DealID)
		assert.Equal(t, state.Tableau, message.GameState.Tableau)
	default:
		t.Fatal("watching client received nothing")
	}

	select {
	case <-other.send:
		t.Error("client in another session should not receive the update")
	default:
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := newTestHub()
	slow := &Client{hub: hub, sessionID: "s", send: make(chan []byte, 1)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "s", Event: EventMove})
	hub.broadcastMessage(&Message{SessionID: "s", Event: EventMove})

	assert.NotContains(t, hub.sessions, "s", "client with a full queue is dropped")
}

func TestHubBroadcastNeverBlocks(t *testing.T) {
	hub := newTestHub()

	done := make(chan struct{})
	go func() {
		// Nothing drains the queue because Run is not started
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.BroadcastEvent("s", "ping", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastEvent blocked with a full queue")
	}
	assert.Len(t, hub.broadcast, broadcastBuffer)
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := newTestHub()

	hub.BroadcastEvent("event-test", "custom-event", "test-data")

	select {
	case message := <-hub.broadcast:
		assert.Equal(t, "event-test", message.SessionID)
		assert.Equal(t, "custom-event", message.Event)
		assert.Equal(t, "test-data", message.Data)
	case <-time.After(100 * time.Millisecond):
		t.Error("No broadcast message received within timeout")
	}
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-stopped
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, sessionID string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		n, err := hub.ClientCount(context.Background(), sessionID)
		return err == nil && n == want
	}, time.Second, 5*time.Millisecond)
}

func TestWebSocketUpgrade(t *testing.T) {
	hub, server := startHub(t)

	conn := dial(t, server, "ws-test")
	waitForClients(t, hub, "ws-test", 1)

	conn.Close()
	waitForClients(t, hub, "ws-test", 0)
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub, server := startHub(t)

	conn := dial(t, server, "msg-test")
	waitForClients(t, hub, "msg-test", 1)

	state := testState(99)
	hub.BroadcastToSession("msg-test", EventNewDeal, state)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var message Message
	require.NoError(t, json.Unmarshal(data, &message))
	assert.Equal(t, "msg-test", message.SessionID)
	assert.Equal(t, EventNewDeal, message.Event)
	require.NotNil(t, message.GameState)
	assert.Equal(t, int64(99), message.GameState.Seed)
	assert.Equal(t, state.Stock.Len(), message.GameState.Stock.Len())
}

func TestWebSocketSessionIDIgnoresCase(t *testing.T) {
	hub, server := startHub(t)

	conn := dial(t, server, "ABCD")
	waitForClients(t, hub, "abcd", 1)

	hub.BroadcastToSession("abcd", EventDraw, testState(7))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var message Message
	require.NoError(t, json.Unmarshal(data, &message))
	assert.Equal(t, "abcd", message.SessionID)
	assert.Equal(t, EventDraw, message.Event)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, "shutdown")
	}))
	defer server.Close()

	conn := dial(t, server, "shutdown")
	waitForClients(t, hub, "shutdown", 1)

	cancel()
	<-stopped

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "connection should close when the hub stops")
}
