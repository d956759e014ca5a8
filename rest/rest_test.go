package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voyager.com/holdem/game"
	"voyager.com/holdem/ws"
)

func newTestServer(t *testing.T) (*httptest.Server, *game.Manager) {
	t.Helper()
	sessions := ws.NewSessionManager()
	manager := game.NewManager(sessions, game.RoomDefaults{
		BuyIn:            1000,
		ActionTimeoutSec: 30,
		MaxChatHistory:   100,
		MaxActionHistory: 50,
	})
	server := NewServer(manager, sessions)
	return httptest.NewServer(server.Router()), manager
}

func createTestRoom(t *testing.T, server *httptest.Server) string {
	t.Helper()
	body, _ := json.Marshal(map[string]interface{}{
		"name":        "integration",
		"mode":        "no_limit",
		"small_blind": 10,
		"big_blind":   20,
	})
	resp, err := http.Post(server.URL+"/create-room", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created struct {
		RoomID string `json:"room_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.RoomID)
	return created.RoomID
}

func dialRoom(t *testing.T, server *httptest.Server, roomID, playerID, name string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") +
		"/ws/" + roomID + "/" + playerID + "?name=" + name
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

// readFrame reads frames until one of the wanted type arrives.
func readFrame(t *testing.T, conn *websocket.Conn, wantType string) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &frame))
		if frame["type"] == wantType {
			return frame
		}
	}
}

func TestCreateListAndState(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	roomID := createTestRoom(t, server)

	resp, err := http.Get(server.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	var rooms []game.RoomInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, roomID, rooms[0].ID)
	assert.Equal(t, "integration", rooms[0].Name)

	resp, err = http.Get(server.URL + "/api/room/" + roomID + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/room/NOPE/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketGameFlow(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()
	roomID := createTestRoom(t, server)

	alice := dialRoom(t, server, roomID, "p1", "alice")
	defer alice.Close()
	bob := dialRoom(t, server, roomID, "p2", "bob")
	defer bob.Close()

	// both get the current state on connect
	frame := readFrame(t, alice, "game_state")
	data := frame["data"].(map[string]interface{})
	assert.Equal(t, "waiting", data["stage"])

	require.NoError(t, alice.WriteJSON(map[string]interface{}{"action": "start_game"}))

	// heads-up: alice is the button/SB and acts first
	for {
		frame = readFrame(t, alice, "game_state")
		data = frame["data"].(map[string]interface{})
		if data["stage"] == "preflop" && data["is_my_turn"] == true {
			break
		}
	}
	assert.Equal(t, float64(10), data["to_call"])

	// alice folds; bob wins uncontested
	require.NoError(t, alice.WriteJSON(map[string]interface{}{"action": "fold"}))
	for {
		frame = readFrame(t, bob, "game_state")
		data = frame["data"].(map[string]interface{})
		if winners, ok := data["winners"].([]interface{}); ok && len(winners) == 1 {
			winner := winners[0].(map[string]interface{})
			assert.Equal(t, "bob", winner["name"])
			assert.Equal(t, float64(30), winner["amount"])
			break
		}
	}
}

func TestWebSocketChatAndErrors(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()
	roomID := createTestRoom(t, server)

	alice := dialRoom(t, server, roomID, "p1", "alice")
	defer alice.Close()
	bob := dialRoom(t, server, roomID, "p2", "bob")
	defer bob.Close()
	readFrame(t, alice, "game_state")
	readFrame(t, bob, "game_state")

	require.NoError(t, bob.WriteJSON(map[string]interface{}{"action": "chat", "content": "hi"}))
	// system lines such as "bob joined the table" share the chat frame type
	frame := readFrame(t, alice, "chat")
	data := frame["data"].(map[string]interface{})
	for data["msg_type"] == game.ChatMsgSystem {
		frame = readFrame(t, alice, "chat")
		data = frame["data"].(map[string]interface{})
	}
	assert.Equal(t, "bob", data["player_name"])
	assert.Equal(t, "hi", data["content"])

	// acting out of turn with no hand running
	require.NoError(t, bob.WriteJSON(map[string]interface{}{"action": "fold"}))
	frame = readFrame(t, bob, "error")
	assert.Equal(t, game.CodeIllegalAction, frame["code"])
}

func TestWebSocketUnknownRoom(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/NOPE/p1"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
}
