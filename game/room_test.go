package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReceiver records everything the room sends, keyed by player.
type fakeReceiver struct {
	mu     sync.Mutex
	msgs   map[string][]*ServerMessage
	closed bool
}

func newFakeReceiver() *fakeReceiver {
	return &fakeReceiver{msgs: make(map[string][]*ServerMessage)}
}

func (f *fakeReceiver) SendToPlayer(roomID string, playerID string, message *ServerMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[playerID] = append(f.msgs[playerID], message)
}

func (f *fakeReceiver) RoomClosed(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeReceiver) lastGameState(playerID string) *Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.msgs[playerID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == MsgTypeGameState {
			return msgs[i].Data.(*Snapshot)
		}
	}
	return nil
}

func (f *fakeReceiver) lastError(playerID string) *ServerMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.msgs[playerID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == MsgTypeError {
			return msgs[i]
		}
	}
	return nil
}

func (f *fakeReceiver) hasChatContaining(playerID string, substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range f.msgs[playerID] {
		if msg.Type != MsgTypeChat {
			continue
		}
		if chat, ok := msg.Data.(*ChatMessage); ok && contains(chat.Content, substr) {
			return true
		}
	}
	return false
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for: %s", msg)
}

func testDefaults() RoomDefaults {
	return RoomDefaults{
		BuyIn:            1000,
		ActionTimeoutSec: 30,
		MaxChatHistory:   100,
		MaxActionHistory: 50,
	}
}

func submit(room *Room, playerID string, action string) {
	room.Submit(playerID, []byte(`{"action":"`+action+`"}`))
}

func TestRoomHandFlow(t *testing.T) {
	recv := newFakeReceiver()
	manager := NewManager(recv, testDefaults())
	room, err := manager.CreateRoom(&RoomConfig{
		RoomName:   "flow",
		Mode:       ModeNoLimit,
		SmallBlind: 10,
		BigBlind:   20,
	})
	require.NoError(t, err)
	defer room.Shutdown()

	require.NoError(t, room.Join("p1", "alice"))
	require.NoError(t, room.Join("p2", "bob"))
	require.NoError(t, room.Join("p3", "carol"))

	// only the owner can start
	submit(room, "p2", "start_game")
	waitUntil(t, 2*time.Second, func() bool {
		e := recv.lastError("p2")
		return e != nil && e.Code == CodeNotRoomOwner
	}, "non-owner start rejected")

	submit(room, "p1", "start_game")
	waitUntil(t, 2*time.Second, func() bool {
		s := recv.lastGameState("p1")
		return s != nil && s.Stage == StagePreflop
	}, "hand started")

	// first hand: button seat 1, so alice (UTG 3-handed) is on the clock
	snapshot := recv.lastGameState("p1")
	assert.True(t, snapshot.IsMyTurn)
	assert.Equal(t, int64(30), snapshot.MainPot)

	submit(room, "p1", "fold")
	waitUntil(t, 2*time.Second, func() bool {
		s := recv.lastGameState("p2")
		return s != nil && s.IsMyTurn
	}, "action moved to bob")

	// folding again out of turn is rejected without touching state
	submit(room, "p1", "fold")
	waitUntil(t, 2*time.Second, func() bool {
		e := recv.lastError("p1")
		return e != nil && e.Code == CodeNotYourTurn
	}, "second fold rejected")

	submit(room, "p2", "fold")
	waitUntil(t, 2*time.Second, func() bool {
		s := recv.lastGameState("p3")
		return s != nil && len(s.Winners) == 1
	}, "uncontested win")

	snapshot = recv.lastGameState("p3")
	assert.Equal(t, "carol", snapshot.Winners[0].Name)
	assert.Equal(t, int64(30), snapshot.Winners[0].Amount)
	assert.True(t, snapshot.CanStart)
}

func TestRoomChatBroadcast(t *testing.T) {
	recv := newFakeReceiver()
	manager := NewManager(recv, testDefaults())
	room, err := manager.CreateRoom(&RoomConfig{Mode: ModeNoLimit, SmallBlind: 5, BigBlind: 10})
	require.NoError(t, err)
	defer room.Shutdown()

	require.NoError(t, room.Join("p1", "alice"))
	require.NoError(t, room.Join("p2", "bob"))

	room.Submit("p2", []byte(`{"action":"chat","content":"good luck"}`))
	waitUntil(t, 2*time.Second, func() bool {
		return recv.hasChatContaining("p1", "good luck")
	}, "chat delivered to the other player")
}

func TestRoomRejectsInvalidMessage(t *testing.T) {
	recv := newFakeReceiver()
	manager := NewManager(recv, testDefaults())
	room, err := manager.CreateRoom(&RoomConfig{Mode: ModeNoLimit, SmallBlind: 5, BigBlind: 10})
	require.NoError(t, err)
	defer room.Shutdown()

	require.NoError(t, room.Join("p1", "alice"))

	room.Submit("p1", []byte("{not json"))
	waitUntil(t, 2*time.Second, func() bool {
		e := recv.lastError("p1")
		return e != nil && e.Code == CodeInvalidMessage
	}, "invalid frame rejected")

	room.Submit("p1", []byte(`{"action":"shove"}`))
	waitUntil(t, 2*time.Second, func() bool {
		e := recv.lastError("p1")
		return e != nil && e.Code == CodeInvalidMessage && contains(e.Message, "shove")
	}, "unknown action rejected")
}

func TestRoomActionTimeoutAutoFolds(t *testing.T) {
	recv := newFakeReceiver()
	defaults := testDefaults()
	defaults.ActionTimeoutSec = 1
	manager := NewManager(recv, defaults)
	room, err := manager.CreateRoom(&RoomConfig{Mode: ModeNoLimit, SmallBlind: 5, BigBlind: 10})
	require.NoError(t, err)
	defer room.Shutdown()

	require.NoError(t, room.Join("p1", "alice"))
	require.NoError(t, room.Join("p2", "bob"))
	submit(room, "p1", "start_game")

	// heads-up: alice is the button/SB and is first to act; she times out
	waitUntil(t, 5*time.Second, func() bool {
		s := recv.lastGameState("p2")
		return s != nil && len(s.Winners) == 1 && s.Winners[0].Name == "bob"
	}, "timeout folded the small blind")
	assert.True(t, recv.hasChatContaining("p2", "timed out"))
}

func TestRoomClosesWhenEmpty(t *testing.T) {
	recv := newFakeReceiver()
	manager := NewManager(recv, testDefaults())
	room, err := manager.CreateRoom(&RoomConfig{Mode: ModeNoLimit, SmallBlind: 5, BigBlind: 10})
	require.NoError(t, err)

	require.NoError(t, room.Join("p1", "alice"))
	require.NoError(t, room.Join("p2", "bob"))

	roomID := room.ID()
	submit(room, "p1", "leave")
	submit(room, "p2", "leave")

	waitUntil(t, 2*time.Second, func() bool {
		return manager.GetRoom(roomID) == nil
	}, "empty room removed from the registry")

	recv.mu.Lock()
	closed := recv.closed
	recv.mu.Unlock()
	assert.True(t, closed)
}

func TestRoomOwnerTransferOnLeave(t *testing.T) {
	recv := newFakeReceiver()
	manager := NewManager(recv, testDefaults())
	room, err := manager.CreateRoom(&RoomConfig{Mode: ModeNoLimit, SmallBlind: 5, BigBlind: 10})
	require.NoError(t, err)
	defer room.Shutdown()

	require.NoError(t, room.Join("p1", "alice"))
	require.NoError(t, room.Join("p2", "bob"))

	submit(room, "p1", "leave")
	waitUntil(t, 2*time.Second, func() bool {
		s := recv.lastGameState("p2")
		return s != nil && s.IsRoomOwner
	}, "ownership moved to bob")
}

func TestRoomListAndInfo(t *testing.T) {
	recv := newFakeReceiver()
	manager := NewManager(recv, testDefaults())
	room, err := manager.CreateRoom(&RoomConfig{
		RoomName:   "lobby test",
		Mode:       ModeLimit,
		SmallBlind: 10,
		BigBlind:   20,
	})
	require.NoError(t, err)
	defer room.Shutdown()

	require.NoError(t, room.Join("p1", "alice"))

	infos := manager.ListRooms()
	require.Len(t, infos, 1)
	assert.Equal(t, room.ID(), infos[0].ID)
	assert.Equal(t, "lobby test", infos[0].Name)
	assert.Equal(t, 1, infos[0].PlayerCount)
	assert.Equal(t, StageWaiting, infos[0].Stage)
	assert.Equal(t, ModeLimit, infos[0].Mode)

	snapshot := room.SnapshotFor("p1")
	require.NotNil(t, snapshot)
	assert.Equal(t, StageWaiting, snapshot.Stage)
	assert.False(t, snapshot.CanStart)
}
