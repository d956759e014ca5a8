package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"voyager.com/holdem/game"
)

var sessionLogger = log.With().Str("logger_name", "ws::sessions").Logger()

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 32

	// inbound frames per connection
	inboundRate  rate.Limit = 8
	inboundBurst            = 16
)

// playerConn is one live transport endpoint. All writes go through the send
// channel so each connection is written to serially.
type playerConn struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

func newPlayerConn(conn *websocket.Conn) *playerConn {
	return &playerConn{
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
	}
}

func (pc *playerConn) close() {
	pc.closeOnce.Do(func() {
		close(pc.closed)
		pc.conn.Close()
	})
}

// enqueue drops the frame if the client cannot keep up; the next snapshot
// supersedes it anyway.
func (pc *playerConn) enqueue(data []byte) bool {
	select {
	case pc.send <- data:
		return true
	case <-pc.closed:
		return false
	default:
		return false
	}
}

func (pc *playerConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		pc.close()
	}()
	for {
		select {
		case data := <-pc.send:
			pc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := pc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			pc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := pc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-pc.closed:
			return
		}
	}
}

// SessionManager maps (room, player) to the live connection and fans room
// messages out. It implements game.MessageReceiver.
type SessionManager struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*playerConn
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		rooms: make(map[string]map[string]*playerConn),
	}
}

// SendToPlayer encodes and queues one frame. Disconnected players are
// silently skipped; the room does not care.
func (sm *SessionManager) SendToPlayer(roomID string, playerID string, message *game.ServerMessage) {
	sm.mu.RLock()
	var pc *playerConn
	if conns, ok := sm.rooms[roomID]; ok {
		pc = conns[playerID]
	}
	sm.mu.RUnlock()
	if pc == nil {
		return
	}
	data, err := message.Encode()
	if err != nil {
		sessionLogger.Error().
			Str("room", roomID).
			Str("playerID", playerID).
			Msgf("Unable to encode message: %v", err)
		return
	}
	if !pc.enqueue(data) {
		sessionLogger.Warn().
			Str("room", roomID).
			Str("playerID", playerID).
			Str("msgType", message.Type).
			Msg("Dropped frame for slow or closed connection")
	}
}

// RoomClosed tears down every connection of a closed room.
func (sm *SessionManager) RoomClosed(roomID string) {
	sm.mu.Lock()
	conns := sm.rooms[roomID]
	delete(sm.rooms, roomID)
	sm.mu.Unlock()
	for _, pc := range conns {
		pc.close()
	}
}

func (sm *SessionManager) register(roomID string, playerID string, pc *playerConn) {
	sm.mu.Lock()
	conns, ok := sm.rooms[roomID]
	if !ok {
		conns = make(map[string]*playerConn)
		sm.rooms[roomID] = conns
	}
	old := conns[playerID]
	conns[playerID] = pc
	sm.mu.Unlock()
	if old != nil {
		// the player reconnected; the old transport is dead weight
		old.close()
	}
}

func (sm *SessionManager) unregister(roomID string, playerID string, pc *playerConn) {
	sm.mu.Lock()
	if conns, ok := sm.rooms[roomID]; ok && conns[playerID] == pc {
		delete(conns, playerID)
		if len(conns) == 0 {
			delete(sm.rooms, roomID)
		}
	}
	sm.mu.Unlock()
}

// HandleConnection owns one upgraded socket until it drops. Frames are parsed
// and validated by the room; this layer only enforces size and rate limits.
func (sm *SessionManager) HandleConnection(conn *websocket.Conn, room *game.Room, playerID string) {
	pc := newPlayerConn(conn)
	sm.register(room.ID(), playerID, pc)
	go pc.writePump()

	// the room resends the current snapshot on (re)connect
	room.PlayerConnected(playerID)

	limiter := rate.NewLimiter(inboundRate, inboundBurst)
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if !limiter.Allow() {
			sessionLogger.Warn().
				Str("room", room.ID()).
				Str("playerID", playerID).
				Msg("Rate limited inbound frame")
			continue
		}
		room.Submit(playerID, data)
	}

	sm.unregister(room.ID(), playerID, pc)
	pc.close()
	room.PlayerDisconnected(playerID)
}
