package game

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var managerLogger = log.With().Str("logger_name", "game::manager").Logger()

// Manager is the process-wide room registry. The lock guards only the map;
// it is never held across a room's work.
type Manager struct {
	receiver    MessageReceiver
	defaults    RoomDefaults
	lock        sync.Mutex
	activeRooms map[string]*Room
}

// RoomDefaults fills in the parts of a room config the creator did not set.
type RoomDefaults struct {
	BuyIn            int64
	ActionTimeoutSec uint32
	MaxChatHistory   int
	MaxActionHistory int
}

func NewManager(receiver MessageReceiver, defaults RoomDefaults) *Manager {
	return &Manager{
		receiver:    receiver,
		defaults:    defaults,
		activeRooms: make(map[string]*Room),
	}
}

// CreateRoom validates the config, spins up the room goroutine and registers
// the room.
func (m *Manager) CreateRoom(config *RoomConfig) (*Room, error) {
	if config.RoomName == "" {
		config.RoomName = "Hold'em"
	}
	if config.SmallBlind < 1 {
		config.SmallBlind = 1
	}
	if config.BigBlind < config.SmallBlind*2 {
		config.BigBlind = config.SmallBlind * 2
	}
	if config.Ante < 0 {
		config.Ante = 0
	}
	if config.BuyIn <= 0 {
		config.BuyIn = m.defaults.BuyIn
	}
	if config.ActionTimeoutSec == 0 {
		config.ActionTimeoutSec = m.defaults.ActionTimeoutSec
	}
	if config.MaxChatHistory == 0 {
		config.MaxChatHistory = m.defaults.MaxChatHistory
	}
	if config.MaxActionHistory == 0 {
		config.MaxActionHistory = m.defaults.MaxActionHistory
	}

	roomID := strings.ToUpper(uuid.New().String()[:8])
	room := newRoom(roomID, config, m, m.receiver)

	m.lock.Lock()
	m.activeRooms[roomID] = room
	m.lock.Unlock()

	room.Run()
	managerLogger.Info().
		Str("room", roomID).
		Str("mode", string(config.Mode)).
		Int64("sb", config.SmallBlind).
		Int64("bb", config.BigBlind).
		Msgf("Created room %s", config.RoomName)
	return room, nil
}

func (m *Manager) GetRoom(roomID string) *Room {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.activeRooms[roomID]
}

// ListRooms returns lobby entries for every active room.
func (m *Manager) ListRooms() []RoomInfo {
	m.lock.Lock()
	rooms := make([]*Room, 0, len(m.activeRooms))
	for _, room := range m.activeRooms {
		rooms = append(rooms, room)
	}
	m.lock.Unlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, room.Info())
	}
	return infos
}

// DeleteRoom shuts a room down; the registry entry is removed when the room
// loop exits.
func (m *Manager) DeleteRoom(roomID string) {
	if room := m.GetRoom(roomID); room != nil {
		room.Shutdown()
	}
}

func (m *Manager) roomEnded(room *Room) {
	m.lock.Lock()
	delete(m.activeRooms, room.roomID)
	m.lock.Unlock()
	managerLogger.Info().Str("room", room.roomID).Msg("Room removed from registry")
}
