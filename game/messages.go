package game

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server to client frame types.
const (
	MsgTypeGameState  string = "game_state"
	MsgTypeChat       string = "chat"
	MsgTypeError      string = "error"
	MsgTypeRoomError  string = "room_error"
	MsgTypeRoomClosed string = "room_closed"
)

// Chat msg_type values.
const (
	ChatMsgPlayer string = "chat"
	ChatMsgSystem string = "system"
)

const maxChatContentLen = 200

// ClientMessage is one inbound frame: an action with optional amount/content.
type ClientMessage struct {
	Action  string `json:"action"`
	Amount  int64  `json:"amount,omitempty"`
	Content string `json:"content,omitempty"`
}

// ParseClientMessage decodes one frame. An unparseable frame or a missing
// action field is an InvalidMessageError.
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, InvalidMessageError{Msg: "unparseable message"}
	}
	if msg.Action == "" {
		return nil, InvalidMessageError{Msg: "missing action"}
	}
	return &msg, nil
}

// ServerMessage is one outbound frame.
type ServerMessage struct {
	Type    string      `json:"type"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

func (m *ServerMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func errorMessage(code string, message string) *ServerMessage {
	return &ServerMessage{Type: MsgTypeError, Code: code, Message: message}
}

type ChatMessage struct {
	PlayerName string  `json:"player_name"`
	Content    string  `json:"content"`
	MsgType    string  `json:"msg_type"`
	Timestamp  float64 `json:"timestamp"`
}

func newChatMessage(playerName, content, msgType string) *ChatMessage {
	return &ChatMessage{
		PlayerName: playerName,
		Content:    content,
		MsgType:    msgType,
		Timestamp:  float64(time.Now().UnixNano()) / float64(time.Second),
	}
}

// MessageReceiver delivers frames to connected clients. The session manager
// implements it; a send to a disconnected player is a no-op.
type MessageReceiver interface {
	SendToPlayer(roomID string, playerID string, message *ServerMessage)
	RoomClosed(roomID string)
}
