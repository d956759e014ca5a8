package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"voyager.com/holdem/game"
	"voyager.com/holdem/ws"
)

var restLogger = log.With().Str("logger_name", "rest::rest").Logger()

//
// APP error definition
//
type appError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type createRoomRequest struct {
	Name       string `json:"name" form:"name"`
	Mode       string `json:"mode" form:"mode"`
	SmallBlind int64  `json:"small_blind" form:"small_blind"`
	BigBlind   int64  `json:"big_blind" form:"big_blind"`
	Ante       int64  `json:"ante" form:"ante"`
}

type Server struct {
	manager  *game.Manager
	sessions *ws.SessionManager
	upgrader websocket.Upgrader
}

func NewServer(manager *game.Manager, sessions *ws.SessionManager) *Server {
	return &Server{
		manager:  manager,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/rooms", s.listRooms)
	r.POST("/create-room", s.createRoom)
	r.GET("/api/room/:roomID/state", s.roomState)
	r.GET("/ws/:roomID/:playerID", s.handleWS)

	return r
}

func (s *Server) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.ListRooms())
}

func (s *Server) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, appError{
			Code:    http.StatusBadRequest,
			Message: "Invalid create-room request",
		})
		return
	}

	config := &game.RoomConfig{
		RoomName:   req.Name,
		Mode:       game.ParseBettingMode(req.Mode),
		SmallBlind: req.SmallBlind,
		BigBlind:   req.BigBlind,
		Ante:       req.Ante,
	}
	room, err := s.manager.CreateRoom(config)
	if err != nil {
		restLogger.Error().Msgf("Unable to create room: %v", err)
		c.JSON(http.StatusInternalServerError, appError{
			Code:    http.StatusInternalServerError,
			Message: "Unable to create room",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": room.ID()})
}

func (s *Server) roomState(c *gin.Context) {
	roomID := c.Param("roomID")
	room := s.manager.GetRoom(roomID)
	if room == nil {
		c.JSON(http.StatusNotFound, appError{
			Code:    http.StatusNotFound,
			Message: fmt.Sprintf("Room %s does not exist", roomID),
		})
		return
	}
	playerID := c.Query("player_id")
	if playerID == "" {
		playerID, _ = c.Cookie("player_id")
	}
	snapshot := room.SnapshotFor(playerID)
	if snapshot == nil {
		c.JSON(http.StatusGone, appError{
			Code:    http.StatusGone,
			Message: "Room has closed",
		})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// handleWS seats the player and hands the socket to the session manager.
func (s *Server) handleWS(c *gin.Context) {
	roomID := c.Param("roomID")
	playerID := c.Param("playerID")
	room := s.manager.GetRoom(roomID)
	if room == nil {
		c.JSON(http.StatusNotFound, appError{
			Code:    http.StatusNotFound,
			Message: fmt.Sprintf("Room %s does not exist", roomID),
		})
		return
	}

	playerName := c.Query("name")
	if playerName == "" {
		suffix := playerID
		if len(suffix) > 6 {
			suffix = suffix[:6]
		}
		playerName = "Player_" + suffix
	}
	if err := room.Join(playerID, playerName); err != nil {
		c.JSON(http.StatusConflict, appError{
			Code:    http.StatusConflict,
			Message: err.Error(),
		})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		restLogger.Error().
			Str("room", roomID).
			Str("playerID", playerID).
			Msgf("WebSocket upgrade failed: %v", err)
		return
	}
	s.sessions.HandleConnection(conn, room, playerID)
}
