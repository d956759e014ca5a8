package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"voyager.com/holdem/poker"
)

var roomLogger = log.With().Str("logger_name", "game::room").Logger()

const commandInboxSize = 64

type commandKind int

const (
	cmdClientMessage commandKind = iota
	cmdJoin
	cmdConnected
	cmdDisconnected
	cmdSnapshot
	cmdInfo
)

type command struct {
	kind       commandKind
	playerID   string
	playerName string
	msg        *ClientMessage
	chJoinResp chan error
	chSnapshot chan *Snapshot
	chInfo     chan RoomInfo
}

// RoomInfo is the lobby listing entry.
type RoomInfo struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	PlayerCount int         `json:"player_count"`
	Stage       GameStage   `json:"stage"`
	Mode        BettingMode `json:"mode"`
}

// Room owns one table. All state below is touched only by the room goroutine;
// inbound handlers talk to it through the command inbox.
type Room struct {
	roomID   string
	config   *RoomConfig
	manager  *Manager
	receiver MessageReceiver
	rule     BettingRule

	seats      []*Seat // indexed by seat number, 0 unused
	ownerID    string
	phase      RoomPhase
	buttonSeat uint32
	handNum    uint32
	hand       *HandState
	chat       []*ChatMessage

	chCommand  chan command
	chTimedOut chan TimerMsg
	end        chan bool
	chDone     chan struct{}

	actionTimer *ActionTimer
	closing     bool
}

func newRoom(roomID string, config *RoomConfig, manager *Manager, receiver MessageReceiver) *Room {
	r := &Room{
		roomID:     roomID,
		config:     config,
		manager:    manager,
		receiver:   receiver,
		rule:       NewBettingRule(config.Mode),
		seats:      make([]*Seat, MaxSeats+1),
		phase:      PhaseLobby,
		chCommand:  make(chan command, commandInboxSize),
		chTimedOut: make(chan TimerMsg, 4),
		end:        make(chan bool),
		chDone:     make(chan struct{}),
	}
	r.actionTimer = NewActionTimer(roomID, r.onTimerFired, func() {
		r.Shutdown()
	})
	return r
}

// Run starts the room goroutine.
func (r *Room) Run() {
	go r.runLoop()
}

func (r *Room) Shutdown() {
	select {
	case r.end <- true:
	case <-r.chDone:
	}
}

func (r *Room) runLoop() {
	r.actionTimer.Run()
	defer func() {
		r.actionTimer.Destroy()
		close(r.chDone)
		r.drainCommands()
		r.receiver.RoomClosed(r.roomID)
		r.manager.roomEnded(r)
		roomLogger.Info().Str("room", r.roomID).Msg("Room loop returning")
	}()

	for {
		select {
		case cmd := <-r.chCommand:
			r.handleCommand(cmd)
		case t := <-r.chTimedOut:
			r.handleActionTimeout(t)
		case <-r.end:
			return
		}
		if r.closing {
			return
		}
	}
}

// drainCommands answers anything still queued with room_closed.
func (r *Room) drainCommands() {
	for {
		select {
		case cmd := <-r.chCommand:
			switch cmd.kind {
			case cmdClientMessage:
				r.receiver.SendToPlayer(r.roomID, cmd.playerID,
					errorMessage(CodeRoomClosed, "the room has closed"))
			case cmdJoin:
				cmd.chJoinResp <- RoomClosedError{}
			case cmdSnapshot:
				cmd.chSnapshot <- nil
			case cmdInfo:
				cmd.chInfo <- RoomInfo{ID: r.roomID}
			}
		default:
			return
		}
	}
}

// onTimerFired runs on the timer goroutine; hand it off to the room loop.
func (r *Room) onTimerFired(t TimerMsg) {
	select {
	case r.chTimedOut <- t:
	case <-r.chDone:
	}
}

// ---- inbound API; safe to call from any goroutine ----

// Submit parses one inbound frame and queues it. The inbox is bounded: a
// frame arriving at a full inbox is rejected.
func (r *Room) Submit(playerID string, data []byte) {
	msg, err := ParseClientMessage(data)
	if err != nil {
		r.receiver.SendToPlayer(r.roomID, playerID,
			errorMessage(CodeInvalidMessage, err.Error()))
		return
	}
	cmd := command{kind: cmdClientMessage, playerID: playerID, msg: msg}
	select {
	case r.chCommand <- cmd:
	case <-r.chDone:
		r.receiver.SendToPlayer(r.roomID, playerID,
			errorMessage(CodeRoomClosed, "the room has closed"))
	default:
		r.receiver.SendToPlayer(r.roomID, playerID,
			errorMessage(CodeInvalidMessage, "too many pending messages"))
	}
}

// Join seats a player, or re-seats a returning one.
func (r *Room) Join(playerID string, playerName string) error {
	resp := make(chan error, 1)
	cmd := command{kind: cmdJoin, playerID: playerID, playerName: playerName, chJoinResp: resp}
	select {
	case r.chCommand <- cmd:
		return <-resp
	case <-r.chDone:
		return RoomClosedError{}
	}
}

func (r *Room) PlayerConnected(playerID string) {
	r.enqueue(command{kind: cmdConnected, playerID: playerID})
}

func (r *Room) PlayerDisconnected(playerID string) {
	r.enqueue(command{kind: cmdDisconnected, playerID: playerID})
}

func (r *Room) enqueue(cmd command) {
	select {
	case r.chCommand <- cmd:
	case <-r.chDone:
	}
}

// SnapshotFor returns the viewer's current state, or nil if the room closed.
func (r *Room) SnapshotFor(playerID string) *Snapshot {
	resp := make(chan *Snapshot, 1)
	select {
	case r.chCommand <- command{kind: cmdSnapshot, playerID: playerID, chSnapshot: resp}:
		return <-resp
	case <-r.chDone:
		return nil
	}
}

func (r *Room) Info() RoomInfo {
	resp := make(chan RoomInfo, 1)
	select {
	case r.chCommand <- command{kind: cmdInfo, chInfo: resp}:
		return <-resp
	case <-r.chDone:
		return RoomInfo{ID: r.roomID}
	}
}

func (r *Room) ID() string {
	return r.roomID
}

// ---- room goroutine only below ----

func (r *Room) handleCommand(cmd command) {
	switch cmd.kind {
	case cmdClientMessage:
		r.handleClientMessage(cmd.playerID, cmd.msg)
	case cmdJoin:
		cmd.chJoinResp <- r.handleJoin(cmd.playerID, cmd.playerName)
	case cmdConnected:
		r.handleConnected(cmd.playerID)
	case cmdDisconnected:
		if seat := r.seatOf(cmd.playerID); seat != nil {
			seat.Disconnected = true
		}
	case cmdSnapshot:
		cmd.chSnapshot <- r.buildSnapshot(cmd.playerID)
	case cmdInfo:
		cmd.chInfo <- r.info()
	}
}

func (r *Room) handleClientMessage(playerID string, msg *ClientMessage) {
	switch msg.Action {
	case "start_game":
		r.handleStartGame(playerID)
	case "chat":
		r.handleChat(playerID, msg.Content)
	case "leave":
		r.handleLeave(playerID)
	default:
		action := ActionType(msg.Action)
		if !isPlayerAction(action) {
			r.receiver.SendToPlayer(r.roomID, playerID,
				errorMessage(CodeInvalidMessage, fmt.Sprintf("unknown action %s", msg.Action)))
			return
		}
		r.handlePlayerAction(playerID, action, msg.Amount)
	}
}

func (r *Room) handleJoin(playerID string, playerName string) error {
	if seat := r.seatOf(playerID); seat != nil {
		// returning player keeps the seat
		seat.Name = playerName
		return nil
	}
	var seatNo uint32
	for no := uint32(1); no <= MaxSeats; no++ {
		if r.seats[no] == nil {
			seatNo = no
			break
		}
	}
	if seatNo == 0 {
		return newGameError(CodeRoomFull, "the room is full")
	}
	r.seats[seatNo] = &Seat{
		SeatNo:   seatNo,
		PlayerID: playerID,
		Name:     playerName,
		Stack:    r.config.BuyIn,
		Status:   StatusSittingOut,
	}
	if r.ownerID == "" {
		r.ownerID = playerID
	}
	roomLogger.Info().
		Str("room", r.roomID).
		Str("playerID", playerID).
		Uint32("seatNo", seatNo).
		Msgf("%s took seat %d", playerName, seatNo)
	r.systemChat(fmt.Sprintf("%s joined the table", playerName))
	r.broadcastGameState()
	return nil
}

func (r *Room) handleConnected(playerID string) {
	seat := r.seatOf(playerID)
	if seat == nil {
		return
	}
	seat.Disconnected = false
	// resend the current state so a reconnect lands mid-hand
	r.receiver.SendToPlayer(r.roomID, playerID,
		&ServerMessage{Type: MsgTypeGameState, Data: r.buildSnapshot(playerID)})
}

func (r *Room) handleStartGame(playerID string) {
	if playerID != r.ownerID {
		r.receiver.SendToPlayer(r.roomID, playerID,
			errorMessage(CodeNotRoomOwner, "only the room owner can start the game"))
		return
	}
	if r.phase == PhaseInHand {
		r.receiver.SendToPlayer(r.roomID, playerID,
			errorMessage(CodeHandInProgress, "a hand is already in progress"))
		return
	}
	if r.countSeatsWithChips() < 2 {
		r.receiver.SendToPlayer(r.roomID, playerID,
			errorMessage(CodeNotEnoughPlayers, "need at least 2 players with chips"))
		return
	}
	r.dealNewHand()
}

func (r *Room) dealNewHand() {
	for _, seat := range r.seats {
		if seat != nil {
			seat.resetForNewHand()
		}
	}
	r.rotateButton()
	r.sitOutOverflow()
	r.handNum++

	hand := newHandState(r.roomID, r.handNum, r.seats, r.buttonSeat,
		r.config, r.rule, poker.NewDeck(nil))
	r.hand = hand
	r.phase = PhaseInHand

	r.systemChat(fmt.Sprintf("Hand #%d started", r.handNum))
	roomLogger.Info().
		Str("room", r.roomID).
		Uint32("handNo", r.handNum).
		Uint32("button", r.buttonSeat).
		Msg("Dealing new hand")

	if err := hand.start(); err != nil {
		r.handleHandError(err)
		return
	}
	r.afterHandProgress()
}

// sitOutOverflow keeps at most MaxPlaying seats in the hand; anyone beyond
// that, counted clockwise from the button, waits this one out.
func (r *Room) sitOutOverflow() {
	playing := 0
	for offset := uint32(0); offset < MaxSeats; offset++ {
		seatNo := (r.buttonSeat+offset-1)%MaxSeats + 1
		seat := r.seats[seatNo]
		if seat == nil || seat.Status != StatusActive {
			continue
		}
		playing++
		if playing > MaxPlaying {
			seat.Status = StatusSittingOut
		}
	}
}

// rotateButton moves the dealer button to the next seat that can play,
// skipping eliminated stacks.
func (r *Room) rotateButton() {
	start := r.buttonSeat
	for offset := uint32(1); offset <= MaxSeats; offset++ {
		seatNo := (start+offset-1)%MaxSeats + 1
		seat := r.seats[seatNo]
		if seat != nil && seat.Stack > 0 {
			r.buttonSeat = seatNo
			return
		}
	}
}

func (r *Room) handlePlayerAction(playerID string, action ActionType, amount int64) {
	if r.hand == nil || r.hand.finished {
		r.receiver.SendToPlayer(r.roomID, playerID,
			errorMessage(CodeIllegalAction, "no hand in progress"))
		return
	}
	seat := r.seatOf(playerID)
	if seat == nil {
		r.receiver.SendToPlayer(r.roomID, playerID,
			errorMessage(CodeNotSeated, "you are not seated"))
		return
	}
	if err := r.hand.actionReceived(seat.SeatNo, action, amount); err != nil {
		r.handleHandError(err, playerID)
		return
	}
	r.afterHandProgress()
}

// handleHandError routes a rejection back to the offender and treats an
// invariant violation as fatal for the room.
func (r *Room) handleHandError(err error, playerID ...string) {
	switch e := err.(type) {
	case GameError:
		if len(playerID) > 0 {
			r.receiver.SendToPlayer(r.roomID, playerID[0], errorMessage(e.Code, e.Msg))
		}
	case InvariantViolationError:
		r.fatal(e)
	default:
		roomLogger.Error().Str("room", r.roomID).Msgf("Unexpected hand error: %v", err)
	}
}

// afterHandProgress rearms the timer (or finishes the hand) and broadcasts.
func (r *Room) afterHandProgress() {
	h := r.hand
	if h.finished {
		r.finishHand()
	} else if h.actingSeat != 0 {
		seat := r.seats[h.actingSeat]
		r.actionTimer.Reset(TimerMsg{
			SeatNo:    h.actingSeat,
			HandNum:   h.handNum,
			ActionNum: h.actionNum,
			CanCheck:  h.toCall(seat) == 0,
			ExpireAt:  time.Now().Add(time.Duration(r.config.ActionTimeoutSec) * time.Second),
		})
	}
	r.broadcastGameState()
}

func (r *Room) finishHand() {
	r.actionTimer.Pause()
	r.phase = PhaseBetweenHands

	if r.hand.result != nil {
		for _, w := range r.hand.result.Winners {
			if w.HandName != "" {
				r.systemChat(fmt.Sprintf("%s wins %d with %s", w.Name, w.Amount, w.HandName))
			} else {
				r.systemChat(fmt.Sprintf("%s wins %d", w.Name, w.Amount))
			}
		}
	}

	// seats that left mid-hand are released now
	for no := uint32(1); no <= MaxSeats; no++ {
		if seat := r.seats[no]; seat != nil && seat.Leaving {
			r.removeSeat(seat)
		}
	}
}

func (r *Room) handleActionTimeout(t TimerMsg) {
	h := r.hand
	if h == nil || h.finished {
		return
	}
	// a fire for a superseded turn is a no-op
	if h.handNum != t.HandNum || h.actionNum != t.ActionNum || h.actingSeat != t.SeatNo {
		return
	}
	seat := r.seats[t.SeatNo]
	action := ActionFold
	if t.CanCheck {
		action = ActionCheck
	}
	roomLogger.Info().
		Str("room", r.roomID).
		Uint32("handNo", h.handNum).
		Uint32("seatNo", t.SeatNo).
		Msgf("Action timer expired, auto %s", action)
	if err := h.actionReceived(t.SeatNo, action, 0); err != nil {
		r.handleHandError(err)
		return
	}
	if action == ActionFold {
		r.systemChat(fmt.Sprintf("%s timed out and folded", seat.Name))
	} else {
		r.systemChat(fmt.Sprintf("%s timed out and checked", seat.Name))
	}
	r.afterHandProgress()
}

func (r *Room) handleChat(playerID string, content string) {
	seat := r.seatOf(playerID)
	if seat == nil {
		return
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	if len(content) > maxChatContentLen {
		content = content[:maxChatContentLen]
	}
	r.appendChat(newChatMessage(seat.Name, content, ChatMsgPlayer))
}

func (r *Room) systemChat(content string) {
	r.appendChat(newChatMessage("system", content, ChatMsgSystem))
}

func (r *Room) appendChat(msg *ChatMessage) {
	r.chat = append(r.chat, msg)
	if max := r.config.MaxChatHistory; max > 0 && len(r.chat) > max {
		r.chat = r.chat[len(r.chat)-max:]
	}
	r.broadcast(&ServerMessage{Type: MsgTypeChat, Data: msg})
}

func (r *Room) handleLeave(playerID string) {
	seat := r.seatOf(playerID)
	if seat == nil {
		return
	}
	if r.hand != nil && !r.hand.finished && seat.inHand() {
		seat.Leaving = true
		if err := r.hand.seatLeft(seat.SeatNo); err != nil {
			r.handleHandError(err)
			return
		}
		r.systemChat(fmt.Sprintf("%s left the table", seat.Name))
		r.afterHandProgress()
		return
	}
	r.systemChat(fmt.Sprintf("%s left the table", seat.Name))
	r.removeSeat(seat)
	if !r.closing {
		r.broadcastGameState()
	}
}

func (r *Room) removeSeat(seat *Seat) {
	r.seats[seat.SeatNo] = nil

	occupied := 0
	var lowest *Seat
	for no := uint32(1); no <= MaxSeats; no++ {
		if s := r.seats[no]; s != nil {
			occupied++
			if lowest == nil {
				lowest = s
			}
		}
	}
	if occupied == 0 {
		roomLogger.Info().Str("room", r.roomID).Msg("Room is empty, closing")
		r.closing = true
		return
	}
	if r.ownerID == seat.PlayerID {
		r.ownerID = lowest.PlayerID
		r.systemChat(fmt.Sprintf("%s is the new room owner", lowest.Name))
	}
}

// fatal aborts the hand, refunds every contribution and closes the room.
func (r *Room) fatal(err InvariantViolationError) {
	roomLogger.Error().
		Str("room", r.roomID).
		Msgf("Fatal room error: %s", err.Msg)
	if r.hand != nil {
		for _, seat := range r.seats {
			if seat == nil || !seat.inHand() {
				continue
			}
			seat.Stack += seat.TotalContrib
			seat.TotalContrib = 0
			seat.CurrentBet = 0
		}
		r.hand = nil
	}
	r.broadcast(&ServerMessage{Type: MsgTypeRoomError, Message: err.Msg})
	r.closing = true
}

func (r *Room) broadcastGameState() {
	for no := uint32(1); no <= MaxSeats; no++ {
		seat := r.seats[no]
		if seat == nil {
			continue
		}
		r.receiver.SendToPlayer(r.roomID, seat.PlayerID,
			&ServerMessage{Type: MsgTypeGameState, Data: r.buildSnapshot(seat.PlayerID)})
	}
}

func (r *Room) broadcast(msg *ServerMessage) {
	for no := uint32(1); no <= MaxSeats; no++ {
		if seat := r.seats[no]; seat != nil {
			r.receiver.SendToPlayer(r.roomID, seat.PlayerID, msg)
		}
	}
}

func (r *Room) seatOf(playerID string) *Seat {
	for no := uint32(1); no <= MaxSeats; no++ {
		if seat := r.seats[no]; seat != nil && seat.PlayerID == playerID {
			return seat
		}
	}
	return nil
}

func (r *Room) countSeatsWithChips() int {
	count := 0
	for no := uint32(1); no <= MaxSeats; no++ {
		if seat := r.seats[no]; seat != nil && seat.Stack > 0 {
			count++
		}
	}
	return count
}

func (r *Room) canStart() bool {
	return r.phase != PhaseInHand && r.countSeatsWithChips() >= 2
}

func (r *Room) info() RoomInfo {
	stage := StageWaiting
	if r.hand != nil {
		stage = r.hand.stage
	}
	occupied := 0
	for no := uint32(1); no <= MaxSeats; no++ {
		if r.seats[no] != nil {
			occupied++
		}
	}
	return RoomInfo{
		ID:          r.roomID,
		Name:        r.config.RoomName,
		PlayerCount: occupied,
		Stage:       stage,
		Mode:        r.config.Mode,
	}
}
