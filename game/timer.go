package game

import (
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

var actionTimerLogger = log.With().Str("logger_name", "game::action_timer").Logger()

// TimerMsg identifies one turn. The key fields let the room drop a fire that
// arrives after the turn has already passed.
type TimerMsg struct {
	SeatNo    uint32
	HandNum   uint32
	ActionNum uint32
	CanCheck  bool
	ExpireAt  time.Time
}

// ActionTimer runs one turn clock per room. Reset arms it for the next acting
// seat; Pause stops it between hands. The expiry callback runs on the timer
// goroutine and must not block for long.
type ActionTimer struct {
	roomID string

	chReset   chan TimerMsg
	chPause   chan bool
	chEndLoop chan bool

	callback        func(TimerMsg)
	currentTimerMsg TimerMsg

	secondsTillTimeout uint32

	crashHandler func()
}

func NewActionTimer(roomID string, callback func(TimerMsg), crashHandler func()) *ActionTimer {
	at := ActionTimer{
		roomID:       roomID,
		chReset:      make(chan TimerMsg),
		chPause:      make(chan bool),
		chEndLoop:    make(chan bool, 10),
		callback:     callback,
		crashHandler: crashHandler,
	}
	return &at
}

func (a *ActionTimer) Run() {
	go a.loop()
}

func (a *ActionTimer) Destroy() {
	a.chEndLoop <- true
}

func (a *ActionTimer) loop() {
	defer func() {
		err := recover()
		if err != nil {
			actionTimerLogger.Error().
				Str("room", a.roomID).
				Msgf("Action timer loop returning due to panic: %s\nStack Trace:\n%s", err, string(debug.Stack()))
			a.crashHandler()
		}
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var expirationTime time.Time
	paused := true
	for {
		select {
		case <-a.chEndLoop:
			return
		case <-a.chPause:
			paused = true
		case msg := <-a.chReset:
			// Start the new timer.
			a.currentTimerMsg = msg
			expirationTime = msg.ExpireAt
			paused = false
		case <-ticker.C:
			if paused {
				continue
			}
			remainingSec := time.Until(expirationTime).Seconds()
			if remainingSec < 0 {
				remainingSec = 0
			}
			// tracked so a new observer sees how much time the acting
			// player has left
			atomic.StoreUint32(&a.secondsTillTimeout, uint32(remainingSec))

			if remainingSec <= 0 {
				// The player timed out.
				a.callback(a.currentTimerMsg)
				expirationTime = time.Time{}
				paused = true
			}
		}
	}
}

func (a *ActionTimer) Pause() {
	a.chPause <- true
}

func (a *ActionTimer) Reset(t TimerMsg) {
	atomic.StoreUint32(&a.secondsTillTimeout, uint32(time.Until(t.ExpireAt).Seconds()))
	a.chReset <- t
}

func (a *ActionTimer) GetRemainingSec() uint32 {
	return atomic.LoadUint32(&a.secondsTillTimeout)
}
