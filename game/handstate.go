package game

import (
	"github.com/rs/zerolog/log"
	"voyager.com/holdem/poker"
)

var handLogger = log.With().Str("logger_name", "game::hand").Logger()

// HandAction is one entry of the per-hand action history.
type HandAction struct {
	SeatNo uint32     `json:"seat_no"`
	Player string     `json:"player"`
	Action ActionType `json:"action"`
	Amount int64      `json:"amount"`
	Stage  GameStage  `json:"stage"`
}

type WinnerInfo struct {
	SeatNo   uint32 `json:"-"`
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	HandName string `json:"hand_name,omitempty"`
}

type HandResult struct {
	Winners     []WinnerInfo
	Uncontested bool
}

// HandState drives a single hand from the blinds to the showdown. It is only
// ever touched from the owning room's goroutine.
type HandState struct {
	roomID  string
	handNum uint32
	config  *RoomConfig
	rule    BettingRule

	seats    []*Seat // indexed by seat number, 0 unused, nil = empty
	maxSeats uint32

	stage      GameStage
	deck       *poker.Deck
	community  []poker.Card
	cardsDealt int
	buttonSeat uint32
	sbSeat     uint32
	bbSeat     uint32

	currentBet    int64 // street bet to match
	lastRaiseSize int64
	raiseCount    int    // aggressive actions this street
	actingSeat    uint32 // 0 = no seat to act
	aggressorSeat uint32 // last full bet/raise this street
	lastAggressor uint32 // across streets; showdown reveal starts here

	actionNum uint32
	actions   []*HandAction

	potTotal          int64 // collected antes + settled street bets
	pots              []*Pot
	totalChipsAtStart int64

	finished bool
	result   *HandResult
}

func newHandState(roomID string, handNum uint32, seats []*Seat, buttonSeat uint32,
	config *RoomConfig, rule BettingRule, deck *poker.Deck) *HandState {

	h := &HandState{
		roomID:     roomID,
		handNum:    handNum,
		config:     config,
		rule:       rule,
		seats:      seats,
		maxSeats:   uint32(len(seats) - 1),
		stage:      StagePreflop,
		deck:       deck,
		buttonSeat: buttonSeat,
	}
	for _, seat := range seats {
		if seat != nil && seat.inHand() {
			h.totalChipsAtStart += seat.Stack
		}
	}
	return h
}

// start posts antes and blinds, deals the hole cards and sets the first seat
// to act. Antes are collected before blinds.
func (h *HandState) start() error {
	if h.countInHand() < 2 {
		return newGameError(CodeNotEnoughPlayers, "cannot deal a hand with %d players", h.countInHand())
	}

	if h.countInHand() == 2 {
		// heads-up: the button posts the small blind
		h.sbSeat = h.buttonSeat
		h.bbSeat = h.nextInHand(h.buttonSeat)
	} else {
		h.sbSeat = h.nextInHand(h.buttonSeat)
		h.bbSeat = h.nextInHand(h.sbSeat)
	}

	if h.config.Ante > 0 {
		seatNo := h.sbSeat
		for i, n := 0, h.countInHand(); i < n; i++ {
			seat := h.seats[seatNo]
			if seat != nil && seat.inHand() {
				h.postAnte(seat)
			}
			seatNo = h.nextInHand(seatNo)
		}
	}

	sb := h.seats[h.sbSeat]
	posted := sb.commitChips(h.config.SmallBlind)
	h.record(sb, ActionSB, posted)

	bb := h.seats[h.bbSeat]
	posted = bb.commitChips(h.config.BigBlind)
	h.record(bb, ActionBB, posted)

	// to_call is the full big blind even when the blind went in short
	h.currentBet = h.config.BigBlind
	h.lastRaiseSize = h.config.BigBlind
	// the big blind is the street's implicit opening bet
	h.raiseCount = 1
	h.aggressorSeat = h.bbSeat
	h.lastAggressor = h.bbSeat

	h.dealHoleCards()

	h.actingSeat = h.nextCanAct(h.bbSeat)
	if h.actingSeat == 0 || h.streetComplete() {
		// the blinds put everyone all-in
		return h.settleStreet()
	}
	return nil
}

func (h *HandState) postAnte(seat *Seat) {
	amount := h.config.Ante
	if amount > seat.Stack {
		amount = seat.Stack
	}
	seat.Stack -= amount
	seat.TotalContrib += amount
	h.potTotal += amount
	if seat.Stack == 0 {
		seat.Status = StatusAllIn
	}
	h.record(seat, ActionAnte, amount)
}

func (h *HandState) dealHoleCards() {
	order := make([]uint32, 0, h.countInHand())
	seatNo := h.nextInHand(h.buttonSeat)
	for i := 0; i < h.countInHand(); i++ {
		order = append(order, seatNo)
		seatNo = h.nextInHand(seatNo)
	}
	// one card at a time around the table, twice
	for round := 0; round < 2; round++ {
		for _, no := range order {
			h.seats[no].Cards = append(h.seats[no].Cards, h.draw(1)...)
		}
	}
}

func (h *HandState) draw(n int) []poker.Card {
	h.cardsDealt += n
	return h.deck.Draw(n)
}

func (h *HandState) burn() {
	h.cardsDealt++
	h.deck.Burn()
}

func (h *HandState) record(seat *Seat, action ActionType, amount int64) {
	h.actions = append(h.actions, &HandAction{
		SeatNo: seat.SeatNo,
		Player: seat.Name,
		Action: action,
		Amount: amount,
		Stage:  h.stage,
	})
	if max := h.config.MaxActionHistory; max > 0 && len(h.actions) > max {
		h.actions = h.actions[len(h.actions)-max:]
	}
	h.actionNum++
}

// seat iteration helpers; all wrap clockwise around the table

func (h *HandState) nextSeat(from uint32, pred func(*Seat) bool) uint32 {
	for offset := uint32(1); offset <= h.maxSeats; offset++ {
		seatNo := (from+offset-1)%h.maxSeats + 1
		seat := h.seats[seatNo]
		if seat != nil && pred(seat) {
			return seatNo
		}
	}
	return 0
}

func (h *HandState) nextInHand(from uint32) uint32 {
	return h.nextSeat(from, func(s *Seat) bool { return s.inHand() })
}

func (h *HandState) nextCanAct(from uint32) uint32 {
	return h.nextSeat(from, func(s *Seat) bool { return s.canAct() })
}

func (h *HandState) countInHand() int {
	count := 0
	for _, seat := range h.seats {
		if seat != nil && seat.inHand() {
			count++
		}
	}
	return count
}

func (h *HandState) countActive() int {
	count := 0
	for _, seat := range h.seats {
		if seat != nil && seat.active() {
			count++
		}
	}
	return count
}

func (h *HandState) countCanAct() int {
	count := 0
	for _, seat := range h.seats {
		if seat != nil && seat.canAct() {
			count++
		}
	}
	return count
}

func (h *HandState) toCall(seat *Seat) int64 {
	toCall := h.currentBet - seat.CurrentBet
	if toCall < 0 {
		toCall = 0
	}
	return toCall
}

// tableBets sums the current street bets of every in-hand seat except one.
func (h *HandState) tableBets(except uint32) int64 {
	total := int64(0)
	for _, seat := range h.seats {
		if seat != nil && seat.inHand() && seat.SeatNo != except {
			total += seat.CurrentBet
		}
	}
	return total
}

func (h *HandState) raiseCapReached() bool {
	maxRaises := h.rule.MaxRaisesPerStreet()
	return maxRaises > 0 && h.raiseCount >= maxRaises
}

// actionReceived validates and applies one player action. A GameError return
// means the action was rejected and nothing changed.
func (h *HandState) actionReceived(seatNo uint32, action ActionType, amount int64) error {
	if h.finished {
		return newGameError(CodeIllegalAction, "the hand has ended")
	}
	if h.actingSeat == 0 || seatNo != h.actingSeat {
		return newGameError(CodeNotYourTurn, "it is not your turn")
	}
	seat := h.seats[seatNo]
	toCall := h.toCall(seat)

	switch action {
	case ActionFold:
		seat.Status = StatusFolded
		seat.HasActed = true
		h.record(seat, ActionFold, 0)

	case ActionCheck:
		if toCall > 0 {
			return newGameError(CodeIllegalAction, "cannot check, %d to call", toCall)
		}
		seat.HasActed = true
		h.record(seat, ActionCheck, 0)

	case ActionCall:
		if toCall == 0 {
			seat.HasActed = true
			h.record(seat, ActionCheck, 0)
			break
		}
		paid := seat.commitChips(toCall)
		seat.HasActed = true
		if seat.Status == StatusAllIn {
			h.record(seat, ActionAllIn, seat.CurrentBet)
		} else {
			h.record(seat, ActionCall, paid)
		}

	case ActionBet:
		if h.currentBet > 0 {
			return newGameError(CodeIllegalAction, "a bet was already placed, raise instead")
		}
		if h.raiseCapReached() {
			return newGameError(CodeRaiseCapReached, "betting is capped for this street")
		}
		minBet := h.rule.MinBet(h.config.BigBlind, h.stage)
		maxBet := h.rule.MaxRaise(seat.Stack, 0, h.potTotal, h.tableBets(seatNo), h.config.BigBlind, h.stage)
		if amount <= 0 {
			return newGameError(CodeInvalidMessage, "bet amount must be positive")
		}
		if amount > maxBet {
			return newGameError(CodeAboveMaxRaise, "bet %d is above the maximum %d", amount, maxBet)
		}
		if amount < minBet && amount != seat.Stack {
			return newGameError(CodeBelowMinRaise, "bet %d is below the minimum %d", amount, minBet)
		}
		h.applyAggression(seat, amount, ActionBet)

	case ActionRaise:
		if h.currentBet == 0 {
			return newGameError(CodeIllegalAction, "no bet to raise, bet instead")
		}
		if seat.HasActed {
			// facing a short all-in after acting: call or fold only
			return newGameError(CodeIllegalAction, "the action was not reopened")
		}
		if h.raiseCapReached() {
			return newGameError(CodeRaiseCapReached, "raising is capped for this street")
		}
		minRaise := h.rule.MinRaise(h.config.BigBlind, h.stage, h.lastRaiseSize)
		maxRaise := h.rule.MaxRaise(seat.Stack, toCall, h.potTotal, h.tableBets(seatNo), h.config.BigBlind, h.stage)
		if amount <= 0 {
			return newGameError(CodeInvalidMessage, "raise amount must be positive")
		}
		if maxRaise <= 0 {
			return newGameError(CodeIllegalAction, "not enough chips to raise")
		}
		if amount > maxRaise {
			return newGameError(CodeAboveMaxRaise, "raise %d is above the maximum %d", amount, maxRaise)
		}
		allInForLess := toCall+amount == seat.Stack
		if amount < minRaise && !allInForLess {
			return newGameError(CodeBelowMinRaise, "raise %d is below the minimum %d", amount, minRaise)
		}
		h.applyAggression(seat, amount, ActionRaise)

	case ActionAllIn:
		if seat.Stack == 0 {
			return newGameError(CodeIllegalAction, "no chips left")
		}
		h.applyAllIn(seat)

	default:
		return newGameError(CodeInvalidMessage, "unknown action %s", action)
	}

	return h.progress(seatNo)
}

// applyAggression commits a bet or raise-by increment on top of the call.
func (h *HandState) applyAggression(seat *Seat, raiseBy int64, kind ActionType) {
	toCall := h.toCall(seat)
	fullRaise := raiseBy >= h.rule.MinRaise(h.config.BigBlind, h.stage, h.lastRaiseSize) || h.currentBet == 0

	seat.commitChips(toCall + raiseBy)
	h.currentBet = seat.CurrentBet
	if fullRaise {
		h.lastRaiseSize = raiseBy
		h.raiseCount++
		h.aggressorSeat = seat.SeatNo
		h.lastAggressor = seat.SeatNo
		h.reopenAction(seat.SeatNo)
	}
	seat.HasActed = true

	if seat.Status == StatusAllIn {
		h.record(seat, ActionAllIn, seat.CurrentBet)
	} else {
		h.record(seat, kind, raiseBy)
	}
}

// applyAllIn pushes the whole stack. A push above the current bet by at least
// a minimum raise reopens the action; a short all-in does not.
func (h *HandState) applyAllIn(seat *Seat) {
	seat.commitChips(seat.Stack)
	newBet := seat.CurrentBet

	if newBet > h.currentBet {
		raiseBy := newBet - h.currentBet
		minRaise := h.rule.MinRaise(h.config.BigBlind, h.stage, h.lastRaiseSize)
		if raiseBy >= minRaise || h.currentBet == 0 {
			h.lastRaiseSize = raiseBy
			h.raiseCount++
			h.aggressorSeat = seat.SeatNo
			h.lastAggressor = seat.SeatNo
			h.reopenAction(seat.SeatNo)
		}
		h.currentBet = newBet
	}
	seat.HasActed = true
	h.record(seat, ActionAllIn, newBet)
}

// reopenAction gives every other live seat a fresh turn after a full raise.
func (h *HandState) reopenAction(except uint32) {
	for _, seat := range h.seats {
		if seat != nil && seat.canAct() && seat.SeatNo != except {
			seat.HasActed = false
		}
	}
}

// progress moves to the next acting seat, settles the street, or ends the
// hand after an accepted action.
func (h *HandState) progress(lastSeat uint32) error {
	if h.countActive() == 1 {
		return h.finishUncontested()
	}
	if h.streetComplete() {
		return h.settleStreet()
	}
	h.actingSeat = h.nextCanAct(lastSeat)
	return nil
}

// streetComplete: every live seat has acted and matched the street bet.
func (h *HandState) streetComplete() bool {
	for _, seat := range h.seats {
		if seat == nil || !seat.canAct() {
			continue
		}
		if !seat.HasActed {
			return false
		}
		if seat.CurrentBet != h.currentBet {
			return false
		}
	}
	return true
}

// settleStreet folds the street bets into the pot and advances the stage.
// When one or zero seats can still act, the remaining board is dealt out
// without further betting.
func (h *HandState) settleStreet() error {
	for _, seat := range h.seats {
		if seat == nil || !seat.inHand() {
			continue
		}
		h.potTotal += seat.CurrentBet
		seat.resetForNewStreet()
	}
	h.currentBet = 0
	h.lastRaiseSize = 0
	h.raiseCount = 0
	h.aggressorSeat = 0
	h.actingSeat = 0

	if err := h.checkInvariants(); err != nil {
		return err
	}

	for {
		switch h.stage {
		case StagePreflop:
			h.stage = StageFlop
			h.burn()
			h.community = append(h.community, h.draw(3)...)
		case StageFlop:
			h.stage = StageTurn
			h.burn()
			h.community = append(h.community, h.draw(1)...)
		case StageTurn:
			h.stage = StageRiver
			h.burn()
			h.community = append(h.community, h.draw(1)...)
		case StageRiver:
			return h.showdown()
		}

		if h.countCanAct() > 1 {
			h.actingSeat = h.nextCanAct(h.buttonSeat)
			return nil
		}
		// betting is closed; run the board out
	}
}

// showdown evaluates the live hands, builds the pots and pays the winners.
func (h *HandState) showdown() error {
	h.stage = StageShowdown
	h.actingSeat = 0

	contributions := make(map[uint32]int64)
	folded := make(map[uint32]bool)
	ranks := make(map[uint32]int32)
	for _, seat := range h.seats {
		if seat == nil || !seat.inHand() {
			continue
		}
		contributions[seat.SeatNo] = seat.TotalContrib
		if seat.Status == StatusFolded {
			folded[seat.SeatNo] = true
			continue
		}
		cards := make([]poker.Card, 0, 7)
		cards = append(cards, seat.Cards...)
		cards = append(cards, h.community...)
		rank, _ := poker.Evaluate(cards)
		ranks[seat.SeatNo] = rank
	}

	h.pots = buildPots(contributions, folded)
	if total := totalPotAmount(h.pots); total != h.potTotal {
		return InvariantViolationError{
			Msg: "pot total does not match collected chips",
		}
	}
	if err := h.checkInvariants(); err != nil {
		return err
	}

	winnings := distributePots(h.pots, ranks, h.buttonSeat, h.maxSeats)
	winners := make([]WinnerInfo, 0, len(winnings))
	start := h.lastAggressor
	if start == 0 {
		start = h.nextInHand(h.buttonSeat)
	}
	seatNo := start
	for i := uint32(0); i < h.maxSeats; i++ {
		if amount, ok := winnings[seatNo]; ok && amount > 0 {
			seat := h.seats[seatNo]
			seat.Stack += amount
			winners = append(winners, WinnerInfo{
				SeatNo:   seatNo,
				Name:     seat.Name,
				Amount:   amount,
				HandName: poker.RankString(ranks[seatNo]),
			})
		}
		seatNo = seatNo%h.maxSeats + 1
	}

	h.result = &HandResult{Winners: winners}
	h.finished = true
	return nil
}

// finishUncontested awards the whole pot to the last seat standing without a
// showdown. Hole cards stay hidden.
func (h *HandState) finishUncontested() error {
	var survivor *Seat
	for _, seat := range h.seats {
		if seat != nil && seat.active() {
			survivor = seat
			break
		}
	}

	for _, seat := range h.seats {
		if seat == nil || !seat.inHand() {
			continue
		}
		h.potTotal += seat.CurrentBet
		seat.resetForNewStreet()
	}
	if err := h.checkInvariants(); err != nil {
		return err
	}

	h.pots = []*Pot{{Amount: h.potTotal, EligibleSeats: []uint32{survivor.SeatNo}}}
	survivor.Stack += h.potTotal
	h.stage = StageShowdown
	h.actingSeat = 0
	h.result = &HandResult{
		Winners:     []WinnerInfo{{SeatNo: survivor.SeatNo, Name: survivor.Name, Amount: h.potTotal}},
		Uncontested: true,
	}
	h.finished = true
	return nil
}

// seatLeft folds a seat that left mid-hand and moves the hand along if that
// fold closes the action.
func (h *HandState) seatLeft(seatNo uint32) error {
	if h.finished {
		return nil
	}
	seat := h.seats[seatNo]
	if seat == nil || !seat.inHand() {
		return nil
	}
	if seat.active() && h.countActive() == 1 {
		// everyone else already folded; the leaver takes the pot out the door
		return h.finishUncontested()
	}
	if h.actingSeat == seatNo {
		return h.actionReceived(seatNo, ActionFold, 0)
	}
	if seat.Status != StatusFolded {
		seat.Status = StatusFolded
		seat.HasActed = true
		h.record(seat, ActionFold, 0)
	}
	if h.countActive() == 1 {
		return h.finishUncontested()
	}
	if h.actingSeat != 0 && h.streetComplete() {
		return h.settleStreet()
	}
	return nil
}

// checkInvariants verifies chip conservation and deck accounting. A failure
// here is fatal for the room.
func (h *HandState) checkInvariants() error {
	total := h.potTotal
	for _, seat := range h.seats {
		if seat != nil && seat.inHand() {
			total += seat.Stack + seat.CurrentBet
		}
	}
	if total != h.totalChipsAtStart {
		handLogger.Error().
			Str("room", h.roomID).
			Uint32("hand", h.handNum).
			Msgf("Chip conservation violated: have %d, started with %d", total, h.totalChipsAtStart)
		return InvariantViolationError{Msg: "chip conservation violated"}
	}
	if h.cardsDealt+h.deck.Remaining() != 52 {
		handLogger.Error().
			Str("room", h.roomID).
			Uint32("hand", h.handNum).
			Msgf("Deck corrupted: %d dealt, %d remaining", h.cardsDealt, h.deck.Remaining())
		return InvariantViolationError{Msg: "deck corrupted"}
	}
	return nil
}

// legalBounds computes the viewer's action bounds for a snapshot.
func (h *HandState) legalBounds(seat *Seat) (toCall, minRaise, maxRaise int64, canRaise bool) {
	if seat == nil || !seat.canAct() {
		return 0, 0, 0, false
	}
	toCall = h.toCall(seat)
	if h.currentBet == 0 {
		minRaise = h.rule.MinBet(h.config.BigBlind, h.stage)
	} else {
		minRaise = h.rule.MinRaise(h.config.BigBlind, h.stage, h.lastRaiseSize)
	}
	maxRaise = h.rule.MaxRaise(seat.Stack, toCall, h.potTotal, h.tableBets(seat.SeatNo), h.config.BigBlind, h.stage)
	canRaise = !h.raiseCapReached() && maxRaise > 0
	return toCall, minRaise, maxRaise, canRaise
}

// potOnTable is the display pot: collected chips plus the live street bets.
func (h *HandState) potOnTable() int64 {
	total := h.potTotal
	for _, seat := range h.seats {
		if seat != nil && seat.inHand() {
			total += seat.CurrentBet
		}
	}
	return total
}
