package game

import (
	"voyager.com/holdem/poker"
)

// HandCard is a card as shown to a viewer: either the face or a hidden
// marker.
type HandCard struct {
	Rank   string `json:"rank,omitempty"`
	Suit   string `json:"suit,omitempty"`
	Color  string `json:"color,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
}

func faceCard(c poker.Card) HandCard {
	return HandCard{Rank: c.RankDisplay(), Suit: c.SuitGlyph(), Color: c.Color()}
}

func faceCards(cards []poker.Card) []HandCard {
	out := make([]HandCard, len(cards))
	for i, c := range cards {
		out[i] = faceCard(c)
	}
	return out
}

func hiddenCards(n int) []HandCard {
	out := make([]HandCard, n)
	for i := range out {
		out[i] = HandCard{Hidden: true}
	}
	return out
}

type PlayerSnapshot struct {
	Name       string     `json:"name"`
	Chips      int64      `json:"chips"`
	CurrentBet int64      `json:"current_bet"`
	IsDealer   bool       `json:"is_dealer"`
	IsSB       bool       `json:"is_sb"`
	IsBB       bool       `json:"is_bb"`
	IsSelf     bool       `json:"is_self"`
	IsCurrent  bool       `json:"is_current"`
	Folded     bool       `json:"folded"`
	AllIn      bool       `json:"all_in"`
	Hand       []HandCard `json:"hand"`
}

// Snapshot is a complete, viewer-personalised description of room state,
// broadcast after every accepted action.
type Snapshot struct {
	RoomID          string           `json:"room_id"`
	RoomName        string           `json:"room_name"`
	Stage           GameStage        `json:"stage"`
	CommunityCards  []HandCard       `json:"community_cards"`
	MainPot         int64            `json:"main_pot"`
	SidePots        []*Pot           `json:"side_pots"`
	SmallBlind      int64            `json:"small_blind"`
	BigBlind        int64            `json:"big_blind"`
	Ante            int64            `json:"ante"`
	BettingMode     BettingMode      `json:"betting_mode"`
	Players         []PlayerSnapshot `json:"players"`
	IsMyTurn        bool             `json:"is_my_turn"`
	ToCall          int64            `json:"to_call"`
	MinRaise        int64            `json:"min_raise"`
	MaxRaise        int64            `json:"max_raise"`
	CanRaise        bool             `json:"can_raise"`
	HasBetThisRound bool             `json:"has_bet_this_round"`
	RemainingTime   uint32           `json:"remaining_time"`
	ActionHistory   []*HandAction    `json:"action_history"`
	Winners         []WinnerInfo     `json:"winners,omitempty"`
	IsRoomOwner     bool             `json:"is_room_owner"`
	CanStart        bool             `json:"can_start"`
}

// buildSnapshot derives one viewer's state. Hole cards of other seats are
// replaced by hidden markers unless the hand reached a contested showdown.
func (r *Room) buildSnapshot(viewerID string) *Snapshot {
	h := r.hand
	snapshot := &Snapshot{
		RoomID:      r.roomID,
		RoomName:    r.config.RoomName,
		Stage:       StageWaiting,
		SmallBlind:  r.config.SmallBlind,
		BigBlind:    r.config.BigBlind,
		Ante:        r.config.Ante,
		BettingMode: r.config.Mode,
		IsRoomOwner: r.ownerID == viewerID,
		CanStart:    r.canStart(),
	}

	revealAll := false
	if h != nil {
		snapshot.Stage = h.stage
		snapshot.CommunityCards = faceCards(h.community)
		snapshot.HasBetThisRound = h.currentBet > 0
		if len(h.pots) > 0 {
			snapshot.MainPot = h.pots[0].Amount
			snapshot.SidePots = h.pots[1:]
		} else {
			snapshot.MainPot = h.potOnTable()
			snapshot.SidePots = []*Pot{}
		}
		if n := len(h.actions); n > maxHistoryInSnapshot {
			snapshot.ActionHistory = h.actions[n-maxHistoryInSnapshot:]
		} else {
			snapshot.ActionHistory = h.actions
		}
		if !h.finished && h.actingSeat != 0 {
			snapshot.RemainingTime = r.actionTimer.GetRemainingSec()
		}
		if h.finished && h.result != nil {
			snapshot.Winners = h.result.Winners
			revealAll = h.stage == StageShowdown && !h.result.Uncontested
		}
	}

	for seatNo := uint32(1); seatNo <= MaxSeats; seatNo++ {
		seat := r.seats[seatNo]
		if seat == nil {
			continue
		}
		isSelf := seat.PlayerID == viewerID
		ps := PlayerSnapshot{
			Name:       seat.Name,
			Chips:      seat.Stack,
			CurrentBet: seat.CurrentBet,
			IsSelf:     isSelf,
			Folded:     seat.Status == StatusFolded,
			AllIn:      seat.Status == StatusAllIn,
		}
		if h != nil {
			ps.IsDealer = seat.SeatNo == h.buttonSeat
			ps.IsSB = seat.SeatNo == h.sbSeat
			ps.IsBB = seat.SeatNo == h.bbSeat
			ps.IsCurrent = seat.SeatNo == h.actingSeat
		}
		switch {
		case len(seat.Cards) == 0:
			ps.Hand = []HandCard{}
		case isSelf || (revealAll && seat.Status != StatusFolded):
			ps.Hand = faceCards(seat.Cards)
		default:
			ps.Hand = hiddenCards(len(seat.Cards))
		}
		snapshot.Players = append(snapshot.Players, ps)

		if isSelf && h != nil && !h.finished {
			toCall, minRaise, maxRaise, canRaise := h.legalBounds(seat)
			snapshot.ToCall = toCall
			snapshot.MinRaise = minRaise
			snapshot.MaxRaise = maxRaise
			snapshot.CanRaise = canRaise
			snapshot.IsMyTurn = seat.SeatNo == h.actingSeat
		}
	}

	return snapshot
}

const maxHistoryInSnapshot = 10
