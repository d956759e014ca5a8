package game

import (
	"sort"
)

// Pot is one layer of the pot: chips plus the seats that can win them. A seat
// is eligible iff it contributed at least the pot's cap and did not fold.
// Folded chips still count toward the amount.
type Pot struct {
	Amount        int64    `json:"amount"`
	EligibleSeats []uint32 `json:"eligible_seats"`
	cap           int64
}

func (p *Pot) eligible(seatNo uint32) bool {
	for _, s := range p.EligibleSeats {
		if s == seatNo {
			return true
		}
	}
	return false
}

// buildPots layers the per-seat hand contributions into a main pot and side
// pots. Each layer's cap is the next-lowest distinct contribution; consecutive
// layers with identical eligibility collapse into one pot.
func buildPots(contributions map[uint32]int64, folded map[uint32]bool) []*Pot {
	levels := make([]int64, 0, len(contributions))
	for _, amount := range contributions {
		if amount <= 0 {
			continue
		}
		found := false
		for _, l := range levels {
			if l == amount {
				found = true
				break
			}
		}
		if !found {
			levels = append(levels, amount)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]*Pot, 0, len(levels))
	prevLevel := int64(0)
	for _, level := range levels {
		pot := &Pot{cap: level}
		for seatNo, amount := range contributions {
			layer := amount
			if layer > level {
				layer = level
			}
			layer -= prevLevel
			if layer <= 0 {
				continue
			}
			pot.Amount += layer
			if amount >= level && !folded[seatNo] {
				pot.EligibleSeats = append(pot.EligibleSeats, seatNo)
			}
		}
		sort.Slice(pot.EligibleSeats, func(i, j int) bool {
			return pot.EligibleSeats[i] < pot.EligibleSeats[j]
		})
		prevLevel = level

		if n := len(pots); n > 0 && sameSeats(pots[n-1].EligibleSeats, pot.EligibleSeats) {
			pots[n-1].Amount += pot.Amount
			pots[n-1].cap = pot.cap
			continue
		}
		pots = append(pots, pot)
	}
	return pots
}

func sameSeats(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// distributePots awards each pot to its best eligible hand(s). ranks maps seat
// number to evaluator rank (lower is stronger). Split pots divide equally;
// odd chips go to the winners nearest clockwise from the button. Returns the
// per-seat winnings.
func distributePots(pots []*Pot, ranks map[uint32]int32, buttonSeat uint32, maxSeats uint32) map[uint32]int64 {
	winnings := make(map[uint32]int64)
	for _, pot := range pots {
		if pot.Amount == 0 {
			continue
		}

		best := int32(0)
		var potWinners []uint32
		for _, seatNo := range pot.EligibleSeats {
			rank, ok := ranks[seatNo]
			if !ok {
				continue
			}
			if best == 0 || rank < best {
				best = rank
				potWinners = []uint32{seatNo}
			} else if rank == best {
				potWinners = append(potWinners, seatNo)
			}
		}
		if len(potWinners) == 0 {
			continue
		}

		share := pot.Amount / int64(len(potWinners))
		remainder := pot.Amount % int64(len(potWinners))
		for _, seatNo := range potWinners {
			winnings[seatNo] += share
		}
		// odd chips clockwise from the button
		for offset := uint32(1); offset <= maxSeats && remainder > 0; offset++ {
			seatNo := (buttonSeat+offset-1)%maxSeats + 1
			for _, w := range potWinners {
				if w == seatNo {
					winnings[seatNo]++
					remainder--
					break
				}
			}
		}
	}
	return winnings
}

func totalPotAmount(pots []*Pot) int64 {
	total := int64(0)
	for _, pot := range pots {
		total += pot.Amount
	}
	return total
}
