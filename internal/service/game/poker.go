package game

import "sort"

// Texas Hold'em with ante-based betting: four streets (preflop, flop,
// turn, river) over two hole cards and five community cards.
type pokerRules struct{}

func (pokerRules) variant() Variant { return VariantPoker }

func (pokerRules) rounds() int { return 4 }

func (pokerRules) deal(s *Session) error {
	for _, st := range s.inHandSeats() {
		hole, err := s.deck.DrawN(2)
		if err != nil {
			return err
		}
		st.Hole = hole
	}
	s.board = nil
	return nil
}

func (pokerRules) startRound(s *Session, k int) error {
	var draw int
	switch k {
	case 1:
		draw = 3
	case 2, 3:
		draw = 1
	}
	if draw > 0 {
		cards, err := s.deck.DrawN(draw)
		if err != nil {
			return err
		}
		s.board = append(s.board, cards...)
	}
	return nil
}

func (pokerRules) legal(s *Session, st *seat) []ActionType {
	if st.Status != StatusActive {
		return nil
	}
	actions := []ActionType{ActionFold}
	if s.currentBet == st.BetThisRound {
		actions = append(actions, ActionCheck)
		if s.currentBet == 0 {
			actions = append(actions, ActionBet)
		} else if st.Stack > 0 {
			actions = append(actions, ActionRaise)
		}
	} else {
		actions = append(actions, ActionCall)
		if st.Stack > s.currentBet-st.BetThisRound {
			actions = append(actions, ActionRaise)
		}
	}
	return actions
}

func (pokerRules) defaultAction() ActionType { return ActionFold }

func (r pokerRules) apply(s *Session, st *seat, a *Action) (bool, error) {
	switch a.Type {
	case ActionFold:
		st.Status = StatusFolded
		delete(s.needAction, st.Seat)

	case ActionCheck:
		if s.currentBet != st.BetThisRound {
			return false, errValidation("cannot check facing a bet of %d", s.currentBet)
		}
		delete(s.needAction, st.Seat)

	case ActionBet:
		if s.currentBet != 0 {
			return false, errValidation("cannot bet facing a bet, raise instead")
		}
		var p amountPayload
		decodePayload(a.Payload, &p)
		if p.Amount <= 0 {
			return false, errValidation("bet amount required")
		}
		if p.Amount > st.Stack {
			return false, errValidation("bet %d exceeds stack %d", p.Amount, st.Stack)
		}
		s.commitChips(st, p.Amount)
		s.currentBet = st.BetThisRound
		r.reopenAction(s, st)

	case ActionCall:
		need := s.currentBet - st.BetThisRound
		if need <= 0 {
			return false, errValidation("nothing to call")
		}
		if need > st.Stack {
			need = st.Stack // call for less, all-in
		}
		s.commitChips(st, need)
		delete(s.needAction, st.Seat)

	case ActionRaise:
		var p amountPayload
		decodePayload(a.Payload, &p)
		if p.Amount <= s.currentBet {
			return false, errValidation("raise must exceed current bet %d", s.currentBet)
		}
		need := p.Amount - st.BetThisRound
		if need <= 0 || need > st.Stack {
			return false, errValidation("raise to %d not coverable by stack", p.Amount)
		}
		s.commitChips(st, need)
		s.currentBet = st.BetThisRound
		r.reopenAction(s, st)

	default:
		return false, errValidation("action %q not legal in poker", a.Type)
	}
	return true, nil
}

// reopenAction re-obligates every other live player after a bet or raise;
// the aggressor is done for the round unless re-raised.
func (pokerRules) reopenAction(s *Session, aggressor *seat) {
	s.needAction = make(map[int]bool)
	for _, st := range s.inHandSeats() {
		if st.Status == StatusActive && st.Seat != aggressor.Seat {
			s.needAction[st.Seat] = true
		}
	}
}

func (pokerRules) roundComplete(s *Session) bool {
	return len(s.needAction) == 0
}

func (pokerRules) settle(s *Session) (*handResult, error) {
	contested := func(playerID int64) bool {
		st := s.seatOf(playerID)
		return st != nil && (st.Status == StatusActive || st.Status == StatusAllIn)
	}
	pots := buildPots(s.handContribs, contested)

	values := make(map[int64]HandValue)
	for _, st := range s.inHandSeats() {
		if contested(st.PlayerID) {
			values[st.PlayerID] = BestHand(append(append([]string(nil), st.Hole...), s.board...))
		}
	}

	shares := make(map[int64]int64)
	for _, pot := range pots {
		winners := potWinners(pot, values)
		if len(winners) == 0 {
			// Every eligible player is gone; hand it to the lowest live seat.
			if st := lowestLiveSeat(s); st != nil {
				shares[st.PlayerID] += pot.Amount
			}
			continue
		}
		sort.Slice(winners, func(i, j int) bool {
			return s.seatOf(winners[i]).Seat < s.seatOf(winners[j]).Seat
		})
		split := pot.Amount / int64(len(winners))
		rem := pot.Amount % int64(len(winners))
		for i, pid := range winners {
			amount := split
			if int64(i) < rem {
				amount++
			}
			shares[pid] += amount
		}
	}

	reveal := make(map[int][]string)
	for _, st := range s.inHandSeats() {
		if contested(st.PlayerID) {
			reveal[st.Seat] = append([]string(nil), st.Hole...)
		}
	}

	return &handResult{
		potTotal: s.potTotal,
		pots:     pots,
		shares:   shares,
		reveal:   reveal,
	}, nil
}

func potWinners(pot Pot, values map[int64]HandValue) []int64 {
	var winners []int64
	var best HandValue
	for _, pid := range pot.Eligible {
		v, ok := values[pid]
		if !ok {
			continue
		}
		if len(winners) == 0 {
			winners = []int64{pid}
			best = v
			continue
		}
		switch v.Compare(best) {
		case 1:
			winners = winners[:0]
			winners = append(winners, pid)
			best = v
		case 0:
			winners = append(winners, pid)
		}
	}
	return winners
}

func lowestLiveSeat(s *Session) *seat {
	var out *seat
	for _, st := range s.inHandSeats() {
		if out == nil || st.Seat < out.Seat {
			out = st
		}
	}
	return out
}
