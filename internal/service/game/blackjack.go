package game

// BlackjackTotal returns the best blackjack value of a hand and whether it
// is soft (an ace still counted as eleven). Aces count as eleven unless
// that would bust.
func BlackjackTotal(cards []string) (int, bool) {
	total := 0
	aces := 0
	for _, card := range cards {
		v := rankValue(card[0])
		switch {
		case v == 14:
			aces++
			total += 11
		case v >= 10:
			total += 10
		default:
			total += v
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total, aces > 0
}

const (
	blackjackBust        = 21
	blackjackDealerStand = 17
)

type blackjackRules struct{}

func (blackjackRules) variant() Variant { return VariantBlackjack }

func (blackjackRules) rounds() int { return 1 }

func (blackjackRules) deal(s *Session) error {
	for _, st := range s.inHandSeats() {
		hole, err := s.deck.DrawN(2)
		if err != nil {
			return err
		}
		st.Hole = hole
	}
	dealer, err := s.deck.DrawN(2)
	if err != nil {
		return err
	}
	s.dealerCards = dealer
	return nil
}

func (blackjackRules) startRound(s *Session, k int) error { return nil }

func (blackjackRules) legal(s *Session, st *seat) []ActionType {
	if st.Stood || st.Busted {
		return nil
	}
	return []ActionType{ActionHit, ActionStand}
}

func (blackjackRules) defaultAction() ActionType { return ActionStand }

// apply handles hit/stand. A player who hits and does not bust keeps the
// turn, so apply reports whether the turn should advance.
func (blackjackRules) apply(s *Session, st *seat, a *Action) (bool, error) {
	switch a.Type {
	case ActionHit:
		card, err := s.deck.Draw()
		if err != nil {
			return false, err
		}
		st.Hole = append(st.Hole, card)
		s.pushPrivateCards(st)
		if total, _ := BlackjackTotal(st.Hole); total > blackjackBust {
			st.Busted = true
			st.Status = StatusFolded
			delete(s.needAction, st.Seat)
			return true, nil
		}
		return false, nil
	case ActionStand:
		st.Stood = true
		delete(s.needAction, st.Seat)
		return true, nil
	}
	return false, errValidation("action %q not legal in blackjack", a.Type)
}

func (blackjackRules) roundComplete(s *Session) bool {
	return len(s.needAction) == 0
}

// settle draws the dealer out to seventeen, then pays the pot. Players
// beating the dealer split the antes of everyone else; pushes get their
// ante back. If nobody beats the dealer every ante is returned, so the pot
// is consumed exactly once and chips are conserved.
func (blackjackRules) settle(s *Session) (*handResult, error) {
	for {
		total, _ := BlackjackTotal(s.dealerCards)
		if total >= blackjackDealerStand {
			break
		}
		card, err := s.deck.Draw()
		if err != nil {
			return nil, err
		}
		s.dealerCards = append(s.dealerCards, card)
	}
	dealerTotal, _ := BlackjackTotal(s.dealerCards)
	dealerBust := dealerTotal > blackjackBust

	var winners, pushes []*seat
	for _, st := range s.inHandSeats() {
		if st.Busted || st.Status == StatusFolded {
			continue
		}
		total, _ := BlackjackTotal(st.Hole)
		switch {
		case dealerBust || total > dealerTotal:
			winners = append(winners, st)
		case total == dealerTotal:
			pushes = append(pushes, st)
		}
	}

	shares := make(map[int64]int64)
	remaining := s.potTotal

	if len(winners) == 0 {
		// Dealer beats the table: push semantics, antes go back.
		for _, st := range s.inHandSeats() {
			if contrib := s.handContribs[st.PlayerID]; contrib > 0 {
				shares[st.PlayerID] += contrib
				remaining -= contrib
			}
		}
	} else {
		for _, st := range pushes {
			refund := s.handContribs[st.PlayerID]
			shares[st.PlayerID] += refund
			remaining -= refund
		}
		sortSeatsByIndex(winners)
		split := remaining / int64(len(winners))
		rem := remaining % int64(len(winners))
		for i, st := range winners {
			amount := split
			if int64(i) < rem {
				amount++
			}
			shares[st.PlayerID] += amount
		}
		remaining = 0
	}
	if remaining != 0 && len(winners) == 0 {
		// Contributions from players who left mid-hand have no refund
		// target; they go to the best remaining total, lowest seat first.
		if target := lowestSeatStanding(s); target != nil {
			shares[target.PlayerID] += remaining
		}
	}

	reveal := make(map[int][]string)
	for _, st := range s.inHandSeats() {
		reveal[st.Seat] = append([]string(nil), st.Hole...)
	}

	return &handResult{
		potTotal: s.potTotal,
		shares:   shares,
		reveal:   reveal,
		dealer:   append([]string(nil), s.dealerCards...),
	}, nil
}

func lowestSeatStanding(s *Session) *seat {
	var out, any *seat
	for _, st := range s.inHandSeats() {
		if any == nil || st.Seat < any.Seat {
			any = st
		}
		if st.Busted {
			continue
		}
		if out == nil || st.Seat < out.Seat {
			out = st
		}
	}
	if out == nil {
		return any
	}
	return out
}
