package game

// ChannelState is the full visible state for one subscriber. Hole cards
// appear only in MyCards (own seat) and in Result reveals after showdown.
type ChannelState struct {
	ChannelID    string          `json:"channelId"`
	Variant      Variant         `json:"variant"`
	Phase        Phase           `json:"phase"`
	Round        int             `json:"round"`
	TurnSeat     int             `json:"turnSeat"`
	TurnDeadline int64           `json:"turnDeadline"` // unix ms, 0 when idle
	HandID       string          `json:"handId,omitempty"`
	Pot          int64           `json:"pot"`
	CurrentBet   int64           `json:"currentBet"`
	Board        []string        `json:"board,omitempty"`
	DealerUp     []string        `json:"dealerUp,omitempty"`
	Seats        []SeatView      `json:"seats"`
	MyCards      []string        `json:"myCards,omitempty"`
	Result       *HandResultView `json:"result,omitempty"`
}

type SeatView struct {
	Seat         int    `json:"seat"`
	PlayerID     int64  `json:"playerId,string"`
	Nickname     string `json:"nickname"`
	Stack        int64  `json:"stack"`
	BetThisRound int64  `json:"betThisRound"`
	Status       string `json:"status"`
	Busted       bool   `json:"busted,omitempty"`
	Stood        bool   `json:"stood,omitempty"`
}

// HandResultView is the published outcome of the last completed hand.
type HandResultView struct {
	HandID   string           `json:"handId"`
	PotTotal int64            `json:"potTotal"`
	Pots     []Pot            `json:"pots,omitempty"`
	Shares   []PayoutShare    `json:"shares"`
	Reveal   map[int][]string `json:"reveal,omitempty"`
	Dealer   []string         `json:"dealer,omitempty"`
	Seed     int64            `json:"seed"`
}

// ChannelInfo is the read-only admin introspection row.
type ChannelInfo struct {
	ChannelID   string  `json:"channelId"`
	Variant     Variant `json:"variant"`
	Phase       Phase   `json:"phase"`
	Players     int     `json:"players"`
	Subscribers int     `json:"subscribers"`
	Frozen      bool    `json:"frozen"`
	ServerSeq   int64   `json:"serverSeq"`
}

// seatViews exports the public view of every occupied seat. A seated
// player who lost their connection shows as "disconnected" while keeping
// their in-hand status server-side.
func (s *Session) seatViews() []SeatView {
	views := make([]SeatView, 0, len(s.seats))
	for _, st := range s.seats {
		if st == nil {
			continue
		}
		status := st.Status
		if !st.Connected {
			status = "disconnected"
		}
		views = append(views, SeatView{
			Seat:         st.Seat,
			PlayerID:     st.PlayerID,
			Nickname:     st.Nickname,
			Stack:        st.Stack,
			BetThisRound: st.BetThisRound,
			Status:       status,
			Busted:       st.Busted,
			Stood:        st.Stood,
		})
	}
	return views
}

// dealerUpCards hides the dealer's hole card until the hand resolves.
func (s *Session) dealerUpCards() []string {
	if len(s.dealerCards) == 0 {
		return nil
	}
	if s.phase == PhaseBetting || s.phase == PhaseDealing {
		return s.dealerCards[:1]
	}
	return append([]string(nil), s.dealerCards...)
}

// exportChanges is the delta payload: a complete overlay of every public
// field the current transition may have touched. Applying the same stream
// from the same start is deterministic by construction.
func (s *Session) exportChanges() []Change {
	return []Change{
		{Field: "phase", Value: s.phase},
		{Field: "round", Value: s.roundIdx},
		{Field: "turnSeat", Value: s.turnSeat},
		{Field: "turnDeadline", Value: s.turnDeadlineMillis()},
		{Field: "handId", Value: s.handID},
		{Field: "pot", Value: s.potTotal},
		{Field: "currentBet", Value: s.currentBet},
		{Field: "board", Value: append([]string(nil), s.board...)},
		{Field: "dealerUp", Value: s.dealerUpCards()},
		{Field: "seats", Value: s.seatViews()},
		{Field: "result", Value: s.lastResult},
	}
}

func (s *Session) exportState(role Role, playerID int64) *ChannelState {
	state := &ChannelState{
		ChannelID:    s.channelID,
		Variant:      s.rules.variant(),
		Phase:        s.phase,
		Round:        s.roundIdx,
		TurnSeat:     s.turnSeat,
		TurnDeadline: s.turnDeadlineMillis(),
		HandID:       s.handID,
		Pot:          s.potTotal,
		CurrentBet:   s.currentBet,
		Board:        append([]string(nil), s.board...),
		DealerUp:     s.dealerUpCards(),
		Seats:        s.seatViews(),
		Result:       s.lastResult,
	}
	if role == RolePlayer {
		if st := s.seatOf(playerID); st != nil {
			state.MyCards = append([]string(nil), st.Hole...)
		}
	}
	return state
}

func (s *Session) turnDeadlineMillis() int64 {
	if s.turnDeadline.IsZero() {
		return 0
	}
	return s.turnDeadline.UnixMilli()
}
