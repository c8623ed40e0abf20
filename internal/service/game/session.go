package game

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperr "cardroom-service/pkg/errors"
	"cardroom-service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// seat is one chair at the table. Connected tracks transport presence
// separately from hand status: a disconnected player stays in the current
// hand and is defaulted on their turns.
type seat struct {
	Seat         int
	PlayerID     int64
	Nickname     string
	Stack        int64
	BetThisRound int64
	Status       string
	Hole         []string
	Stood        bool
	Busted       bool
	Connected    bool

	graceTimer *time.Timer
}

// Session is the live engine for one channel. A single goroutine (run)
// owns all game state and consumes the commands queue; synthetic actions
// from timers travel the same queue, so arrival order is the only arbiter.
// Hub state (subscribers, delta log) lives under mu and is shared with the
// transport.
type Session struct {
	channelID string
	set       Settings
	rules     rules
	bank      ChipBank
	ledger    PayoutRecorder

	commands  chan *Action
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the actor goroutine.
	phase        Phase
	roundIdx     int
	seats        []*seat
	turnSeat     int
	turnEpoch    uint64
	turnDeadline time.Time
	turnTimer    *time.Timer
	dealTimer    *time.Timer
	currentBet   int64
	needAction   map[int]bool
	deck         *Deck
	board        []string
	dealerCards  []string
	handID       string
	handSeed     int64
	potTotal     int64
	handContribs map[int64]int64
	lastSeq      map[int64]int64
	lastResult   *HandResultView
	frozenReason string
	seedFn       func() int64

	mu           sync.Mutex
	subs         map[string]*subscriber
	deltaLog     []OutgoingMessage
	serverSeq    int64
	closed       bool
	frozen       bool
	frozenAt     time.Time
	statsPhase   Phase
	statsPlayers int
}

// NewSession merges the per-channel configuration over the registry
// defaults and starts the session goroutine.
func NewSession(channelID string, cfg TableConfig, set Settings, bank ChipBank, ledger PayoutRecorder) (*Session, error) {
	r, err := rulesFor(cfg.Variant)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if cfg.SeatCount > 0 {
		set.SeatCount = cfg.SeatCount
	}
	if cfg.Ante > 0 {
		set.Ante = cfg.Ante
	}
	if cfg.MinBuyIn > 0 {
		set.MinBuyIn = cfg.MinBuyIn
	}
	if cfg.MaxBuyIn > 0 {
		set.MaxBuyIn = cfg.MaxBuyIn
	}
	if cfg.TurnSeconds > 0 {
		set.TurnTimeout = time.Duration(cfg.TurnSeconds) * time.Second
	}

	s := &Session{
		channelID:    channelID,
		set:          set,
		rules:        r,
		bank:         bank,
		ledger:       ledger,
		commands:     make(chan *Action, set.QueueSize),
		done:         make(chan struct{}),
		phase:        PhaseWaiting,
		seats:        make([]*seat, set.SeatCount),
		turnSeat:     -1,
		needAction:   make(map[int]bool),
		handContribs: make(map[int64]int64),
		lastSeq:      make(map[int64]int64),
		seedFn:       func() int64 { return time.Now().UnixNano() },
		subs:         make(map[string]*subscriber),
		statsPhase:   PhaseWaiting,
	}
	go s.run()
	return s, nil
}

func (s *Session) ChannelID() string { return s.channelID }
func (s *Session) Variant() Variant  { return s.rules.variant() }

// Dispatch submits one client action and waits for the actor's verdict.
// A full queue is backpressure: the caller gets ErrResourceExhausted
// instead of blocking the transport indefinitely.
func (s *Session) Dispatch(ctx context.Context, a *Action) error {
	if !ClientActionType(a.Type) {
		return fmt.Errorf("%w: unknown action %q", apperr.ErrValidation, a.Type)
	}
	a.ChannelID = s.channelID
	a.reply = make(chan error, 1)

	timer := time.NewTimer(s.set.EnqueueTimeout)
	defer timer.Stop()
	select {
	case s.commands <- a:
	case <-timer.C:
		return fmt.Errorf("%w: action queue full", apperr.ErrResourceExhausted)
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return apperr.ErrSessionNotFound
	}

	select {
	case err := <-a.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return apperr.ErrSessionNotFound
	}
}

// enqueueInternal delivers synthetic actions (timers, hub bookkeeping).
// It blocks rather than drops: losing a timeout or disconnect event would
// wedge the turn cycle.
func (s *Session) enqueueInternal(a *Action) {
	a.synthetic = true
	select {
	case s.commands <- a:
	case <-s.done:
	}
}

// Close stops the session. Remaining stacks are cashed out and every
// subscriber channel is closed.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Health is the watchdog and introspection view. Player and phase figures
// are the last broadcast values, so reading them never touches actor state.
func (s *Session) Health() (frozen bool, frozenAt time.Time, subscribers, players int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frozen, s.frozenAt, len(s.subs), s.statsPlayers
}

func (s *Session) Info() ChannelInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ChannelInfo{
		ChannelID:   s.channelID,
		Variant:     s.rules.variant(),
		Phase:       s.statsPhase,
		Players:     s.statsPlayers,
		Subscribers: len(s.subs),
		Frozen:      s.frozen,
		ServerSeq:   s.serverSeq,
	}
}

func (s *Session) run() {
	for {
		select {
		case a := <-s.commands:
			err := s.handle(a)
			if a.reply != nil {
				a.reply <- err
			} else if err != nil {
				logger.Log.Debug("synthetic action rejected",
					zap.String("channelID", s.channelID),
					zap.String("action", string(a.Type)),
					zap.Error(err),
				)
			}
		case <-s.done:
			s.shutdown()
			return
		}
	}
}

func (s *Session) handle(a *Action) error {
	switch a.Type {
	case actionSubscribe:
		s.handleSubscribe(a)
		return nil
	case actionResume:
		s.handleResume(a)
		return nil
	case actionDisconnect:
		return s.handleDisconnect(a)
	case actionReconnect:
		return s.handleReconnect(a)
	case actionDeal:
		s.dealTimer = nil
		s.startHand()
		return nil
	}

	if s.phase == PhaseFrozen {
		return fmt.Errorf("%w: session frozen: %s", apperr.ErrInternalFault, s.frozenReason)
	}

	if !a.synthetic {
		if a.ClientSeq <= s.lastSeq[a.PlayerID] {
			return fmt.Errorf("%w: clientSeq %d already applied", apperr.ErrConcurrencyConflict, a.ClientSeq)
		}
	}

	var err error
	switch a.Type {
	case ActionJoin:
		err = s.handleJoin(a)
	case ActionLeave:
		err = s.handleLeave(a)
	default:
		err = s.handleTurnAction(a)
	}
	if err == nil && !a.synthetic {
		s.lastSeq[a.PlayerID] = a.ClientSeq
	}
	return err
}

func (s *Session) handleJoin(a *Action) error {
	if s.seatOf(a.PlayerID) != nil {
		return errValidation("player %d already seated", a.PlayerID)
	}
	var p joinPayload
	decodePayload(a.Payload, &p)
	if p.BuyIn < s.set.MinBuyIn {
		return errValidation("buy-in %d below minimum %d", p.BuyIn, s.set.MinBuyIn)
	}
	if s.set.MaxBuyIn > 0 && p.BuyIn > s.set.MaxBuyIn {
		return errValidation("buy-in %d above maximum %d", p.BuyIn, s.set.MaxBuyIn)
	}
	idx := -1
	for i, st := range s.seats {
		if st == nil {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errValidation("no free seats")
	}

	if err := s.bank.Debit(context.Background(), a.PlayerID, p.BuyIn, s.channelID); err != nil {
		return err
	}
	s.seats[idx] = &seat{
		Seat:      idx,
		PlayerID:  a.PlayerID,
		Nickname:  p.Nickname,
		Stack:     p.BuyIn,
		Status:    StatusSittingOut,
		Connected: true,
	}
	logger.Log.Info("player joined",
		zap.String("channelID", s.channelID),
		zap.Int64("playerID", a.PlayerID),
		zap.Int("seat", idx),
		zap.Int64("buyIn", p.BuyIn),
	)
	s.scheduleDeal()
	s.broadcast()
	return nil
}

func (s *Session) handleLeave(a *Action) error {
	st := s.seatOf(a.PlayerID)
	if st == nil {
		if a.synthetic {
			return nil
		}
		return errValidation("player %d not seated", a.PlayerID)
	}
	// A grace-expiry leave is void if the player reconnected in time.
	if a.synthetic && st.Connected {
		return nil
	}
	if st.graceTimer != nil {
		st.graceTimer.Stop()
		st.graceTimer = nil
	}

	inHand := s.phase == PhaseBetting &&
		(st.Status == StatusActive || st.Status == StatusAllIn)
	wasTurn := inHand && s.turnSeat == st.Seat

	stack := st.Stack
	st.Stack = 0
	st.Status = StatusFolded
	delete(s.needAction, st.Seat)
	s.seats[st.Seat] = nil
	delete(s.lastSeq, a.PlayerID)

	if stack > 0 {
		if err := s.bank.Credit(context.Background(), a.PlayerID, stack, s.channelID); err != nil {
			logger.Log.Error("cash-out on leave failed",
				zap.String("channelID", s.channelID),
				zap.Int64("playerID", a.PlayerID),
				zap.Int64("amount", stack),
				zap.Error(err),
			)
		}
	}
	logger.Log.Info("player left",
		zap.String("channelID", s.channelID),
		zap.Int64("playerID", a.PlayerID),
		zap.Bool("midHand", inHand),
	)

	if inHand {
		// Their past contributions stay in the pot.
		if s.contenderCount() <= 1 {
			s.cancelTurnTimer()
			return s.finishHand()
		}
		if wasTurn {
			s.cancelTurnTimer()
			return s.afterTurn(true)
		}
	}
	s.broadcast()
	return nil
}

func (s *Session) handleDisconnect(a *Action) error {
	st := s.seatOf(a.PlayerID)
	if st == nil || !st.Connected {
		return nil
	}
	st.Connected = false
	pid := a.PlayerID
	if st.graceTimer != nil {
		st.graceTimer.Stop()
	}
	st.graceTimer = time.AfterFunc(s.set.DisconnectGrace, func() {
		s.enqueueInternal(&Action{Type: ActionLeave, PlayerID: pid})
	})
	logger.Log.Info("player disconnected",
		zap.String("channelID", s.channelID),
		zap.Int64("playerID", pid),
		zap.Duration("grace", s.set.DisconnectGrace),
	)
	s.broadcast()
	return nil
}

func (s *Session) handleReconnect(a *Action) error {
	st := s.seatOf(a.PlayerID)
	if st == nil || st.Connected {
		return nil
	}
	st.Connected = true
	if st.graceTimer != nil {
		st.graceTimer.Stop()
		st.graceTimer = nil
	}
	logger.Log.Info("player reconnected",
		zap.String("channelID", s.channelID),
		zap.Int64("playerID", a.PlayerID),
	)
	s.scheduleDeal()
	s.broadcast()
	return nil
}

func (s *Session) handleTurnAction(a *Action) error {
	if s.phase != PhaseBetting {
		return errValidation("no hand in progress")
	}
	st := s.seatOf(a.PlayerID)
	if st == nil {
		return errValidation("player %d not seated", a.PlayerID)
	}
	if a.synthetic && a.epoch != s.turnEpoch {
		// Stale timeout, the turn already moved on.
		return nil
	}
	if st.Seat != s.turnSeat {
		return errValidation("not seat %d's turn", st.Seat)
	}
	if !actionAllowed(a.Type, s.rules.legal(s, st)) {
		return errValidation("action %q not available", a.Type)
	}

	advance, err := s.rules.apply(s, st, a)
	if err != nil {
		return err
	}
	s.cancelTurnTimer()
	return s.afterTurn(advance)
}

func actionAllowed(t ActionType, legal []ActionType) bool {
	for _, l := range legal {
		if l == t {
			return true
		}
	}
	return false
}

// afterTurn routes the state machine after a successfully applied action:
// hand over, round over, next player, or same player with a fresh clock.
func (s *Session) afterTurn(advance bool) error {
	if s.contenderCount() <= 1 {
		return s.finishHand()
	}
	if s.rules.roundComplete(s) {
		return s.advanceRound()
	}
	if advance {
		s.advanceTurn()
	} else {
		s.armTurnTimer()
	}
	s.broadcast()
	return nil
}

func (s *Session) advanceRound() error {
	for {
		s.roundIdx++
		if s.roundIdx >= s.rules.rounds() {
			return s.finishHand()
		}
		for _, st := range s.inHandSeats() {
			st.BetThisRound = 0
		}
		s.currentBet = 0
		if err := s.rules.startRound(s, s.roundIdx); err != nil {
			s.freeze(fmt.Sprintf("start round %d: %v", s.roundIdx, err))
			return nil
		}
		s.resetNeedAction()
		if len(s.needAction) == 0 {
			// Everyone is all-in; run the remaining streets out.
			continue
		}
		s.turnSeat = s.firstActionSeat()
		s.armTurnTimer()
		s.broadcast()
		return nil
	}
}

// startHand opens a new hand when enough funded, connected players are
// seated. The deck seed is recorded so the hand can be reproduced.
func (s *Session) startHand() {
	if s.phase != PhaseWaiting {
		return
	}
	var participants []*seat
	for _, st := range s.seats {
		if st != nil && st.Connected && st.Stack >= s.set.Ante {
			participants = append(participants, st)
		}
	}
	if len(participants) < s.set.MinPlayers {
		return
	}

	s.handID = uuid.NewString()
	s.handSeed = s.seedFn()
	s.deck = NewDeck(s.handSeed)
	s.phase = PhaseDealing
	s.roundIdx = 0
	s.currentBet = 0
	s.board = nil
	s.dealerCards = nil
	s.lastResult = nil
	s.handContribs = make(map[int64]int64)
	s.potTotal = 0

	for _, st := range participants {
		st.Status = StatusActive
		st.Hole = nil
		st.Stood = false
		st.Busted = false
		st.BetThisRound = 0
		s.postAnte(st)
	}
	if err := s.rules.deal(s); err != nil {
		s.freeze(fmt.Sprintf("deal: %v", err))
		return
	}
	for _, st := range participants {
		s.pushPrivateCards(st)
	}

	s.phase = PhaseBetting
	if err := s.rules.startRound(s, 0); err != nil {
		s.freeze(fmt.Sprintf("start round 0: %v", err))
		return
	}
	s.resetNeedAction()
	if len(s.needAction) == 0 {
		// Antes put everyone all-in straight away.
		if err := s.advanceRound(); err != nil {
			logger.Log.Error("advance round", zap.String("channelID", s.channelID), zap.Error(err))
		}
		return
	}
	s.turnSeat = s.firstActionSeat()
	s.armTurnTimer()
	logger.Log.Info("hand started",
		zap.String("channelID", s.channelID),
		zap.String("handID", s.handID),
		zap.Int64("seed", s.handSeed),
		zap.Int("players", len(participants)),
	)
	s.broadcast()
}

// finishHand settles the pot, applies and records the payouts, then resets
// the table. Any inconsistency freezes the session rather than risking
// chip corruption.
func (s *Session) finishHand() error {
	s.cancelTurnTimer()
	s.phase = PhaseShowdown
	s.turnSeat = -1
	s.turnDeadline = time.Time{}

	res, err := s.rules.settle(s)
	if err != nil {
		s.freeze(fmt.Sprintf("settle: %v", err))
		return nil
	}
	var paid int64
	for _, amount := range res.shares {
		paid += amount
	}
	if paid != res.potTotal {
		s.freeze(fmt.Sprintf("payout %d does not consume pot %d", paid, res.potTotal))
		return nil
	}

	s.phase = PhasePayout
	recipients := make([]int64, 0, len(res.shares))
	for pid := range res.shares {
		recipients = append(recipients, pid)
	}
	sort.Slice(recipients, func(i, j int) bool { return recipients[i] < recipients[j] })

	entries := make([]PayoutShare, 0, len(recipients))
	for _, pid := range recipients {
		amount := res.shares[pid]
		entries = append(entries, PayoutShare{RecipientID: pid, Amount: amount})
		if st := s.seatOf(pid); st != nil {
			st.Stack += amount
		} else if err := s.bank.Credit(context.Background(), pid, amount, s.channelID); err != nil {
			s.freeze(fmt.Sprintf("credit departed player %d: %v", pid, err))
			return nil
		}
	}

	view := &HandResultView{
		HandID:   s.handID,
		PotTotal: res.potTotal,
		Pots:     res.pots,
		Shares:   entries,
		Reveal:   res.reveal,
		Dealer:   res.dealer,
		Seed:     s.handSeed,
	}
	if err := s.ledger.RecordPayout(context.Background(), PayoutRecord{
		HandID:    s.handID,
		ChannelID: s.channelID,
		Variant:   s.rules.variant(),
		PotTotal:  res.potTotal,
		Entries:   entries,
		Result:    view,
	}); err != nil {
		s.freeze(fmt.Sprintf("record payout %s: %v", s.handID, err))
		return nil
	}
	logger.Log.Info("hand settled",
		zap.String("channelID", s.channelID),
		zap.String("handID", s.handID),
		zap.Int64("pot", res.potTotal),
		zap.Int("recipients", len(entries)),
	)

	s.lastResult = view
	s.resetTable()
	s.broadcast()
	s.scheduleDeal()
	return nil
}

func (s *Session) resetTable() {
	s.phase = PhaseWaiting
	s.roundIdx = 0
	s.currentBet = 0
	s.potTotal = 0
	s.handID = ""
	s.deck = nil
	s.board = nil
	s.dealerCards = nil
	s.handContribs = make(map[int64]int64)
	s.needAction = make(map[int]bool)
	s.turnSeat = -1
	s.turnDeadline = time.Time{}
	for _, st := range s.seats {
		if st == nil {
			continue
		}
		st.Status = StatusSittingOut
		st.Hole = nil
		st.Stood = false
		st.Busted = false
		st.BetThisRound = 0
	}
}

// armTurnTimer starts the turn clock. The epoch captured here makes the
// expiry single-shot: if the player acts first, the epoch moves on and the
// late synthetic action is discarded.
func (s *Session) armTurnTimer() {
	s.cancelTurnTimer()
	st := s.seats[s.turnSeat]
	if st == nil {
		return
	}
	s.turnEpoch++
	epoch := s.turnEpoch
	pid := st.PlayerID
	def := s.rules.defaultAction()
	s.turnDeadline = time.Now().Add(s.set.TurnTimeout)
	s.turnTimer = time.AfterFunc(s.set.TurnTimeout, func() {
		s.enqueueInternal(&Action{Type: def, PlayerID: pid, epoch: epoch})
	})
}

func (s *Session) cancelTurnTimer() {
	if s.turnTimer != nil {
		s.turnTimer.Stop()
		s.turnTimer = nil
	}
	s.turnDeadline = time.Time{}
}

// scheduleDeal queues the next hand after a short pause, if one is not
// already pending.
func (s *Session) scheduleDeal() {
	if s.dealTimer != nil || s.phase != PhaseWaiting {
		return
	}
	eligible := 0
	for _, st := range s.seats {
		if st != nil && st.Connected && st.Stack >= s.set.Ante {
			eligible++
		}
	}
	if eligible < s.set.MinPlayers {
		return
	}
	s.dealTimer = time.AfterFunc(s.set.InterHandDelay, func() {
		s.enqueueInternal(&Action{Type: actionDeal})
	})
}

// freeze stops play permanently after an internal fault. State stays
// readable for operators; the registry watchdog tears the session down
// after the grace period.
func (s *Session) freeze(reason string) {
	s.cancelTurnTimer()
	if s.dealTimer != nil {
		s.dealTimer.Stop()
		s.dealTimer = nil
	}
	s.phase = PhaseFrozen
	s.frozenReason = reason
	s.turnSeat = -1

	s.mu.Lock()
	s.frozen = true
	s.frozenAt = time.Now()
	s.mu.Unlock()

	logger.Log.Error("session frozen",
		zap.String("channelID", s.channelID),
		zap.String("reason", reason),
	)
	s.broadcastError(apperr.ErrInternalFault, "session frozen: "+reason)
	s.broadcast()
}

// shutdown runs on the actor goroutine after Close. Stacks go back to
// wallets and every subscriber sees its channel close.
func (s *Session) shutdown() {
	s.cancelTurnTimer()
	if s.dealTimer != nil {
		s.dealTimer.Stop()
		s.dealTimer = nil
	}
	for _, st := range s.seats {
		if st == nil {
			continue
		}
		if st.graceTimer != nil {
			st.graceTimer.Stop()
		}
		if st.Stack > 0 {
			if err := s.bank.Credit(context.Background(), st.PlayerID, st.Stack, s.channelID); err != nil {
				logger.Log.Error("cash-out on shutdown failed",
					zap.String("channelID", s.channelID),
					zap.Int64("playerID", st.PlayerID),
					zap.Int64("amount", st.Stack),
					zap.Error(err),
				)
			}
		}
	}

	s.mu.Lock()
	s.closed = true
	for id, sub := range s.subs {
		close(sub.ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()

	logger.Log.Info("session closed", zap.String("channelID", s.channelID))
}

// Helpers below run on the actor goroutine only.

func (s *Session) seatOf(playerID int64) *seat {
	for _, st := range s.seats {
		if st != nil && st.PlayerID == playerID {
			return st
		}
	}
	return nil
}

// inHandSeats are the seats dealt into the current hand, including folded
// and all-in players.
func (s *Session) inHandSeats() []*seat {
	var out []*seat
	for _, st := range s.seats {
		if st != nil && st.Status != StatusSittingOut {
			out = append(out, st)
		}
	}
	return out
}

func (s *Session) contenderCount() int {
	n := 0
	for _, st := range s.inHandSeats() {
		if st.Status == StatusActive || st.Status == StatusAllIn {
			n++
		}
	}
	return n
}

func (s *Session) seatedCount() int {
	n := 0
	for _, st := range s.seats {
		if st != nil {
			n++
		}
	}
	return n
}

// commitChips moves chips from a stack into the pot as part of the
// current betting round.
func (s *Session) commitChips(st *seat, amount int64) {
	st.Stack -= amount
	st.BetThisRound += amount
	s.handContribs[st.PlayerID] += amount
	s.potTotal += amount
	if st.Stack == 0 {
		st.Status = StatusAllIn
		delete(s.needAction, st.Seat)
	}
}

// postAnte takes the forced ante. It feeds the pot and the player's hand
// contribution but not BetThisRound, so antes never count toward calling.
func (s *Session) postAnte(st *seat) {
	amount := s.set.Ante
	if amount > st.Stack {
		amount = st.Stack
	}
	st.Stack -= amount
	s.handContribs[st.PlayerID] += amount
	s.potTotal += amount
	if st.Stack == 0 {
		st.Status = StatusAllIn
	}
}

func (s *Session) resetNeedAction() {
	s.needAction = make(map[int]bool)
	for _, st := range s.inHandSeats() {
		if st.Status == StatusActive && !st.Stood && !st.Busted {
			s.needAction[st.Seat] = true
		}
	}
}

func (s *Session) firstActionSeat() int {
	best := -1
	for idx := range s.needAction {
		if best == -1 || idx < best {
			best = idx
		}
	}
	return best
}

// advanceTurn hands the clock to the next obligated seat clockwise from
// the current one.
func (s *Session) advanceTurn() {
	n := len(s.seats)
	for i := 1; i <= n; i++ {
		idx := (s.turnSeat + i) % n
		if s.needAction[idx] {
			s.turnSeat = idx
			s.armTurnTimer()
			return
		}
	}
	s.turnSeat = -1
}

func sortSeatsByIndex(seats []*seat) {
	sort.Slice(seats, func(i, j int) bool { return seats[i].Seat < seats[j].Seat })
}
