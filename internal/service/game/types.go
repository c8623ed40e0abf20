package game

import (
	"context"
	"fmt"
	"time"

	apperr "cardroom-service/pkg/errors"
)

type Variant string

const (
	VariantPoker     Variant = "poker"
	VariantBlackjack Variant = "blackjack"
)

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseDealing  Phase = "dealing"
	PhaseBetting  Phase = "betting"
	PhaseShowdown Phase = "showdown"
	PhasePayout   Phase = "payout"
	PhaseFrozen   Phase = "frozen"
)

// Seat statuses within a hand. Disconnection is tracked separately on the
// seat (Connected); a disconnected player stays in the current hand and is
// defaulted on their turns, then sits out new hands until they return.
const (
	StatusActive     = "active"
	StatusFolded     = "folded"
	StatusAllIn      = "all-in"
	StatusSittingOut = "sitting-out"
)

// Settings tunes one session. The registry seeds every session with its
// defaults; per-channel configuration overrides seats, ante, buy-in bounds
// and turn time.
type Settings struct {
	SeatCount       int
	MinPlayers      int
	Ante            int64
	MinBuyIn        int64
	MaxBuyIn        int64
	TurnTimeout     time.Duration
	InterHandDelay  time.Duration
	EnqueueTimeout  time.Duration
	QueueSize       int
	DeltaWindow     int
	DisconnectGrace time.Duration
	TeardownGrace   time.Duration
	MaxSessions     int
	WatchdogEvery   time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		SeatCount:       6,
		MinPlayers:      2,
		Ante:            10,
		TurnTimeout:     15 * time.Second,
		InterHandDelay:  3 * time.Second,
		EnqueueTimeout:  2 * time.Second,
		QueueSize:       64,
		DeltaWindow:     256,
		DisconnectGrace: 60 * time.Second,
		TeardownGrace:   2 * time.Minute,
		MaxSessions:     512,
		WatchdogEvery:   10 * time.Second,
	}
}

// TableConfig is the per-channel slice of configuration a session is
// created from, resolved by a ConfigSource (the channels service in
// production, a literal in tests).
type TableConfig struct {
	Variant     Variant
	SeatCount   int
	Ante        int64
	MinBuyIn    int64
	MaxBuyIn    int64
	TurnSeconds int
}

type ConfigSource interface {
	TableConfig(ctx context.Context, channelID string) (TableConfig, error)
}

// ChipBank moves chips between a player's wallet and a session: the
// explicit buy-in/cash-out events excluded from in-session chip
// conservation.
type ChipBank interface {
	Debit(ctx context.Context, playerID, amount int64, channelID string) error
	Credit(ctx context.Context, playerID, amount int64, channelID string) error
}

// PayoutRecorder persists the final transfer set of a completed hand.
// Implementations must be idempotent per hand id.
type PayoutRecorder interface {
	RecordPayout(ctx context.Context, rec PayoutRecord) error
}

type PayoutShare struct {
	RecipientID int64 `json:"recipientId"`
	Amount      int64 `json:"amount"`
}

type PayoutRecord struct {
	HandID    string
	ChannelID string
	Variant   Variant
	PotTotal  int64
	Entries   []PayoutShare
	Result    interface{}
}

// rules is the variant-specific slice of behavior; everything else in the
// session (turn order, timeouts, queueing, payout bookkeeping) is
// variant-agnostic.
type rules interface {
	variant() Variant
	rounds() int
	deal(s *Session) error
	startRound(s *Session, k int) error
	legal(s *Session, st *seat) []ActionType
	defaultAction() ActionType
	// apply mutates state for a validated turn action and reports whether
	// the turn passes to the next player.
	apply(s *Session, st *seat, a *Action) (advance bool, err error)
	roundComplete(s *Session) bool
	settle(s *Session) (*handResult, error)
}

func rulesFor(v Variant) (rules, error) {
	switch v {
	case VariantPoker:
		return pokerRules{}, nil
	case VariantBlackjack:
		return blackjackRules{}, nil
	}
	return nil, fmt.Errorf("unknown variant %q", v)
}

type handResult struct {
	potTotal int64
	pots     []Pot
	shares   map[int64]int64
	reveal   map[int][]string
	dealer   []string
}

func errValidation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", apperr.ErrValidation, fmt.Sprintf(format, args...))
}
