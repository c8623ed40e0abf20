package model

import (
	"time"

	"gorm.io/datatypes"
)

// Accounts

type Player struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Nickname  string `gorm:"size:64;not null"`
	Avatar    string
	Status    string `gorm:"default:normal;not null"` // normal/banned
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Admin struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string
	Status       string `gorm:"default:active;not null"` // active/disabled
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Wallet & billing. Chips inside a live session are owned by the session
// actor; the wallet only moves on explicit buy-in and cash-out.

type Wallet struct {
	PlayerID         int64 `gorm:"primaryKey"`
	BalanceAvailable int64
	TotalBuyIn       int64
	TotalCashOut     int64
	UpdatedAt        time.Time
}

type BillingLog struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	PlayerID     int64 `gorm:"index"`
	Type         string // buyin/cashout/adjust
	Delta        int64
	BalanceAfter int64
	ChannelID    string
	MetaJSON     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time
}

// Payout ledger. Append-only; the composite unique index on
// (hand_id, recipient_id) is the idempotency key.

type PayoutEntry struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	HandID      string `gorm:"size:64;uniqueIndex:idx_hand_recipient;not null"`
	ChannelID   string `gorm:"size:128;index"`
	RecipientID int64  `gorm:"uniqueIndex:idx_hand_recipient;not null"`
	Amount      int64
	CreatedAt   time.Time
}

type HandLog struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	HandID     string `gorm:"size:64;unique;not null"`
	ChannelID  string `gorm:"size:128;index"`
	Variant    string `gorm:"size:16"`
	PotTotal   int64
	ResultJSON datatypes.JSON `gorm:"type:jsonb"`
	EndedAt    time.Time
}

// Channel configuration managed through the admin API. A live session is
// created from this row on the first connection to the channel.

type ChannelConfig struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	ChannelID   string `gorm:"size:128;unique;not null"`
	Variant     string `gorm:"size:16;not null"` // poker/blackjack
	SeatCount   int
	Ante        int64
	MinBuyIn    int64
	MaxBuyIn    int64
	TurnSeconds int
	Status      string `gorm:"default:enabled"` // enabled/disabled
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
