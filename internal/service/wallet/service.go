package wallet

import (
	"context"
	"fmt"
	"time"

	"cardroom-service/internal/model"
	appErr "cardroom-service/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service is the chip bank. Buy-ins move chips from the available balance
// into a session; cash-outs move them back. Inside a session chips are
// owned by the session actor and never touch the wallet.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) GetWallet(ctx context.Context, playerID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := s.db.WithContext(ctx).Where("player_id = ?", playerID).First(&wallet).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &model.Wallet{PlayerID: playerID}, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// Debit takes amount from the available balance for a buy-in.
func (s *Service) Debit(ctx context.Context, playerID, amount int64, channelID string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be > 0", appErr.ErrInvalidWalletPayload)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := lockWallet(tx, playerID)
		if err != nil {
			return err
		}
		if wallet.BalanceAvailable < amount {
			return fmt.Errorf("%w: need %d, have %d", appErr.ErrInsufficientBalance, amount, wallet.BalanceAvailable)
		}
		wallet.BalanceAvailable -= amount
		wallet.TotalBuyIn += amount
		wallet.UpdatedAt = time.Now()
		if err := tx.Save(wallet).Error; err != nil {
			return err
		}
		return tx.Create(&model.BillingLog{
			PlayerID:     playerID,
			Type:         "buyin",
			Delta:        -amount,
			BalanceAfter: wallet.BalanceAvailable,
			ChannelID:    channelID,
		}).Error
	})
}

// Credit returns amount to the available balance on cash-out or payout to
// a departed player.
func (s *Service) Credit(ctx context.Context, playerID, amount int64, channelID string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be > 0", appErr.ErrInvalidWalletPayload)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := lockWallet(tx, playerID)
		if err != nil {
			return err
		}
		wallet.BalanceAvailable += amount
		wallet.TotalCashOut += amount
		wallet.UpdatedAt = time.Now()
		if err := tx.Save(wallet).Error; err != nil {
			return err
		}
		return tx.Create(&model.BillingLog{
			PlayerID:     playerID,
			Type:         "cashout",
			Delta:        amount,
			BalanceAfter: wallet.BalanceAvailable,
			ChannelID:    channelID,
		}).Error
	})
}

// AdminAdjust sets the available balance directly, logging the delta.
func (s *Service) AdminAdjust(ctx context.Context, playerID, balanceAvailable int64) (*model.Wallet, error) {
	if balanceAvailable < 0 {
		return nil, fmt.Errorf("%w: balanceAvailable must be >= 0", appErr.ErrInvalidWalletPayload)
	}
	var out *model.Wallet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := lockWallet(tx, playerID)
		if err != nil {
			return err
		}
		delta := balanceAvailable - wallet.BalanceAvailable
		wallet.BalanceAvailable = balanceAvailable
		wallet.UpdatedAt = time.Now()
		if err := tx.Save(wallet).Error; err != nil {
			return err
		}
		if err := tx.Create(&model.BillingLog{
			PlayerID:     playerID,
			Type:         "adjust",
			Delta:        delta,
			BalanceAfter: wallet.BalanceAvailable,
		}).Error; err != nil {
			return err
		}
		out = wallet
		return nil
	})
	return out, err
}

func lockWallet(tx *gorm.DB, playerID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("player_id = ?", playerID).
		First(&wallet).Error
	if err == gorm.ErrRecordNotFound {
		wallet = model.Wallet{PlayerID: playerID, UpdatedAt: time.Now()}
		if err := tx.Create(&wallet).Error; err != nil {
			return nil, err
		}
		return &wallet, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}
