package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cardroom-service/internal/model"
	"cardroom-service/internal/service/game"
	appErr "cardroom-service/pkg/errors"
	"cardroom-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service is the payout ledger: the append-only record of who received
// what from each hand. RecordPayout is idempotent per hand id, so a
// session retrying a settlement can never double-write.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) RecordPayout(ctx context.Context, rec game.PayoutRecord) error {
	if rec.HandID == "" || len(rec.Entries) == 0 {
		return fmt.Errorf("%w: hand id and entries are required", appErr.ErrPayoutValidation)
	}
	var sum int64
	for _, e := range rec.Entries {
		if e.Amount < 0 {
			return fmt.Errorf("%w: negative payout for player %d", appErr.ErrPayoutValidation, e.RecipientID)
		}
		sum += e.Amount
	}
	if sum != rec.PotTotal {
		return fmt.Errorf("%w: entries sum %d, pot %d", appErr.ErrPayoutValidation, sum, rec.PotTotal)
	}

	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("%w: encode result: %v", appErr.ErrPayoutValidation, err)
	}
	now := time.Now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&model.PayoutEntry{}).
			Where("hand_id = ?", rec.HandID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			logger.Log.Info("payout already recorded",
				zap.String("handID", rec.HandID),
				zap.String("channelID", rec.ChannelID),
			)
			return nil
		}

		entries := make([]model.PayoutEntry, 0, len(rec.Entries))
		for _, e := range rec.Entries {
			entries = append(entries, model.PayoutEntry{
				HandID:      rec.HandID,
				ChannelID:   rec.ChannelID,
				RecipientID: e.RecipientID,
				Amount:      e.Amount,
				CreatedAt:   now,
			})
		}
		if err := tx.Create(&entries).Error; err != nil {
			return err
		}
		return tx.Create(&model.HandLog{
			HandID:     rec.HandID,
			ChannelID:  rec.ChannelID,
			Variant:    string(rec.Variant),
			PotTotal:   rec.PotTotal,
			ResultJSON: datatypes.JSON(resultJSON),
			EndedAt:    now,
		}).Error
	})
}

// HandHistory lists the most recent hands of a channel, newest first.
func (s *Service) HandHistory(ctx context.Context, channelID string, limit int) ([]model.HandLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var logs []model.HandLog
	err := s.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("ended_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// PlayerPayouts lists a player's payout entries, newest first.
func (s *Service) PlayerPayouts(ctx context.Context, playerID int64, limit int) ([]model.PayoutEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var entries []model.PayoutEntry
	err := s.db.WithContext(ctx).
		Where("recipient_id = ?", playerID).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
