package channels

import (
	"context"
	"fmt"

	"cardroom-service/internal/model"
	"cardroom-service/internal/service/game"
	appErr "cardroom-service/pkg/errors"
	"cardroom-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service manages channel table configuration. It is also the config
// source sessions are created from: a session reads its channel's row
// once, on creation.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type ChannelMutationParams struct {
	ChannelID   string
	Variant     string
	SeatCount   int
	Ante        int64
	MinBuyIn    int64
	MaxBuyIn    int64
	TurnSeconds int
	Status      string
}

// TableConfig resolves the live-session configuration for a channel.
func (s *Service) TableConfig(ctx context.Context, channelID string) (game.TableConfig, error) {
	var cfg model.ChannelConfig
	err := s.db.WithContext(ctx).Where("channel_id = ?", channelID).First(&cfg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return game.TableConfig{}, appErr.ErrChannelConfigNotFound
		}
		return game.TableConfig{}, err
	}
	if cfg.Status != "enabled" {
		return game.TableConfig{}, appErr.ErrChannelDisabled
	}
	return game.TableConfig{
		Variant:     game.Variant(cfg.Variant),
		SeatCount:   cfg.SeatCount,
		Ante:        cfg.Ante,
		MinBuyIn:    cfg.MinBuyIn,
		MaxBuyIn:    cfg.MaxBuyIn,
		TurnSeconds: cfg.TurnSeconds,
	}, nil
}

func (s *Service) ListChannels(ctx context.Context) ([]model.ChannelConfig, error) {
	var channels []model.ChannelConfig
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

func (s *Service) CreateChannel(ctx context.Context, params ChannelMutationParams) (*model.ChannelConfig, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	cfg := model.ChannelConfig{
		ChannelID:   params.ChannelID,
		Variant:     params.Variant,
		SeatCount:   params.SeatCount,
		Ante:        params.Ante,
		MinBuyIn:    params.MinBuyIn,
		MaxBuyIn:    params.MaxBuyIn,
		TurnSeconds: params.TurnSeconds,
		Status:      params.Status,
	}
	if cfg.Status == "" {
		cfg.Status = "enabled"
	}
	if err := s.db.WithContext(ctx).Create(&cfg).Error; err != nil {
		return nil, err
	}
	logger.Log.Info("channel created",
		zap.String("channelID", cfg.ChannelID),
		zap.String("variant", cfg.Variant),
	)
	return &cfg, nil
}

func (s *Service) UpdateChannel(ctx context.Context, id int64, params ChannelMutationParams) (*model.ChannelConfig, error) {
	var cfg model.ChannelConfig
	if err := s.db.WithContext(ctx).First(&cfg, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrChannelConfigNotFound
		}
		return nil, err
	}
	if params.Variant != "" {
		if _, err := parseVariant(params.Variant); err != nil {
			return nil, err
		}
		cfg.Variant = params.Variant
	}
	if params.SeatCount > 0 {
		cfg.SeatCount = params.SeatCount
	}
	if params.Ante > 0 {
		cfg.Ante = params.Ante
	}
	if params.MinBuyIn > 0 {
		cfg.MinBuyIn = params.MinBuyIn
	}
	if params.MaxBuyIn > 0 {
		cfg.MaxBuyIn = params.MaxBuyIn
	}
	if params.TurnSeconds > 0 {
		cfg.TurnSeconds = params.TurnSeconds
	}
	if params.Status != "" {
		if params.Status != "enabled" && params.Status != "disabled" {
			return nil, fmt.Errorf("%w: status must be enabled or disabled", appErr.ErrValidation)
		}
		cfg.Status = params.Status
	}
	if err := s.db.WithContext(ctx).Save(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateParams(params ChannelMutationParams) error {
	if params.ChannelID == "" {
		return fmt.Errorf("%w: channelId is required", appErr.ErrValidation)
	}
	if _, err := parseVariant(params.Variant); err != nil {
		return err
	}
	if params.SeatCount < 2 || params.SeatCount > 10 {
		return fmt.Errorf("%w: seatCount must be 2..10", appErr.ErrValidation)
	}
	if params.Ante <= 0 {
		return fmt.Errorf("%w: ante must be > 0", appErr.ErrValidation)
	}
	if params.MaxBuyIn > 0 && params.MinBuyIn > params.MaxBuyIn {
		return fmt.Errorf("%w: minBuyIn exceeds maxBuyIn", appErr.ErrValidation)
	}
	return nil
}

func parseVariant(v string) (game.Variant, error) {
	switch game.Variant(v) {
	case game.VariantPoker, game.VariantBlackjack:
		return game.Variant(v), nil
	}
	return "", fmt.Errorf("%w: unknown variant %q", appErr.ErrValidation, v)
}
