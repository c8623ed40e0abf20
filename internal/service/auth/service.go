package auth

import (
	"context"
	"strings"
	"time"

	"cardroom-service/internal/config"
	"cardroom-service/internal/model"
	pkgAuth "cardroom-service/pkg/auth"
	appErr "cardroom-service/pkg/errors"
	"cardroom-service/pkg/logger"
	"cardroom-service/pkg/utils/random"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Starting chips granted to a fresh guest account.
const guestStartingChips = 10000

type Service struct {
	db *gorm.DB
}

type LoginResult struct {
	Token    string       `json:"token"`
	ExpireAt time.Time    `json:"expireAt"`
	Player   model.Player `json:"player"`
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GuestLogin creates a player account on the spot and issues its token.
// Guests get a starting wallet so they can sit down immediately.
func (s *Service) GuestLogin(ctx context.Context, nickname string) (*LoginResult, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = "guest-" + random.Numeric(6)
	}
	if len(nickname) > 64 {
		return nil, appErr.ErrValidation
	}

	player := model.Player{
		Nickname: nickname,
		Status:   "normal",
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&player).Error; err != nil {
			return err
		}
		return tx.Create(&model.Wallet{
			PlayerID:         player.ID,
			BalanceAvailable: guestStartingChips,
			UpdatedAt:        time.Now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	token, err := pkgAuth.GenerateToken(player.ID)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("guest account created",
		zap.Int64("playerID", player.ID),
		zap.String("nickname", nickname),
	)
	return &LoginResult{
		Token:    token,
		ExpireAt: time.Now().Add(time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour),
		Player:   player,
	}, nil
}

// GetPlayer loads a player and rejects banned accounts, used by the
// transport before seating anyone.
func (s *Service) GetPlayer(ctx context.Context, playerID int64) (*model.Player, error) {
	var player model.Player
	if err := s.db.WithContext(ctx).First(&player, playerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrUnauthorized
		}
		return nil, err
	}
	if player.Status == "banned" {
		return nil, appErr.ErrPlayerBanned
	}
	return &player, nil
}

// SetPlayerStatus is the admin moderation hook (normal/banned).
func (s *Service) SetPlayerStatus(ctx context.Context, playerID int64, status string) error {
	if status != "normal" && status != "banned" {
		return appErr.ErrValidation
	}
	res := s.db.WithContext(ctx).
		Model(&model.Player{}).
		Where("id = ?", playerID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return appErr.ErrUnauthorized
	}
	return nil
}
