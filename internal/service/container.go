package service

import (
	"context"
	"time"

	"cardroom-service/internal/config"
	"cardroom-service/internal/service/admin"
	"cardroom-service/internal/service/auth"
	"cardroom-service/internal/service/channels"
	"cardroom-service/internal/service/game"
	"cardroom-service/internal/service/ledger"
	"cardroom-service/internal/service/presence"
	"cardroom-service/internal/service/wallet"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Game     *game.Service
	Channels *channels.Service
	Auth     *auth.Service
	Wallet   *wallet.Service
	Ledger   *ledger.Service
	Presence *presence.Service
	Admin    *admin.Service
}

func NewContainer(db *gorm.DB, rdb *redis.Client) *Container {
	channelsSvc := channels.NewService(db)
	walletSvc := wallet.NewService(db)
	ledgerSvc := ledger.NewService(db)

	return &Container{
		Game:     game.NewService(gameSettings(), channelsSvc, walletSvc, ledgerSvc),
		Channels: channelsSvc,
		Auth:     auth.NewService(db),
		Wallet:   walletSvc,
		Ledger:   ledgerSvc,
		Presence: presence.NewService(rdb),
		Admin:    admin.NewService(db),
	}
}

func (c *Container) Start(ctx context.Context) error {
	if err := c.Admin.EnsureDefaultAdmin(ctx); err != nil {
		return err
	}
	c.Game.Start(ctx)
	return nil
}

// gameSettings maps the config file onto the engine defaults; zero values
// keep the defaults.
func gameSettings() game.Settings {
	set := game.DefaultSettings()
	cfg := config.GlobalConfig.Game
	if cfg.MaxSessions > 0 {
		set.MaxSessions = cfg.MaxSessions
	}
	if cfg.ActionQueueSize > 0 {
		set.QueueSize = cfg.ActionQueueSize
	}
	if cfg.TurnSeconds > 0 {
		set.TurnTimeout = time.Duration(cfg.TurnSeconds) * time.Second
	}
	if cfg.DeltaWindow > 0 {
		set.DeltaWindow = cfg.DeltaWindow
	}
	if cfg.DisconnectGraceS > 0 {
		set.DisconnectGrace = time.Duration(cfg.DisconnectGraceS) * time.Second
	}
	if cfg.TeardownGraceS > 0 {
		set.TeardownGrace = time.Duration(cfg.TeardownGraceS) * time.Second
	}
	if cfg.WatchdogIntervalS > 0 {
		set.WatchdogEvery = time.Duration(cfg.WatchdogIntervalS) * time.Second
	}
	if cfg.DefaultAnte > 0 {
		set.Ante = cfg.DefaultAnte
	}
	if cfg.DefaultSeatCount > 0 {
		set.SeatCount = cfg.DefaultSeatCount
	}
	return set
}
