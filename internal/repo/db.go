package repo

import (
	"log"

	"cardroom-service/internal/config"
	"cardroom-service/internal/model"
	"cardroom-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := config.GlobalConfig.Database.DSN
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Log.Fatal("Failed to connect to database",
			zap.Error(err),
		)
	}

	err = DB.AutoMigrate(
		&model.Player{},
		&model.Admin{},
		&model.Wallet{},
		&model.BillingLog{},
		&model.PayoutEntry{},
		&model.HandLog{},
		&model.ChannelConfig{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
}
