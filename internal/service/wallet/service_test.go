package wallet_test

import (
	"context"
	"errors"
	"testing"

	"cardroom-service/internal/model"
	walletsvc "cardroom-service/internal/service/wallet"
	appErr "cardroom-service/pkg/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, *walletsvc.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&model.Wallet{}, &model.BillingLog{}); err != nil {
		t.Fatalf("failed to migrate wallet models: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM wallets")
		db.Exec("DELETE FROM billing_logs")
	})

	return db, walletsvc.NewService(db)
}

func seedWallet(t *testing.T, db *gorm.DB, playerID, balance int64) {
	t.Helper()
	if err := db.Create(&model.Wallet{PlayerID: playerID, BalanceAvailable: balance}).Error; err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
}

func TestDebitAndCreditRoundTrip(t *testing.T) {
	db, svc := newTestService(t)
	seedWallet(t, db, 1, 1000)

	if err := svc.Debit(context.Background(), 1, 400, "ch-1"); err != nil {
		t.Fatalf("debit: %v", err)
	}
	wallet, err := svc.GetWallet(context.Background(), 1)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if wallet.BalanceAvailable != 600 || wallet.TotalBuyIn != 400 {
		t.Fatalf("wallet after debit: %+v", wallet)
	}

	if err := svc.Credit(context.Background(), 1, 450, "ch-1"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	wallet, _ = svc.GetWallet(context.Background(), 1)
	if wallet.BalanceAvailable != 1050 || wallet.TotalCashOut != 450 {
		t.Fatalf("wallet after credit: %+v", wallet)
	}

	var logs []model.BillingLog
	if err := db.Where("player_id = ?", 1).Order("id").Find(&logs).Error; err != nil {
		t.Fatalf("query billing logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 billing logs, got %d", len(logs))
	}
	if logs[0].Type != "buyin" || logs[0].Delta != -400 {
		t.Fatalf("buyin log wrong: %+v", logs[0])
	}
	if logs[1].Type != "cashout" || logs[1].Delta != 450 {
		t.Fatalf("cashout log wrong: %+v", logs[1])
	}
}

func TestDebitInsufficientBalance(t *testing.T) {
	db, svc := newTestService(t)
	seedWallet(t, db, 2, 100)

	err := svc.Debit(context.Background(), 2, 500, "ch-1")
	if !errors.Is(err, appErr.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	wallet, _ := svc.GetWallet(context.Background(), 2)
	if wallet.BalanceAvailable != 100 {
		t.Fatalf("failed debit must not move chips: %+v", wallet)
	}
}

func TestCreditCreatesWallet(t *testing.T) {
	_, svc := newTestService(t)

	if err := svc.Credit(context.Background(), 3, 250, "ch-1"); err != nil {
		t.Fatalf("credit to fresh wallet: %v", err)
	}
	wallet, err := svc.GetWallet(context.Background(), 3)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if wallet.BalanceAvailable != 250 {
		t.Fatalf("wallet not created by credit: %+v", wallet)
	}
}

func TestInvalidAmountsRejected(t *testing.T) {
	_, svc := newTestService(t)

	if err := svc.Debit(context.Background(), 4, 0, "ch-1"); !errors.Is(err, appErr.ErrInvalidWalletPayload) {
		t.Fatalf("zero debit accepted: %v", err)
	}
	if err := svc.Credit(context.Background(), 4, -5, "ch-1"); !errors.Is(err, appErr.ErrInvalidWalletPayload) {
		t.Fatalf("negative credit accepted: %v", err)
	}
}

func TestAdminAdjust(t *testing.T) {
	db, svc := newTestService(t)
	seedWallet(t, db, 5, 100)

	wallet, err := svc.AdminAdjust(context.Background(), 5, 900)
	if err != nil {
		t.Fatalf("admin adjust: %v", err)
	}
	if wallet.BalanceAvailable != 900 {
		t.Fatalf("adjust result wrong: %+v", wallet)
	}

	var adjustLog model.BillingLog
	if err := db.Where("player_id = ? AND type = ?", 5, "adjust").First(&adjustLog).Error; err != nil {
		t.Fatalf("query adjust log: %v", err)
	}
	if adjustLog.Delta != 800 {
		t.Fatalf("adjust delta %d, want 800", adjustLog.Delta)
	}

	if _, err := svc.AdminAdjust(context.Background(), 5, -1); !errors.Is(err, appErr.ErrInvalidWalletPayload) {
		t.Fatalf("negative target accepted: %v", err)
	}
}
