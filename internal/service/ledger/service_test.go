package ledger_test

import (
	"context"
	"errors"
	"testing"

	"cardroom-service/internal/model"
	"cardroom-service/internal/service/game"
	ledgersvc "cardroom-service/internal/service/ledger"
	appErr "cardroom-service/pkg/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, *ledgersvc.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&model.PayoutEntry{}, &model.HandLog{}); err != nil {
		t.Fatalf("failed to migrate ledger models: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM payout_entries")
		db.Exec("DELETE FROM hand_logs")
	})

	return db, ledgersvc.NewService(db)
}

func sampleRecord(handID string) game.PayoutRecord {
	return game.PayoutRecord{
		HandID:    handID,
		ChannelID: "ch-1",
		Variant:   game.VariantPoker,
		PotTotal:  350,
		Entries: []game.PayoutShare{
			{RecipientID: 1, Amount: 250},
			{RecipientID: 2, Amount: 100},
		},
		Result: map[string]interface{}{"handId": handID},
	}
}

func TestRecordPayoutPersistsEntriesAndHandLog(t *testing.T) {
	db, svc := newTestService(t)

	if err := svc.RecordPayout(context.Background(), sampleRecord("hand-1")); err != nil {
		t.Fatalf("record payout: %v", err)
	}

	var entries []model.PayoutEntry
	if err := db.Where("hand_id = ?", "hand-1").Find(&entries).Error; err != nil {
		t.Fatalf("query entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	var sum int64
	for _, e := range entries {
		sum += e.Amount
	}
	if sum != 350 {
		t.Fatalf("entries sum %d, want 350", sum)
	}

	var handLog model.HandLog
	if err := db.Where("hand_id = ?", "hand-1").First(&handLog).Error; err != nil {
		t.Fatalf("query hand log: %v", err)
	}
	if handLog.PotTotal != 350 || handLog.Variant != "poker" {
		t.Fatalf("hand log wrong: %+v", handLog)
	}
}

func TestRecordPayoutIdempotent(t *testing.T) {
	db, svc := newTestService(t)

	rec := sampleRecord("hand-2")
	if err := svc.RecordPayout(context.Background(), rec); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := svc.RecordPayout(context.Background(), rec); err != nil {
		t.Fatalf("repeat record must be a no-op, got %v", err)
	}

	var count int64
	if err := db.Model(&model.PayoutEntry{}).Where("hand_id = ?", "hand-2").Count(&count).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 entries after repeat, got %d", count)
	}

	var logs int64
	if err := db.Model(&model.HandLog{}).Where("hand_id = ?", "hand-2").Count(&logs).Error; err != nil {
		t.Fatalf("count hand logs: %v", err)
	}
	if logs != 1 {
		t.Fatalf("expected 1 hand log after repeat, got %d", logs)
	}
}

func TestRecordPayoutValidation(t *testing.T) {
	_, svc := newTestService(t)

	rec := sampleRecord("hand-3")
	rec.PotTotal = 999
	if err := svc.RecordPayout(context.Background(), rec); !errors.Is(err, appErr.ErrPayoutValidation) {
		t.Fatalf("sum mismatch accepted: %v", err)
	}

	rec = sampleRecord("")
	if err := svc.RecordPayout(context.Background(), rec); !errors.Is(err, appErr.ErrPayoutValidation) {
		t.Fatalf("missing hand id accepted: %v", err)
	}

	rec = sampleRecord("hand-4")
	rec.Entries[0].Amount = -1
	if err := svc.RecordPayout(context.Background(), rec); !errors.Is(err, appErr.ErrPayoutValidation) {
		t.Fatalf("negative payout accepted: %v", err)
	}
}

func TestHandHistoryAndPlayerPayouts(t *testing.T) {
	_, svc := newTestService(t)

	if err := svc.RecordPayout(context.Background(), sampleRecord("hand-5")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.RecordPayout(context.Background(), sampleRecord("hand-6")); err != nil {
		t.Fatalf("record: %v", err)
	}

	hands, err := svc.HandHistory(context.Background(), "ch-1", 10)
	if err != nil {
		t.Fatalf("hand history: %v", err)
	}
	if len(hands) != 2 {
		t.Fatalf("expected 2 hands, got %d", len(hands))
	}

	payouts, err := svc.PlayerPayouts(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("player payouts: %v", err)
	}
	if len(payouts) != 2 {
		t.Fatalf("expected 2 payouts for player 1, got %d", len(payouts))
	}
	for _, p := range payouts {
		if p.Amount != 250 {
			t.Fatalf("unexpected payout amount %d", p.Amount)
		}
	}
}
