package game

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperr "cardroom-service/pkg/errors"
)

type fakeConfigSource struct {
	known map[string]TableConfig
}

func (f *fakeConfigSource) TableConfig(_ context.Context, channelID string) (TableConfig, error) {
	cfg, ok := f.known[channelID]
	if !ok {
		return TableConfig{}, apperr.ErrChannelConfigNotFound
	}
	return cfg, nil
}

func newTestRegistry(t *testing.T, set Settings, channels ...string) (*Registry, *fakeBank, *fakeLedger) {
	t.Helper()
	known := make(map[string]TableConfig)
	for _, ch := range channels {
		known[ch] = TableConfig{Variant: VariantPoker}
	}
	bank := newFakeBank(map[int64]int64{101: 50000, 102: 50000})
	ledger := newFakeLedger()
	r := NewRegistry(set, &fakeConfigSource{known: known}, bank, ledger)
	return r, bank, ledger
}

func TestRegistryOneSessionPerChannel(t *testing.T) {
	r, _, _ := newTestRegistry(t, testSettings(), "a")

	s1, err := r.GetOrCreate(context.Background(), "a")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer s1.Close()

	s2, err := r.GetOrCreate(context.Background(), "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s1 != s2 {
		t.Fatal("same channel produced two sessions")
	}
	if r.Len() != 1 {
		t.Fatalf("registry holds %d sessions", r.Len())
	}
}

func TestRegistryCapRejectsNewChannels(t *testing.T) {
	set := testSettings()
	set.MaxSessions = 1
	r, _, _ := newTestRegistry(t, set, "a", "b")

	s, err := r.GetOrCreate(context.Background(), "a")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer s.Close()

	_, err = r.GetOrCreate(context.Background(), "b")
	if !errors.Is(err, apperr.ErrResourceExhausted) {
		t.Fatalf("expected resource exhausted, got %v", err)
	}

	// The existing session stays reachable at the cap.
	if _, err := r.GetOrCreate(context.Background(), "a"); err != nil {
		t.Fatalf("existing channel rejected: %v", err)
	}
}

func TestRegistryUnknownChannel(t *testing.T) {
	r, _, _ := newTestRegistry(t, testSettings())
	_, err := r.GetOrCreate(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrChannelConfigNotFound) {
		t.Fatalf("expected channel config not found, got %v", err)
	}
}

func TestRegistryDestroy(t *testing.T) {
	r, _, _ := newTestRegistry(t, testSettings(), "a")
	if _, err := r.GetOrCreate(context.Background(), "a"); err != nil {
		t.Fatalf("create: %v", err)
	}

	r.Destroy("a")
	if _, err := r.Get("a"); !errors.Is(err, apperr.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
	r.Destroy("a") // idempotent
}

func TestRegistryDispatchCreatesOnJoinOnly(t *testing.T) {
	r, bank, _ := newTestRegistry(t, testSettings(), "a")

	err := r.Dispatch(context.Background(), &Action{
		ChannelID: "a",
		PlayerID:  101,
		Type:      ActionFold,
		ClientSeq: 1,
	})
	if !errors.Is(err, apperr.ErrSessionNotFound) {
		t.Fatalf("turn action must not create a session, got %v", err)
	}

	payload, _ := json.Marshal(joinPayload{BuyIn: 1000})
	if err := r.Dispatch(context.Background(), &Action{
		ChannelID: "a",
		PlayerID:  101,
		Type:      ActionJoin,
		Payload:   payload,
		ClientSeq: 1,
	}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if got := bank.balance(101); got != 49000 {
		t.Fatalf("buy-in not debited, balance %d", got)
	}
	r.Destroy("a")
}

func TestWatchdogTearsDownFrozenSession(t *testing.T) {
	set := testSettings()
	set.WatchdogEvery = 20 * time.Millisecond
	set.TeardownGrace = 50 * time.Millisecond
	r, _, _ := newTestRegistry(t, set, "a")

	s, err := r.GetOrCreate(context.Background(), "a")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	s.mu.Lock()
	s.frozen = true
	s.frozenAt = time.Now().Add(-time.Minute)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartWatchdog(ctx)

	deadline := time.After(2 * time.Second)
	for {
		if _, err := r.Get("a"); errors.Is(err, apperr.ErrSessionNotFound) {
			return
		}
		select {
		case <-deadline:
			t.Fatal("frozen session not torn down")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
