package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperr "cardroom-service/pkg/errors"
	"cardroom-service/pkg/logger"

	"go.uber.org/zap"
)

// Registry owns the live sessions, one per channel, capped at
// MaxSessions. Its watchdog loop tears down sessions that froze on an
// internal fault or sat empty past the grace period.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	empty    map[string]time.Time

	set    Settings
	source ConfigSource
	bank   ChipBank
	ledger PayoutRecorder
}

func NewRegistry(set Settings, source ConfigSource, bank ChipBank, ledger PayoutRecorder) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		empty:    make(map[string]time.Time),
		set:      set,
		source:   source,
		bank:     bank,
		ledger:   ledger,
	}
}

// GetOrCreate returns the channel's session, creating it on first use.
// Creation resolves the channel configuration and counts against the
// session cap; a concurrent create for the same channel yields one session.
func (r *Registry) GetOrCreate(ctx context.Context, channelID string) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[channelID]; ok {
		r.mu.Unlock()
		return s, nil
	}
	if r.set.MaxSessions > 0 && len(r.sessions) >= r.set.MaxSessions {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: session cap %d reached", apperr.ErrResourceExhausted, r.set.MaxSessions)
	}
	r.mu.Unlock()

	cfg, err := r.source.TableConfig(ctx, channelID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[channelID]; ok {
		return s, nil
	}
	if r.set.MaxSessions > 0 && len(r.sessions) >= r.set.MaxSessions {
		return nil, fmt.Errorf("%w: session cap %d reached", apperr.ErrResourceExhausted, r.set.MaxSessions)
	}
	s, err := NewSession(channelID, cfg, r.set, r.bank, r.ledger)
	if err != nil {
		return nil, err
	}
	r.sessions[channelID] = s
	logger.Log.Info("session created",
		zap.String("channelID", channelID),
		zap.String("variant", string(cfg.Variant)),
		zap.Int("live", len(r.sessions)),
	)
	return s, nil
}

func (r *Registry) Get(channelID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[channelID]; ok {
		return s, nil
	}
	return nil, apperr.ErrSessionNotFound
}

// Destroy closes and removes a session. Idempotent.
func (r *Registry) Destroy(channelID string) {
	r.mu.Lock()
	s, ok := r.sessions[channelID]
	if ok {
		delete(r.sessions, channelID)
		delete(r.empty, channelID)
	}
	r.mu.Unlock()
	if ok {
		s.Close()
		logger.Log.Info("session destroyed", zap.String("channelID", channelID))
	}
}

// Dispatch routes one client action to its channel's session, creating
// the session for join actions only.
func (r *Registry) Dispatch(ctx context.Context, a *Action) error {
	var (
		s   *Session
		err error
	)
	if a.Type == ActionJoin {
		s, err = r.GetOrCreate(ctx, a.ChannelID)
	} else {
		s, err = r.Get(a.ChannelID)
	}
	if err != nil {
		return err
	}
	return s.Dispatch(ctx, a)
}

// Introspect lists every live session for the admin surface.
func (r *Registry) Introspect() []ChannelInfo {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	infos := make([]ChannelInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	return infos
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// StartWatchdog sweeps the registry until ctx is cancelled. Frozen
// sessions and sessions with no subscribers and no seated players are
// destroyed once they exceed the teardown grace.
func (r *Registry) StartWatchdog(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.set.WatchdogEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
}

func (r *Registry) sweep() {
	r.mu.Lock()
	sessions := make(map[string]*Session, len(r.sessions))
	for id, s := range r.sessions {
		sessions[id] = s
	}
	r.mu.Unlock()

	now := time.Now()
	for id, s := range sessions {
		frozen, frozenAt, subs, players := s.Health()
		if frozen && now.Sub(frozenAt) > r.set.TeardownGrace {
			logger.Log.Warn("tearing down frozen session", zap.String("channelID", id))
			r.Destroy(id)
			continue
		}
		if subs == 0 && players == 0 {
			r.mu.Lock()
			since, ok := r.empty[id]
			if !ok {
				r.empty[id] = now
			}
			r.mu.Unlock()
			if ok && now.Sub(since) > r.set.TeardownGrace {
				logger.Log.Info("tearing down idle session", zap.String("channelID", id))
				r.Destroy(id)
			}
			continue
		}
		r.mu.Lock()
		delete(r.empty, id)
		r.mu.Unlock()
	}
}
