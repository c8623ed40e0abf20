package game

import "context"

// Service is the engine facade the transport and admin layers talk to.
type Service struct {
	registry *Registry
}

func NewService(set Settings, source ConfigSource, bank ChipBank, ledger PayoutRecorder) *Service {
	return &Service{registry: NewRegistry(set, source, bank, ledger)}
}

// Start launches background upkeep; it returns immediately.
func (s *Service) Start(ctx context.Context) {
	s.registry.StartWatchdog(ctx)
}

// Subscribe attaches a connection to a channel's stream, creating the
// session on first use. The caller receives the subscription channel; a
// consistent snapshot arrives as its first message.
func (s *Service) Subscribe(ctx context.Context, channelID string, playerID int64, role Role) (*Session, *Subscription, error) {
	sess, err := s.registry.GetOrCreate(ctx, channelID)
	if err != nil {
		return nil, nil, err
	}
	sub, err := sess.Subscribe(playerID, role)
	if err != nil {
		return nil, nil, err
	}
	return sess, sub, nil
}

// Dispatch routes one client action to its channel.
func (s *Service) Dispatch(ctx context.Context, a *Action) error {
	return s.registry.Dispatch(ctx, a)
}

// Introspect lists live sessions for operators.
func (s *Service) Introspect() []ChannelInfo {
	return s.registry.Introspect()
}

// DestroyChannel force-closes a channel's session.
func (s *Service) DestroyChannel(channelID string) {
	s.registry.Destroy(channelID)
}
