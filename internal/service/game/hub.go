package game

import (
	"fmt"

	apperr "cardroom-service/pkg/errors"
	"cardroom-service/pkg/logger"
	"cardroom-service/pkg/utils/random"

	"go.uber.org/zap"
)

type Role string

const (
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
	RoleAdmin     Role = "admin"
)

// OutgoingMessage is the server-to-client wire envelope.
type OutgoingMessage struct {
	Type      string        `json:"type"` // snapshot|delta|deal|error|pong
	ChannelID string        `json:"channelId"`
	ServerSeq int64         `json:"serverSeq,omitempty"`
	State     *ChannelState `json:"state,omitempty"`
	Changes   []Change      `json:"changes,omitempty"`
	Code      string        `json:"code,omitempty"`
	Message   string        `json:"message,omitempty"`
	Data      interface{}   `json:"data,omitempty"`
}

// Change is one field overlay within a delta. Two subscribers applying the
// same change stream over the same starting state converge, because every
// value is a complete replacement for its field.
type Change struct {
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

type Subscription struct {
	ID       string
	PlayerID int64
	Role     Role
	C        <-chan OutgoingMessage
}

type subscriber struct {
	id       string
	playerID int64
	role     Role
	ch       chan OutgoingMessage
}

// Subscribe registers a transport connection with the session's broadcast
// hub. The initial snapshot is produced by the session actor, so it is
// consistent with the delta stream that follows it.
func (s *Session) Subscribe(playerID int64, role Role) (*Subscription, error) {
	sub := &subscriber{
		id:       random.Code(16),
		playerID: playerID,
		role:     role,
		ch:       make(chan OutgoingMessage, 32),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, apperr.ErrSessionNotFound
	}
	s.subs[sub.id] = sub
	s.mu.Unlock()

	s.enqueueInternal(&Action{Type: actionSubscribe, PlayerID: playerID, subID: sub.id, synthetic: true})
	if role == RolePlayer {
		s.enqueueInternal(&Action{Type: actionReconnect, PlayerID: playerID, synthetic: true})
	}

	return &Subscription{ID: sub.id, PlayerID: playerID, Role: role, C: sub.ch}, nil
}

// Unsubscribe drops a connection. When a player's last connection goes
// away the session is told, which starts the disconnect grace clock.
func (s *Session) Unsubscribe(subID string) {
	s.mu.Lock()
	sub, ok := s.subs[subID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.subs, subID)
	close(sub.ch)
	lastPlayerConn := sub.role == RolePlayer
	if lastPlayerConn {
		for _, other := range s.subs {
			if other.role == RolePlayer && other.playerID == sub.playerID {
				lastPlayerConn = false
				break
			}
		}
	}
	s.mu.Unlock()

	if lastPlayerConn {
		s.enqueueInternal(&Action{Type: actionDisconnect, PlayerID: sub.playerID, synthetic: true})
	}
}

// Resume reconciles a reconnecting client: deltas after lastKnownSeq are
// replayed in order when still retained, otherwise a fresh snapshot is
// pushed. Processed by the actor so replay never interleaves with live
// broadcasts.
func (s *Session) Resume(subID string, lastKnownSeq int64) {
	s.enqueueInternal(&Action{Type: actionResume, subID: subID, lastKnown: lastKnownSeq, synthetic: true})
}

// Actor-side hub operations.

func (s *Session) handleSubscribe(a *Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[a.subID]
	if !ok {
		return
	}
	s.sendLocked(sub, OutgoingMessage{
		Type:      "snapshot",
		ChannelID: s.channelID,
		ServerSeq: s.serverSeq,
		State:     s.exportState(sub.role, sub.playerID),
	})
}

func (s *Session) handleResume(a *Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[a.subID]
	if !ok {
		return
	}
	if a.lastKnown == s.serverSeq {
		return
	}
	if a.lastKnown < s.serverSeq && len(s.deltaLog) > 0 && s.deltaLog[0].ServerSeq <= a.lastKnown+1 {
		for _, msg := range s.deltaLog {
			if msg.ServerSeq > a.lastKnown {
				s.sendLocked(sub, msg)
			}
		}
		return
	}
	// Gap exceeds the retained window, or the client claims a seq the
	// server never issued; either way fall back to a full snapshot.
	s.sendLocked(sub, OutgoingMessage{
		Type:      "snapshot",
		ChannelID: s.channelID,
		ServerSeq: s.serverSeq,
		State:     s.exportState(sub.role, sub.playerID),
	})
}

// broadcast publishes one delta carrying the current public state overlay,
// tags it with the next serverSeq and retains it for reconnection replay.
// Fan-out never blocks the actor; a slow subscriber just drops.
func (s *Session) broadcast() {
	changes := s.exportChanges()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.serverSeq++
	msg := OutgoingMessage{
		Type:      "delta",
		ChannelID: s.channelID,
		ServerSeq: s.serverSeq,
		Changes:   changes,
	}
	s.deltaLog = append(s.deltaLog, msg)
	if max := s.set.DeltaWindow; max > 0 && len(s.deltaLog) > max {
		s.deltaLog = append(s.deltaLog[:0:0], s.deltaLog[len(s.deltaLog)-max:]...)
	}
	s.statsPhase = s.phase
	s.statsPlayers = s.seatedCount()
	for _, sub := range s.subs {
		s.sendLocked(sub, msg)
	}
}

// pushPrivateCards delivers a player's hole cards only to that player's
// own subscriptions; they never enter the shared delta stream.
func (s *Session) pushPrivateCards(st *seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.role == RolePlayer && sub.playerID == st.PlayerID {
			s.sendLocked(sub, OutgoingMessage{
				Type:      "deal",
				ChannelID: s.channelID,
				ServerSeq: s.serverSeq,
				Data: map[string]interface{}{
					"seat":  st.Seat,
					"cards": append([]string(nil), st.Hole...),
				},
			})
		}
	}
}

func (s *Session) broadcastError(err error, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := OutgoingMessage{
		Type:      "error",
		ChannelID: s.channelID,
		Code:      apperr.Code(err),
		Message:   message,
	}
	for _, sub := range s.subs {
		s.sendLocked(sub, msg)
	}
}

func (s *Session) sendLocked(sub *subscriber, msg OutgoingMessage) {
	select {
	case sub.ch <- msg:
	default:
		logger.Log.Warn("subscriber channel full, dropping message",
			zap.String("channelID", s.channelID),
			zap.String("subID", sub.id),
			zap.Int64("playerID", sub.playerID),
		)
	}
}

// ErrorMessage shapes a wire error for a specific channel, used by the
// transport when an action dispatch fails.
func ErrorMessage(channelID string, err error) OutgoingMessage {
	return OutgoingMessage{
		Type:      "error",
		ChannelID: channelID,
		Code:      apperr.Code(err),
		Message:   fmt.Sprintf("%v", err),
	}
}
