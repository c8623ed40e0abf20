package presence

import (
	"context"
	"fmt"
	"time"

	"cardroom-service/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Service tracks which channel a player is currently connected to, via
// short-TTL redis keys refreshed by the transport's heartbeat. The data is
// advisory: the session actor, not redis, is the authority on seating.
type Service struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewService(rdb *redis.Client) *Service {
	return &Service{rdb: rdb, ttl: 90 * time.Second}
}

func playerKey(playerID int64) string {
	return fmt.Sprintf("presence:player:%d", playerID)
}

func channelKey(channelID string) string {
	return fmt.Sprintf("presence:channel:%s", channelID)
}

func ipKey(playerID int64) string {
	return fmt.Sprintf("presence:ip:%d", playerID)
}

// Touch marks the player online in a channel and refreshes the TTL. The
// client IP is retained for the admin collusion view.
func (s *Service) Touch(ctx context.Context, playerID int64, channelID, ip string) {
	if s.rdb == nil {
		return
	}
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, playerKey(playerID), channelID, s.ttl)
	pipe.SAdd(ctx, channelKey(channelID), playerID)
	pipe.Expire(ctx, channelKey(channelID), s.ttl)
	if ip != "" {
		pipe.Set(ctx, ipKey(playerID), ip, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warn("presence touch failed",
			zap.Int64("playerID", playerID),
			zap.String("channelID", channelID),
			zap.Error(err),
		)
	}
}

// Clear drops the player's presence on a clean disconnect.
func (s *Service) Clear(ctx context.Context, playerID int64, channelID string) {
	if s.rdb == nil {
		return
	}
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, playerKey(playerID))
	pipe.Del(ctx, ipKey(playerID))
	pipe.SRem(ctx, channelKey(channelID), playerID)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warn("presence clear failed",
			zap.Int64("playerID", playerID),
			zap.Error(err),
		)
	}
}

// Locate reports the channel a player is connected to, or "" when offline.
func (s *Service) Locate(ctx context.Context, playerID int64) (string, error) {
	if s.rdb == nil {
		return "", nil
	}
	channelID, err := s.rdb.Get(ctx, playerKey(playerID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return channelID, nil
}

// OnlineCount reports how many players are marked present in a channel.
func (s *Service) OnlineCount(ctx context.Context, channelID string) (int64, error) {
	if s.rdb == nil {
		return 0, nil
	}
	n, err := s.rdb.SCard(ctx, channelKey(channelID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// ChannelPlayers lists the player ids marked present in a channel.
func (s *Service) ChannelPlayers(ctx context.Context, channelID string) ([]int64, error) {
	if s.rdb == nil {
		return nil, nil
	}
	members, err := s.rdb.SMembers(ctx, channelKey(channelID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		var id int64
		if _, err := fmt.Sscanf(m, "%d", &id); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// PlayerIP reports the player's last seen client IP, or "".
func (s *Service) PlayerIP(ctx context.Context, playerID int64) string {
	if s.rdb == nil {
		return ""
	}
	ip, err := s.rdb.Get(ctx, ipKey(playerID)).Result()
	if err != nil {
		return ""
	}
	return ip
}
