package realtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	presenceKeyPrefix  = "hrm:presence:"
	defaultPresenceTTL = 90 * time.Second
)

// Presence is the cross-instance online index in redis. One hash per
// (tenant, user); each field is a connection id mapped to the instance that
// holds it plus the last heartbeat. The TTL makes liveness implicit: a
// gateway that dies without cleanup stops refreshing and the key expires.
// Concurrent connects for the same user are last-writer-wins.
type Presence struct {
	rdb        *redis.Client
	instanceID string
	ttl        time.Duration
	logger     *zap.Logger
}

func NewPresence(rdb *redis.Client, instanceID string, logger ...*zap.Logger) *Presence {
	l := zap.L().Named("realtime.presence")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("realtime.presence")
	}
	return &Presence{
		rdb:        rdb,
		instanceID: instanceID,
		ttl:        defaultPresenceTTL,
		logger:     l,
	}
}

func presenceKey(tenantID, userID string) string {
	return presenceKeyPrefix + tenantID + ":" + userID
}

func lastSeenFrom(value string) time.Time {
	_, ts, ok := strings.Cut(value, "|")
	if !ok {
		return time.Time{}
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

// liveConnections drops fields whose last heartbeat fell outside the TTL
// window. Another connection of the same user keeps the key alive with its
// own heartbeats, so a field left behind by a dead instance never expires on
// its own; this is where it gets cleaned up. Returns the remaining count.
func (p *Presence) liveConnections(ctx context.Context, key string, now time.Time) (int, error) {
	fields, err := p.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("presence hgetall: %w", err)
	}

	live := 0
	var stale []string
	for connID, value := range fields {
		if lastSeenFrom(value).Add(p.ttl).Before(now) {
			stale = append(stale, connID)
			continue
		}
		live++
	}
	if len(stale) > 0 {
		if err := p.rdb.HDel(ctx, key, stale...).Err(); err != nil {
			return 0, fmt.Errorf("presence prune: %w", err)
		}
	}
	return live, nil
}

// Track records one live connection. Returns true when this was the user's
// first connection anywhere, so the caller knows to announce user online.
func (p *Presence) Track(ctx context.Context, tenantID, userID, connectionID string) (bool, error) {
	key := presenceKey(tenantID, userID)

	live, err := p.liveConnections(ctx, key, time.Now())
	if err != nil {
		return false, err
	}

	value := fmt.Sprintf("%s|%d", p.instanceID, time.Now().Unix())
	if err := p.rdb.HSet(ctx, key, connectionID, value).Err(); err != nil {
		return false, fmt.Errorf("presence hset: %w", err)
	}
	if err := p.rdb.Expire(ctx, key, p.ttl).Err(); err != nil {
		return false, fmt.Errorf("presence expire: %w", err)
	}

	return live == 0, nil
}

// Heartbeat refreshes the liveness window for one connection.
func (p *Presence) Heartbeat(ctx context.Context, tenantID, userID, connectionID string) error {
	key := presenceKey(tenantID, userID)

	value := fmt.Sprintf("%s|%d", p.instanceID, time.Now().Unix())
	if err := p.rdb.HSet(ctx, key, connectionID, value).Err(); err != nil {
		return fmt.Errorf("presence heartbeat hset: %w", err)
	}
	if err := p.rdb.Expire(ctx, key, p.ttl).Err(); err != nil {
		return fmt.Errorf("presence heartbeat expire: %w", err)
	}
	return nil
}

// Untrack drops one connection. Returns true when it was the user's last
// connection anywhere, so the caller knows to announce user offline.
func (p *Presence) Untrack(ctx context.Context, tenantID, userID, connectionID string) (bool, error) {
	key := presenceKey(tenantID, userID)

	if err := p.rdb.HDel(ctx, key, connectionID).Err(); err != nil {
		return false, fmt.Errorf("presence hdel: %w", err)
	}

	live, err := p.liveConnections(ctx, key, time.Now())
	if err != nil {
		return false, err
	}
	if live == 0 {
		if err := p.rdb.Del(ctx, key).Err(); err != nil {
			p.logger.Warn("presence key cleanup failed", zap.String("key", key), zap.Error(err))
		}
		return true, nil
	}
	return false, nil
}

// WhoIsOnline lists the user ids with at least one live connection in the
// tenant, across every gateway instance.
func (p *Presence) WhoIsOnline(ctx context.Context, tenantID string) ([]string, error) {
	prefix := presenceKeyPrefix + tenantID + ":"

	var users []string
	var cursor uint64
	for {
		keys, next, err := p.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("presence scan: %w", err)
		}
		for _, key := range keys {
			users = append(users, strings.TrimPrefix(key, prefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return users, nil
}
