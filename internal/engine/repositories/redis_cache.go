package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anhbaysgalan1/holdem/internal/auth"
	"github.com/anhbaysgalan1/holdem/internal/engine/domain/game"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	// Cache key prefixes
	tableSnapshotPrefix = "table_snapshot:"
	tableEventsPrefix   = "table_events:"
	sessionPrefix       = "table_session:"

	// Cache TTL durations
	tableSnapshotTTL = 1 * time.Hour
)

// RedisCache keeps the public view of every live table in redis and
// publishes each change on the table's channel, so other services can
// follow tables without a websocket.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
	}
}

func TableChannel(tableID uuid.UUID) string {
	return tableEventsPrefix + tableID.String()
}

// SetTableSnapshot caches and publishes the spectator view of the table.
// Hole cards are redacted before anything leaves the process.
func (rc *RedisCache) SetTableSnapshot(ctx context.Context, snapshot game.Snapshot) error {
	view := snapshot.ViewFor(uuid.Nil)
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal table snapshot: %w", err)
	}

	pipe := rc.client.TxPipeline()
	pipe.Set(ctx, tableSnapshotPrefix+view.ID.String(), data, tableSnapshotTTL)
	pipe.Publish(ctx, TableChannel(view.ID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache table snapshot: %w", err)
	}
	return nil
}

// GetTableSnapshot returns the cached view, or nil on a cache miss.
func (rc *RedisCache) GetTableSnapshot(ctx context.Context, tableID uuid.UUID) (*game.Snapshot, error) {
	data, err := rc.client.Get(ctx, tableSnapshotPrefix+tableID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached table snapshot: %w", err)
	}

	var snapshot game.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal table snapshot: %w", err)
	}
	return &snapshot, nil
}

// DeleteTableSnapshot removes a closed table's cached view.
func (rc *RedisCache) DeleteTableSnapshot(ctx context.Context, tableID uuid.UUID) error {
	return rc.client.Del(ctx, tableSnapshotPrefix+tableID.String()).Err()
}

// RedisSessionStore keeps table sessions in redis. Each key expires after
// the idle TTL and is extended on every save, so abandoned sessions vanish
// even if no sweep runs.
type RedisSessionStore struct {
	client  *redis.Client
	idleTTL time.Duration
}

func NewRedisSessionStore(client *redis.Client, idleTTL time.Duration) *RedisSessionStore {
	if idleTTL <= 0 {
		idleTTL = auth.DefaultSessionIdleTTL
	}
	return &RedisSessionStore{client: client, idleTTL: idleTTL}
}

func (s *RedisSessionStore) Save(ctx context.Context, session *auth.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	ttl := s.idleTTL
	if untilExpiry := time.Until(session.ExpiresAt); untilExpiry > 0 && untilExpiry < ttl {
		ttl = untilExpiry
	}
	return s.client.Set(ctx, sessionPrefix+session.Credential, data, ttl).Err()
}

func (s *RedisSessionStore) Get(ctx context.Context, credential string) (*auth.Session, error) {
	data, err := s.client.Get(ctx, sessionPrefix+credential).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	var session auth.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, credential string) error {
	return s.client.Del(ctx, sessionPrefix+credential).Err()
}

// List scans every session key. Keys that expire between the scan and the
// read are skipped.
func (s *RedisSessionStore) List(ctx context.Context) ([]*auth.Session, error) {
	var sessions []*auth.Session
	iter := s.client.Scan(ctx, 0, sessionPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		credential := iter.Val()[len(sessionPrefix):]
		session, err := s.Get(ctx, credential)
		if errors.Is(err, auth.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return sessions, nil
}
