package allowlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
)

const defaultRedisPrefix = "allowlist"

// RedisRepository implements Repository on Redis.
//
// Layout:
//
//	<prefix>:jti:<jti>     JSON token, TTL = time to expiry + retention
//	<prefix>:owner:<id>    set of the owner's jtis
//
// Token keys disappear on their own after the retention window; owner sets
// may keep dangling members until ListActive or PurgeExpired drops them.
// An owner set is never deleted as a whole: members are removed one by one
// so a concurrent Put cannot lose its index entry.
type RedisRepository struct {
	client    red.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewRedisRepository wires a Redis client into an allowlist repository.
func NewRedisRepository(client red.UniversalClient, keyPrefix string, retention time.Duration) *RedisRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if retention < 0 {
		retention = 0
	}
	return &RedisRepository{client: client, prefix: prefix, retention: retention, now: time.Now}
}

func (r *RedisRepository) tokenKey(tokenID string) string {
	return fmt.Sprintf("%s:jti:%s", r.prefix, tokenID)
}

func (r *RedisRepository) ownerKey(ownerID string) string {
	return fmt.Sprintf("%s:owner:%s", r.prefix, ownerID)
}

func (r *RedisRepository) ttl(expiresAt time.Time) time.Duration {
	ttl := expiresAt.Sub(r.now()) + r.retention
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func (r *RedisRepository) Put(ctx context.Context, token *models.AllowlistedToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode allowlisted token: %w", err)
	}

	key := r.tokenKey(token.TokenID)
	created, err := r.client.SetNX(ctx, key, data, r.ttl(token.ExpiresAt)).Result()
	if err != nil {
		return fmt.Errorf("redis setnx allowlisted jti: %w", err)
	}

	if !created {
		existing, err := r.load(ctx, token.TokenID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("jti %s changed concurrently: %w", token.TokenID, common.ErrDuplicateTokenID)
			}
			return err
		}
		if existing.OwnerID != token.OwnerID {
			return fmt.Errorf("jti %s: %w", token.TokenID, common.ErrDuplicateTokenID)
		}
		return nil
	}

	if err := r.client.SAdd(ctx, r.ownerKey(token.OwnerID), token.TokenID).Err(); err != nil {
		_ = r.client.Del(ctx, key).Err()
		return fmt.Errorf("redis sadd owner index: %w", err)
	}
	return nil
}

func (r *RedisRepository) load(ctx context.Context, tokenID string) (*models.AllowlistedToken, error) {
	data, err := r.client.Get(ctx, r.tokenKey(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis get allowlisted jti: %w", err)
	}
	return decodeToken(data)
}

func decodeToken(data []byte) (*models.AllowlistedToken, error) {
	t := &models.AllowlistedToken{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("decode allowlisted token: %w", err)
	}
	return t, nil
}

func (r *RedisRepository) Get(ctx context.Context, ownerID, tokenID string) (*models.AllowlistedToken, error) {
	t, err := r.load(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

// owned loads every token indexed under ownerID. Members whose token key is
// gone are removed from the index.
func (r *RedisRepository) owned(ctx context.Context, ownerID string) ([]models.AllowlistedToken, error) {
	setKey := r.ownerKey(ownerID)
	members, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers owner index: %w", err)
	}
	tokens := make([]models.AllowlistedToken, 0, len(members))
	if len(members) == 0 {
		return tokens, nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = r.tokenKey(m)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget allowlisted jtis: %w", err)
	}

	var stale []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, members[i])
			continue
		}
		t, err := decodeToken([]byte(s))
		if err != nil {
			return nil, err
		}
		if t.OwnerID != ownerID {
			stale = append(stale, members[i])
			continue
		}
		tokens = append(tokens, *t)
	}

	if len(stale) > 0 {
		if err := r.client.SRem(ctx, setKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("redis srem stale members: %w", err)
		}
	}
	return tokens, nil
}

func (r *RedisRepository) ListActive(ctx context.Context, ownerID string, now time.Time) ([]models.AllowlistedToken, error) {
	all, err := r.owned(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, t := range all {
		if t.ActiveAt(now) {
			active = append(active, t)
		}
	}
	return active, nil
}

func (r *RedisRepository) Delete(ctx context.Context, ownerID, tokenID string) error {
	if _, err := r.Get(ctx, ownerID, tokenID); err != nil {
		return err
	}

	n, err := r.client.Del(ctx, r.tokenKey(tokenID)).Result()
	if err != nil {
		return fmt.Errorf("redis del allowlisted jti: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	if err := r.client.SRem(ctx, r.ownerKey(ownerID), tokenID).Err(); err != nil {
		return fmt.Errorf("redis srem owner index: %w", err)
	}
	return nil
}

// DeleteAll removes the tokens indexed under ownerID. Only the members it
// deleted leave the owner set, so a token put concurrently stays indexed and
// a later DeleteAll still finds it.
func (r *RedisRepository) DeleteAll(ctx context.Context, ownerID string) error {
	tokens, err := r.owned(ctx, ownerID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	keys := make([]string, 0, len(tokens))
	members := make([]any, 0, len(tokens))
	for _, t := range tokens {
		keys = append(keys, r.tokenKey(t.TokenID))
		members = append(members, t.TokenID)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe red.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.SRem(ctx, r.ownerKey(ownerID), members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis del owner tokens: %w", err)
	}
	return nil
}

// PurgeExpired walks every owner index, deleting tokens expired at or
// before before and dropping dangling members.
func (r *RedisRepository) PurgeExpired(ctx context.Context, before time.Time) ([]models.AllowlistedToken, error) {
	purged := make([]models.AllowlistedToken, 0)
	ownerPrefix := r.ownerKey("")

	iter := r.client.Scan(ctx, 0, ownerPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ownerID := strings.TrimPrefix(iter.Val(), ownerPrefix)

		tokens, err := r.owned(ctx, ownerID)
		if err != nil {
			return purged, err
		}
		for _, t := range tokens {
			if t.ActiveAt(before) {
				continue
			}
			if err := r.client.Del(ctx, r.tokenKey(t.TokenID)).Err(); err != nil {
				return purged, fmt.Errorf("redis del expired jti: %w", err)
			}
			if err := r.client.SRem(ctx, iter.Val(), t.TokenID).Err(); err != nil {
				return purged, fmt.Errorf("redis srem expired jti: %w", err)
			}
			purged = append(purged, t)
		}
	}
	if err := iter.Err(); err != nil {
		return purged, fmt.Errorf("redis scan owner indexes: %w", err)
	}
	return purged, nil
}

var _ Repository = (*RedisRepository)(nil)
