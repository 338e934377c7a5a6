package stockcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one counter per item plus a set of the cached ids. Each
// item also has a generation that every Delete bumps, so a fill computed
// before a delete can be discarded.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func stockKey(itemID int64) string {
	return fmt.Sprintf("clothstock:item:%d:stock", itemID)
}

func genKey(itemID int64) string {
	return fmt.Sprintf("clothstock:item:%d:gen", itemID)
}

const cachedItemsKey = "clothstock:items"

var errGenerationMoved = errors.New("stockcache: generation moved")

// Get returns the cached stock. ok is false on a miss.
func (r *RedisStore) Get(ctx context.Context, itemID int64) (stock int64, ok bool, err error) {
	s, err := r.client.Get(ctx, stockKey(itemID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	stock, err = strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("cached stock for item %d: %w", itemID, err)
	}
	return stock, true, nil
}

func (r *RedisStore) Set(ctx context.Context, itemID, stock int64) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, stockKey(itemID), stock, r.ttl)
	pipe.SAdd(ctx, cachedItemsKey, itemID)
	_, err := pipe.Exec(ctx)
	return err
}

// Generation returns the item's current generation, 0 if never deleted.
func (r *RedisStore) Generation(ctx context.Context, itemID int64) (int64, error) {
	gen, err := r.client.Get(ctx, genKey(itemID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// SetIfGeneration stores stock only while the item is still at gen. It
// reports false when a Delete got in first.
func (r *RedisStore) SetIfGeneration(ctx context.Context, itemID, gen, stock int64) (bool, error) {
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey(itemID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errGenerationMoved
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, stockKey(itemID), stock, r.ttl)
			pipe.SAdd(ctx, cachedItemsKey, itemID)
			return nil
		})
		return err
	}, genKey(itemID))
	if errors.Is(err, errGenerationMoved) || errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisStore) Delete(ctx context.Context, itemID int64) error {
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, genKey(itemID))
	pipe.Del(ctx, stockKey(itemID))
	pipe.SRem(ctx, cachedItemsKey, itemID)
	_, err := pipe.Exec(ctx)
	return err
}

// Clear removes every key this store has written.
func (r *RedisStore) Clear(ctx context.Context) error {
	ids, err := r.client.SMembers(ctx, cachedItemsKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, s := range ids {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		keys = append(keys, stockKey(id))
	}
	keys = append(keys, cachedItemsKey)
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
