// Package stockcache caches derived item stock in Redis. The database stays
// authoritative: every read falls back to the SQL aggregate on a miss or a
// Redis error, and a recorded movement drops the cached value.
package stockcache

import (
	"context"

	"go.uber.org/zap"

	"clothstock/store"
)

// Source computes stock from the database.
type Source interface {
	ItemStock(ctx context.Context, itemID int64) (int64, error)
	ListItems(ctx context.Context, f store.ItemFilter) ([]store.ItemRow, error)
}

type Manager struct {
	src   Source
	redis *RedisStore
	log   *zap.Logger
}

// NewManager returns a Manager. A nil redis store makes every call go to
// the database.
func NewManager(src Source, redis *RedisStore, log *zap.Logger) *Manager {
	return &Manager{src: src, redis: redis, log: log.Named("stockcache")}
}

// ItemStock reads stock from Redis, falling back to SQL and repopulating
// the cache. The fill is skipped if the item was invalidated after the
// generation was read, so a concurrent movement never leaves its
// pre-commit value behind.
func (m *Manager) ItemStock(ctx context.Context, itemID int64) (int64, error) {
	fill := m.redis != nil
	var gen int64
	if fill {
		stock, ok, err := m.redis.Get(ctx, itemID)
		switch {
		case err != nil:
			m.log.Warn("redis get", zap.Int64("item_id", itemID), zap.Error(err))
			fill = false
		case ok:
			return stock, nil
		default:
			if gen, err = m.redis.Generation(ctx, itemID); err != nil {
				m.log.Warn("redis generation", zap.Int64("item_id", itemID), zap.Error(err))
				fill = false
			}
		}
	}

	stock, err := m.src.ItemStock(ctx, itemID)
	if err != nil {
		return 0, err
	}
	if fill {
		stored, err := m.redis.SetIfGeneration(ctx, itemID, gen, stock)
		if err != nil {
			m.log.Warn("redis set", zap.Int64("item_id", itemID), zap.Error(err))
		} else if !stored {
			m.log.Debug("stale fill dropped", zap.Int64("item_id", itemID))
		}
	}
	return stock, nil
}

// Invalidate drops the cached stock of an item and bumps its generation.
// Call after the write that changed it has committed.
func (m *Manager) Invalidate(ctx context.Context, itemID int64) {
	if m.redis == nil {
		return
	}
	if err := m.redis.Delete(ctx, itemID); err != nil {
		m.log.Warn("redis invalidate", zap.Int64("item_id", itemID), zap.Error(err))
	}
}

// SyncFromSQL rebuilds the cache from the database. Called on startup.
func (m *Manager) SyncFromSQL(ctx context.Context) error {
	if m.redis == nil {
		return nil
	}
	if err := m.redis.Clear(ctx); err != nil {
		return err
	}
	rows, err := m.src.ListItems(ctx, store.ItemFilter{})
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := m.redis.Set(ctx, r.ID, r.Stock); err != nil {
			return err
		}
	}
	m.log.Info("synced stock to redis", zap.Int("items", len(rows)))
	return nil
}
