package stockcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"clothstock/store"
)

type fakeSource struct {
	stock map[int64]int64
	reads int
	// afterRead runs once the value to return has been read.
	afterRead func(id int64)
}

func (f *fakeSource) ItemStock(_ context.Context, id int64) (int64, error) {
	f.reads++
	s, ok := f.stock[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	if f.afterRead != nil {
		f.afterRead(id)
	}
	return s, nil
}

func (f *fakeSource) ListItems(_ context.Context, _ store.ItemFilter) ([]store.ItemRow, error) {
	var rows []store.ItemRow
	for id, s := range f.stock {
		rows = append(rows, store.ItemRow{Item: store.Item{ID: id}, Stock: s})
	}
	return rows, nil
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestItemStockReadThrough(t *testing.T) {
	client, mr := setupTestRedis(t)
	src := &fakeSource{stock: map[int64]int64{1: 7}}
	m := NewManager(src, NewRedisStore(client, time.Minute), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := m.ItemStock(ctx, 1)
		if err != nil || s != 7 {
			t.Fatalf("ItemStock = %d, %v", s, err)
		}
	}
	if src.reads != 1 {
		t.Errorf("source reads = %d, want 1", src.reads)
	}
	if got, _ := mr.Get("clothstock:item:1:stock"); got != "7" {
		t.Errorf("cached value = %q", got)
	}
	if ttl := mr.TTL("clothstock:item:1:stock"); ttl != time.Minute {
		t.Errorf("ttl = %v", ttl)
	}
}

func TestInvalidate(t *testing.T) {
	client, mr := setupTestRedis(t)
	src := &fakeSource{stock: map[int64]int64{1: 7}}
	m := NewManager(src, NewRedisStore(client, time.Minute), zap.NewNop())
	ctx := context.Background()

	m.ItemStock(ctx, 1)
	src.stock[1] = 2
	m.Invalidate(ctx, 1)
	if mr.Exists("clothstock:item:1:stock") {
		t.Fatal("key survived invalidate")
	}
	if s, _ := m.ItemStock(ctx, 1); s != 2 {
		t.Errorf("after invalidate stock = %d, want 2", s)
	}
}

func TestInvalidateDuringFillDropsStaleValue(t *testing.T) {
	client, mr := setupTestRedis(t)
	src := &fakeSource{stock: map[int64]int64{1: 7}}
	m := NewManager(src, NewRedisStore(client, time.Minute), zap.NewNop())
	ctx := context.Background()

	// A movement commits between the SQL read and the cache write.
	src.afterRead = func(id int64) {
		src.afterRead = nil
		src.stock[id] = 12
		m.Invalidate(ctx, id)
	}
	if s, err := m.ItemStock(ctx, 1); err != nil || s != 7 {
		t.Fatalf("ItemStock = %d, %v", s, err)
	}
	if mr.Exists("clothstock:item:1:stock") {
		got, _ := mr.Get("clothstock:item:1:stock")
		t.Fatalf("stale value %q cached after invalidate", got)
	}
	if got, _ := mr.Get("clothstock:item:1:gen"); got != "1" {
		t.Errorf("generation = %q, want 1", got)
	}

	if s, _ := m.ItemStock(ctx, 1); s != 12 {
		t.Errorf("stock = %d, want 12", s)
	}
	if got, _ := mr.Get("clothstock:item:1:stock"); got != "12" {
		t.Errorf("cached value = %q, want 12", got)
	}
}

func TestSetIfGeneration(t *testing.T) {
	client, mr := setupTestRedis(t)
	rs := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	if err := rs.Delete(ctx, 4); err != nil {
		t.Fatal(err)
	}
	if ok, err := rs.SetIfGeneration(ctx, 4, 0, 9); err != nil || ok {
		t.Errorf("old generation: ok = %v, err = %v", ok, err)
	}
	if mr.Exists("clothstock:item:4:stock") {
		t.Error("stored under old generation")
	}
	gen, err := rs.Generation(ctx, 4)
	if err != nil || gen != 1 {
		t.Fatalf("Generation = %d, %v", gen, err)
	}
	if ok, err := rs.SetIfGeneration(ctx, 4, gen, 9); err != nil || !ok {
		t.Errorf("current generation: ok = %v, err = %v", ok, err)
	}
	if got, _ := mr.Get("clothstock:item:4:stock"); got != "9" {
		t.Errorf("cached value = %q", got)
	}
}

func TestFallbackWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { client.Close() })
	src := &fakeSource{stock: map[int64]int64{3: -4}}
	m := NewManager(src, NewRedisStore(client, time.Minute), zap.NewNop())

	s, err := m.ItemStock(context.Background(), 3)
	if err != nil || s != -4 {
		t.Errorf("ItemStock = %d, %v", s, err)
	}
	m.Invalidate(context.Background(), 3)
}

func TestNoRedis(t *testing.T) {
	src := &fakeSource{stock: map[int64]int64{}}
	m := NewManager(src, nil, zap.NewNop())
	if _, err := m.ItemStock(context.Background(), 5); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
	if err := m.SyncFromSQL(context.Background()); err != nil {
		t.Errorf("sync without redis: %v", err)
	}
}

func TestSyncFromSQL(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	rs := NewRedisStore(client, time.Minute)
	if err := rs.Set(ctx, 99, 1); err != nil {
		t.Fatal(err)
	}

	src := &fakeSource{stock: map[int64]int64{1: 10, 2: 0}}
	m := NewManager(src, rs, zap.NewNop())
	if err := m.SyncFromSQL(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if mr.Exists("clothstock:item:99:stock") {
		t.Error("stale item not cleared")
	}
	if got, _ := mr.Get("clothstock:item:1:stock"); got != "10" {
		t.Errorf("item 1 = %q", got)
	}
	if s, _ := m.ItemStock(ctx, 2); s != 0 || src.reads != 0 {
		t.Errorf("stock = %d, source reads = %d", s, src.reads)
	}
}
