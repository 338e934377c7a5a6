package engine

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"clothstock/config"
	"clothstock/forms"
	"clothstock/ledger"
	"clothstock/messaging"
	"clothstock/metrics"
	"clothstock/stockcache"
	"clothstock/store"
)

type fakeCache struct {
	mu          sync.Mutex
	invalidated []int64
}

func (f *fakeCache) ItemStock(context.Context, int64) (int64, error) { return 42, nil }

func (f *fakeCache) Invalidate(_ context.Context, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, id)
}

type harness struct {
	eng    *Engine
	db     *store.DB
	cache  *fakeCache
	m      *metrics.Metrics
	events []Event
}

func newHarness(t *testing.T, backend string) *harness {
	t.Helper()
	cfg := config.Defaults()
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "engine.db")
	cfg.Messaging.Backend = backend
	db, err := store.Open(&cfg.Database)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := &harness{db: db, cache: &fakeCache{}, m: metrics.New()}
	h.eng = New(Config{AppConfig: cfg, DB: db, Stock: h.cache, Metrics: h.m})
	h.eng.Start(context.Background())
	h.eng.Events.Subscribe(func(e Event) { h.events = append(h.events, e) })
	return h
}

func (h *harness) item(t *testing.T, name string) *store.Item {
	t.Helper()
	it := &store.Item{Name: name, IsActive: true}
	if err := h.eng.CreateItem(context.Background(), it, "tester"); err != nil {
		t.Fatalf("create item: %v", err)
	}
	return it
}

func (h *harness) lastEvent(t *testing.T) Event {
	t.Helper()
	if len(h.events) == 0 {
		t.Fatal("no events emitted")
	}
	return h.events[len(h.events)-1]
}

func TestEventBusFilter(t *testing.T) {
	eb := NewEventBus()
	var all, movements int
	eb.Subscribe(func(Event) { all++ })
	id := eb.Subscribe(func(Event) { movements++ }, EventMovementRecorded)

	eb.Emit(Event{Type: EventEntitySaved})
	eb.Emit(Event{Type: EventMovementRecorded})
	eb.Unsubscribe(id)
	eb.Emit(Event{Type: EventMovementRecorded})

	if all != 3 || movements != 1 {
		t.Errorf("all = %d, movements = %d", all, movements)
	}
}

func TestRecordMovement(t *testing.T) {
	h := newHarness(t, "none")
	ctx := context.Background()
	it := h.item(t, "Tee")

	for _, m := range []*store.StockMovement{
		{ItemID: it.ID, Type: ledger.In, Quantity: 10},
		{ItemID: it.ID, Type: ledger.Out, Quantity: 5},
	} {
		if err := h.eng.RecordMovement(ctx, m, "staff1"); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	ev, ok := h.lastEvent(t).Payload.(MovementRecordedEvent)
	if !ok || ev.Delta != -5 || ev.Actor != "staff1" {
		t.Errorf("last event = %+v", h.lastEvent(t))
	}
	if len(h.cache.invalidated) != 2 || h.cache.invalidated[0] != it.ID {
		t.Errorf("invalidated = %v", h.cache.invalidated)
	}

	hist, err := h.eng.ItemHistory(ctx, it.ID)
	if err != nil {
		t.Fatal(err)
	}
	if hist.Stock != 5 || len(hist.Entries) != 2 || hist.Entries[0].Balance != 10 {
		t.Errorf("history = %+v", hist)
	}
	if got := testutil.ToFloat64(h.m.MovementsRecorded.WithLabelValues("OUT")); got != 1 {
		t.Errorf("OUT counter = %v", got)
	}
	if pending, _ := h.db.ListPendingOutbox(ctx, 10); len(pending) != 0 {
		t.Errorf("outbox written with messaging off: %d rows", len(pending))
	}
}

func TestRecordMovementQueuesOutbox(t *testing.T) {
	h := newHarness(t, "kafka")
	ctx := context.Background()
	it := h.item(t, "Coat")

	m := &store.StockMovement{ItemID: it.ID, Type: ledger.Adjust, Quantity: 3}
	if err := h.eng.RecordMovement(ctx, m, "admin"); err != nil {
		t.Fatal(err)
	}
	pending, err := h.db.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %+v, %v", pending, err)
	}
	if pending[0].Topic != "clothstock.stock.movements" {
		t.Errorf("topic = %q", pending[0].Topic)
	}
	env, err := messaging.DecodeEnvelope(pending[0].Payload)
	if err != nil {
		t.Fatal(err)
	}
	p := env.Payload.(messaging.MovementRecorded)
	if env.EventID != pending[0].EventID || p.MovementID != m.ID || p.Delta != 3 || p.Actor != "admin" {
		t.Errorf("envelope = %+v payload = %+v", env, p)
	}
}

func TestRecordMovementMissingReferences(t *testing.T) {
	h := newHarness(t, "kafka")
	ctx := context.Background()
	it := h.item(t, "Hat")
	missing := int64(77)

	tests := []struct {
		m     *store.StockMovement
		field string
	}{
		{&store.StockMovement{ItemID: 999, Type: ledger.In, Quantity: 1}, "item_id"},
		{&store.StockMovement{ItemID: it.ID, Type: ledger.In, Quantity: 1, SupplierID: &missing}, "supplier_id"},
		{&store.StockMovement{ItemID: it.ID, Type: "RETURN", Quantity: 1}, "movement_type"},
	}
	for _, tt := range tests {
		err := h.eng.RecordMovement(ctx, tt.m, "x")
		errs, ok := forms.AsErrors(err)
		if !ok || !errs.Has(tt.field) {
			t.Errorf("err = %v, want field error on %s", err, tt.field)
		}
	}
	if pending, _ := h.db.ListPendingOutbox(ctx, 10); len(pending) != 0 {
		t.Errorf("outbox rows left by failed writes: %d", len(pending))
	}
	if len(h.cache.invalidated) != 0 {
		t.Errorf("cache invalidated on failed writes: %v", h.cache.invalidated)
	}
}

func TestCreateItemUnknownCategory(t *testing.T) {
	h := newHarness(t, "none")
	bad := int64(5)
	err := h.eng.CreateItem(context.Background(), &store.Item{Name: "x", CategoryID: &bad}, "x")
	if errs, ok := forms.AsErrors(err); !ok || !errs.Has("category_id") {
		t.Errorf("err = %v", err)
	}
}

func TestDeleteRefusedEmitsEvent(t *testing.T) {
	h := newHarness(t, "none")
	ctx := context.Background()
	it := h.item(t, "Scarf")
	if err := h.eng.RecordMovement(ctx, &store.StockMovement{ItemID: it.ID, Type: ledger.In, Quantity: 1}, "a"); err != nil {
		t.Fatal(err)
	}

	err := h.eng.DeleteItem(ctx, it.ID, "admin")
	if !errors.Is(err, store.ErrInUse) {
		t.Fatalf("err = %v", err)
	}
	ev, ok := h.lastEvent(t).Payload.(DeleteRefusedEvent)
	if !ok || ev.Entity != EntityItem || ev.References != 1 {
		t.Errorf("event = %+v", h.lastEvent(t))
	}
	if got := testutil.ToFloat64(h.m.DeletesRefused.WithLabelValues("item")); got != 1 {
		t.Errorf("refused counter = %v", got)
	}
}

func TestDeleteAndSave(t *testing.T) {
	h := newHarness(t, "none")
	ctx := context.Background()

	c := &store.Category{Name: "Tops"}
	if err := h.eng.CreateCategory(ctx, c, "a"); err != nil {
		t.Fatal(err)
	}
	c.Name = "Shirts"
	if err := h.eng.UpdateCategory(ctx, c, "a"); err != nil {
		t.Fatal(err)
	}
	s := &store.Supplier{Name: "Mill"}
	if err := h.eng.CreateSupplier(ctx, s, "a"); err != nil {
		t.Fatal(err)
	}
	if err := h.eng.UpdateSupplier(ctx, s, "a"); err != nil {
		t.Fatal(err)
	}
	if err := h.eng.DeleteCategory(ctx, c.ID, "a"); err != nil {
		t.Fatal(err)
	}
	if err := h.eng.DeleteSupplier(ctx, s.ID, "a"); err != nil {
		t.Fatal(err)
	}
	if err := h.eng.DeleteSupplier(ctx, s.ID, "a"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	if ev, ok := h.lastEvent(t).Payload.(EntityDeletedEvent); !ok || ev.Entity != EntitySupplier {
		t.Errorf("last event = %+v", h.lastEvent(t))
	}
	if got := testutil.ToFloat64(h.m.EntityWrites.WithLabelValues("category", "updated")); got != 1 {
		t.Errorf("category updates = %v", got)
	}
}

func TestImportCategoriesPartialSuccess(t *testing.T) {
	h := newHarness(t, "none")
	ctx := context.Background()

	res, err := h.eng.ImportCategories(ctx, "Shirts, Tops\n , nameless\nPants,\n\nBadline", "admin")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Inserted) != 3 || len(res.Rejected) != 1 || res.Rejected[0].Line != 2 {
		t.Errorf("result = %+v", res)
	}
	for _, c := range res.Inserted {
		if c.ID == 0 {
			t.Errorf("category %q has no id", c.Name)
		}
	}
	cats, _ := h.db.ListCategories(ctx)
	if len(cats) != 3 {
		t.Errorf("stored %d categories, want 3", len(cats))
	}
	if got := testutil.ToFloat64(h.m.CategoriesImport.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected counter = %v", got)
	}
}

func TestItemStockUsesCache(t *testing.T) {
	h := newHarness(t, "none")
	if s, _ := h.eng.ItemStock(context.Background(), 1); s != 42 {
		t.Errorf("stock = %d, want cached 42", s)
	}
}

func TestDeletedItemLeavesRedisCache(t *testing.T) {
	cfg := config.Defaults()
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "engine.db")
	db, err := store.Open(&cfg.Database)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cache := stockcache.NewManager(db, stockcache.NewRedisStore(client, time.Minute), zap.NewNop())
	eng := New(Config{AppConfig: cfg, DB: db, Stock: cache})
	eng.Start(context.Background())
	ctx := context.Background()

	it := &store.Item{Name: "Beanie", SKU: "BN-1", IsActive: true}
	if err := eng.CreateItem(ctx, it, "test"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := cache.SyncFromSQL(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if s, err := eng.ItemStock(ctx, it.ID); err != nil || s != 0 {
		t.Fatalf("ItemStock = %d, %v", s, err)
	}
	key := "clothstock:item:" + strconv.FormatInt(it.ID, 10) + ":stock"
	if !mr.Exists(key) {
		t.Fatal("stock not cached")
	}

	if err := eng.DeleteItem(ctx, it.ID, "test"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists(key) {
		t.Error("cached stock survived delete")
	}
	if _, err := eng.ItemStock(ctx, it.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("after delete err = %v, want ErrNotFound", err)
	}
}
