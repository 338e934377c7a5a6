package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"clothstock/config"
	"clothstock/forms"
	"clothstock/ledger"
	"clothstock/messaging"
	"clothstock/metrics"
	"clothstock/store"
)

// StockCache is the cached view of derived stock.
type StockCache interface {
	ItemStock(ctx context.Context, itemID int64) (int64, error)
	Invalidate(ctx context.Context, itemID int64)
}

type Config struct {
	AppConfig *config.Config
	DB        *store.DB
	Stock     StockCache                // optional
	Outbox    *messaging.OutboxDrainer // optional
	Metrics   *metrics.Metrics         // optional
	Logger    *zap.Logger
}

// Engine runs every write as one store transaction and announces the
// committed result on its event bus.
type Engine struct {
	cfg     *config.Config
	db      *store.DB
	stock   StockCache
	outbox  *messaging.OutboxDrainer
	metrics *metrics.Metrics
	Events  *EventBus
	log     *zap.Logger
}

func New(c Config) *Engine {
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg:     c.AppConfig,
		db:      c.DB,
		stock:   c.Stock,
		outbox:  c.Outbox,
		metrics: c.Metrics,
		Events:  NewEventBus(),
		log:     log.Named("engine"),
	}
}

// Start wires the event handlers and, when messaging is on, starts the
// outbox drainer. Background work stops when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	e.wireEventHandlers()
	if e.outbox != nil {
		go e.outbox.Run(ctx)
	}
	e.log.Info("started", zap.Bool("messaging", e.cfg.MessagingEnabled()))
}

func (e *Engine) DB() *store.DB             { return e.db }
func (e *Engine) AppConfig() *config.Config { return e.cfg }

// refErrors reports a missing referenced row as a field error on the form
// field that named it.
func refErrors(err error) error {
	var ref *store.RefError
	if !errors.As(err, &ref) {
		return err
	}
	var msg string
	switch ref.Field {
	case "category_id":
		msg = "Selected category does not exist."
	case "item_id":
		msg = "Selected item does not exist."
	case "supplier_id":
		msg = "Selected supplier does not exist."
	default:
		msg = ref.Error()
	}
	return forms.Errors{{Field: ref.Field, Message: msg}}
}

func (e *Engine) saved(entity string, id int64, name, action, actor string) {
	e.Events.Emit(Event{Type: EventEntitySaved, Payload: EntitySavedEvent{Entity: entity, ID: id, Name: name, Action: action, Actor: actor}})
}

// deleted emits the outcome of a guarded delete and passes err through.
func (e *Engine) deleted(entity string, id int64, actor string, err error) error {
	if inUse, ok := store.IsInUse(err); ok {
		e.Events.Emit(Event{Type: EventDeleteRefused, Payload: DeleteRefusedEvent{Entity: entity, ID: id, References: inUse.References, Actor: actor}})
		return err
	}
	if err != nil {
		return err
	}
	e.Events.Emit(Event{Type: EventEntityDeleted, Payload: EntityDeletedEvent{Entity: entity, ID: id, Actor: actor}})
	return nil
}

// --- Items ---

func (e *Engine) CreateItem(ctx context.Context, it *store.Item, actor string) error {
	if err := e.db.WithTx(ctx, func(tx *store.Tx) error { return tx.InsertItem(ctx, it) }); err != nil {
		return refErrors(err)
	}
	e.saved(EntityItem, it.ID, it.Name, "created", actor)
	return nil
}

func (e *Engine) UpdateItem(ctx context.Context, it *store.Item, actor string) error {
	if err := e.db.WithTx(ctx, func(tx *store.Tx) error { return tx.UpdateItem(ctx, it) }); err != nil {
		return refErrors(err)
	}
	e.saved(EntityItem, it.ID, it.Name, "updated", actor)
	return nil
}

func (e *Engine) DeleteItem(ctx context.Context, id int64, actor string) error {
	return e.deleted(EntityItem, id, actor, e.db.DeleteItem(ctx, id))
}

// --- Categories ---

func (e *Engine) CreateCategory(ctx context.Context, c *store.Category, actor string) error {
	if err := e.db.WithTx(ctx, func(tx *store.Tx) error { return tx.InsertCategory(ctx, c) }); err != nil {
		return err
	}
	e.saved(EntityCategory, c.ID, c.Name, "created", actor)
	return nil
}

func (e *Engine) UpdateCategory(ctx context.Context, c *store.Category, actor string) error {
	if err := e.db.WithTx(ctx, func(tx *store.Tx) error { return tx.UpdateCategory(ctx, c) }); err != nil {
		return err
	}
	e.saved(EntityCategory, c.ID, c.Name, "updated", actor)
	return nil
}

func (e *Engine) DeleteCategory(ctx context.Context, id int64, actor string) error {
	return e.deleted(EntityCategory, id, actor, e.db.DeleteCategory(ctx, id))
}

// ImportResult is the outcome of a bulk category import.
type ImportResult struct {
	Inserted []store.Category
	Rejected []forms.LineError
}

// ImportCategories inserts every valid line of text in one transaction.
// Rejected lines do not stop the valid ones from being committed.
func (e *Engine) ImportCategories(ctx context.Context, text, actor string) (*ImportResult, error) {
	cats, rejected := forms.ParseCategoryLines(text)
	res := &ImportResult{Rejected: rejected}
	if len(cats) > 0 {
		err := e.db.WithTx(ctx, func(tx *store.Tx) error {
			for i := range cats {
				if err := tx.InsertCategory(ctx, &cats[i]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("import categories: %w", err)
		}
		res.Inserted = cats
	}
	e.Events.Emit(Event{Type: EventCategoriesImported, Payload: CategoriesImportedEvent{
		Inserted: len(res.Inserted), Rejected: len(res.Rejected), Actor: actor,
	}})
	return res, nil
}

// --- Suppliers ---

func (e *Engine) CreateSupplier(ctx context.Context, s *store.Supplier, actor string) error {
	if err := e.db.WithTx(ctx, func(tx *store.Tx) error { return tx.InsertSupplier(ctx, s) }); err != nil {
		return err
	}
	e.saved(EntitySupplier, s.ID, s.Name, "created", actor)
	return nil
}

func (e *Engine) UpdateSupplier(ctx context.Context, s *store.Supplier, actor string) error {
	if err := e.db.WithTx(ctx, func(tx *store.Tx) error { return tx.UpdateSupplier(ctx, s) }); err != nil {
		return err
	}
	e.saved(EntitySupplier, s.ID, s.Name, "updated", actor)
	return nil
}

func (e *Engine) DeleteSupplier(ctx context.Context, id int64, actor string) error {
	return e.deleted(EntitySupplier, id, actor, e.db.DeleteSupplier(ctx, id))
}

// --- Movements ---

// RecordMovement appends a movement. When messaging is enabled the
// announcement is queued in the same transaction.
func (e *Engine) RecordMovement(ctx context.Context, m *store.StockMovement, actor string) error {
	if !m.Type.Valid() {
		return forms.Errors{{Field: "movement_type", Message: "Movement type is invalid."}}
	}
	delta := ledger.Delta(m.Type, m.Quantity)
	err := e.db.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.InsertMovement(ctx, m); err != nil {
			return err
		}
		if !e.cfg.MessagingEnabled() {
			return nil
		}
		env := messaging.NewEnvelope(messaging.MsgMovementRecorded, messaging.MovementRecorded{
			MovementID:   m.ID,
			ItemID:       m.ItemID,
			MovementType: string(m.Type),
			Quantity:     m.Quantity,
			Delta:        delta,
			SupplierID:   m.SupplierID,
			Actor:        actor,
		})
		data, err := env.Encode()
		if err != nil {
			return err
		}
		return tx.EnqueueOutbox(ctx, env.EventID, e.cfg.Messaging.MovementsTopic, env.Type, data)
	})
	if err != nil {
		return refErrors(err)
	}
	e.Events.Emit(Event{Type: EventMovementRecorded, Payload: MovementRecordedEvent{
		MovementID: m.ID,
		ItemID:     m.ItemID,
		Type:       m.Type,
		Quantity:   m.Quantity,
		Delta:      delta,
		SupplierID: m.SupplierID,
		Actor:      actor,
	}})
	return nil
}

// --- Reads ---

// ItemStock returns current stock, from the cache when one is configured.
func (e *Engine) ItemStock(ctx context.Context, itemID int64) (int64, error) {
	if e.stock != nil {
		return e.stock.ItemStock(ctx, itemID)
	}
	return e.db.ItemStock(ctx, itemID)
}

type ItemHistory struct {
	Item    *store.Item
	Entries []ledger.Entry[store.StockMovement]
	Stock   int64
}

// ItemHistory loads an item and its running-balance ledger.
func (e *Engine) ItemHistory(ctx context.Context, itemID int64) (*ItemHistory, error) {
	it, err := e.db.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	l, err := e.db.ItemLedger(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return &ItemHistory{Item: it, Entries: l.Collect(), Stock: l.Balance()}, nil
}
