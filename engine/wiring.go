package engine

import (
	"context"

	"go.uber.org/zap"
)

func (e *Engine) wireEventHandlers() {
	// A recorded movement makes the cached stock stale, and a deleted item
	// must not keep answering from the cache.
	if e.stock != nil {
		e.Events.Subscribe(func(evt Event) {
			switch ev := evt.Payload.(type) {
			case MovementRecordedEvent:
				e.stock.Invalidate(context.Background(), ev.ItemID)
			case EntityDeletedEvent:
				if ev.Entity == EntityItem {
					e.stock.Invalidate(context.Background(), ev.ID)
				}
			}
		}, EventMovementRecorded, EventEntityDeleted)
	}

	e.Events.Subscribe(func(evt Event) {
		ev := evt.Payload.(MovementRecordedEvent)
		e.log.Info("movement recorded",
			zap.Int64("movement_id", ev.MovementID),
			zap.Int64("item_id", ev.ItemID),
			zap.String("type", string(ev.Type)),
			zap.Int64("quantity", ev.Quantity),
			zap.String("actor", ev.Actor))
	}, EventMovementRecorded)

	e.Events.Subscribe(func(evt Event) {
		ev := evt.Payload.(EntitySavedEvent)
		e.log.Info(ev.Entity+" "+ev.Action, zap.Int64("id", ev.ID), zap.String("name", ev.Name), zap.String("actor", ev.Actor))
	}, EventEntitySaved)

	e.Events.Subscribe(func(evt Event) {
		ev := evt.Payload.(EntityDeletedEvent)
		e.log.Info(ev.Entity+" deleted", zap.Int64("id", ev.ID), zap.String("actor", ev.Actor))
	}, EventEntityDeleted)

	e.Events.Subscribe(func(evt Event) {
		ev := evt.Payload.(DeleteRefusedEvent)
		e.log.Info(ev.Entity+" delete refused",
			zap.Int64("id", ev.ID), zap.Int("references", ev.References), zap.String("actor", ev.Actor))
	}, EventDeleteRefused)

	e.Events.Subscribe(func(evt Event) {
		ev := evt.Payload.(CategoriesImportedEvent)
		e.log.Info("categories imported", zap.Int("inserted", ev.Inserted), zap.Int("rejected", ev.Rejected), zap.String("actor", ev.Actor))
	}, EventCategoriesImported)

	if e.metrics != nil {
		e.wireMetrics()
	}
}

func (e *Engine) wireMetrics() {
	m := e.metrics
	e.Events.Subscribe(func(evt Event) {
		switch ev := evt.Payload.(type) {
		case MovementRecordedEvent:
			m.MovementsRecorded.WithLabelValues(string(ev.Type)).Inc()
			m.MovementQuantity.WithLabelValues(string(ev.Type)).Add(float64(ev.Quantity))
		case EntitySavedEvent:
			m.EntityWrites.WithLabelValues(ev.Entity, ev.Action).Inc()
		case EntityDeletedEvent:
			m.EntityWrites.WithLabelValues(ev.Entity, "deleted").Inc()
		case DeleteRefusedEvent:
			m.DeletesRefused.WithLabelValues(ev.Entity).Inc()
		case CategoriesImportedEvent:
			m.CategoriesImport.WithLabelValues("inserted").Add(float64(ev.Inserted))
			m.CategoriesImport.WithLabelValues("rejected").Add(float64(ev.Rejected))
		}
	})
}
