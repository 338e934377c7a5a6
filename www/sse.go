package www

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"clothstock/engine"
)

type SSEEvent struct {
	Event string
	Data  string
}

// EventHub fans server-sent events out to connected browsers. Slow clients
// drop events rather than block the hub.
type EventHub struct {
	mu        sync.RWMutex
	clients   map[chan SSEEvent]struct{}
	broadcast chan SSEEvent
	stopOnce  sync.Once
	stop      chan struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[chan SSEEvent]struct{}),
		broadcast: make(chan SSEEvent, 256),
		stop:      make(chan struct{}),
	}
}

func (h *EventHub) Start() {
	go h.run()
}

func (h *EventHub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *EventHub) run() {
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-h.stop:
			return
		case evt := <-h.broadcast:
			h.send(evt)
		case <-keepalive.C:
			h.send(SSEEvent{Event: "keepalive", Data: "ping"})
		}
	}
}

func (h *EventHub) send(evt SSEEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (h *EventHub) Broadcast(event string, data any) {
	b, err := json.Marshal(data)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- SSEEvent{Event: event, Data: string(b)}:
	default:
	}
}

func (h *EventHub) AddClient() chan SSEEvent {
	ch := make(chan SSEEvent, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) RemoveClient(ch chan SSEEvent) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SetupEngineListeners forwards committed writes to the browser. The
// returned func detaches the hub from the engine.
func (h *EventHub) SetupEngineListeners(eng *engine.Engine) func() {
	var ids []engine.SubscriberID
	ids = append(ids, eng.Events.Subscribe(func(evt engine.Event) {
		ev := evt.Payload.(engine.MovementRecordedEvent)
		h.Broadcast("stock-update", map[string]any{
			"item_id":       ev.ItemID,
			"movement_id":   ev.MovementID,
			"movement_type": ev.Type,
			"delta":         ev.Delta,
		})
	}, engine.EventMovementRecorded))

	ids = append(ids, eng.Events.Subscribe(func(evt engine.Event) {
		ev := evt.Payload.(engine.EntitySavedEvent)
		h.Broadcast("catalog-update", map[string]any{"entity": ev.Entity, "id": ev.ID, "action": ev.Action})
	}, engine.EventEntitySaved))

	ids = append(ids, eng.Events.Subscribe(func(evt engine.Event) {
		ev := evt.Payload.(engine.EntityDeletedEvent)
		h.Broadcast("catalog-update", map[string]any{"entity": ev.Entity, "id": ev.ID, "action": "deleted"})
	}, engine.EventEntityDeleted))

	ids = append(ids, eng.Events.Subscribe(func(evt engine.Event) {
		ev := evt.Payload.(engine.CategoriesImportedEvent)
		h.Broadcast("catalog-update", map[string]any{"entity": engine.EntityCategory, "action": "imported", "count": ev.Inserted})
	}, engine.EventCategoriesImported))

	return func() {
		for _, id := range ids {
			eng.Events.Unsubscribe(id)
		}
	}
}

func (h *EventHub) SSEHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := h.AddClient()
	defer h.RemoveClient(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.stop:
			return
		case evt := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
