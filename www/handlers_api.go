package www

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"clothstock/ledger"
	"clothstock/store"
)

func (h *Handlers) apiListItems(w http.ResponseWriter, r *http.Request) {
	filter := store.ItemFilter{
		CategoryID: queryID(r, "category_id"),
		ActiveOnly: r.URL.Query().Get("active") == "1",
	}
	items, err := h.engine.DB().ListItems(r.Context(), filter)
	if err != nil {
		h.log.Error("api list items", zap.Error(err))
		h.jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []store.ItemRow{}
	}
	h.jsonOK(w, items)
}

type ledgerEntry struct {
	ID           int64               `json:"id"`
	Type         ledger.MovementType `json:"movement_type"`
	Quantity     int64               `json:"quantity"`
	Delta        int64               `json:"delta"`
	Balance      int64               `json:"balance"`
	SupplierID   *int64              `json:"supplier_id"`
	SupplierName *string             `json:"supplier_name"`
	Memo         *string             `json:"memo"`
	CreatedAt    store.Timestamp     `json:"created_at"`
}

func (h *Handlers) apiItemLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	hist, err := h.engine.ItemHistory(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("api item ledger", zap.Int64("item_id", id), zap.Error(err))
		h.jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	entries := make([]ledgerEntry, 0, len(hist.Entries))
	for _, e := range hist.Entries {
		entries = append(entries, ledgerEntry{
			ID:           e.Row.ID,
			Type:         e.Row.Type,
			Quantity:     e.Row.Quantity,
			Delta:        e.Delta,
			Balance:      e.Balance,
			SupplierID:   e.Row.SupplierID,
			SupplierName: e.Row.SupplierName,
			Memo:         e.Row.Memo,
			CreatedAt:    e.Row.CreatedAt,
		})
	}
	h.jsonOK(w, map[string]any{
		"item_id": hist.Item.ID,
		"name":    hist.Item.Name,
		"stock":   hist.Stock,
		"entries": entries,
	})
}

func (h *Handlers) apiItemStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	stock, err := h.engine.ItemStock(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("api item stock", zap.Int64("item_id", id), zap.Error(err))
		h.jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]int64{"item_id": id, "stock": stock})
}

func (h *Handlers) apiHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"database": "ok"}
	code := http.StatusOK
	if err := h.engine.DB().PingContext(r.Context()); err != nil {
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if h.cache != nil {
		status["cache"] = "ok"
		if err := h.cache.Ping(r.Context()); err != nil {
			status["cache"] = "unavailable"
		}
	}
	if h.messaging != nil {
		status["messaging"] = h.messaging.IsConnected()
	}
	status["sse_clients"] = h.eventHub.ClientCount()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	h.jsonOK(w, status)
}
