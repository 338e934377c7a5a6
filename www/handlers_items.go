package www

import (
	"errors"
	"net/http"

	"clothstock/forms"
	"clothstock/store"
)

func (h *Handlers) handleItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := store.ItemFilter{CategoryID: queryID(r, "category_id")}
	items, err := h.engine.DB().ListItems(ctx, filter)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	cats, err := h.engine.DB().ListCategories(ctx)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "items.html", map[string]any{
		"Page":              "items",
		"Items":             items,
		"Categories":        cats,
		"CategoryID":        filter.CategoryID,
		"LowStockThreshold": h.engine.AppConfig().Web.LowStockThreshold,
	})
}

// itemForm renders the create or edit form. item is nil on create.
func (h *Handlers) itemForm(w http.ResponseWriter, r *http.Request, item *store.Item, vals forms.Values, errs forms.Errors) {
	cats, err := h.engine.DB().ListCategories(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "item_form.html", map[string]any{
		"Page":       "items",
		"Item":       item,
		"Values":     vals,
		"Errors":     errs,
		"Categories": cats,
	})
}

func (h *Handlers) handleItemNew(w http.ResponseWriter, r *http.Request) {
	h.itemForm(w, r, nil, forms.Values{"is_active": "1"}, nil)
}

func (h *Handlers) handleItemCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	item, vals, err := forms.ParseItem(r.PostForm, 0)
	if err == nil {
		err = h.engine.CreateItem(r.Context(), item, principalFrom(r.Context()).name())
	}
	if errs, ok := forms.AsErrors(err); ok {
		h.itemForm(w, r, nil, vals, errs)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.redirectFlash(w, r, "/items", flashSuccess, "Item created.")
}

// loadItem fetches the {id} item, redirecting to the listing when missing.
func (h *Handlers) loadItem(w http.ResponseWriter, r *http.Request) (*store.Item, bool) {
	id, ok := pathID(r)
	if !ok {
		h.redirectFlash(w, r, "/items", flashError, "Item not found.")
		return nil, false
	}
	item, err := h.engine.DB().GetItem(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.redirectFlash(w, r, "/items", flashError, "Item not found.")
		return nil, false
	}
	if err != nil {
		h.serverError(w, r, err)
		return nil, false
	}
	return item, true
}

func (h *Handlers) handleItemEdit(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	h.itemForm(w, r, item, itemValues(item), nil)
}

func (h *Handlers) handleItemUpdate(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	item, vals, err := forms.ParseItem(r.PostForm, existing.ID)
	if err == nil {
		err = h.engine.UpdateItem(r.Context(), item, principalFrom(r.Context()).name())
	}
	if errs, ok := forms.AsErrors(err); ok {
		h.itemForm(w, r, existing, vals, errs)
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		h.redirectFlash(w, r, "/items", flashError, "Item not found.")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.redirectFlash(w, r, "/items", flashSuccess, "Item updated.")
}

func (h *Handlers) handleItemHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.redirectFlash(w, r, "/items", flashError, "Item not found.")
		return
	}
	hist, err := h.engine.ItemHistory(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.redirectFlash(w, r, "/items", flashError, "Item not found.")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "item_history.html", map[string]any{
		"Page":    "items",
		"Item":    hist.Item,
		"Entries": hist.Entries,
		"Stock":   hist.Stock,
	})
}

func (h *Handlers) handleItemDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.redirectFlash(w, r, "/items", flashError, "Item not found.")
		return
	}
	err := h.engine.DeleteItem(r.Context(), id, principalFrom(r.Context()).name())
	switch {
	case errors.Is(err, store.ErrInUse):
		h.redirectFlash(w, r, "/items", flashError, "This item has stock movement history and cannot be deleted.")
	case errors.Is(err, store.ErrNotFound):
		h.redirectFlash(w, r, "/items", flashError, "Item not found.")
	case err != nil:
		h.serverError(w, r, err)
	default:
		h.redirectFlash(w, r, "/items", flashSuccess, "Item deleted.")
	}
}
