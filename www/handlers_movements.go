package www

import (
	"cmp"
	"net/http"
	"slices"
	"strconv"

	"clothstock/forms"
	"clothstock/ledger"
	"clothstock/store"
)

func (h *Handlers) handleMovements(w http.ResponseWriter, r *http.Request) {
	ms, err := h.engine.DB().ListMovements(r.Context(), 0)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "movements.html", map[string]any{
		"Page":      "movements",
		"Movements": ms,
	})
}

// movementForm offers only active items, sorted by name.
func (h *Handlers) movementForm(w http.ResponseWriter, r *http.Request, vals forms.Values, errs forms.Errors) {
	ctx := r.Context()
	items, err := h.engine.DB().ListItems(ctx, store.ItemFilter{ActiveOnly: true})
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	slices.SortStableFunc(items, func(a, b store.ItemRow) int { return cmp.Compare(a.Name, b.Name) })
	sups, err := h.engine.DB().ListSuppliers(ctx)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "movement_form.html", map[string]any{
		"Page":      "movements",
		"Items":     items,
		"Suppliers": sups,
		"Types":     ledger.Types,
		"Values":    vals,
		"Errors":    errs,
	})
}

func (h *Handlers) handleMovementNew(w http.ResponseWriter, r *http.Request) {
	vals := forms.Values{"movement_type": string(ledger.In)}
	if id := queryID(r, "item_id"); id != nil {
		vals["item_id"] = strconv.FormatInt(*id, 10)
	}
	h.movementForm(w, r, vals, nil)
}

func (h *Handlers) handleMovementCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	m, vals, err := forms.ParseMovement(r.PostForm)
	if err == nil {
		err = h.engine.RecordMovement(r.Context(), m, principalFrom(r.Context()).name())
	}
	if errs, ok := forms.AsErrors(err); ok {
		h.movementForm(w, r, vals, errs)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.redirectFlash(w, r, "/movements", flashSuccess, "Stock movement recorded.")
}
