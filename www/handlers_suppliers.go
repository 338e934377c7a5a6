package www

import (
	"errors"
	"net/http"

	"clothstock/forms"
	"clothstock/store"
)

func (h *Handlers) handleSuppliers(w http.ResponseWriter, r *http.Request) {
	sups, err := h.engine.DB().ListSuppliers(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "suppliers.html", map[string]any{
		"Page":      "suppliers",
		"Suppliers": sups,
	})
}

func (h *Handlers) supplierForm(w http.ResponseWriter, r *http.Request, sup *store.Supplier, vals forms.Values, errs forms.Errors) {
	h.render(w, r, "supplier_form.html", map[string]any{
		"Page":     "suppliers",
		"Supplier": sup,
		"Values":   vals,
		"Errors":   errs,
	})
}

func (h *Handlers) handleSupplierNew(w http.ResponseWriter, r *http.Request) {
	h.supplierForm(w, r, nil, forms.Values{}, nil)
}

func (h *Handlers) handleSupplierCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	sup, vals, err := forms.ParseSupplier(r.PostForm, 0)
	if err == nil {
		err = h.engine.CreateSupplier(r.Context(), sup, principalFrom(r.Context()).name())
	}
	if errs, ok := forms.AsErrors(err); ok {
		h.supplierForm(w, r, nil, vals, errs)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.redirectFlash(w, r, "/suppliers", flashSuccess, "Supplier created.")
}

func (h *Handlers) loadSupplier(w http.ResponseWriter, r *http.Request) (*store.Supplier, bool) {
	id, ok := pathID(r)
	if !ok {
		h.redirectFlash(w, r, "/suppliers", flashError, "Supplier not found.")
		return nil, false
	}
	sup, err := h.engine.DB().GetSupplier(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.redirectFlash(w, r, "/suppliers", flashError, "Supplier not found.")
		return nil, false
	}
	if err != nil {
		h.serverError(w, r, err)
		return nil, false
	}
	return sup, true
}

func (h *Handlers) handleSupplierEdit(w http.ResponseWriter, r *http.Request) {
	sup, ok := h.loadSupplier(w, r)
	if !ok {
		return
	}
	h.supplierForm(w, r, sup, supplierValues(sup), nil)
}

func (h *Handlers) handleSupplierUpdate(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadSupplier(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	sup, vals, err := forms.ParseSupplier(r.PostForm, existing.ID)
	if err == nil {
		err = h.engine.UpdateSupplier(r.Context(), sup, principalFrom(r.Context()).name())
	}
	if errs, ok := forms.AsErrors(err); ok {
		h.supplierForm(w, r, existing, vals, errs)
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		h.redirectFlash(w, r, "/suppliers", flashError, "Supplier not found.")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.redirectFlash(w, r, "/suppliers", flashSuccess, "Supplier updated.")
}

func (h *Handlers) handleSupplierDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.redirectFlash(w, r, "/suppliers", flashError, "Supplier not found.")
		return
	}
	err := h.engine.DeleteSupplier(r.Context(), id, principalFrom(r.Context()).name())
	switch {
	case errors.Is(err, store.ErrInUse):
		h.redirectFlash(w, r, "/suppliers", flashError, "This supplier is used by stock movements and cannot be deleted.")
	case errors.Is(err, store.ErrNotFound):
		h.redirectFlash(w, r, "/suppliers", flashError, "Supplier not found.")
	case err != nil:
		h.serverError(w, r, err)
	default:
		h.redirectFlash(w, r, "/suppliers", flashSuccess, "Supplier deleted.")
	}
}
