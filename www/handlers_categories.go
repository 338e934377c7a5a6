package www

import (
	"errors"
	"fmt"
	"net/http"

	"clothstock/forms"
	"clothstock/store"
)

func (h *Handlers) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.engine.DB().ListCategories(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "categories.html", map[string]any{
		"Page":       "categories",
		"Categories": cats,
	})
}

func (h *Handlers) categoryForm(w http.ResponseWriter, r *http.Request, cat *store.Category, vals forms.Values, errs forms.Errors) {
	h.render(w, r, "category_form.html", map[string]any{
		"Page":     "categories",
		"Category": cat,
		"Values":   vals,
		"Errors":   errs,
	})
}

func (h *Handlers) handleCategoryNew(w http.ResponseWriter, r *http.Request) {
	h.categoryForm(w, r, nil, forms.Values{}, nil)
}

func (h *Handlers) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	cat, vals, err := forms.ParseCategory(r.PostForm, 0)
	if err == nil {
		err = h.engine.CreateCategory(r.Context(), cat, principalFrom(r.Context()).name())
	}
	if errs, ok := forms.AsErrors(err); ok {
		h.categoryForm(w, r, nil, vals, errs)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.redirectFlash(w, r, "/categories", flashSuccess, "Category created.")
}

func (h *Handlers) loadCategory(w http.ResponseWriter, r *http.Request) (*store.Category, bool) {
	id, ok := pathID(r)
	if !ok {
		h.redirectFlash(w, r, "/categories", flashError, "Category not found.")
		return nil, false
	}
	cat, err := h.engine.DB().GetCategory(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.redirectFlash(w, r, "/categories", flashError, "Category not found.")
		return nil, false
	}
	if err != nil {
		h.serverError(w, r, err)
		return nil, false
	}
	return cat, true
}

func (h *Handlers) handleCategoryEdit(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.loadCategory(w, r)
	if !ok {
		return
	}
	h.categoryForm(w, r, cat, categoryValues(cat), nil)
}

func (h *Handlers) handleCategoryUpdate(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadCategory(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	cat, vals, err := forms.ParseCategory(r.PostForm, existing.ID)
	if err == nil {
		err = h.engine.UpdateCategory(r.Context(), cat, principalFrom(r.Context()).name())
	}
	if errs, ok := forms.AsErrors(err); ok {
		h.categoryForm(w, r, existing, vals, errs)
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		h.redirectFlash(w, r, "/categories", flashError, "Category not found.")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.redirectFlash(w, r, "/categories", flashSuccess, "Category updated.")
}

func (h *Handlers) handleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.redirectFlash(w, r, "/categories", flashError, "Category not found.")
		return
	}
	err := h.engine.DeleteCategory(r.Context(), id, principalFrom(r.Context()).name())
	switch {
	case errors.Is(err, store.ErrInUse):
		h.redirectFlash(w, r, "/categories", flashError, "This category is used by items and cannot be deleted.")
	case errors.Is(err, store.ErrNotFound):
		h.redirectFlash(w, r, "/categories", flashError, "Category not found.")
	case err != nil:
		h.serverError(w, r, err)
	default:
		h.redirectFlash(w, r, "/categories", flashSuccess, "Category deleted.")
	}
}

func (h *Handlers) handleCategoryBulkPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "category_bulk.html", map[string]any{"Page": "categories"})
}

// handleCategoryBulk imports one category per line. Valid lines are kept
// even when others are rejected.
func (h *Handlers) handleCategoryBulk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	text := r.PostFormValue("lines")
	res, err := h.engine.ImportCategories(r.Context(), text, principalFrom(r.Context()).name())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if len(res.Inserted) == 0 && len(res.Rejected) == 0 {
		h.redirectFlash(w, r, "/categories/bulk", flashError, "Enter at least one category.")
		return
	}
	if len(res.Inserted) > 0 {
		h.flash(w, r, flashSuccess, fmt.Sprintf("%d categories imported.", len(res.Inserted)))
	}
	for _, le := range res.Rejected {
		h.flash(w, r, flashError, le.Error())
	}
	http.Redirect(w, r, "/categories", http.StatusSeeOther)
}
