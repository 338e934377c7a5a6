// Package forms turns submitted form values into store records. Every
// problem in a submission is collected before anything is written, and the
// submitted values are echoed back so a rejected form can be re-rendered
// as the user typed it.
package forms

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"clothstock/ledger"
	"clothstock/store"
)

type FieldError struct {
	Field   string
	Message string
}

// Errors is an ordered list of field problems. A nil Errors means the
// submission is valid.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

func (e *Errors) Add(field, msg string) {
	*e = append(*e, FieldError{Field: field, Message: msg})
}

// Has reports whether field has at least one error.
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Err returns e as an error, or nil when empty.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Values holds the trimmed submission for re-display.
type Values map[string]string

func (v Values) Get(key string) string { return v[key] }

// reader trims fields as they are read and records them in Values.
type reader struct {
	form url.Values
	vals Values
	errs Errors
}

func newReader(form url.Values) *reader {
	return &reader{form: form, vals: Values{}}
}

func (r *reader) str(key string) string {
	s := strings.TrimSpace(r.form.Get(key))
	r.vals[key] = s
	return s
}

func (r *reader) required(key, msg string) string {
	s := r.str(key)
	if s == "" {
		r.errs.Add(key, msg)
	}
	return s
}

// optional returns nil for a blank field.
func (r *reader) optional(key string) *string {
	s := r.str(key)
	if s == "" {
		return nil
	}
	return &s
}

// optionalInt returns nil for a blank field and records msg when the value
// is not an integer.
func (r *reader) optionalInt(key, msg string) *int64 {
	s := r.str(key)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		r.errs.Add(key, msg)
		return nil
	}
	return &n
}

func (r *reader) checkbox(key string) bool {
	on := r.form.Get(key) == "1"
	if on {
		r.vals[key] = "1"
	} else {
		r.vals[key] = ""
	}
	return on
}

// ParseItem reads the item form. id is carried through for edits.
func ParseItem(form url.Values, id int64) (*store.Item, Values, error) {
	r := newReader(form)
	it := &store.Item{
		ID:         id,
		Name:       r.required("name", "Item name is required."),
		SKU:        r.str("sku"),
		CategoryID: r.optionalInt("category_id", "Category is invalid."),
		BasePrice:  r.optionalInt("base_price", "Base price must be a whole number."),
		Size:       r.optional("size"),
		Color:      r.optional("color"),
		Material:   r.optional("material"),
		Note:       r.optional("note"),
		IsActive:   r.checkbox("is_active"),
	}
	if it.BasePrice != nil && *it.BasePrice < 0 {
		r.errs.Add("base_price", "Base price cannot be negative.")
	}
	return it, r.vals, r.errs.Err()
}

func ParseCategory(form url.Values, id int64) (*store.Category, Values, error) {
	r := newReader(form)
	c := &store.Category{
		ID:          id,
		Name:        r.required("name", "Category name is required."),
		Description: r.optional("description"),
	}
	return c, r.vals, r.errs.Err()
}

func ParseSupplier(form url.Values, id int64) (*store.Supplier, Values, error) {
	r := newReader(form)
	s := &store.Supplier{
		ID:      id,
		Name:    r.required("name", "Supplier name is required."),
		Phone:   r.optional("phone"),
		Email:   r.optional("email"),
		Address: r.optional("address"),
		Note:    r.optional("note"),
	}
	return s, r.vals, r.errs.Err()
}

func ParseMovement(form url.Values) (*store.StockMovement, Values, error) {
	r := newReader(form)
	m := &store.StockMovement{}

	if r.required("item_id", "Item is required.") != "" {
		if id := r.optionalInt("item_id", "Item is invalid."); id != nil {
			m.ItemID = *id
		}
	}

	if typ := r.required("movement_type", "Movement type is required."); typ != "" {
		t, err := ledger.ParseMovementType(typ)
		if err != nil {
			r.errs.Add("movement_type", "Movement type is invalid.")
		}
		m.Type = t
	}

	if r.required("quantity", "Quantity is required.") != "" {
		q, err := strconv.ParseInt(r.vals["quantity"], 10, 64)
		switch {
		case err != nil:
			r.errs.Add("quantity", "Quantity must be a whole number.")
		case q <= 0:
			r.errs.Add("quantity", "Quantity must be 1 or more.")
		default:
			m.Quantity = q
		}
	}

	m.SupplierID = r.optionalInt("supplier_id", "Supplier is invalid.")
	m.Memo = r.optional("memo")
	return m, r.vals, r.errs.Err()
}

// AsErrors extracts the field errors from an error returned by a Parse
// function.
func AsErrors(err error) (Errors, bool) {
	var e Errors
	ok := errors.As(err, &e)
	return e, ok
}
