package forms

import (
	"errors"
	"net/url"
	"testing"

	"clothstock/ledger"
)

func TestParseItem(t *testing.T) {
	form := url.Values{
		"name":        {"  Linen Shirt "},
		"sku":         {" LS-01 "},
		"category_id": {"3"},
		"base_price":  {"4200"},
		"size":        {"  "},
		"color":       {"white"},
		"is_active":   {"1"},
	}
	it, vals, err := ParseItem(form, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.ID != 7 || it.Name != "Linen Shirt" || it.SKU != "LS-01" {
		t.Errorf("item = %+v", it)
	}
	if it.CategoryID == nil || *it.CategoryID != 3 || it.BasePrice == nil || *it.BasePrice != 4200 {
		t.Errorf("ints = %v %v", it.CategoryID, it.BasePrice)
	}
	if it.Size != nil || it.Material != nil || it.Color == nil || *it.Color != "white" {
		t.Errorf("optional text = %v %v %v", it.Size, it.Material, it.Color)
	}
	if !it.IsActive || vals.Get("name") != "Linen Shirt" {
		t.Errorf("is_active = %v, echo = %q", it.IsActive, vals.Get("name"))
	}
}

func TestParseItemCollectsAllErrors(t *testing.T) {
	_, vals, err := ParseItem(url.Values{"name": {" "}, "base_price": {"abc"}, "category_id": {"x"}}, 0)
	errs, ok := AsErrors(err)
	if !ok {
		t.Fatalf("err = %v", err)
	}
	for _, f := range []string{"name", "base_price", "category_id"} {
		if !errs.Has(f) {
			t.Errorf("missing error for %s: %v", f, errs)
		}
	}
	if vals.Get("base_price") != "abc" {
		t.Errorf("echo = %q", vals.Get("base_price"))
	}
}

func TestParseItemNegativePrice(t *testing.T) {
	_, _, err := ParseItem(url.Values{"name": {"Hat"}, "base_price": {"-1"}}, 0)
	if errs, ok := AsErrors(err); !ok || !errs.Has("base_price") {
		t.Errorf("err = %v", err)
	}
}

func TestParseItemBlankSKU(t *testing.T) {
	it, _, err := ParseItem(url.Values{"name": {"Hat"}}, 0)
	if err != nil || it.SKU != "" || it.IsActive {
		t.Errorf("item = %+v, err = %v", it, err)
	}
}

func TestParseMovement(t *testing.T) {
	m, _, err := ParseMovement(url.Values{
		"item_id":       {"4"},
		"movement_type": {"OUT"},
		"quantity":      {" 12 "},
		"supplier_id":   {""},
		"memo":          {"sold at fair"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ItemID != 4 || m.Type != ledger.Out || m.Quantity != 12 || m.SupplierID != nil || *m.Memo != "sold at fair" {
		t.Errorf("movement = %+v", m)
	}
}

func TestParseMovementRejects(t *testing.T) {
	tests := []struct {
		name  string
		form  url.Values
		field string
	}{
		{"zero quantity", url.Values{"item_id": {"1"}, "movement_type": {"IN"}, "quantity": {"0"}}, "quantity"},
		{"negative quantity", url.Values{"item_id": {"1"}, "movement_type": {"IN"}, "quantity": {"-3"}}, "quantity"},
		{"text quantity", url.Values{"item_id": {"1"}, "movement_type": {"IN"}, "quantity": {"ten"}}, "quantity"},
		{"missing quantity", url.Values{"item_id": {"1"}, "movement_type": {"IN"}}, "quantity"},
		{"missing item", url.Values{"movement_type": {"IN"}, "quantity": {"1"}}, "item_id"},
		{"bad item", url.Values{"item_id": {"x"}, "movement_type": {"IN"}, "quantity": {"1"}}, "item_id"},
		{"missing type", url.Values{"item_id": {"1"}, "quantity": {"1"}}, "movement_type"},
		{"unknown type", url.Values{"item_id": {"1"}, "movement_type": {"RETURN"}, "quantity": {"1"}}, "movement_type"},
		{"lowercase type", url.Values{"item_id": {"1"}, "movement_type": {"in"}, "quantity": {"1"}}, "movement_type"},
		{"bad supplier", url.Values{"item_id": {"1"}, "movement_type": {"IN"}, "quantity": {"1"}, "supplier_id": {"?"}}, "supplier_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseMovement(tt.form)
			errs, ok := AsErrors(err)
			if !ok || !errs.Has(tt.field) {
				t.Errorf("err = %v, want error on %s", err, tt.field)
			}
		})
	}
}

func TestParseCategoryAndSupplier(t *testing.T) {
	c, _, err := ParseCategory(url.Values{"name": {"Tops"}, "description": {""}}, 2)
	if err != nil || c.Name != "Tops" || c.Description != nil || c.ID != 2 {
		t.Errorf("category = %+v, err = %v", c, err)
	}
	if _, _, err := ParseCategory(url.Values{}, 0); err == nil {
		t.Error("blank category accepted")
	}

	s, _, err := ParseSupplier(url.Values{"name": {"Mill"}, "phone": {"555-0100"}}, 0)
	if err != nil || s.Phone == nil || *s.Phone != "555-0100" || s.Email != nil {
		t.Errorf("supplier = %+v, err = %v", s, err)
	}
	if _, _, err := ParseSupplier(url.Values{"name": {"   "}}, 0); err == nil {
		t.Error("blank supplier accepted")
	}
}

func TestErrorsMessage(t *testing.T) {
	var errs Errors
	if errs.Err() != nil {
		t.Error("empty Errors should be nil error")
	}
	errs.Add("a", "first")
	errs.Add("b", "second")
	if errs.Error() != "first; second" {
		t.Errorf("Error() = %q", errs.Error())
	}
	if _, ok := AsErrors(errors.New("plain")); ok {
		t.Error("plain error matched")
	}
}

func TestParseCategoryLines(t *testing.T) {
	cats, errs := ParseCategoryLines("Shirts, Tops\n\nPants,\nBadline")
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	if len(cats) != 3 {
		t.Fatalf("got %d categories, want 3", len(cats))
	}
	if cats[0].Name != "Shirts" || cats[0].Description == nil || *cats[0].Description != "Tops" {
		t.Errorf("line 1 = %+v", cats[0])
	}
	if cats[1].Name != "Pants" || cats[1].Description != nil {
		t.Errorf("line 3 = %+v", cats[1])
	}
	if cats[2].Name != "Badline" || cats[2].Description != nil {
		t.Errorf("line 4 = %+v", cats[2])
	}
}

func TestParseCategoryLinesErrors(t *testing.T) {
	cats, errs := ParseCategoryLines("Knitwear\r\n , orphan description\n\nCoats, Outer, warm")
	if len(cats) != 2 {
		t.Fatalf("cats = %+v", cats)
	}
	if *cats[1].Description != "Outer, warm" {
		t.Errorf("split must be on first comma only: %q", *cats[1].Description)
	}
	if len(errs) != 1 || errs[0].Line != 2 {
		t.Errorf("errs = %+v", errs)
	}
	if errs[0].Error() != "line 2: category name is empty" {
		t.Errorf("message = %q", errs[0].Error())
	}
}

func TestParseCategoryLinesBreaks(t *testing.T) {
	tests := map[string]string{
		"bare CR":   "Hats\r,nameless\rBelts",
		"CRLF":      "Hats\r\n,nameless\r\nBelts",
		"form feed": "Hats\f,nameless\fBelts",
		"separator": "Hats\u2028,nameless\u2029Belts",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			cats, errs := ParseCategoryLines(text)
			if len(cats) != 2 || cats[0].Name != "Hats" || cats[1].Name != "Belts" {
				t.Errorf("cats = %+v", cats)
			}
			if len(errs) != 1 || errs[0].Line != 2 {
				t.Errorf("errs = %+v", errs)
			}
		})
	}
}
