package www

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clothstock/forms"
	"clothstock/store"
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatTime": func(t store.Timestamp) string {
			return t.String()
		},
		"timeAgo": func(t store.Timestamp) string {
			if t.IsZero() {
				return ""
			}
			d := time.Since(t.Time)
			switch {
			case d < time.Minute:
				return "just now"
			case d < time.Hour:
				return strconv.Itoa(int(d.Minutes())) + " min ago"
			case d < 24*time.Hour:
				return strconv.Itoa(int(d.Hours())) + " h ago"
			default:
				return strconv.Itoa(int(d.Hours()/24)) + " d ago"
			}
		},
		"str": func(p *string) string {
			if p == nil {
				return ""
			}
			return *p
		},
		"num": func(p *int64) string {
			if p == nil {
				return ""
			}
			return strconv.FormatInt(*p, 10)
		},
		"isSelected": func(p *int64, id int64) bool {
			return p != nil && *p == id
		},
		"signed": func(d int64) string {
			if d > 0 {
				return "+" + strconv.FormatInt(d, 10)
			}
			return strconv.FormatInt(d, 10)
		},
		"itoa": func(id int64) string {
			return strconv.FormatInt(id, 10)
		},
		"movementClass": func(t string) string {
			switch t {
			case "IN":
				return "badge-in"
			case "OUT":
				return "badge-out"
			case "ADJUST":
				return "badge-adjust"
			default:
				return "badge-unknown"
			}
		},
	}
}

// render executes a page inside the layout. Flashes and the principal are
// added to data for every page.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	h.renderStatus(w, r, http.StatusOK, name, data)
}

func (h *Handlers) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	tmpl, ok := h.tmpls[name]
	if !ok {
		h.serverError(w, r, errors.New("template "+name+" not found"))
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	p := principalFrom(r.Context())
	data["Principal"] = p
	data["LoggedIn"] = p != nil
	data["IsAdmin"] = p.IsAdmin()
	data["CurrentUser"] = p.name()
	data["Flashes"] = h.popFlashes(w, r)
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = forms.Errors(nil)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		h.log.Error("render", zap.String("template", name), zap.Error(err))
	}
}

// serverError logs err and answers with a bare 500.
func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// queryID parses an optional numeric query parameter. Missing or invalid
// values read as nil.
func queryID(r *http.Request, key string) *int64 {
	id, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func (h *Handlers) redirectFlash(w http.ResponseWriter, r *http.Request, to, kind, msg string) {
	h.flash(w, r, kind, msg)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Warn("encode json", zap.Error(err))
	}
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func optText(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func optNum(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

// Values that prefill the edit forms from stored rows.

func itemValues(it *store.Item) forms.Values {
	v := forms.Values{
		"name":        it.Name,
		"sku":         it.SKU,
		"category_id": optNum(it.CategoryID),
		"base_price":  optNum(it.BasePrice),
		"size":        optText(it.Size),
		"color":       optText(it.Color),
		"material":    optText(it.Material),
		"note":        optText(it.Note),
	}
	if it.IsActive {
		v["is_active"] = "1"
	}
	return v
}

func categoryValues(c *store.Category) forms.Values {
	return forms.Values{"name": c.Name, "description": optText(c.Description)}
}

func supplierValues(s *store.Supplier) forms.Values {
	return forms.Values{
		"name":    s.Name,
		"phone":   optText(s.Phone),
		"email":   optText(s.Email),
		"address": optText(s.Address),
		"note":    optText(s.Note),
	}
}
