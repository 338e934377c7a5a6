package www

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"clothstock/engine"
	"clothstock/metrics"
)

// Connectivity reports whether an optional backend is reachable.
type Connectivity interface {
	IsConnected() bool
}

// Pinger checks an optional backend with a round trip.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the optional collaborators of the web layer.
type Options struct {
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Messaging Connectivity
	Cache     Pinger
}

type Handlers struct {
	engine    *engine.Engine
	sessions  *sessions.CookieStore
	tmpls     map[string]*template.Template
	eventHub  *EventHub
	log       *zap.Logger
	metrics   *metrics.Metrics
	messaging Connectivity
	cache     Pinger
}

var pages = []string{
	"templates/login.html",
	"templates/items.html",
	"templates/item_form.html",
	"templates/item_history.html",
	"templates/categories.html",
	"templates/category_form.html",
	"templates/category_bulk.html",
	"templates/suppliers.html",
	"templates/supplier_form.html",
	"templates/movements.html",
	"templates/movement_form.html",
}

func parseTemplates() map[string]*template.Template {
	// Each page gets its own clone of layout + partials so that every page
	// can define "content".
	base := template.New("").Funcs(templateFuncs())
	base = template.Must(base.ParseFS(templateFS, "templates/layout.html", "templates/partials/*.html"))

	tmpls := make(map[string]*template.Template, len(pages))
	for _, p := range pages {
		clone := template.Must(base.Clone())
		clone = template.Must(clone.ParseFS(templateFS, p))
		tmpls[p[len("templates/"):]] = clone
	}
	return tmpls
}

// NewRouter builds the HTTP handler. The returned func detaches the SSE hub
// from the engine and stops it.
func NewRouter(eng *engine.Engine, opts Options) (http.Handler, func()) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	hub := NewEventHub()
	hub.Start()
	detach := hub.SetupEngineListeners(eng)

	h := &Handlers{
		engine:    eng,
		sessions:  newSessionStore(eng.AppConfig().Web.SessionSecret),
		tmpls:     parseTemplates(),
		eventHub:  hub,
		log:       log.Named("www"),
		metrics:   m,
		messaging: opts.Messaging,
		cache:     opts.Cache,
	}
	h.ensureSeedAdmin(context.Background())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.loadPrincipal)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	r.Handle("/metrics", m.Handler())

	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/items", http.StatusSeeOther)
		})
		r.Get("/events", hub.SSEHandler)

		r.Get("/items", h.handleItems)
		r.Get("/items/new", h.handleItemNew)
		r.Post("/items/new", h.handleItemCreate)
		r.Get("/items/{id}/edit", h.handleItemEdit)
		r.Post("/items/{id}/edit", h.handleItemUpdate)
		r.Get("/items/{id}/history", h.handleItemHistory)

		r.Get("/categories", h.handleCategories)
		r.Get("/categories/new", h.handleCategoryNew)
		r.Post("/categories/new", h.handleCategoryCreate)
		r.Get("/categories/{id}/edit", h.handleCategoryEdit)
		r.Post("/categories/{id}/edit", h.handleCategoryUpdate)

		r.Get("/suppliers", h.handleSuppliers)
		r.Get("/suppliers/new", h.handleSupplierNew)
		r.Post("/suppliers/new", h.handleSupplierCreate)
		r.Get("/suppliers/{id}/edit", h.handleSupplierEdit)
		r.Post("/suppliers/{id}/edit", h.handleSupplierUpdate)

		r.Get("/movements", h.handleMovements)
		r.Get("/movements/new", h.handleMovementNew)
		r.Post("/movements/new", h.handleMovementCreate)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Post("/items/{id}/delete", h.handleItemDelete)
		r.Post("/categories/{id}/delete", h.handleCategoryDelete)
		r.Post("/suppliers/{id}/delete", h.handleSupplierDelete)
		r.Get("/categories/bulk", h.handleCategoryBulkPage)
		r.Post("/categories/bulk", h.handleCategoryBulk)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireAPIAuth)
		r.Get("/items", h.apiListItems)
		r.Get("/items/{id}/ledger", h.apiItemLedger)
		r.Get("/items/{id}/stock", h.apiItemStock)
		r.Get("/health", h.apiHealth)
	})

	return r, func() {
		detach()
		hub.Stop()
	}
}
