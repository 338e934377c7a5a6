package www

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"clothstock/store"
)

const sessionName = "clothstock-session"

func newSessionStore(secret string) *sessions.CookieStore {
	if secret == "" {
		secret = "clothstock-default-secret-change-me"
	}
	s := sessions.NewCookieStore([]byte(secret))
	s.Options.Path = "/"
	s.Options.HttpOnly = true
	s.Options.SameSite = http.SameSiteLaxMode
	return s
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Principal is the authenticated user of one request.
type Principal struct {
	UserID   int64
	Username string
	Role     store.Role
}

func (p *Principal) IsAdmin() bool { return p != nil && p.Role == store.RoleAdmin }

type principalKey struct{}

// principalFrom returns the request's principal, or nil when anonymous.
func principalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

func (p *Principal) name() string {
	if p == nil {
		return ""
	}
	return p.Username
}

// loadPrincipal reads the session once per request and stores the result
// in the request context.
func (h *Handlers) loadPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := h.sessions.Get(r, sessionName)
		if err == nil {
			id, _ := session.Values["user_id"].(int64)
			username, _ := session.Values["username"].(string)
			if id != 0 && username != "" {
				role, _ := session.Values["role"].(string)
				p := &Principal{UserID: id, Username: username, Role: store.ParseRole(role)}
				r = r.WithContext(context.WithValue(r.Context(), principalKey{}, p))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func loginRedirect(r *http.Request) string {
	return "/login?next=" + url.QueryEscape(r.URL.RequestURI())
}

func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if principalFrom(r.Context()) == nil {
			h.flash(w, r, flashError, "Please log in.")
			http.Redirect(w, r, loginRedirect(r), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := principalFrom(r.Context())
		switch {
		case p == nil:
			h.flash(w, r, flashError, "Please log in.")
			http.Redirect(w, r, loginRedirect(r), http.StatusSeeOther)
		case !p.IsAdmin():
			h.flash(w, r, flashError, "You do not have permission to do that.")
			http.Redirect(w, r, "/items", http.StatusSeeOther)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// requireAPIAuth answers anonymous API calls with 401 instead of a redirect.
func (h *Handlers) requireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if principalFrom(r.Context()) == nil {
			h.jsonError(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// safeNext accepts only local absolute paths.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/items"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/items"
	}
	return next
}

func (h *Handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if principalFrom(r.Context()) != nil {
		http.Redirect(w, r, "/items", http.StatusSeeOther)
		return
	}
	h.render(w, r, "login.html", map[string]any{
		"Next":     r.URL.Query().Get("next"),
		"Username": "",
	})
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	next := r.PostFormValue("next")

	fail := func(msg string) {
		h.metrics.LoginAttempts.WithLabelValues("failure").Inc()
		h.render(w, r, "login.html", map[string]any{
			"Next":     next,
			"Username": username,
			"Error":    msg,
		})
	}

	if username == "" || password == "" {
		fail("Enter a username and password.")
		return
	}
	user, err := h.engine.DB().GetUserByUsername(r.Context(), username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.serverError(w, r, err)
		return
	}
	if err != nil || !checkPassword(user.PasswordHash, password) {
		fail("Invalid username or password.")
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	for k := range session.Values {
		delete(session.Values, k)
	}
	session.Values["user_id"] = user.ID
	session.Values["username"] = user.Username
	session.Values["role"] = string(user.Role())
	session.AddFlash(Flash{Kind: flashSuccess, Message: "Logged in."})
	if err := session.Save(r, w); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.metrics.LoginAttempts.WithLabelValues("success").Inc()
	h.log.Info("login", zap.String("username", user.Username), zap.String("role", string(user.Role())))
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	for k := range session.Values {
		delete(session.Values, k)
	}
	session.AddFlash(Flash{Kind: flashSuccess, Message: "Logged out."})
	if err := session.Save(r, w); err != nil {
		h.log.Warn("session save", zap.Error(err))
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ensureSeedAdmin creates the configured admin account when it is missing.
func (h *Handlers) ensureSeedAdmin(ctx context.Context) {
	auth := h.engine.AppConfig().Auth
	if auth.SeedAdminUsername == "" || auth.SeedAdminPassword == "" {
		return
	}
	exists, err := h.engine.DB().UserExists(ctx, auth.SeedAdminUsername)
	if err != nil {
		h.log.Error("check seed admin", zap.Error(err))
		return
	}
	if exists {
		return
	}
	hash, err := hashPassword(auth.SeedAdminPassword)
	if err != nil {
		h.log.Error("hash seed admin password", zap.Error(err))
		return
	}
	if _, err := h.engine.DB().CreateUser(ctx, auth.SeedAdminUsername, hash, store.RoleAdmin); err != nil {
		h.log.Error("create seed admin", zap.Error(err))
		return
	}
	h.log.Info("created seed admin", zap.String("username", auth.SeedAdminUsername))
}
