package www

import (
	"encoding/gob"
	"net/http"

	"go.uber.org/zap"
)

const (
	flashSuccess = "success"
	flashError   = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

func init() {
	gob.Register(Flash{})
}

func (h *Handlers) flash(w http.ResponseWriter, r *http.Request, kind, msg string) {
	session, _ := h.sessions.Get(r, sessionName)
	session.AddFlash(Flash{Kind: kind, Message: msg})
	if err := session.Save(r, w); err != nil {
		h.log.Warn("save flash", zap.Error(err))
	}
}

// popFlashes removes and returns pending flashes. It writes the session
// cookie, so call it before the response body.
func (h *Handlers) popFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return nil
	}
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := session.Save(r, w); err != nil {
		h.log.Warn("save session", zap.Error(err))
	}
	out := make([]Flash, 0, len(raw))
	for _, f := range raw {
		if fl, ok := f.(Flash); ok {
			out = append(out, fl)
		}
	}
	return out
}
