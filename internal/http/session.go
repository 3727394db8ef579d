package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/Clark-Hu/popcorn/internal/app"
	"github.com/Clark-Hu/popcorn/internal/config"
)

const (
	cookieName = "popcorn-session"
	sessionKey = "sid"
)

type ctxKey struct{}

func newCookieStore(cfg config.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))

	opts := &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionIdleMins * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.Environment == "production" {
		opts.Secure = true
		opts.SameSite = http.SameSiteNoneMode
	}
	store.Options = opts
	return store
}

// withSession resolves the caller's app.Session from the cookie, creating
// one (and setting the cookie) on first contact.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A cookie that fails to decode yields a fresh session; the error
		// only tells us the old one was unreadable.
		cs, err := s.cookies.Get(r, cookieName)
		if err != nil {
			s.logger.Debug("discarding unreadable session cookie", "error", err)
		}
		id, _ := cs.Values[sessionKey].(string)

		sess := s.registry.Open(r.Context(), id)
		if sess.ID() != id {
			cs.Values[sessionKey] = sess.ID()
			if err := cs.Save(r, w); err != nil {
				s.logger.Error("save session cookie failed", "error", err)
				s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start session")
				return
			}
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *app.Session {
	sess, _ := r.Context().Value(ctxKey{}).(*app.Session)
	return sess
}

// await blocks until done closes, the request ends, or the settle timeout
// elapses, whichever is first.
func (s *Server) await(r *http.Request, done <-chan struct{}) {
	timer := time.NewTimer(time.Duration(s.cfg.SettleTimeoutSecs) * time.Second)
	defer timer.Stop()

	select {
	case <-done:
	case <-r.Context().Done():
	case <-timer.C:
	}
}
