package web

import (
	"net/http"

	"github.com/digkill/BizPlanGen/internal/models"
)

const sessionCookie = "bp_session"

// session returns the browser's session, starting a fresh unpaid one when the cookie is
// missing or points at a session that no longer exists.
func (s *Server) session(w http.ResponseWriter, r *http.Request) models.Session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions.Get(c.Value); ok {
			return sess
		}
	}
	sess := s.sessions.Create()
	s.setSessionCookie(w, sess.ID)
	return sess
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
