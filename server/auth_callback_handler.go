package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-relay-server/auth"
	"github.com/pkg/errors"
)

// LoginHandler receives the login widget redirect. A genuine assertion gets a dashboard session cookie
// and a redirect to the dashboard carrying the verified fields.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assertion := auth.AssertionFromQuery(r.URL.Query())

		if err := s.deps.Verifier.VerifyAssertion(assertion); err != nil {
			if errors.Is(err, auth.MissingHashErr) {
				http.Error(w, "No data.", http.StatusBadRequest)
				return
			}
			s.log.Info().Err(err).Str("user_id", assertion.UserID()).Msg("login rejected")
			http.Error(w, "Verification failed.", http.StatusForbidden)
			return
		}

		if tok, exp, err := s.deps.Tokens.Issue(assertion.UserID(), assertion.DisplayName()); err != nil {
			s.log.Warn().Err(err).Msg("dashboard session not issued")
		} else {
			s.setSessionCookie(w, r, tok, exp)
		}

		user, err := json.Marshal(assertion.Fields)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.log.Info().Str("user_id", assertion.UserID()).Msg("login verified")
		http.Redirect(w, r, s.config.GetDashboardPath()+"?user="+url.QueryEscape(string(user)), http.StatusFound)
	}
}

// MeHandler returns the identity behind the dashboard session.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		writeJSON(w, http.StatusOK, identity)
	}
}

// LogoutHandler revokes the dashboard session and clears its cookie.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := sessionToken(r); raw != "" {
			if err := s.deps.Tokens.Revoke(raw); err != nil {
				s.log.Warn().Err(err).Msg("session revoke failed")
			}
		}
		s.clearSessionCookie(w, r)
		w.WriteHeader(http.StatusNoContent)
	}
}
