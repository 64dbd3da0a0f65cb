package httpadapter

import (
	"net/http"

	"hireflow/internal/domain"
	"hireflow/internal/services/analytics"
)

// createSession accepts the ID token in the Authorization header or as
// {"credential": "..."}, the shape the sign-in widget hands back.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token == "" {
		var req struct {
			Credential string `json:"credential"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
		token = req.Credential
	}
	sess, err := s.svc.Accounts.SignIn(r.Context(), token)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.svc.Analytics.Emit(r.Context(), analytics.EventUserSignedIn, sess.User, map[string]any{
		"needsOnboarding": sess.NeedsOnboarding,
	})
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Accounts.Profile(r.Context(), currentUser(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) putProfile(w http.ResponseWriter, r *http.Request) {
	var p domain.UserProfile
	if err := decodeJSON(w, r, &p); err != nil {
		s.fail(w, r, err)
		return
	}
	saved, err := s.svc.Accounts.SaveProfile(r.Context(), currentUser(r).ID, p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) completeOnboarding(w http.ResponseWriter, r *http.Request) {
	var p domain.UserProfile
	if err := decodeJSON(w, r, &p); err != nil {
		s.fail(w, r, err)
		return
	}
	saved, err := s.svc.Accounts.CompleteOnboarding(r.Context(), currentUser(r), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
