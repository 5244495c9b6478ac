package api

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/tnr/internal/auth"
	"github.com/mesh-intelligence/tnr/pkg/types"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type userResponse struct {
	User *types.User `json:"user"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) error {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	u, err := s.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		return err
	}
	token, err := s.auth.StartSession(r.Context(), u.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.auth.SessionCookie(token, s.opts.CookieSecure))
	writeJSON(w, http.StatusCreated, userResponse{User: u})
	return nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) error {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	u, token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.auth.SessionCookie(token, s.opts.CookieSecure))
	writeJSON(w, http.StatusOK, userResponse{User: u})
	return nil
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) error {
	if err := s.auth.Logout(r.Context(), auth.TokenFromRequest(r)); err != nil {
		return err
	}
	http.SetCookie(w, auth.ClearCookie(s.opts.CookieSecure))
	success(w)
	return nil
}

// me answers {"user": null} for anonymous visitors instead of 401, so the
// front end can probe the session.
func (s *Server) me(w http.ResponseWriter, r *http.Request) error {
	u, err := s.auth.UserForToken(r.Context(), auth.TokenFromRequest(r))
	if errors.Is(err, types.ErrUnauthenticated) {
		writeJSON(w, http.StatusOK, userResponse{})
		return nil
	}
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, userResponse{User: u})
	return nil
}

func (s *Server) googleStart(w http.ResponseWriter, r *http.Request) error {
	if s.google == nil {
		return auth.ErrGoogleDisabled
	}
	url, err := s.google.Start()
	if err != nil {
		return err
	}
	http.Redirect(w, r, url, http.StatusFound)
	return nil
}

func (s *Server) googleCallback(w http.ResponseWriter, r *http.Request) error {
	if s.google == nil {
		return auth.ErrGoogleDisabled
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return unprocessable("google sign-in failed: %s", e)
	}
	id, err := s.google.Callback(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		return err
	}
	u, err := s.auth.SignInGoogle(r.Context(), id.Subject, id.Email, id.Name)
	if err != nil {
		return err
	}
	token, err := s.auth.StartSession(r.Context(), u.ID)
	if err != nil {
		return err
	}
	log.WithField("user_id", u.ID).Info("google sign-in")
	http.SetCookie(w, s.auth.SessionCookie(token, s.opts.CookieSecure))
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}
