package http

import (
	"net/http"
	"net/mail"
	"strings"

	"kashela/internal/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c credentialsRequest) validate() (auth.Credentials, error) {
	email := strings.TrimSpace(c.Email)
	if email == "" {
		return auth.Credentials{}, badRequest("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return auth.Credentials{}, badRequest("email is not a valid address")
	}
	if c.Password == "" {
		return auth.Credentials{}, badRequest("password is required")
	}
	return auth.Credentials{Email: email, Password: c.Password}, nil
}

func (s *Server) decodeCredentials(w http.ResponseWriter, r *http.Request) (auth.Credentials, bool) {
	if s.deps.Auth == nil {
		writeError(w, http.StatusServiceUnavailable, "Authentication provider is not configured")
		return auth.Credentials{}, false
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return auth.Credentials{}, false
	}
	creds, err := req.validate()
	if err != nil {
		writeServiceError(w, r, err)
		return auth.Credentials{}, false
	}
	return creds, true
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}
	if err := s.deps.Auth.SignUp(r.Context(), creds); err != nil {
		writeServiceError(w, r, err)
		return
	}
	klogFrom(r).InfoContext(r.Context(), "User signed up", "email_domain", emailDomain(creds.Email))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signup successful!"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}
	session, err := s.deps.Auth.SignIn(r.Context(), creds)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful", "session": session})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, u auth.User) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "You are authorized", "user": u})
}

func emailDomain(email string) string {
	if _, domain, ok := strings.Cut(email, "@"); ok {
		return domain
	}
	return ""
}
