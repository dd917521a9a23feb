package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/MrEthical07/folioauth"
	"github.com/MrEthical07/folioauth/internal/csrf"
	"github.com/MrEthical07/folioauth/middleware"
)

type loginBody struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
	CSRFToken  string `json:"csrfToken"`
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleCSRF(w http.ResponseWriter, r *http.Request) {
	token, err := csrf.NewToken()
	if err != nil {
		s.logger.ErrorContext(r.Context(), "csrf token generation failed", "error", err)
		middleware.WriteError(w, folioauth.KindInternal)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrf.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   s.engine.Config().Cookie.Domain,
		Secure:   s.engine.Config().Cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "csrfToken": token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	// A malformed body leaves every field empty; the engine still checks CSRF first.
	var body loginBody
	if err := s.decode(w, r, &body); err != nil {
		if s.rejectOversized(w, err) {
			return
		}
		body = loginBody{}
	}

	token := body.CSRFToken
	if h := r.Header.Get(csrf.HeaderName); h != "" {
		token = h
	}
	var cookie string
	if c, err := r.Cookie(csrf.CookieName); err == nil {
		cookie = c.Value
	}

	res := s.engine.Login(r.Context(), folioauth.LoginRequest{
		Username:   body.Username,
		Password:   body.Password,
		RememberMe: body.RememberMe,
		CSRFToken:  token,
		CSRFCookie: cookie,
	})
	s.respondWithTokens(w, res)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(s.engine.Config().Cookie.RefreshName); err == nil {
		token = c.Value
	}
	if token == "" {
		var body refreshBody
		err := s.decode(w, r, &body)
		if s.rejectOversized(w, err) {
			return
		}
		if err == nil {
			token = body.RefreshToken
		}
	}

	s.respondWithTokens(w, s.engine.Refresh(r.Context(), token))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	names := s.engine.Config().Cookie
	var req folioauth.LogoutRequest
	if c, err := r.Cookie(names.AccessName); err == nil {
		req.AccessToken = c.Value
	}
	if c, err := r.Cookie(names.RefreshName); err == nil {
		req.RefreshToken = c.Value
	}

	s.engine.Logout(r.Context(), req)

	s.clearCookie(w, names.AccessName)
	s.clearCookie(w, names.RefreshName)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, folioauth.KindUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

// respondWithTokens sets both token cookies only when res succeeded.
func (s *Server) respondWithTokens(w http.ResponseWriter, res folioauth.Result) {
	if !res.OK() {
		middleware.WriteError(w, res.Kind)
		return
	}

	cfg := s.engine.Config()
	accessTTL := cfg.Session.AccessTTL
	// Both expiries are computed from the same issue time.
	refreshTTL := res.Tokens.RefreshExpiresAt.Sub(res.Tokens.AccessExpiresAt) + accessTTL

	s.setCookie(w, cfg.Cookie.AccessName, res.Tokens.AccessToken, accessTTL)
	s.setCookie(w, cfg.Cookie.RefreshName, res.Tokens.RefreshToken, refreshTTL)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": res.User})
}

func (s *Server) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	cookies := s.engine.Config().Cookie
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cookies.Domain,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearCookie emits Max-Age=0.
func (s *Server) clearCookie(w http.ResponseWriter, name string) {
	cookies := s.engine.Config().Cookie
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   cookies.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return io.EOF
	}
	limit := s.cfg.MaxBodySize
	if limit <= 0 {
		limit = DefaultConfig().MaxBodySize
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		s.logger.DebugContext(r.Context(), "request body decode failed", "path", r.URL.Path, "error", err)
	}
	return err
}

// rejectOversized answers 413 when err came from the body size limit.
func (s *Server) rejectOversized(w http.ResponseWriter, err error) bool {
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		return false
	}
	writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{
		"success": false,
		"error":   "Request body too large",
	})
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
