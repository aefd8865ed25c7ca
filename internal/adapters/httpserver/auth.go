package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	adminCookie   = "admin_token"
	stateCookie   = "oauth_state"
	adminTokenTTL = 6 * time.Hour
	googleInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

var errBadToken = errors.New("invalid admin token")

// adminOnly guards the back-office routes.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.requireAdmin(w, r) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin accepts the API key or a signed admin token, either as a
// bearer token or in the admin cookie.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		tok := strings.TrimSpace(auth[7:])
		if s.adminAPIKey != "" && secureCompare(tok, s.adminAPIKey) {
			return true
		}
		if _, err := s.verifyAdminToken(tok); err == nil {
			return true
		}
	}
	if c, err := r.Cookie(adminCookie); err == nil && c.Value != "" {
		if _, err := s.verifyAdminToken(c.Value); err == nil {
			return true
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	return false
}

type adminClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) issueAdminToken(email string, dur time.Duration) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(dur)
	claims := adminClaims{
		Email: email,
		Role:  "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    "joyeria",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.adminSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

func (s *Server) verifyAdminToken(tok string) (string, error) {
	claims := &adminClaims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return s.adminSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return "", errBadToken
	}
	if claims.Role != "admin" || claims.Email == "" || !s.isAllowedAdmin(claims.Email) {
		return "", errBadToken
	}
	return claims.Email, nil
}

func (s *Server) isAllowedAdmin(email string) bool {
	_, ok := s.adminAllowed[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) setCookie(w http.ResponseWriter, r *http.Request, c *http.Cookie) {
	c.Path = "/"
	c.HttpOnly = true
	c.Secure = s.secureCookies || r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	http.SetCookie(w, c)
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "google login is not configured"})
		return
	}
	state := uuid.NewString()
	s.setCookie(w, r, &http.Cookie{Name: stateCookie, Value: state, MaxAge: 300, SameSite: http.SameSiteLaxMode})
	http.Redirect(w, r, s.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

// handleGoogleCallback records the customer and, for allowed emails, issues
// the admin cookie.
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "google login is not configured"})
		return
	}
	q := r.URL.Query()
	c, _ := r.Cookie(stateCookie)
	if c == nil || c.Value == "" || c.Value != q.Get("state") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid oauth state"})
		return
	}
	s.setCookie(w, r, &http.Cookie{Name: stateCookie, MaxAge: -1})

	tok, err := s.oauthCfg.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		log.Error().Err(err).Msg("exchange oauth")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "oauth exchange failed"})
		return
	}
	resp, err := s.oauthCfg.Client(r.Context(), tok).Get(s.userInfoURL)
	if err != nil {
		log.Error().Err(err).Msg("userinfo")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "userinfo failed"})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Msg("userinfo")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "userinfo failed"})
		return
	}
	var info struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no email in google profile"})
		return
	}
	if _, err := s.customers.UpsertFromLogin(r.Context(), info.Email, info.Name); err != nil {
		log.Error().Err(err).Str("email", info.Email).Msg("upsert customer")
	}
	if s.isAllowedAdmin(info.Email) {
		adminTok, _, err := s.issueAdminToken(strings.ToLower(info.Email), adminTokenTTL)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "token"})
			return
		}
		s.setCookie(w, r, &http.Cookie{Name: adminCookie, Value: adminTok, MaxAge: int(adminTokenTTL.Seconds()), SameSite: http.SameSiteStrictMode})
		log.Info().Str("email", info.Email).Msg("admin login")
	}
	http.Redirect(w, r, s.baseURL+"/", http.StatusFound)
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, r, &http.Cookie{Name: adminCookie, MaxAge: -1, SameSite: http.SameSiteStrictMode})
	w.WriteHeader(http.StatusNoContent)
}
