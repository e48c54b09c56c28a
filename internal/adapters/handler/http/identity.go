package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type contextKey string

const IdentityKey contextKey = "voter_identity"

const (
	identityCookie    = "voter_identity"
	identityCookieAge = 365 * 24 * time.Hour
)

type IdentityHandler struct {
	service        ports.IdentityService
	cookieDomain   string
	cookieSecure   bool
	cookieSameSite http.SameSite
	logger         *slog.Logger
}

func NewIdentityHandler(service ports.IdentityService, cookieDomain string, cookieSecure bool, logger *slog.Logger) *IdentityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityHandler{
		service:        service,
		cookieDomain:   cookieDomain,
		cookieSecure:   cookieSecure,
		cookieSameSite: http.SameSiteLaxMode,
		logger:         logger,
	}
}

// Middleware makes sure every request carries a valid voter identity. A
// missing or invalid cookie is replaced by a freshly issued token.
func (h *IdentityHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := ""
		if cookie, err := r.Cookie(identityCookie); err == nil && cookie.Value != "" {
			if err := h.service.Validate(cookie.Value); err == nil {
				identity = cookie.Value
			} else {
				h.logger.Debug("replacing invalid identity", "error", err)
			}
		}

		if identity == "" {
			token, err := h.service.Issue()
			if err != nil {
				writeServiceError(w, r, h.logger, err)
				return
			}
			identity = token
			h.setIdentityCookie(w, identity)
		}

		ctx := context.WithValue(r.Context(), IdentityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type meResponse struct {
	Identity string `json:"identity"`
}

// GetMe godoc
// @Summary      Returns the caller's voter identity
// @Description  Issues a new identity cookie when the request has none.
// @Tags         identity
// @Produce      json
// @Success      200
// @Router       /me [get]
func (h *IdentityHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_identity", "missing voter identity")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Identity: identity})
}

func (h *IdentityHandler) setIdentityCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     identityCookie,
		Value:    token,
		Path:     "/",
		Domain:   h.cookieDomain,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: h.cookieSameSite,
		MaxAge:   int(identityCookieAge.Seconds()),
	})
}

func identityFrom(r *http.Request) (string, bool) {
	identity, ok := r.Context().Value(IdentityKey).(string)
	return identity, ok && identity != ""
}
