package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/sharecart-backend/pkg/config"
	"github.com/angelmondragon/sharecart-backend/pkg/logger"
	"github.com/angelmondragon/sharecart-backend/pkg/session"
)

const sessionHeader = "X-Sharecart-Session"

// Session attaches the storefront session id, minting one (and its cookie)
// when the request carries none. Server-to-server hooks pass the header.
func Session(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "sharecart_session"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(sessionHeader))
			if id == "" {
				if c, err := r.Cookie(cookieName); err == nil {
					id = strings.TrimSpace(c.Value)
				}
			}
			if !session.ValidID(id) {
				id = session.NewID()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(sessionHeader, id)

			ctx := WithSessionID(r.Context(), id)
			ctx = WithClientIP(ctx, clientIP(r))
			if logg != nil {
				ctx = logg.WithSessionID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
