package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Veein-web/AI-Background-Remover/internal/flash"
	"github.com/Veein-web/AI-Background-Remover/internal/service"
)

const (
	SessionCookie = "bgremover_session"
	principalKey  = "principal"
	loginPath     = "/login"
)

type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (service.Principal, error)
}

// Session resolves the session cookie, when present, into a principal once
// per request. Stale cookies are cleared.
func Session(resolver PrincipalResolver, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(SessionCookie)
		if err != nil || cookie == "" {
			c.Next()
			return
		}

		principal, err := resolver.Resolve(c.Request.Context(), cookie)
		if err != nil {
			if !errors.Is(err, service.ErrSessionInvalid) {
				log.Error().Err(err).Msg("resolve session failed")
			}
			ClearSessionCookie(c)
			c.Next()
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireLogin sends anonymous visitors to the login page.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentPrincipal(c); !ok {
			flash.Add(c, flash.Info, "Please log in to access this page.")
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

func CurrentPrincipal(c *gin.Context) (service.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return service.Principal{}, false
	}
	p, ok := v.(service.Principal)
	return p, ok
}

func SetSessionCookie(c *gin.Context, token service.SessionToken, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookie,
		Value:    token.Value,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
