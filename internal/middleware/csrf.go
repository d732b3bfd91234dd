package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Veein-web/AI-Background-Remover/internal/flash"
	"github.com/Veein-web/AI-Background-Remover/internal/security"
)

const (
	csrfCookie   = "csrf_nonce"
	CSRFField    = "csrf_token"
	csrfTokenKey = "csrf_token"
)

// CSRF issues a per-visitor nonce cookie and requires every POST to echo the
// matching signed token in the csrf_token form field.
func CSRF(secret string, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		nonce, err := c.Cookie(csrfCookie)
		if err != nil || nonce == "" {
			nonce, err = security.NewNonce(32)
			if err != nil {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     csrfCookie,
				Value:    nonce,
				Path:     "/",
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		c.Set(csrfTokenKey, security.CSRFToken(secret, nonce))

		if c.Request.Method == http.MethodPost {
			var tooLarge *http.MaxBytesError
			if err := parseForm(c.Request); errors.As(err, &tooLarge) {
				flash.Add(c, flash.Danger, "The upload is too large.")
				c.Redirect(http.StatusSeeOther, c.Request.URL.Path)
				c.Abort()
				return
			}
			if !security.ValidCSRFToken(secret, nonce, c.Request.PostFormValue(CSRFField)) {
				flash.Add(c, flash.Danger, "The form expired, please try again.")
				c.Redirect(http.StatusSeeOther, c.Request.URL.Path)
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

const multipartMemory = 32 << 20

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(multipartMemory)
	}
	return r.ParseForm()
}

func CSRFToken(c *gin.Context) string {
	return c.GetString(csrfTokenKey)
}
