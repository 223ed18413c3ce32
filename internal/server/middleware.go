package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/laundry-notifications/internal/store"
)

// Cookie and form names shared with the client.
const (
	SessionCookie = "sessionid"
	CSRFCookie    = "csrftoken"
	CSRFField     = "csrfmiddlewaretoken"
	CSRFHeader    = "X-CSRFToken"
)

// Context keys.
const (
	ctxUserID    = "user_id"
	ctxCSRFToken = "csrf_token"
)

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// recovery turns panics into a logged 500.
func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"panic", recovered,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// csrf implements double-submit protection: every response carries a
// csrftoken cookie, and unsafe requests must echo its value in the
// X-CSRFToken header or the csrfmiddlewaretoken form field.
func csrf() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CSRFCookie)
		if err != nil || token == "" {
			token = newToken()
			setCSRFCookie(c, token)
			// An unsafe request without the cookie cannot pass the check.
			if unsafeMethod(c.Request.Method) {
				abortCSRF(c, "CSRF cookie not set")
				return
			}
		}
		c.Set(ctxCSRFToken, token)

		if !unsafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		sent := c.GetHeader(CSRFHeader)
		if sent == "" {
			sent = c.PostForm(CSRFField)
		}
		if sent == "" || subtle.ConstantTimeCompare([]byte(sent), []byte(token)) != 1 {
			abortCSRF(c, "CSRF token missing or incorrect")
			return
		}
		c.Next()
	}
}

func abortCSRF(c *gin.Context, reason string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"detail": "CSRF verification failed. " + reason + ".",
	})
}

func setCSRFCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CSRFCookie, token, int((365 * 24 * time.Hour).Seconds()), "/", "", false, false)
}

func unsafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}

func newToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// requireLogin resolves the session cookie to a user. Unauthenticated API
// and XHR requests get a 401 JSON body; page requests are redirected to the
// login form.
func (s *Server) requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err == nil && token != "" {
			sess, err := s.store.GetSession(c.Request.Context(), token)
			switch {
			case err == nil:
				c.Set(ctxUserID, sess.UserID)
				c.Next()
				return
			case !errors.Is(err, store.ErrNotFound):
				s.logger.Error("looking up session", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
		}

		if wantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		next := url.Values{"next": {c.Request.URL.RequestURI()}}
		c.Redirect(http.StatusFound, loginPath+"?"+next.Encode())
		c.Abort()
	}
}

func wantsJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, apiPrefix) ||
		c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}
