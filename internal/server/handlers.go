package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nhle/laundry-notifications/internal/store"
)

// feedItem is the wire shape of one notification.
type feedItem struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
	TimeAgo   string `json:"time_ago"`
}

// notificationList returns the newest notifications of the user together
// with the number of unread ones among them.
func (s *Server) notificationList(c *gin.Context) {
	records, err := s.store.GetRecentNotifications(c.Request.Context(), c.GetString(ctxUserID), s.feedLimit)
	if err != nil {
		s.fail(c, "loading notifications", err)
		return
	}

	now := s.now()
	items := make([]feedItem, 0, len(records))
	unread := 0
	for _, n := range records {
		if !n.IsRead {
			unread++
		}
		items = append(items, feedItem{
			ID:        n.ID,
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.Local().Format(createdAtLayout),
			TimeAgo:   TimeAgo(now, n.CreatedAt),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": items,
		"unread_count":  unread,
	})
}

// markAsRead marks one notification of the user as read. Unknown ids and
// notifications of other users answer 404.
func (s *Server) markAsRead(c *gin.Context) {
	err := s.store.MarkNotificationRead(c.Request.Context(), c.GetString(ctxUserID), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Notification not found"})
		return
	}
	if err != nil {
		s.fail(c, "marking notification read", err)
		return
	}
	s.metrics.acks.WithLabelValues("one").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// markAllRead marks every notification of the user as read.
func (s *Server) markAllRead(c *gin.Context) {
	n, err := s.store.MarkAllNotificationsRead(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		s.fail(c, "marking all notifications read", err)
		return
	}
	s.metrics.acks.WithLabelValues("all").Add(float64(n))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// notificationsPage renders the page hosting the notifications dropdown.
func (s *Server) notificationsPage(c *gin.Context) {
	c.HTML(http.StatusOK, "page", gin.H{
		"Elements":  s.elements,
		"CSRFToken": c.GetString(ctxCSRFToken),
	})
}

func (s *Server) loginForm(c *gin.Context) {
	s.renderLogin(c, http.StatusOK, "")
}

func (s *Server) renderLogin(c *gin.Context, status int, errMsg string) {
	c.HTML(status, "login", gin.H{
		"Elements":  s.elements,
		"CSRFToken": c.GetString(ctxCSRFToken),
		"Next":      c.Query("next"),
		"Error":     errMsg,
	})
}

// login checks the submitted credentials, starts a session and redirects
// to the requested page.
func (s *Server) login(c *gin.Context) {
	ctx := c.Request.Context()

	u, err := s.store.Authenticate(ctx, c.PostForm("username"), c.PostForm("password"))
	if errors.Is(err, store.ErrInvalidCredentials) {
		s.metrics.logins.WithLabelValues("rejected").Inc()
		s.renderLogin(c, http.StatusUnauthorized, "Please enter a correct username and password.")
		return
	}
	if err != nil {
		s.fail(c, "authenticating", err)
		return
	}

	sess, err := s.store.CreateSession(ctx, u.ID, s.sessionTTL)
	if err != nil {
		s.fail(c, "creating session", err)
		return
	}
	s.metrics.logins.WithLabelValues("ok").Inc()
	s.logger.Info("user logged in", "username", u.Username)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, sess.Token, int(s.sessionTTL.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, safeNext(c.PostForm("next")))
}

// logout ends the session.
func (s *Server) logout(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		if err := s.store.DeleteSession(c.Request.Context(), token); err != nil {
			s.fail(c, "deleting session", err)
			return
		}
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, loginPath)
}

// safeNext only allows local redirect targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return pagePath
	}
	return next
}

func (s *Server) fail(c *gin.Context, what string, err error) {
	s.logger.Error(what+" failed", "path", c.Request.URL.Path, "error", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
