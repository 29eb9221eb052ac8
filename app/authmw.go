package app

import (
	"context"
	"net/http"
	"strings"

	"Gin_postgres_redis_lending/access"
	"Gin_postgres_redis_lending/models"
	"Gin_postgres_redis_lending/session"

	"github.com/gin-gonic/gin"
)

const (
	AppSessionCookie = "app_session"

	ctxUser      = "user"
	ctxSessionID = "sessionID"
)

type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// sessionID takes the bearer token first, then the cookie.
func sessionID(c *gin.Context, signer *session.Signer) (string, bool) {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		sid, err := signer.Parse(strings.TrimPrefix(h, "Bearer "))
		return sid, err == nil
	}
	ck, err := c.Request.Cookie(AppSessionCookie)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}

// AuthRequired resolves the caller once and stores it in the context.
func AuthRequired(sess *session.AppSessionStore, signer *session.Signer, users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, ok := sessionID(c, signer)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"detail": "Authentication credentials were not provided."})
			return
		}
		as, err := sess.Get(c.Request.Context(), sid)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"detail": "Invalid or expired session."})
			return
		}

		u, err := users.FindUserByID(c.Request.Context(), as.UserID)
		if err != nil || !u.IsActive {
			_ = sess.Delete(c.Request.Context(), sid)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"detail": "Invalid or expired session."})
			return
		}
		c.Set("userID", u.ID)
		c.Set("username", u.Username)
		c.Set(ctxSessionID, sid)
		c.Set(ctxUser, u)
		c.Next()
	}
}

// CurrentUser returns the caller resolved by AuthRequired, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func CurrentSessionID(c *gin.Context) string { return c.GetString(ctxSessionID) }

func gate(allow func(*models.User) bool, detail string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"detail": "Authentication credentials were not provided."})
			return
		}
		if !allow(u) {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"detail": detail})
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc { return gate(access.IsAdmin, "Admin access required.") }

func HandlerOrAdmin() gin.HandlerFunc {
	return gate(access.IsHandlerOrAdmin, "Admin or Handler access required.")
}

func BorrowerOnly() gin.HandlerFunc { return gate(access.IsBorrower, "Borrower access required.") }

func ApprovedOnly() gin.HandlerFunc { return gate(access.CanAct, "Your account is not approved yet.") }
