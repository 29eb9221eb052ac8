// controllers/srv.go
package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"Gin_postgres_redis_lending/ai"
	"Gin_postgres_redis_lending/app"
	"Gin_postgres_redis_lending/cache"
	"Gin_postgres_redis_lending/db"
	"Gin_postgres_redis_lending/events"
	"Gin_postgres_redis_lending/models"
	"Gin_postgres_redis_lending/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Srv is the shared dependency set every controller embeds.
type Srv struct {
	Repo     *db.Repo
	AppSess  *session.AppSessionStore
	Signer   *session.Signer
	Throttle *session.LoginThrottle
	Cache    *cache.Helper
	Bus      *events.Bus
	AI       *ai.Service
	Cfg      app.Config
	Log      *slog.Logger
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo:     a.Repo,
		AppSess:  a.Sessions,
		Signer:   a.Signer,
		Throttle: a.Throttle,
		Cache:    a.Cache,
		Bus:      a.Bus,
		AI:       a.AI,
		Cfg:      a.Config,
		Log:      a.Log,
	}
}

func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Cfg.SecureCookies(),
		MaxAge:   int(maxAge / time.Second),
	})
}

func (s *Srv) clearAppCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Cfg.SecureCookies(),
	})
}

// issueSession records the login, creates the Redis session, sets the cookie and
// returns the bearer token that wraps the same session id.
func (s *Srv) issueSession(c *gin.Context, u *models.User) (string, error) {
	ctx := c.Request.Context()
	if err := s.Repo.TouchUserLogin(ctx, u.ID, c.ClientIP(), c.Request.UserAgent()); err != nil {
		s.Log.Warn("record login", "user_id", u.ID, "err", err)
	}
	id := uuid.NewString()
	if err := s.AppSess.Create(ctx, id, u.ID, u.Username, c.ClientIP()); err != nil {
		return "", err
	}
	s.setAppCookie(c.Writer, id, s.AppSess.TTL())
	return s.Signer.Sign(id, u.ID)
}

func actor(c *gin.Context) db.Actor {
	u := app.CurrentUser(c)
	if u == nil {
		return db.Actor{}
	}
	return db.Actor{ID: u.ID, Username: u.Username}
}

// publish announces a committed transition; failures are logged, never returned.
// Cached aggregates are dropped before returning so the next read sees the change.
func (s *Srv) publish(ctx context.Context, b *models.Borrow, action models.LogAction, actorID string) {
	if b == nil {
		return
	}
	s.dropStats(ctx)
	if s.Bus == nil {
		return
	}
	if err := s.Bus.Publish(ctx, events.FromBorrow(b, action, actorID)); err != nil {
		s.Log.Warn("publish borrow event", "borrow_id", b.ID, "action", action, "err", err)
	}
}

// dropStats clears cached aggregates.
func (s *Srv) dropStats(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.InvalidateStats(ctx); err != nil {
		s.Log.Warn("invalidate stats cache", "err", err)
	}
}
