package controllers

import (
	"net/http"
	"strings"

	"Gin_postgres_redis_lending/app"
	"Gin_postgres_redis_lending/models"
	"Gin_postgres_redis_lending/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthController struct{ *Srv }

func NewAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

// POST /api/auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var in struct {
		Username      string      `json:"username" binding:"required,max=150"`
		Email         string      `json:"email" binding:"omitempty,email"`
		Password      string      `json:"password" binding:"required,min=8"`
		RequestedRole models.Role `json:"requested_role" binding:"omitempty,requestable_role"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	if in.RequestedRole == "" {
		in.RequestedRole = models.RoleStudent
	}
	hash, err := session.HashPassword(in.Password)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	u := &models.User{
		ID:            uuid.NewString(),
		Username:      strings.TrimSpace(in.Username),
		Email:         strings.TrimSpace(in.Email),
		PasswordHash:  hash,
		IsActive:      true,
		Role:          models.RoleStudent,
		RequestedRole: in.RequestedRole,
	}
	if err := ac.Repo.CreateUser(c.Request.Context(), u); err != nil {
		respondError(c, ac.Log, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{
		"message":        "Registration submitted. Wait for admin approval before login.",
		"user_id":        u.ID,
		"requested_role": u.RequestedRole,
		"is_approved":    u.IsApproved,
	})
}

// POST /api/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var in struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()

	blocked, err := ac.Throttle.Blocked(ctx, in.Username)
	if err != nil {
		ac.Log.Warn("login throttle unavailable", "err", err)
	}
	if blocked {
		c.JSON(http.StatusTooManyRequests, app.H{"detail": "Too many failed login attempts. Try again later."})
		return
	}

	u, err := ac.Repo.FindUserByUsername(ctx, in.Username)
	if err != nil || !session.CheckPassword(u.PasswordHash, in.Password) {
		if ferr := ac.Throttle.Fail(ctx, in.Username); ferr != nil {
			ac.Log.Warn("login throttle unavailable", "err", ferr)
		}
		badRequest(c, "Invalid username or password.")
		return
	}
	_ = ac.Throttle.Reset(ctx, in.Username)

	if !u.IsApproved && !u.IsSuperuser {
		c.JSON(http.StatusForbidden, app.H{"detail": "Account is pending admin approval."})
		return
	}
	if !u.IsActive {
		c.JSON(http.StatusForbidden, app.H{"detail": "Account is disabled."})
		return
	}

	token, err := ac.issueSession(c, u)
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"token":        token,
		"username":     u.Username,
		"role":         u.Role,
		"is_superuser": u.IsSuperuser,
	})
}

// POST /api/auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	if sid := app.CurrentSessionID(c); sid != "" {
		_ = ac.AppSess.Delete(c.Request.Context(), sid)
	}
	ac.clearAppCookie(c.Writer)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/auth/me
func (ac *AuthController) Me(c *gin.Context) {
	u := app.CurrentUser(c)
	c.JSON(http.StatusOK, app.H{
		"id":           u.ID,
		"username":     u.Username,
		"email":        u.Email,
		"role":         u.Role,
		"is_approved":  u.IsApproved,
		"is_superuser": u.IsSuperuser,
	})
}
