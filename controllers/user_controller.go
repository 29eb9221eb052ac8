package controllers

import (
	"net/http"
	"strconv"
	"time"

	"Gin_postgres_redis_lending/app"
	"Gin_postgres_redis_lending/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserController struct{ *Srv }

func NewUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /api/users?q=alice&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := uc.Repo.ListUsers(c.Request.Context(), c.Query("q"), page, size)
	if err != nil {
		respondError(c, uc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"total": res.Total, "users": res.Users})
}

// GET /api/users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	user, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, uc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": user})
}

// DELETE /api/users/:id
func (uc *UserController) DeleteUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if id == c.GetString("userID") {
		badRequest(c, "You cannot delete your own account.")
		return
	}
	target, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, uc.Log, err)
		return
	}
	if target.IsSuperuser {
		c.JSON(http.StatusForbidden, app.H{"detail": "Superuser accounts cannot be deleted."})
		return
	}
	if err := uc.Repo.DeleteUserByID(c.Request.Context(), id); err != nil {
		respondError(c, uc.Log, err)
		return
	}
	uc.revoke(c, id)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// PUT /api/users/:id/role
func (uc *UserController) SetRole(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Role models.Role `json:"role" binding:"required,role"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	if err := uc.Repo.SetUserRole(c.Request.Context(), id, in.Role); err != nil {
		respondError(c, uc.Log, err)
		return
	}
	uc.revoke(c, id)
	c.JSON(http.StatusOK, app.H{"user_id": id, "role": in.Role})
}

func (uc *UserController) revoke(c *gin.Context, userID string) {
	if err := uc.AppSess.RevokeAllForUser(c.Request.Context(), userID); err != nil {
		uc.Log.Warn("revoke sessions", "user_id", userID, "err", err)
	}
}

type pendingRegistration struct {
	UserID        string      `json:"user_id"`
	Username      string      `json:"username"`
	Email         string      `json:"email"`
	Role          models.Role `json:"role"`
	RequestedRole models.Role `json:"requested_role"`
	IsApproved    bool        `json:"is_approved"`
	CreatedAt     time.Time   `json:"created_at"`
}

// GET /api/admin/registrations/pending
func (uc *UserController) PendingRegistrations(c *gin.Context) {
	users, err := uc.Repo.ListPendingRegistrations(c.Request.Context())
	if err != nil {
		respondError(c, uc.Log, err)
		return
	}
	out := make([]pendingRegistration, 0, len(users))
	for _, u := range users {
		out = append(out, pendingRegistration{
			UserID:        u.ID,
			Username:      u.Username,
			Email:         u.Email,
			Role:          u.Role,
			RequestedRole: u.RequestedRole,
			IsApproved:    u.IsApproved,
			CreatedAt:     u.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, app.H{"pending": out})
}

// POST /api/admin/registrations/:id/approve
func (uc *UserController) ApproveRegistration(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Role models.Role `json:"role" binding:"required,role"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	u, err := uc.Repo.ApproveRegistration(c.Request.Context(), id, in.Role, c.GetString("userID"))
	if err != nil {
		respondError(c, uc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"message":     "User approved.",
		"user_id":     u.ID,
		"role":        u.Role,
		"is_approved": u.IsApproved,
	})
}

// POST /api/admin/registrations/:id/reject
func (uc *UserController) RejectRegistration(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	u, err := uc.Repo.RejectRegistration(c.Request.Context(), id, c.GetString("userID"))
	if err != nil {
		respondError(c, uc.Log, err)
		return
	}
	uc.revoke(c, u.ID)
	c.JSON(http.StatusOK, app.H{"message": "Registration rejected.", "user_id": u.ID})
}

// uuidParam validates a path id; it answers 400 itself when malformed.
func uuidParam(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		badRequest(c, "Invalid "+name+".")
		return "", false
	}
	return id, true
}

// knownID answers 404 with detail when a body id cannot be a row id.
func knownID(c *gin.Context, id, detail string) bool {
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, app.H{"detail": detail})
		return false
	}
	return true
}
