package controllers

import (
	"net/http"
	"strconv"
	"time"

	"Gin_postgres_redis_lending/app"
	"Gin_postgres_redis_lending/db"
	"Gin_postgres_redis_lending/models"

	"github.com/gin-gonic/gin"
)

// BorrowerController serves the self-service endpoints for borrower accounts.
type BorrowerController struct{ *Srv }

func NewBorrowerController(s *Srv) *BorrowerController { return &BorrowerController{Srv: s} }

func (bc *BorrowerController) Stats(c *gin.Context) {
	u := app.CurrentUser(c)
	st, err := bc.Repo.BorrowerStats(c.Request.Context(), u.ID)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GET /api/borrower/borrows?status=active|pending|history&limit=
func (bc *BorrowerController) MyBorrows(c *gin.Context) {
	filter := db.MyBorrowsFilter(c.DefaultQuery("status", string(db.MyBorrowsActive)))
	switch filter {
	case db.MyBorrowsActive, db.MyBorrowsPending, db.MyBorrowsHistory:
	default:
		filter = db.MyBorrowsAll
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	u := app.CurrentUser(c)
	out, err := bc.Repo.ListMyBorrows(c.Request.Context(), u.ID, filter, limit)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"borrows": out})
}

// POST /api/borrower/request
func (bc *BorrowerController) RequestBorrow(c *gin.Context) {
	var in struct {
		ItemID  string `json:"item_id"`
		Notes   string `json:"notes"`
		DueDate string `json:"due_date"`
	}
	_ = c.ShouldBindJSON(&in)
	if in.ItemID == "" {
		badRequest(c, "Item ID is required.")
		return
	}
	if !knownID(c, in.ItemID, "Item not found.") {
		return
	}
	var due *time.Time
	if in.DueDate != "" {
		t, ok := parseDue(in.DueDate)
		if !ok {
			badRequest(c, "Invalid due_date.")
			return
		}
		due = &t
	}

	ctx := c.Request.Context()
	a := actor(c)
	b, err := bc.Repo.RequestBorrow(ctx, a, in.ItemID, in.Notes, due)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	bc.publish(ctx, b, models.ActionRequested, a.ID)

	itemName := ""
	if it, err := bc.Repo.FindItemByID(ctx, b.ItemID); err == nil {
		itemName = it.Name
	}
	c.JSON(http.StatusCreated, app.H{
		"message":   "Borrow request submitted successfully",
		"borrow_id": b.ID,
		"item_name": itemName,
		"status":    b.Status,
	})
}

func (bc *BorrowerController) Notifications(c *gin.Context) {
	u := app.CurrentUser(c)
	list, err := bc.Repo.Notifications(c.Request.Context(), u.ID)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"notifications": list, "unread_count": len(list)})
}

// GET /api/borrower/notifications/count
func (bc *BorrowerController) NotificationCount(c *gin.Context) {
	u := app.CurrentUser(c)
	list, err := bc.Repo.Notifications(c.Request.Context(), u.ID)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	counts := map[string]int{}
	for _, n := range list {
		counts[n.Type]++
	}
	c.JSON(http.StatusOK, app.H{
		"unread_count": len(list),
		"approved":     counts[db.NotifyApproved],
		"rejected":     counts[db.NotifyRejected],
		"overdue":      counts[db.NotifyOverdue],
	})
}
