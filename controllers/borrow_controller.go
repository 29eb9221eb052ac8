package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"Gin_postgres_redis_lending/app"
	"Gin_postgres_redis_lending/models"

	"github.com/gin-gonic/gin"
)

// BorrowController serves the staff side of the borrow lifecycle.
type BorrowController struct{ *Srv }

func NewBorrowController(s *Srv) *BorrowController { return &BorrowController{Srv: s} }

var dueLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseDue accepts RFC3339, a local datetime without zone, or a plain date (end of day UTC).
func parseDue(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range dueLayouts {
		t, err := time.Parse(l, s)
		if err != nil {
			continue
		}
		if l == "2006-01-02" {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

// respondBorrow reloads the flattened view of b and answers with it under "borrow".
func (bc *BorrowController) respondBorrow(c *gin.Context, status int, msg string, b *models.Borrow) {
	view, err := bc.Repo.FindBorrowView(c.Request.Context(), b.ID)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	c.JSON(status, app.H{"message": msg, "borrow": view})
}

// GET /api/admin/borrows/active
func (bc *BorrowController) Active(c *gin.Context) {
	out, err := bc.Repo.ListActiveBorrows(c.Request.Context())
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"borrows": out})
}

// GET /api/admin/borrows/archived?status=
func (bc *BorrowController) Archived(c *gin.Context) {
	status := models.BorrowStatus(strings.ToUpper(c.Query("status")))
	out, err := bc.Repo.ListArchivedBorrows(c.Request.Context(), status)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"borrows": out})
}

// GET /api/admin/borrows/all
func (bc *BorrowController) All(c *gin.Context) {
	out, err := bc.Repo.ListAllBorrows(c.Request.Context())
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"borrows": out})
}

// GET /api/admin/borrows/:id
func (bc *BorrowController) Detail(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	d, err := bc.Repo.FindBorrowDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GET /api/borrow-requests/pending
func (bc *BorrowController) Pending(c *gin.Context) {
	out, err := bc.Repo.ListPendingBorrows(c.Request.Context())
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"requests": out})
}

// POST /api/borrow-requests/:id/approve
func (bc *BorrowController) Approve(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	a := actor(c)
	b, err := bc.Repo.ApproveBorrow(c.Request.Context(), id, a)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	bc.publish(c.Request.Context(), b, models.ActionApproved, a.ID)
	bc.respondBorrow(c, http.StatusOK, "Borrow request approved successfully", b)
}

// POST /api/borrow-requests/:id/reject
func (bc *BorrowController) Reject(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&in)

	a := actor(c)
	b, err := bc.Repo.RejectBorrow(c.Request.Context(), id, a, in.Reason)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	bc.publish(c.Request.Context(), b, models.ActionRejected, a.ID)
	bc.respondBorrow(c, http.StatusOK, "Borrow request rejected successfully", b)
}

// POST /api/borrows/:id/return
func (bc *BorrowController) Return(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Condition models.InstanceStatus `json:"condition" binding:"omitempty,return_condition"`
		Notes     string                `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return
	}

	a := actor(c)
	b, err := bc.Repo.ReturnBorrow(c.Request.Context(), id, a, in.Condition, in.Notes)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	bc.publish(c.Request.Context(), b, models.ActionReturned, a.ID)
	bc.respondBorrow(c, http.StatusOK, "Item returned successfully", b)
}

// POST /api/borrows/:id/mark-late
func (bc *BorrowController) MarkLate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	a := actor(c)
	b, err := bc.Repo.MarkLate(c.Request.Context(), id, &a)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	bc.publish(c.Request.Context(), b, models.ActionMarkedLate, a.ID)
	bc.respondBorrow(c, http.StatusOK, "Borrow marked as late", b)
}

// POST /api/borrows/:id/mark-not-returned
func (bc *BorrowController) MarkNotReturned(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Reason models.NotReturnedReason `json:"reason" binding:"required,not_returned_reason"`
		Notes  string                   `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	a := actor(c)
	b, err := bc.Repo.MarkNotReturned(c.Request.Context(), id, a, in.Reason, in.Notes)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	bc.publish(c.Request.Context(), b, models.ActionMarkedNotReturned, a.ID)
	bc.respondBorrow(c, http.StatusOK, "Borrow marked as not returned", b)
}

// POST /api/borrows/:id/extend-due
func (bc *BorrowController) ExtendDue(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		DueDate string `json:"due_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	due, ok := parseDue(in.DueDate)
	if !ok {
		badRequest(c, "Invalid due_date.")
		return
	}
	a := actor(c)
	b, err := bc.Repo.ExtendDueDate(c.Request.Context(), id, a, due)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	bc.publish(c.Request.Context(), b, models.ActionDueDateExtended, a.ID)
	bc.respondBorrow(c, http.StatusOK, "Due date extended successfully", b)
}

// POST /api/borrows/:id/notes
func (bc *BorrowController) AddNote(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Note string `json:"note"`
	}
	_ = c.ShouldBindJSON(&in)

	a := actor(c)
	b, err := bc.Repo.AddNote(c.Request.Context(), id, a, in.Note)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	bc.publish(c.Request.Context(), b, models.ActionNoteAdded, a.ID)
	bc.respondBorrow(c, http.StatusOK, "Note added successfully", b)
}

// POST /api/borrow-requests
func (bc *BorrowController) CreateRequest(c *gin.Context) {
	var in struct {
		ItemID  string `json:"item_id"`
		DueDate string `json:"due_date"`
		Notes   string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&in)
	if in.ItemID == "" || in.DueDate == "" {
		badRequest(c, "item_id and due_date are required.")
		return
	}
	if !knownID(c, in.ItemID, "Item not found.") {
		return
	}
	due, ok := parseDue(in.DueDate)
	if !ok {
		badRequest(c, "Invalid due_date.")
		return
	}

	a := actor(c)
	b, err := bc.Repo.CreateBorrowRequest(c.Request.Context(), a, in.ItemID, due, in.Notes)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	bc.publish(c.Request.Context(), b, models.ActionCreated, a.ID)
	bc.respondBorrow(c, http.StatusCreated, "Borrow request created successfully. Waiting for approval.", b)
}

// POST /api/borrows/walk-in
func (bc *BorrowController) WalkIn(c *gin.Context) {
	var in struct {
		ItemInstanceID string `json:"item_instance_id"`
		BorrowerID     string `json:"borrower_id"`
		DueDate        string `json:"due_date"`
		Notes          string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&in)
	if in.ItemInstanceID == "" || in.BorrowerID == "" || in.DueDate == "" {
		badRequest(c, "item_instance_id, borrower_id, and due_date are required.")
		return
	}
	if !knownID(c, in.ItemInstanceID, "Item instance not found.") || !knownID(c, in.BorrowerID, "Borrower not found.") {
		return
	}
	due, ok := parseDue(in.DueDate)
	if !ok {
		badRequest(c, "Invalid due_date.")
		return
	}
	a := actor(c)
	b, err := bc.Repo.WalkInBorrow(c.Request.Context(), a, in.ItemInstanceID, in.BorrowerID, due, in.Notes)
	if err != nil {
		respondError(c, bc.Log, err)
		return
	}
	bc.publish(c.Request.Context(), b, models.ActionCreated, a.ID)
	bc.respondBorrow(c, http.StatusCreated, "Walk-in borrow processed successfully", b)
}
