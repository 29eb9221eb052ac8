// db/repo_borrow_list.go
package db

import (
	"context"
	"sort"
	"strconv"
	"time"

	"Gin_postgres_redis_lending/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BorrowView is a borrow flattened with the names the dashboards show.
type BorrowView struct {
	ID                string                    `json:"id"`
	Item              string                    `json:"item" gorm:"column:item"`
	ItemName          string                    `json:"item_name"`
	ItemInstance      *string                   `json:"item_instance" gorm:"column:item_instance"`
	ItemReferenceID   *string                   `json:"item_reference_id"`
	Borrower          string                    `json:"borrower" gorm:"column:borrower"`
	BorrowerUsername  string                    `json:"borrower_username"`
	BorrowerEmail     string                    `json:"borrower_email"`
	Handler           *string                   `json:"handler" gorm:"column:handler"`
	HandlerUsername   *string                   `json:"handler_username"`
	BorrowDate        time.Time                 `json:"borrow_date"`
	DueDate           time.Time                 `json:"due_date"`
	ReturnDate        *time.Time                `json:"return_date"`
	Status            models.BorrowStatus       `json:"status"`
	NotReturnedReason *models.NotReturnedReason `json:"not_returned_reason"`
	Notes             string                    `json:"notes"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

const borrowViewColumns = `
	b.id, b.item_id AS item, i.name AS item_name,
	b.item_instance_id AS item_instance, ii.reference_id AS item_reference_id,
	b.borrower_id AS borrower, u.username AS borrower_username, u.email AS borrower_email,
	b.handler_id AS handler, h.username AS handler_username,
	b.borrow_date, b.due_date, b.return_date, b.status, b.not_returned_reason, b.notes,
	b.created_at, b.updated_at`

func (r *Repo) borrowViews(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Table(models.BorrowTable+" b").
		Select(borrowViewColumns).
		Joins("JOIN "+models.ItemTable+" i ON i.id = b.item_id").
		Joins("LEFT JOIN "+models.InstanceTable+" ii ON ii.id = b.item_instance_id").
		Joins("JOIN "+models.UserTable+" u ON u.id = b.borrower_id").
		Joins("LEFT JOIN "+models.UserTable+" h ON h.id = b.handler_id")
}

func (r *Repo) FindBorrowView(ctx context.Context, id string) (*BorrowView, error) {
	var v BorrowView
	res := r.borrowViews(ctx).Where("b.id = ?", id).Limit(1).Scan(&v)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, NewNotFoundError("Borrow not found.")
	}
	return &v, nil
}

// ListActiveBorrows returns ACTIVE and LATE borrows, soonest due first.
func (r *Repo) ListActiveBorrows(ctx context.Context) ([]BorrowView, error) {
	var out []BorrowView
	err := r.borrowViews(ctx).
		Where("b.status IN ?", models.OutStatuses).
		Order("b.due_date ASC").
		Scan(&out).Error
	return out, err
}


// ListArchivedBorrows returns closed borrows, optionally narrowed to one terminal status.
func (r *Repo) ListArchivedBorrows(ctx context.Context, status models.BorrowStatus) ([]BorrowView, error) {
	q := r.borrowViews(ctx)
	if status != "" {
		if !status.Terminal() || !status.Valid() {
			return nil, NewInvalidArgumentError("Archived status must be RETURNED, NOT_RETURNED or REJECTED.")
		}
		q = q.Where("b.status = ?", status)
	} else {
		q = q.Where("b.status IN ?", models.ClosedStatuses)
	}
	var out []BorrowView
	err := q.Order("b.updated_at DESC").Scan(&out).Error
	return out, err
}

func (r *Repo) ListAllBorrows(ctx context.Context) ([]BorrowView, error) {
	var out []BorrowView
	err := r.borrowViews(ctx).Order("b.created_at DESC").Scan(&out).Error
	return out, err
}

func (r *Repo) ListPendingBorrows(ctx context.Context) ([]BorrowView, error) {
	var out []BorrowView
	err := r.borrowViews(ctx).
		Where("b.status = ?", models.BorrowPending).
		Order("b.created_at ASC").
		Scan(&out).Error
	return out, err
}

// Detail

type LogView struct {
	ID                  string            `json:"id"`
	Action              models.LogAction  `json:"action"`
	PerformedBy         *string           `json:"performed_by" gorm:"column:performed_by"`
	PerformedByUsername *string           `json:"performed_by_username"`
	PerformedByRole     *models.Role      `json:"performed_by_role"`
	Description         string            `json:"description"`
	Metadata            datatypes.JSONMap `json:"metadata"`
	CreatedAt           time.Time         `json:"created_at"`
}

type BorrowDetail struct {
	BorrowView
	ItemDescription   string      `json:"item_description"`
	ItemCategory      *string     `json:"item_category"`
	ItemInstanceNotes *string     `json:"item_instance_notes"`
	BorrowerRole      models.Role `json:"borrower_role"`
	HandlerEmail      *string     `json:"handler_email"`
	Logs              []LogView   `json:"logs" gorm:"-"`
}

func (r *Repo) FindBorrowDetail(ctx context.Context, id string) (*BorrowDetail, error) {
	var d BorrowDetail
	res := r.borrowViews(ctx).
		Select(borrowViewColumns+`,
			i.description AS item_description, c.name AS item_category,
			ii.notes AS item_instance_notes, u.role AS borrower_role, h.email AS handler_email`).
		Joins("LEFT JOIN "+models.CategoryTable+" c ON c.id = i.category_id").
		Where("b.id = ?", id).
		Limit(1).
		Scan(&d)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, NewNotFoundError("Borrow not found.")
	}
	if d.ItemCategory != nil {
		name := models.CategoryType(*d.ItemCategory).DisplayName()
		d.ItemCategory = &name
	}
	logs, err := r.ListBorrowLogs(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Logs = logs
	return &d, nil
}

// ListBorrowLogs returns the timeline newest first.
func (r *Repo) ListBorrowLogs(ctx context.Context, borrowID string) ([]LogView, error) {
	var out []LogView
	err := r.DB.WithContext(ctx).
		Table(models.BorrowLogTable+" l").
		Select(`l.id, l.action, l.performed_by_id AS performed_by,
			p.username AS performed_by_username, p.role AS performed_by_role,
			l.description, l.metadata, l.created_at`).
		Joins("LEFT JOIN "+models.UserTable+" p ON p.id = l.performed_by_id").
		Where("l.borrow_id = ?", borrowID).
		Order("l.created_at DESC, l.id DESC").
		Scan(&out).Error
	return out, err
}

// Borrower side

type MyBorrowsFilter string

const (
	MyBorrowsAll     MyBorrowsFilter = ""
	MyBorrowsActive  MyBorrowsFilter = "active"
	MyBorrowsPending MyBorrowsFilter = "pending"
	MyBorrowsHistory MyBorrowsFilter = "history"
)

func (r *Repo) ListMyBorrows(ctx context.Context, borrowerID string, filter MyBorrowsFilter, limit int) ([]BorrowView, error) {
	q := r.borrowViews(ctx).Where("b.borrower_id = ?", borrowerID)
	switch filter {
	case MyBorrowsActive:
		q = q.Where("b.status IN ?", models.OutStatuses)
	case MyBorrowsPending:
		q = q.Where("b.status = ?", models.BorrowPending)
	case MyBorrowsHistory:
		q = q.Where("b.status IN ?", models.ClosedStatuses)
	}
	q = q.Order("b.created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []BorrowView
	err := q.Scan(&out).Error
	return out, err
}

type BorrowerStats struct {
	ActiveBorrows   int64 `json:"active_borrows"`
	PendingRequests int64 `json:"pending_requests"`
	OverdueItems    int64 `json:"overdue_items"`
	TotalBorrowed   int64 `json:"total_borrowed"`
}

func (r *Repo) BorrowerStats(ctx context.Context, borrowerID string) (BorrowerStats, error) {
	var s BorrowerStats
	err := r.DB.WithContext(ctx).
		Model(&models.Borrow{}).
		Select(`
			COUNT(*) FILTER (WHERE status IN ?) AS active_borrows,
			COUNT(*) FILTER (WHERE status = ?) AS pending_requests,
			COUNT(*) FILTER (WHERE status IN ? AND due_date < ?) AS overdue_items,
			COUNT(*) AS total_borrowed`,
			models.OutStatuses, models.BorrowPending,
			models.OutStatuses, r.Clock.Now()).
		Where("borrower_id = ?", borrowerID).
		Scan(&s).Error
	return s, err
}

type Notification struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	BorrowID    string    `json:"borrow_id"`
	ItemName    string    `json:"item_name"`
	Timestamp   time.Time `json:"timestamp"`
	DaysOverdue int       `json:"days_overdue,omitempty"`
	Read        bool      `json:"read"`
}

const (
	NotifyApproved = "APPROVED"
	NotifyRejected = "REJECTED"
	NotifyOverdue  = "OVERDUE"
)

const notificationWindow = 30 * 24 * time.Hour

// Notifications derives the borrower's inbox from recent borrow activity.
func (r *Repo) Notifications(ctx context.Context, borrowerID string) ([]Notification, error) {
	now := r.Clock.Now()
	since := now.Add(-notificationWindow)

	recent := func(status models.BorrowStatus) ([]BorrowView, error) {
		var out []BorrowView
		err := r.borrowViews(ctx).
			Where("b.borrower_id = ? AND b.status = ? AND b.updated_at >= ?", borrowerID, status, since).
			Order("b.updated_at DESC").
			Limit(10).
			Scan(&out).Error
		return out, err
	}

	approved, err := recent(models.BorrowActive)
	if err != nil {
		return nil, err
	}
	rejected, err := recent(models.BorrowRejected)
	if err != nil {
		return nil, err
	}
	var overdue []BorrowView
	if err := r.borrowViews(ctx).
		Where("b.borrower_id = ? AND b.status IN ? AND b.due_date < ?",
			borrowerID, []models.BorrowStatus{models.BorrowActive, models.BorrowLate}, now).
		Order("b.due_date ASC").
		Scan(&overdue).Error; err != nil {
		return nil, err
	}

	out := make([]Notification, 0, len(approved)+len(rejected)+len(overdue))
	for _, b := range approved {
		out = append(out, Notification{
			ID:        "approved_" + b.ID,
			Type:      NotifyApproved,
			Title:     "Request Approved",
			Message:   "Your request for " + b.ItemName + " has been approved. Pick it up at the lab.",
			BorrowID:  b.ID,
			ItemName:  b.ItemName,
			Timestamp: b.UpdatedAt,
		})
	}
	for _, b := range rejected {
		out = append(out, Notification{
			ID:        "rejected_" + b.ID,
			Type:      NotifyRejected,
			Title:     "Request Rejected",
			Message:   "Your request for " + b.ItemName + " was rejected. " + b.Notes,
			BorrowID:  b.ID,
			ItemName:  b.ItemName,
			Timestamp: b.UpdatedAt,
		})
	}
	for _, b := range overdue {
		days := models.Borrow{DueDate: b.DueDate}.DaysOverdue(now)
		ref := ""
		if b.ItemReferenceID != nil {
			ref = *b.ItemReferenceID
		}
		out = append(out, Notification{
			ID:          "overdue_" + b.ID,
			Type:        NotifyOverdue,
			Title:       "Item Overdue",
			Message:     overdueMessage(b.ItemName, ref, days),
			BorrowID:    b.ID,
			ItemName:    b.ItemName,
			Timestamp:   b.DueDate,
			DaysOverdue: days,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func overdueMessage(item, ref string, days int) string {
	return item + " (" + ref + ") is " + strconv.Itoa(days) + " day(s) overdue. Please return it ASAP."
}
