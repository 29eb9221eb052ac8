// db/repo_borrow.go
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Gin_postgres_redis_lending/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultLoanPeriod applies when a borrower does not pick a due date.
const DefaultLoanPeriod = 3 * 24 * time.Hour

// Actor is whoever performs a transition. A nil *Actor is the system.
type Actor struct {
	ID       string
	Username string
}

func (a *Actor) id() *string {
	if a == nil {
		return nil
	}
	id := a.ID
	return &id
}

func (a *Actor) name() string {
	if a == nil {
		return "system"
	}
	return a.Username
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func appendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

// appendLog inserts the single timeline row of a transition.
func (r *Repo) appendLog(tx *gorm.DB, borrowID string, actor *Actor, action models.LogAction, desc string, meta map[string]any) error {
	id, err := r.IDs.New()
	if err != nil {
		return fmt.Errorf("log id: %w", err)
	}
	return tx.Create(&models.BorrowLog{
		ID:            id,
		BorrowID:      borrowID,
		Action:        action,
		PerformedByID: actor.id(),
		Description:   desc,
		Metadata:      datatypes.JSONMap(meta),
		CreatedAt:     r.Clock.Now(),
	}).Error
}

func lockBorrow(tx *gorm.DB, id string) (*models.Borrow, error) {
	var b models.Borrow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "Borrow not found.")
	}
	return &b, nil
}

func checkTransition(b *models.Borrow, to models.BorrowStatus) error {
	if err := b.Status.CheckTransition(to); err != nil {
		return NewConflictError(err.Error())
	}
	return nil
}

// reserveInstance takes the first AVAILABLE unit of an item, skipping rows
// another transaction is already holding.
func (r *Repo) reserveInstance(tx *gorm.DB, itemID string) (*models.ItemInstance, error) {
	var inst models.ItemInstance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("item_id = ? AND status = ?", itemID, models.InstanceAvailable).
		Order("reference_id").
		Take(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewInvalidArgumentError("No available instances for this item.")
	}
	if err != nil {
		return nil, err
	}
	if err := r.setInstanceStatus(tx, &inst, models.InstanceInUse); err != nil {
		return nil, err
	}
	return &inst, nil
}

func createBorrow(tx *gorm.DB, b *models.Borrow) error {
	if err := tx.Create(b).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrInstanceBusy
		}
		return err
	}
	return nil
}

func (r *Repo) saveBorrow(tx *gorm.DB, b *models.Borrow) error {
	b.UpdatedAt = r.Clock.Now()
	return tx.Save(b).Error
}

// Opening a borrow

type requestKind struct {
	action         models.LogAction
	verb           string
	checkDuplicate bool
}

var (
	borrowerRequest = requestKind{action: models.ActionRequested, verb: "submitted", checkDuplicate: true}
	staffRequest    = requestKind{action: models.ActionCreated, verb: "created"}
)

// RequestBorrow opens a PENDING borrow for the caller and reserves a unit.
func (r *Repo) RequestBorrow(ctx context.Context, borrower Actor, itemID, notes string, due *time.Time) (*models.Borrow, error) {
	return r.openRequest(ctx, borrower, itemID, notes, due, borrowerRequest)
}

// CreateBorrowRequest is the generic request path; the due date is mandatory.
func (r *Repo) CreateBorrowRequest(ctx context.Context, borrower Actor, itemID string, due time.Time, notes string) (*models.Borrow, error) {
	return r.openRequest(ctx, borrower, itemID, notes, &due, staffRequest)
}

func (r *Repo) openRequest(ctx context.Context, borrower Actor, itemID, notes string, due *time.Time, kind requestKind) (*models.Borrow, error) {
	now := r.Clock.Now()
	dueDate := now.Add(DefaultLoanPeriod)
	if due != nil {
		if !due.After(now) {
			return nil, NewInvalidArgumentError("Due date must be in the future.")
		}
		dueDate = due.UTC()
	}

	var b *models.Borrow
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var it models.Item
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&it, "id = ?", itemID).Error; err != nil {
			return notFound(err, "Item not found.")
		}

		if kind.checkDuplicate {
			var n int64
			if err := tx.Model(&models.Borrow{}).
				Where("borrower_id = ? AND item_id = ? AND status = ?", borrower.ID, it.ID, models.BorrowPending).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return NewInvalidArgumentError("You already have a pending request for this item.")
			}
		}

		inst, err := r.reserveInstance(tx, it.ID)
		if err != nil {
			return err
		}

		b = &models.Borrow{
			ID:             uuid.NewString(),
			ItemID:         it.ID,
			ItemInstanceID: &inst.ID,
			BorrowerID:     borrower.ID,
			BorrowDate:     now,
			DueDate:        dueDate,
			Status:         models.BorrowPending,
			Notes:          strings.TrimSpace(notes),
		}
		if err := createBorrow(tx, b); err != nil {
			return err
		}

		meta := map[string]any{"requested_at": stamp(now)}
		if kind.action == models.ActionRequested {
			meta["item"] = it.Name
		}
		return r.appendLog(tx, b.ID, &borrower, kind.action,
			fmt.Sprintf("Borrow request %s by %s", kind.verb, borrower.Username), meta)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// WalkInBorrow hands a specific unit out immediately, skipping PENDING.
func (r *Repo) WalkInBorrow(ctx context.Context, handler Actor, instanceID, borrowerID string, due time.Time, notes string) (*models.Borrow, error) {
	now := r.Clock.Now()
	if !due.After(now) {
		return nil, NewInvalidArgumentError("Due date must be in the future.")
	}
	if strings.TrimSpace(notes) == "" {
		notes = "Walk-in borrow"
	}

	var b *models.Borrow
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var borrower models.User
		if err := tx.First(&borrower, "id = ?", borrowerID).Error; err != nil {
			return notFound(err, "Borrower not found.")
		}
		if !borrower.IsApproved && !borrower.IsSuperuser {
			return NewForbiddenError("User not approved.")
		}

		inst, err := lockInstance(tx, instanceID)
		if err != nil {
			return err
		}
		if inst.Status != models.InstanceAvailable {
			return NewInvalidArgumentError("Item instance is not available. Current status: " + string(inst.Status))
		}
		if err := r.setInstanceStatus(tx, inst, models.InstanceInUse); err != nil {
			return err
		}

		b = &models.Borrow{
			ID:             uuid.NewString(),
			ItemID:         inst.ItemID,
			ItemInstanceID: &inst.ID,
			BorrowerID:     borrower.ID,
			HandlerID:      handler.id(),
			BorrowDate:     now,
			DueDate:        due.UTC(),
			Status:         models.BorrowActive,
			Notes:          strings.TrimSpace(notes),
		}
		if err := createBorrow(tx, b); err != nil {
			return err
		}
		return r.appendLog(tx, b.ID, &handler, models.ActionCreated,
			"Walk-in borrow processed by "+handler.Username,
			map[string]any{"borrow_type": "walk-in", "processed_at": stamp(now)})
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Staff decisions on PENDING requests

func lockPending(tx *gorm.DB, id string) (*models.Borrow, error) {
	b, err := lockBorrow(tx, id)
	var de *DomainError
	if errors.As(err, &de) && de.Code == ErrCodeNotFound {
		return nil, NewNotFoundError("Borrow request not found or already processed.")
	}
	if err != nil {
		return nil, err
	}
	if b.Status != models.BorrowPending {
		return nil, NewNotFoundError("Borrow request not found or already processed.")
	}
	return b, nil
}

func (r *Repo) ApproveBorrow(ctx context.Context, borrowID string, actor Actor) (*models.Borrow, error) {
	var b *models.Borrow
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if b, err = lockPending(tx, borrowID); err != nil {
			return err
		}
		// requests made before reservations existed carry no unit yet
		if b.ItemInstanceID == nil {
			inst, err := r.reserveInstance(tx, b.ItemID)
			if err != nil {
				return err
			}
			b.ItemInstanceID = &inst.ID
		}
		now := r.Clock.Now()
		b.Status = models.BorrowActive
		b.HandlerID = actor.id()
		if err := r.saveBorrow(tx, b); err != nil {
			if IsUniqueViolation(err) {
				return ErrInstanceBusy
			}
			return err
		}
		return r.appendLog(tx, b.ID, &actor, models.ActionApproved,
			"Borrow request approved by "+actor.Username,
			map[string]any{"approved_at": stamp(now)})
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Repo) RejectBorrow(ctx context.Context, borrowID string, actor Actor, reason string) (*models.Borrow, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "No reason provided"
	}
	var b *models.Borrow
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if b, err = lockPending(tx, borrowID); err != nil {
			return err
		}
		now := r.Clock.Now()
		b.Status = models.BorrowRejected
		b.HandlerID = actor.id()
		b.Notes = "Rejected: " + reason
		if err := r.saveBorrow(tx, b); err != nil {
			return err
		}
		if err := r.releaseInstance(tx, b, models.InstanceAvailable); err != nil {
			return err
		}
		return r.appendLog(tx, b.ID, &actor, models.ActionRejected,
			"Borrow request rejected by "+actor.Username,
			map[string]any{"reason": reason, "rejected_at": stamp(now)})
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// releaseInstance moves the borrow's unit to status once the borrow is closed.
func (r *Repo) releaseInstance(tx *gorm.DB, b *models.Borrow, status models.InstanceStatus) error {
	if b.ItemInstanceID == nil {
		return nil
	}
	inst, err := lockInstance(tx, *b.ItemInstanceID)
	if err != nil {
		var de *DomainError
		if errors.As(err, &de) && de.Code == ErrCodeNotFound {
			return nil
		}
		return err
	}
	return r.setInstanceStatus(tx, inst, status)
}

// Closing an outstanding borrow

// ReturnBorrow closes an ACTIVE or LATE borrow. condition is where the unit goes:
// AVAILABLE when empty, or FAULTY / IN_REPAIR.
func (r *Repo) ReturnBorrow(ctx context.Context, borrowID string, actor Actor, condition models.InstanceStatus, notes string) (*models.Borrow, error) {
	if condition == "" {
		condition = models.InstanceAvailable
	}
	switch condition {
	case models.InstanceAvailable, models.InstanceFaulty, models.InstanceInRepair:
	default:
		return nil, NewInvalidArgumentError("Return condition must be AVAILABLE, FAULTY or IN_REPAIR.")
	}

	var b *models.Borrow
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if b, err = lockBorrow(tx, borrowID); err != nil {
			return err
		}
		if err := checkTransition(b, models.BorrowReturned); err != nil {
			return err
		}
		now := r.Clock.Now()
		wasLate := b.Status == models.BorrowLate || now.After(b.DueDate)
		b.Status = models.BorrowReturned
		b.ReturnDate = &now
		if b.HandlerID == nil {
			b.HandlerID = actor.id()
		}
		b.Notes = appendNote(b.Notes, notes)
		if err := r.saveBorrow(tx, b); err != nil {
			return err
		}
		if err := r.releaseInstance(tx, b, condition); err != nil {
			return err
		}
		return r.appendLog(tx, b.ID, &actor, models.ActionReturned,
			"Item returned, processed by "+actor.Username,
			map[string]any{
				"return_date":     stamp(now),
				"was_late":        wasLate,
				"instance_status": string(condition),
			})
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// MarkLate flags a past-due ACTIVE borrow. A nil actor is the overdue sweeper.
func (r *Repo) MarkLate(ctx context.Context, borrowID string, actor *Actor) (*models.Borrow, error) {
	var b *models.Borrow
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = r.markLate(tx, borrowID, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Repo) markLate(tx *gorm.DB, borrowID string, actor *Actor) (*models.Borrow, error) {
	b, err := lockBorrow(tx, borrowID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(b, models.BorrowLate); err != nil {
		return nil, err
	}
	now := r.Clock.Now()
	if !now.After(b.DueDate) {
		return nil, NewInvalidArgumentError("Borrow is not past its due date.")
	}
	b.Status = models.BorrowLate
	if err := r.saveBorrow(tx, b); err != nil {
		return nil, err
	}
	desc := "Marked as late by " + actor.name()
	if actor == nil {
		desc = "Marked as late by overdue sweep"
	}
	err = r.appendLog(tx, b.ID, actor, models.ActionMarkedLate, desc, map[string]any{
		"due_date":     stamp(b.DueDate),
		"days_overdue": b.DaysOverdue(now),
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Repo) MarkNotReturned(ctx context.Context, borrowID string, actor Actor, reason models.NotReturnedReason, notes string) (*models.Borrow, error) {
	if !reason.Valid() {
		return nil, NewInvalidArgumentError("Reason must be one of LOST, DAMAGED, NO_CONTACT.")
	}
	var b *models.Borrow
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if b, err = lockBorrow(tx, borrowID); err != nil {
			return err
		}
		if err := checkTransition(b, models.BorrowNotReturned); err != nil {
			return err
		}
		prev := b.Status
		b.Status = models.BorrowNotReturned
		b.NotReturnedReason = &reason
		b.Notes = appendNote(b.Notes, notes)
		if err := r.saveBorrow(tx, b); err != nil {
			return err
		}
		if err := r.releaseInstance(tx, b, reason.InstanceStatus()); err != nil {
			return err
		}
		return r.appendLog(tx, b.ID, &actor, models.ActionMarkedNotReturned,
			fmt.Sprintf("Marked as not returned (%s) by %s", reason, actor.Username),
			map[string]any{"reason": string(reason), "previous_status": string(prev)})
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ExtendDueDate moves the due date forward. A LATE borrow whose new due date is in
// the future becomes ACTIVE again; the extension is still a single log row.
func (r *Repo) ExtendDueDate(ctx context.Context, borrowID string, actor Actor, newDue time.Time) (*models.Borrow, error) {
	newDue = newDue.UTC()
	var b *models.Borrow
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if b, err = lockBorrow(tx, borrowID); err != nil {
			return err
		}
		if b.Status != models.BorrowActive && b.Status != models.BorrowLate {
			return NewConflictError("Only active or late borrows can be extended.")
		}
		if !newDue.After(b.DueDate) {
			return NewInvalidArgumentError("New due date must be after the current due date.")
		}
		now := r.Clock.Now()
		from, old := b.Status, b.DueDate
		if b.Status == models.BorrowLate && newDue.After(now) {
			if err := checkTransition(b, models.BorrowActive); err != nil {
				return err
			}
			b.Status = models.BorrowActive
		}
		b.DueDate = newDue
		if err := r.saveBorrow(tx, b); err != nil {
			return err
		}
		return r.appendLog(tx, b.ID, &actor, models.ActionDueDateExtended,
			"Due date extended by "+actor.Username,
			map[string]any{
				"old_due_date": stamp(old),
				"new_due_date": stamp(newDue),
				"status_from":  string(from),
				"status_to":    string(b.Status),
			})
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// AddNote appends to the borrow's notes in any state.
func (r *Repo) AddNote(ctx context.Context, borrowID string, actor Actor, note string) (*models.Borrow, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, NewInvalidArgumentError("Note is required.")
	}
	var b *models.Borrow
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if b, err = lockBorrow(tx, borrowID); err != nil {
			return err
		}
		b.Notes = appendNote(b.Notes, note)
		if err := r.saveBorrow(tx, b); err != nil {
			return err
		}
		return r.appendLog(tx, b.ID, &actor, models.ActionNoteAdded,
			"Note added by "+actor.Username,
			map[string]any{"note": note})
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// MarkOverdueBorrows flips every past-due ACTIVE borrow to LATE, one transaction
// per borrow. Borrows that changed state concurrently are skipped.
func (r *Repo) MarkOverdueBorrows(ctx context.Context, limit int) ([]models.Borrow, error) {
	if limit <= 0 {
		limit = 500
	}
	var ids []string
	if err := r.DB.WithContext(ctx).
		Model(&models.Borrow{}).
		Where("status = ? AND due_date < ?", models.BorrowActive, r.Clock.Now()).
		Order("due_date").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	out := make([]models.Borrow, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		b, err := r.MarkLate(ctx, id, nil)
		if err != nil {
			if Code(err) == ErrCodeInternal {
				return out, err
			}
			r.Log.Debug("overdue sweep skipped borrow", "borrow_id", id, "err", err)
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}
