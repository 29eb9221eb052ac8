package models

import (
	"fmt"
	"time"
)

const BorrowTable = "lending_borrows"

type BorrowStatus string

const (
	BorrowPending     BorrowStatus = "PENDING"
	BorrowActive      BorrowStatus = "ACTIVE"
	BorrowReturned    BorrowStatus = "RETURNED"
	BorrowLate        BorrowStatus = "LATE"
	BorrowNotReturned BorrowStatus = "NOT_RETURNED"
	BorrowRejected    BorrowStatus = "REJECTED"
)

var AllBorrowStatuses = []BorrowStatus{
	BorrowPending, BorrowActive, BorrowReturned, BorrowLate, BorrowNotReturned, BorrowRejected,
}

// OpenBorrowStatuses hold their instance; at most one open borrow per instance.
var OpenBorrowStatuses = []BorrowStatus{BorrowPending, BorrowActive, BorrowLate}

// OutStatuses are borrows whose unit is with the borrower.
var OutStatuses = []BorrowStatus{BorrowActive, BorrowLate}

// ClosedStatuses end a borrow for good.
var ClosedStatuses = []BorrowStatus{BorrowReturned, BorrowNotReturned, BorrowRejected}

var borrowTransitions = map[BorrowStatus][]BorrowStatus{
	BorrowPending: {BorrowActive, BorrowRejected},
	BorrowActive:  {BorrowReturned, BorrowLate, BorrowNotReturned},
	BorrowLate:    {BorrowReturned, BorrowNotReturned, BorrowActive},
}

func (s BorrowStatus) Valid() bool {
	for _, x := range AllBorrowStatuses {
		if s == x {
			return true
		}
	}
	return false
}

// Open reports whether a borrow in this status still holds its instance.
func (s BorrowStatus) Open() bool {
	for _, x := range OpenBorrowStatuses {
		if s == x {
			return true
		}
	}
	return false
}

func (s BorrowStatus) Terminal() bool { return len(borrowTransitions[s]) == 0 }

// CanTransition reports whether s -> to is a legal step of the borrow lifecycle.
// LATE -> ACTIVE is only reached through a due date extension.
func (s BorrowStatus) CanTransition(to BorrowStatus) bool {
	for _, x := range borrowTransitions[s] {
		if x == to {
			return true
		}
	}
	return false
}

type TransitionError struct {
	From, To BorrowStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition borrow from %s to %s", e.From, e.To)
}

// CheckTransition returns a *TransitionError when s -> to is not allowed.
func (s BorrowStatus) CheckTransition(to BorrowStatus) error {
	if !s.CanTransition(to) {
		return &TransitionError{From: s, To: to}
	}
	return nil
}

type NotReturnedReason string

const (
	ReasonLost      NotReturnedReason = "LOST"
	ReasonDamaged   NotReturnedReason = "DAMAGED"
	ReasonNoContact NotReturnedReason = "NO_CONTACT"
)

func (r NotReturnedReason) Valid() bool {
	switch r {
	case ReasonLost, ReasonDamaged, ReasonNoContact:
		return true
	}
	return false
}

// InstanceStatus is where a unit ends up once its borrow is closed for this reason.
func (r NotReturnedReason) InstanceStatus() InstanceStatus {
	if r == ReasonDamaged {
		return InstanceFaulty
	}
	return InstanceOutOfStock
}

type Borrow struct {
	ID                string             `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID            string             `gorm:"type:uuid;index;not null" json:"item"`
	Item              *Item              `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"-"`
	ItemInstanceID    *string            `gorm:"type:uuid;index" json:"item_instance"`
	ItemInstance      *ItemInstance      `gorm:"foreignKey:ItemInstanceID;constraint:OnDelete:SET NULL" json:"-"`
	BorrowerID        string             `gorm:"type:uuid;index;not null" json:"borrower"`
	Borrower          *User              `gorm:"foreignKey:BorrowerID;constraint:OnDelete:CASCADE" json:"-"`
	HandlerID         *string            `gorm:"type:uuid" json:"handler"`
	Handler           *User              `gorm:"foreignKey:HandlerID;constraint:OnDelete:SET NULL" json:"-"`
	BorrowDate        time.Time          `gorm:"index;not null" json:"borrow_date"`
	DueDate           time.Time          `gorm:"index;not null" json:"due_date"`
	ReturnDate        *time.Time         `json:"return_date"`
	Status            BorrowStatus       `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	NotReturnedReason *NotReturnedReason `gorm:"size:20" json:"not_returned_reason"`
	Notes             string             `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func (Borrow) TableName() string { return BorrowTable }

// DaysOverdue counts whole days past the due date, 0 when not overdue.
func (b Borrow) DaysOverdue(now time.Time) int {
	if !now.After(b.DueDate) {
		return 0
	}
	return int(now.Sub(b.DueDate).Hours() / 24)
}
