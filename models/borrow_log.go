package models

import (
	"time"

	"gorm.io/datatypes"
)

const BorrowLogTable = "lending_borrow_logs"

type LogAction string

const (
	ActionCreated           LogAction = "CREATED"
	ActionRequested         LogAction = "REQUESTED"
	ActionApproved          LogAction = "APPROVED"
	ActionRejected          LogAction = "REJECTED"
	ActionReturned          LogAction = "RETURNED"
	ActionMarkedLate        LogAction = "MARKED_LATE"
	ActionMarkedNotReturned LogAction = "MARKED_NOT_RETURNED"
	ActionStatusChanged     LogAction = "STATUS_CHANGED"
	ActionNoteAdded         LogAction = "NOTE_ADDED"
	ActionDueDateExtended   LogAction = "DUE_DATE_EXTENDED"
)

// BorrowLog is one entry of a borrow's timeline. Rows are only ever inserted.
// IDs are ULIDs, so ordering by id matches insertion order.
type BorrowLog struct {
	ID            string            `gorm:"type:char(26);primaryKey" json:"id"`
	BorrowID      string            `gorm:"type:uuid;index:idx_borrow_logs_borrow_created,priority:1;not null" json:"borrow"`
	Borrow        *Borrow           `gorm:"foreignKey:BorrowID;constraint:OnDelete:CASCADE" json:"-"`
	Action        LogAction         `gorm:"size:30;not null" json:"action"`
	PerformedByID *string           `gorm:"type:uuid" json:"performed_by"`
	PerformedBy   *User             `gorm:"foreignKey:PerformedByID;constraint:OnDelete:SET NULL" json:"-"`
	Description   string            `gorm:"type:text;not null" json:"description"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt     time.Time         `gorm:"index:idx_borrow_logs_borrow_created,priority:2,sort:desc" json:"created_at"`
}

func (BorrowLog) TableName() string { return BorrowLogTable }
