package models

import (
	"time"
)

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleHandler   Role = "HANDLER"
	RoleStudent   Role = "STUDENT"
	RolePersonnel Role = "PERSONNEL"
	RoleUser      Role = "USER" // legacy borrower role
)

var AllRoles = []Role{RoleAdmin, RoleHandler, RoleStudent, RolePersonnel, RoleUser}

// RequestableRoles are the roles a new account may ask for at registration.
var RequestableRoles = []Role{RoleStudent, RolePersonnel, RoleHandler}

func (r Role) Valid() bool {
	for _, x := range AllRoles {
		if r == x {
			return true
		}
	}
	return false
}

func (r Role) Requestable() bool {
	for _, x := range RequestableRoles {
		if r == x {
			return true
		}
	}
	return false
}

const UserTable = "lending_users"

// User is the account together with its lending profile.
type User struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Username     string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email        string `gorm:"size:255" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	IsActive     bool   `gorm:"not null;default:true" json:"is_active"`
	IsSuperuser  bool   `gorm:"not null;default:false" json:"is_superuser"`

	Role          Role    `gorm:"size:20;not null;default:'USER'" json:"role"`
	RequestedRole Role    `gorm:"size:20;not null;default:'USER'" json:"requested_role"`
	IsApproved    bool    `gorm:"not null;default:false;index" json:"is_approved"`
	ApprovedByID  *string `gorm:"type:uuid" json:"approved_by,omitempty"`

	LastLoginAt *time.Time `gorm:"index" json:"last_login_at,omitempty"`
	LastSeenAt  *time.Time `gorm:"index" json:"last_seen_at,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"login_count"`
	LastLoginIP string     `gorm:"size:45" json:"-"`
	LastLoginUA string     `gorm:"size:255" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return UserTable }
