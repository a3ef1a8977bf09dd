package models

import (
	"time"

	"github.com/google/uuid"
)

// DeletedClientLog is a write-once audit row recorded when an admin removes
// a client. Reason is mandatory and capped at 50 characters.
type DeletedClientLog struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	ClientName string     `json:"client_name" db:"client_name"`
	GSTIN      string     `json:"gstin" db:"gstin"`
	Reason     string     `json:"reason" db:"reason"`
	AdminID    *uuid.UUID `json:"admin_id,omitempty" db:"admin_id"`
	DeletedAt  time.Time  `json:"deleted_at" db:"deleted_at"`
}

// DeletedStaffLog is the staff counterpart, written inside the deletion
// workflow transaction.
type DeletedStaffLog struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	StaffName  string     `json:"staff_name" db:"staff_name"`
	StaffEmail string     `json:"staff_email" db:"staff_email"`
	Reason     string     `json:"reason" db:"reason"`
	AdminID    *uuid.UUID `json:"admin_id,omitempty" db:"admin_id"`
	DeletedAt  time.Time  `json:"deleted_at" db:"deleted_at"`
}
