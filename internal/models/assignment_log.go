package models

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentLog is an append-only record of a client changing hands.
// A nil FromStaff means the client was previously unassigned. When a
// referenced staff member is deleted the dangling reference is nulled;
// the row itself is never removed.
type AssignmentLog struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	ClientID  uuid.UUID  `json:"client_id" db:"client_id"`
	FromStaff *uuid.UUID `json:"from_staff,omitempty" db:"from_staff"`
	ToStaff   *uuid.UUID `json:"to_staff,omitempty" db:"to_staff"`
	AdminID   *uuid.UUID `json:"admin_id,omitempty" db:"admin_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// AssignmentLogEntry is the read model for a client's history: the log row
// joined against the user table for the three participants. Names are nil
// when the referenced user has since been deleted.
type AssignmentLogEntry struct {
	AssignmentLog
	FromStaffName *string `json:"from_staff_name,omitempty"`
	ToStaffName   *string `json:"to_staff_name,omitempty"`
	AdminName     *string `json:"admin_name,omitempty"`
}
