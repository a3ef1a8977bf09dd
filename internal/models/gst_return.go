package models

import (
	"time"

	"github.com/google/uuid"
)

// Return statuses. Both filing types share the same status set.
const (
	StatusPending = "Pending"
	StatusFiled   = "Filed"
	StatusLate    = "Late"
)

// ValidReturnStatus reports whether s is one of the three filing statuses.
func ValidReturnStatus(s string) bool {
	return s == StatusPending || s == StatusFiled || s == StatusLate
}

// GstReturn is the single filing-period record for a (client, month) pair.
// GSTR1 and GSTR3B are tracked independently; month is a YYYY-MM string.
type GstReturn struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ClientID  uuid.UUID `json:"client_id" db:"client_id"`
	Month     string    `json:"month" db:"month"`
	GSTR1     string    `json:"gstr1" db:"gstr1"`
	GSTR3B    string    `json:"gstr3b" db:"gstr3b"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
