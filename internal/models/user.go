package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"` // Never serialize in JSON
	Name         string     `json:"name" db:"name"`
	Role         string     `json:"role" db:"role"`
	CreatedBy    *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// AdminID resolves the tenant root for the user: admins own their tenant,
// staff belong to the admin that vouched for them.
func (u *User) AdminID() uuid.UUID {
	if u.Role == RoleStaff && u.CreatedBy != nil {
		return *u.CreatedBy
	}
	return u.ID
}
