package models

import (
	"time"

	"github.com/google/uuid"
)

type Client struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	GSTIN          string     `json:"gstin" db:"gstin"`
	Name           string     `json:"name" db:"name"`
	PortalUsername *string    `json:"portal_username,omitempty" db:"portal_username"`
	PortalPassword *string    `json:"portal_password,omitempty" db:"portal_password"`
	Remarks        *string    `json:"remarks,omitempty" db:"remarks"`
	AssignedTo     *uuid.UUID `json:"assigned_to,omitempty" db:"assigned_to"`
	CreatedBy      uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
