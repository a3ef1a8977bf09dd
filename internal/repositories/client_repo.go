package repositories

import (
	"context"
	"errors"
	"fmt"

	"gstmate/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ClientRepository interface {
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error)
	GSTINExists(ctx context.Context, gstin string) (bool, error)
	Update(ctx context.Context, client *models.Client) error
	UpdateAssignment(ctx context.Context, clientID uuid.UUID, staffID *uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListForAdmin(ctx context.Context, adminID uuid.UUID, limit, offset int) ([]*models.Client, error)
	ListForStaff(ctx context.Context, staffID uuid.UUID, limit, offset int) ([]*models.Client, error)
	ListAssignedTo(ctx context.Context, staffID uuid.UUID) ([]*models.Client, error)
}

type clientRepo struct {
	db Database
}

func NewClientRepo(db Database) ClientRepository {
	return &clientRepo{db: db}
}

const clientColumns = `id, gstin, name, portal_username, portal_password, remarks, assigned_to, created_by, created_at, updated_at`

func scanClient(row pgx.Row) (*models.Client, error) {
	client := &models.Client{}
	err := row.Scan(&client.ID, &client.GSTIN, &client.Name, &client.PortalUsername, &client.PortalPassword, &client.Remarks, &client.AssignedTo, &client.CreatedBy, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *clientRepo) Create(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO clients (id, gstin, name, portal_username, portal_password, remarks, assigned_to, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, client.ID, client.GSTIN, client.Name, client.PortalUsername, client.PortalPassword, client.Remarks, client.AssignedTo, client.CreatedBy)
	return err
}

func (r *clientRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	return scanClient(r.db.QueryRow(ctx, query, id))
}

// GSTINExists reports whether a client with the given GSTIN already exists.
// GSTINs are stored uppercase so the check is effectively case-insensitive.
func (r *clientRepo) GSTINExists(ctx context.Context, gstin string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM clients WHERE gstin = $1`
	if err := r.db.QueryRow(ctx, query, gstin).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check GSTIN uniqueness: %w", err)
	}
	return count > 0, nil
}

func (r *clientRepo) Update(ctx context.Context, client *models.Client) error {
	query := `
		UPDATE clients
		SET gstin = $1, name = $2, portal_username = $3, portal_password = $4, remarks = $5, assigned_to = $6, updated_at = NOW()
		WHERE id = $7
	`
	tag, err := r.db.Exec(ctx, query, client.GSTIN, client.Name, client.PortalUsername, client.PortalPassword, client.Remarks, client.AssignedTo, client.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("client not found")
	}
	return nil
}

func (r *clientRepo) UpdateAssignment(ctx context.Context, clientID uuid.UUID, staffID *uuid.UUID) error {
	query := `UPDATE clients SET assigned_to = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, staffID, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("client not found")
	}
	return nil
}

func (r *clientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM clients WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("client not found")
	}
	return nil
}

func (r *clientRepo) list(ctx context.Context, query string, args ...any) ([]*models.Client, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		client := &models.Client{}
		if err := rows.Scan(&client.ID, &client.GSTIN, &client.Name, &client.PortalUsername, &client.PortalPassword, &client.Remarks, &client.AssignedTo, &client.CreatedBy, &client.CreatedAt, &client.UpdatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

// ListForAdmin returns the clients created by the admin. The created_by
// predicate is the tenant boundary and is never optional.
func (r *clientRepo) ListForAdmin(ctx context.Context, adminID uuid.UUID, limit, offset int) ([]*models.Client, error) {
	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE created_by = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, adminID, limit, offset)
}

// ListForStaff returns only the clients assigned to the staff member.
func (r *clientRepo) ListForStaff(ctx context.Context, staffID uuid.UUID, limit, offset int) ([]*models.Client, error) {
	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE assigned_to = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, staffID, limit, offset)
}

// ListAssignedTo returns every client currently assigned to the staff
// member, without pagination. Used by the staff deletion gate check.
func (r *clientRepo) ListAssignedTo(ctx context.Context, staffID uuid.UUID) ([]*models.Client, error) {
	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE assigned_to = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, staffID)
}
