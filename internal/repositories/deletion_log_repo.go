package repositories

import (
	"context"

	"gstmate/internal/models"

	"github.com/google/uuid"
)

type DeletionLogRepository interface {
	CreateClientLog(ctx context.Context, log *models.DeletedClientLog) error
	CreateStaffLog(ctx context.Context, log *models.DeletedStaffLog) error
}

type deletionLogRepo struct {
	db Database
}

func NewDeletionLogRepo(db Database) DeletionLogRepository {
	return &deletionLogRepo{db: db}
}

func (r *deletionLogRepo) CreateClientLog(ctx context.Context, log *models.DeletedClientLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	query := `
		INSERT INTO deleted_client_logs (id, client_name, gstin, reason, admin_id, deleted_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := r.db.Exec(ctx, query, log.ID, log.ClientName, log.GSTIN, log.Reason, log.AdminID)
	return err
}

func (r *deletionLogRepo) CreateStaffLog(ctx context.Context, log *models.DeletedStaffLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	query := `
		INSERT INTO deleted_staff_logs (id, staff_name, staff_email, reason, admin_id, deleted_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := r.db.Exec(ctx, query, log.ID, log.StaffName, log.StaffEmail, log.Reason, log.AdminID)
	return err
}
