package repositories

import (
	"context"

	"gstmate/internal/models"

	"github.com/google/uuid"
)

type AssignmentLogRepository interface {
	Create(ctx context.Context, log *models.AssignmentLog) error
	HistoryByClient(ctx context.Context, clientID uuid.UUID) ([]*models.AssignmentLogEntry, error)
	DetachStaff(ctx context.Context, staffID uuid.UUID) error
}

type assignmentLogRepo struct {
	db Database
}

func NewAssignmentLogRepo(db Database) AssignmentLogRepository {
	return &assignmentLogRepo{db: db}
}

func (r *assignmentLogRepo) Create(ctx context.Context, log *models.AssignmentLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	query := `
		INSERT INTO assignment_logs (id, client_id, from_staff, to_staff, admin_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := r.db.Exec(ctx, query, log.ID, log.ClientID, log.FromStaff, log.ToStaff, log.AdminID)
	return err
}

// HistoryByClient returns the reassignment history newest-first, joining the
// user table three times to resolve the participants. LEFT JOINs keep rows
// whose staff references were nulled after a staff deletion.
func (r *assignmentLogRepo) HistoryByClient(ctx context.Context, clientID uuid.UUID) ([]*models.AssignmentLogEntry, error) {
	query := `
		SELECT al.id, al.client_id, al.from_staff, al.to_staff, al.admin_id, al.created_at,
		       fs.name, ts.name, ad.name
		FROM assignment_logs al
		LEFT JOIN users fs ON fs.id = al.from_staff
		LEFT JOIN users ts ON ts.id = al.to_staff
		LEFT JOIN users ad ON ad.id = al.admin_id
		WHERE al.client_id = $1
		ORDER BY al.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AssignmentLogEntry
	for rows.Next() {
		entry := &models.AssignmentLogEntry{}
		if err := rows.Scan(&entry.ID, &entry.ClientID, &entry.FromStaff, &entry.ToStaff, &entry.AdminID, &entry.CreatedAt,
			&entry.FromStaffName, &entry.ToStaffName, &entry.AdminName); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DetachStaff nulls dangling references to a departing staff member.
// History is preserved over referential purity: rows stay, pointers go.
func (r *assignmentLogRepo) DetachStaff(ctx context.Context, staffID uuid.UUID) error {
	query := `
		UPDATE assignment_logs
		SET from_staff = CASE WHEN from_staff = $1 THEN NULL ELSE from_staff END,
		    to_staff = CASE WHEN to_staff = $1 THEN NULL ELSE to_staff END
		WHERE from_staff = $1 OR to_staff = $1
	`
	_, err := r.db.Exec(ctx, query, staffID)
	return err
}
