package repositories

import (
	"context"
	"errors"

	"gstmate/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ReturnRepository interface {
	CreateIfAbsent(ctx context.Context, clientID uuid.UUID, month string) (*models.GstReturn, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.GstReturn, error)
	GetByClientAndMonth(ctx context.Context, clientID uuid.UUID, month string) (*models.GstReturn, error)
	UpdateStatuses(ctx context.Context, id uuid.UUID, gstr1, gstr3b string) error
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.GstReturn, error)
	SeedMonths(ctx context.Context, clientID uuid.UUID, months []string) error
	OpenMonthForAll(ctx context.Context, month string) (int64, error)
}

type returnRepo struct {
	db Database
}

func NewReturnRepo(db Database) ReturnRepository {
	return &returnRepo{db: db}
}

const returnColumns = `id, client_id, month, gstr1, gstr3b, updated_at`

func scanReturn(row pgx.Row) (*models.GstReturn, error) {
	ret := &models.GstReturn{}
	err := row.Scan(&ret.ID, &ret.ClientID, &ret.Month, &ret.GSTR1, &ret.GSTR3B, &ret.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// CreateIfAbsent creates the (client, month) record defaulted to
// Pending/Pending, or returns the existing one. Duplicate creation is
// idempotent, not an error.
func (r *returnRepo) CreateIfAbsent(ctx context.Context, clientID uuid.UUID, month string) (*models.GstReturn, error) {
	insert := `
		INSERT INTO gst_returns (id, client_id, month, gstr1, gstr3b, updated_at)
		VALUES ($1, $2, $3, 'Pending', 'Pending', NOW())
		ON CONFLICT (client_id, month) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert, uuid.New(), clientID, month); err != nil {
		return nil, err
	}
	return r.GetByClientAndMonth(ctx, clientID, month)
}

func (r *returnRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.GstReturn, error) {
	query := `SELECT ` + returnColumns + ` FROM gst_returns WHERE id = $1`
	return scanReturn(r.db.QueryRow(ctx, query, id))
}

func (r *returnRepo) GetByClientAndMonth(ctx context.Context, clientID uuid.UUID, month string) (*models.GstReturn, error) {
	query := `SELECT ` + returnColumns + ` FROM gst_returns WHERE client_id = $1 AND month = $2`
	return scanReturn(r.db.QueryRow(ctx, query, clientID, month))
}

func (r *returnRepo) UpdateStatuses(ctx context.Context, id uuid.UUID, gstr1, gstr3b string) error {
	query := `UPDATE gst_returns SET gstr1 = $1, gstr3b = $2, updated_at = NOW() WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, gstr1, gstr3b, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("return not found")
	}
	return nil
}

func (r *returnRepo) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.GstReturn, error) {
	query := `
		SELECT ` + returnColumns + `
		FROM gst_returns
		WHERE client_id = $1
		ORDER BY month DESC
	`
	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var returns []*models.GstReturn
	for rows.Next() {
		ret := &models.GstReturn{}
		if err := rows.Scan(&ret.ID, &ret.ClientID, &ret.Month, &ret.GSTR1, &ret.GSTR3B, &ret.UpdatedAt); err != nil {
			return nil, err
		}
		returns = append(returns, ret)
	}
	return returns, rows.Err()
}

// SeedMonths inserts Pending/Pending records for each month, skipping any
// that already exist. Runs inside the client-creation transaction.
func (r *returnRepo) SeedMonths(ctx context.Context, clientID uuid.UUID, months []string) error {
	insert := `
		INSERT INTO gst_returns (id, client_id, month, gstr1, gstr3b, updated_at)
		VALUES ($1, $2, $3, 'Pending', 'Pending', NOW())
		ON CONFLICT (client_id, month) DO NOTHING
	`
	for _, month := range months {
		if _, err := r.db.Exec(ctx, insert, uuid.New(), clientID, month); err != nil {
			return err
		}
	}
	return nil
}

// OpenMonthForAll creates a Pending record for the given month for every
// client that does not have one yet. Returns the number of rows inserted.
func (r *returnRepo) OpenMonthForAll(ctx context.Context, month string) (int64, error) {
	insert := `
		INSERT INTO gst_returns (id, client_id, month, gstr1, gstr3b, updated_at)
		SELECT gen_random_uuid(), c.id, $1, 'Pending', 'Pending', NOW()
		FROM clients c
		ON CONFLICT (client_id, month) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, insert, month)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
