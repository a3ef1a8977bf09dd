package repositories

import (
	"context"

	"gstmate/internal/models"
)

type OtpRepository interface {
	Get(ctx context.Context, email, purpose string) (*models.OtpCode, error)
	Upsert(ctx context.Context, otp *models.OtpCode) error
	Find(ctx context.Context, email, code, purpose string) (*models.OtpCode, error)
	Delete(ctx context.Context, email, purpose string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type otpRepo struct {
	db Database
}

func NewOtpRepo(db Database) OtpRepository {
	return &otpRepo{db: db}
}

const otpColumns = `email, purpose, code, expires_at, attempt_count, last_sent_at`

func (r *otpRepo) Get(ctx context.Context, email, purpose string) (*models.OtpCode, error) {
	otp := &models.OtpCode{}
	query := `SELECT ` + otpColumns + ` FROM otp_codes WHERE email = $1 AND purpose = $2`
	err := r.db.QueryRow(ctx, query, email, purpose).Scan(&otp.Email, &otp.Purpose, &otp.Code, &otp.ExpiresAt, &otp.AttemptCount, &otp.LastSentAt)
	if err != nil {
		return nil, err
	}
	return otp, nil
}

// Upsert replaces the current code for the (email, purpose) pair. A fresh
// issue always supersedes the previous code; there is no code history.
func (r *otpRepo) Upsert(ctx context.Context, otp *models.OtpCode) error {
	query := `
		INSERT INTO otp_codes (email, purpose, code, expires_at, attempt_count, last_sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email, purpose) DO UPDATE
		SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at,
		    attempt_count = EXCLUDED.attempt_count, last_sent_at = EXCLUDED.last_sent_at
	`
	_, err := r.db.Exec(ctx, query, otp.Email, otp.Purpose, otp.Code, otp.ExpiresAt, otp.AttemptCount, otp.LastSentAt)
	return err
}

// Find matches (email, code, purpose) exactly. Expiry is the caller's check;
// a matching but expired row is still returned.
func (r *otpRepo) Find(ctx context.Context, email, code, purpose string) (*models.OtpCode, error) {
	otp := &models.OtpCode{}
	query := `SELECT ` + otpColumns + ` FROM otp_codes WHERE email = $1 AND code = $2 AND purpose = $3`
	err := r.db.QueryRow(ctx, query, email, code, purpose).Scan(&otp.Email, &otp.Purpose, &otp.Code, &otp.ExpiresAt, &otp.AttemptCount, &otp.LastSentAt)
	if err != nil {
		return nil, err
	}
	return otp, nil
}

func (r *otpRepo) Delete(ctx context.Context, email, purpose string) error {
	query := `DELETE FROM otp_codes WHERE email = $1 AND purpose = $2`
	_, err := r.db.Exec(ctx, query, email, purpose)
	return err
}

// PurgeExpired removes rows expired for over an hour. The grace period
// outlives the longest backoff window, so purging never resets an
// escalated attempt counter early.
func (r *otpRepo) PurgeExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM otp_codes WHERE expires_at < NOW() - INTERVAL '1 hour'`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
