package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"gstmate/internal/mailer"
	"gstmate/internal/models"
	"gstmate/internal/repositories"

	"github.com/jackc/pgx/v5"
)

// otpBackoff is the escalating minimum wait between issuances for the same
// (email, purpose) pair, clamp-indexed by attempt count.
var otpBackoff = []int{60, 120, 300, 600, 1800}

const otpValidity = 10 * time.Minute

// OtpService implements the OTP protocol: backoff-gated issuance,
// verification, and explicit consumption at registration completion.
type OtpService interface {
	Issue(ctx context.Context, email, purpose string) (nextRetryIn int, err error)
	Verify(ctx context.Context, email, code, purpose string) error
	Consume(ctx context.Context, db repositories.Database, email, purpose string) error
	PurgeExpired(ctx context.Context) error
}

type otpService struct {
	otpRepo repositories.OtpRepository
	mailer  mailer.Mailer
	now     func() time.Time
}

func NewOtpService(otpRepo repositories.OtpRepository, m mailer.Mailer) OtpService {
	return &otpService{
		otpRepo: otpRepo,
		mailer:  m,
		now:     time.Now,
	}
}

// requiredWait returns the backoff window in seconds that applies after
// attemptCount codes have been sent: 60s after the first, 120s after the
// second, clamped at the last step. A pure table lookup, never a timer.
func requiredWait(attemptCount int) int {
	idx := attemptCount - 1
	if idx >= len(otpBackoff) {
		idx = len(otpBackoff) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return otpBackoff[idx]
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Issue generates a fresh code for the pair, replacing any previous one.
// Issuance inside the backoff window fails with RateLimitedError carrying
// the remaining seconds. Mail delivery failure is logged and swallowed:
// the persisted code is valid regardless.
func (s *otpService) Issue(ctx context.Context, email, purpose string) (int, error) {
	now := s.now()

	existing, err := s.otpRepo.Get(ctx, email, purpose)
	if err != nil && err != pgx.ErrNoRows {
		return 0, fmt.Errorf("failed to load OTP state: %w", err)
	}

	attemptCount := 0
	if existing != nil {
		attemptCount = existing.AttemptCount
		wait := requiredWait(attemptCount)
		elapsed := int(now.Sub(existing.LastSentAt).Seconds())
		if elapsed < wait {
			return 0, &RateLimitedError{RetryAfter: wait - elapsed}
		}
	}

	code, err := generateCode()
	if err != nil {
		return 0, err
	}

	otp := &models.OtpCode{
		Email:        email,
		Purpose:      purpose,
		Code:         code,
		ExpiresAt:    now.Add(otpValidity),
		AttemptCount: attemptCount + 1,
		LastSentAt:   now,
	}
	if err := s.otpRepo.Upsert(ctx, otp); err != nil {
		return 0, fmt.Errorf("failed to store OTP: %w", err)
	}

	if err := s.mailer.SendOTP(ctx, email, purpose, code); err != nil {
		log.Printf("OTP mail delivery failed for %s (%s): %v", email, purpose, err)
	}

	return requiredWait(otp.AttemptCount), nil
}

// Verify checks the code without consuming it. Consumption is explicit so
// the registration workflow controls when a code stops being replayable.
func (s *otpService) Verify(ctx context.Context, email, code, purpose string) error {
	otp, err := s.otpRepo.Find(ctx, email, code, purpose)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrOtpNotFound
		}
		return fmt.Errorf("failed to look up OTP: %w", err)
	}

	if s.now().After(otp.ExpiresAt) {
		return ErrOtpExpired
	}
	return nil
}

// Consume deletes the row for the pair, typically inside the registration
// transaction. The db argument lets the caller pass its pgx.Tx.
func (s *otpService) Consume(ctx context.Context, db repositories.Database, email, purpose string) error {
	return repositories.NewOtpRepo(db).Delete(ctx, email, purpose)
}

// PurgeExpired is the background cleanup entrypoint.
func (s *otpService) PurgeExpired(ctx context.Context) error {
	purged, err := s.otpRepo.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if purged > 0 {
		log.Printf("Purged %d expired OTP rows", purged)
	}
	return nil
}
