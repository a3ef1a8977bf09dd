package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gstmate/internal/models"
	"gstmate/internal/repositories"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// RegisterInput is the validated registration payload. Username defaults to
// the email address when the client omits it.
type RegisterInput struct {
	Email      string
	Username   string
	Password   string
	Name       string
	Role       string
	Otp        string // identity OTP for the registrant's own email
	AdminEmail string // staff only: the vouching admin's email
	AdminOtp   string // staff only: authorization OTP issued to the admin
}

// AuthService implements the OTP-gated registration protocol, credential
// login, Google-identity bootstrap, and the password reset flow.
type AuthService interface {
	Register(ctx context.Context, input *RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	LoginWithGoogle(ctx context.Context, credential string) (*models.User, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

type authService struct {
	db       repositories.TxBeginner
	userRepo repositories.UserRepository
	otpSvc   OtpService

	googleClientID string
	googleJWKS     *keyfunc.JWKS
}

func NewAuthService(db repositories.TxBeginner, userRepo repositories.UserRepository, otpSvc OtpService, googleClientID string) AuthService {
	return &authService{
		db:             db,
		userRepo:       userRepo,
		otpSvc:         otpSvc,
		googleClientID: googleClientID,
	}
}

// Register walks the registration state machine. Every gate is checked
// before any write; the OTP consumption and user insert commit atomically,
// so a failure at any point leaves no partial user row.
func (s *authService) Register(ctx context.Context, input *RegisterInput) (*models.User, error) {
	if input.Username == "" {
		input.Username = input.Email
	}

	exists, err := s.userRepo.Exists(ctx, input.Username, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	if exists {
		return nil, NewConflictError("an account with this username or email already exists")
	}

	// Identity gate: the registrant proves ownership of their own email.
	if err := s.otpSvc.Verify(ctx, input.Email, input.Otp, models.OtpPurposeIdentity); err != nil {
		if err == ErrOtpNotFound || err == ErrOtpExpired {
			return nil, ErrIdentityOtpInvalid
		}
		return nil, err
	}

	var createdBy *uuid.UUID
	if input.Role == models.RoleStaff {
		// Authorization gate: a staff registrant needs a second, independent
		// OTP issued to the vouching admin's email.
		admin, err := s.userRepo.GetByEmail(ctx, input.AdminEmail)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, ErrAdminNotFound
			}
			return nil, fmt.Errorf("failed to look up admin: %w", err)
		}
		if admin.Role != models.RoleAdmin {
			return nil, ErrAdminNotFound
		}

		if err := s.otpSvc.Verify(ctx, input.AdminEmail, input.AdminOtp, models.OtpPurposeAuthorization); err != nil {
			if err == ErrOtpNotFound || err == ErrOtpExpired {
				return nil, ErrAuthorizationOtpInvalid
			}
			return nil, err
		}
		createdBy = &admin.ID
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Name:         input.Name,
		Role:         input.Role,
		CreatedBy:    createdBy,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	// Consuming the OTP rows and creating the account is one transaction:
	// the codes stop being replayable exactly when the account exists.
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.otpSvc.Consume(ctx, tx, input.Email, models.OtpPurposeIdentity); err != nil {
		return nil, fmt.Errorf("failed to consume identity OTP: %w", err)
	}
	if input.Role == models.RoleStaff {
		if err := s.otpSvc.Consume(ctx, tx, input.AdminEmail, models.OtpPurposeAuthorization); err != nil {
			return nil, fmt.Errorf("failed to consume authorization OTP: %w", err)
		}
	}
	if err := repositories.NewUserRepo(tx).Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit registration: %w", err)
	}

	return user, nil
}

// Login verifies credentials against the stored bcrypt hash.
func (s *authService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrNotFound
	}
	return user, nil
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

func (s *authService) jwks() (*keyfunc.JWKS, error) {
	if s.googleJWKS != nil {
		return s.googleJWKS, nil
	}
	jwks, err := keyfunc.Get(googleJWKSURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Printf("Google JWKS refresh failed: %v", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Google JWKS: %w", err)
	}
	s.googleJWKS = jwks
	return jwks, nil
}

// LoginWithGoogle validates a Google ID token against Google's JWKS and
// logs the holder in, bootstrapping an admin account on first sight. The
// account gets an unusable random password; Google remains the credential.
func (s *authService) LoginWithGoogle(ctx context.Context, credential string) (*models.User, error) {
	if s.googleClientID == "" {
		return nil, fmt.Errorf("google sign-in is not configured")
	}

	jwks, err := s.jwks()
	if err != nil {
		return nil, err
	}

	claims := &googleClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, jwks.Keyfunc,
		jwt.WithAudience(s.googleClientID),
		jwt.WithIssuer("https://accounts.google.com"),
		jwt.WithValidMethods([]string{"RS256"}),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid Google credential")
	}
	if !claims.EmailVerified || claims.Email == "" {
		return nil, fmt.Errorf("Google account email is not verified")
	}

	user, err := s.userRepo.GetByEmail(ctx, claims.Email)
	if err == nil {
		return user, nil
	}
	if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(generateSecureToken()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	name := claims.Name
	if name == "" {
		name = claims.Email
	}
	user = &models.User{
		ID:           uuid.New(),
		Username:     claims.Email,
		Email:        claims.Email,
		PasswordHash: string(hashedPassword),
		Name:         name,
		Role:         models.RoleAdmin,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// ResetPassword verifies and consumes a password_reset OTP and stores the
// new hash, atomically.
func (s *authService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.otpSvc.Verify(ctx, email, code, models.OtpPurposePasswordReset); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.otpSvc.Consume(ctx, tx, email, models.OtpPurposePasswordReset); err != nil {
		return fmt.Errorf("failed to consume reset OTP: %w", err)
	}
	if err := repositories.NewUserRepo(tx).UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return tx.Commit(ctx)
}
