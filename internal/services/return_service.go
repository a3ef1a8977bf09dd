package services

import (
	"context"
	"fmt"

	"gstmate/internal/common"
	"gstmate/internal/models"
	"gstmate/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Caller identifies the authenticated requester for authorization checks.
// AdminID is the tenant root (self for admins).
type Caller struct {
	UserID  uuid.UUID
	Role    string
	AdminID uuid.UUID
}

// ReturnUpdate carries the per-call status changes. A nil field means the
// request leaves that filing type untouched.
type ReturnUpdate struct {
	GSTR1  *string
	GSTR3B *string
}

// ReturnService enforces the filing state machine: the sequential-month
// gate and the intra-month GSTR-1-before-GSTR-3B ordering gate.
type ReturnService interface {
	CreateForMonth(ctx context.Context, caller *Caller, clientID uuid.UUID, month string) (*models.GstReturn, error)
	ListForClient(ctx context.Context, caller *Caller, clientID uuid.UUID) ([]*models.GstReturn, error)
	UpdateStatuses(ctx context.Context, caller *Caller, returnID uuid.UUID, update *ReturnUpdate) (*models.GstReturn, error)
}

type returnService struct {
	returnRepo repositories.ReturnRepository
	clientRepo repositories.ClientRepository
}

func NewReturnService(returnRepo repositories.ReturnRepository, clientRepo repositories.ClientRepository) ReturnService {
	return &returnService{
		returnRepo: returnRepo,
		clientRepo: clientRepo,
	}
}

// authorizeClient loads the client and checks the caller may touch its
// returns: admins own the client record, staff must be its assignee.
func (s *returnService) authorizeClient(ctx context.Context, caller *Caller, clientID uuid.UUID) (*models.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, clientID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}

	switch caller.Role {
	case models.RoleAdmin:
		if client.CreatedBy != caller.UserID {
			return nil, ErrForbidden
		}
	case models.RoleStaff:
		if client.AssignedTo == nil || *client.AssignedTo != caller.UserID {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}
	return client, nil
}

// CreateForMonth creates the month's record defaulted to Pending/Pending.
// Creation for an existing (client, month) returns the existing record.
func (s *returnService) CreateForMonth(ctx context.Context, caller *Caller, clientID uuid.UUID, month string) (*models.GstReturn, error) {
	if err := common.ValidateMonth(month); err != nil {
		return nil, err
	}
	if _, err := s.authorizeClient(ctx, caller, clientID); err != nil {
		return nil, err
	}
	return s.returnRepo.CreateIfAbsent(ctx, clientID, month)
}

func (s *returnService) ListForClient(ctx context.Context, caller *Caller, clientID uuid.UUID) ([]*models.GstReturn, error) {
	if _, err := s.authorizeClient(ctx, caller, clientID); err != nil {
		return nil, err
	}
	return s.returnRepo.ListByClient(ctx, clientID)
}

// UpdateStatuses applies the requested transitions after the gates pass.
// Downgrades away from Filed are unrestricted; only upgrades to Filed are
// gated.
func (s *returnService) UpdateStatuses(ctx context.Context, caller *Caller, returnID uuid.UUID, update *ReturnUpdate) (*models.GstReturn, error) {
	if update == nil || (update.GSTR1 == nil && update.GSTR3B == nil) {
		return nil, ErrNoFieldsToUpdate
	}
	if update.GSTR1 != nil && !models.ValidReturnStatus(*update.GSTR1) {
		return nil, fmt.Errorf("invalid gstr1 status %q", *update.GSTR1)
	}
	if update.GSTR3B != nil && !models.ValidReturnStatus(*update.GSTR3B) {
		return nil, fmt.Errorf("invalid gstr3b status %q", *update.GSTR3B)
	}

	ret, err := s.returnRepo.GetByID(ctx, returnID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load return: %w", err)
	}

	if _, err := s.authorizeClient(ctx, caller, ret.ClientID); err != nil {
		return nil, err
	}

	next1 := ret.GSTR1
	if update.GSTR1 != nil {
		next1 = *update.GSTR1
	}
	next3b := ret.GSTR3B
	if update.GSTR3B != nil {
		next3b = *update.GSTR3B
	}

	filing1 := update.GSTR1 != nil && *update.GSTR1 == models.StatusFiled
	filing3b := update.GSTR3B != nil && *update.GSTR3B == models.StatusFiled

	// Intra-month ordering gate: GSTR-3B may only be filed once GSTR-1 is
	// filed, or is being filed in the same request.
	if filing3b && next1 != models.StatusFiled {
		return nil, ErrOrderViolation
	}

	// Sequential-month gate: filing month M requires M-1 (when a record
	// exists) to have both types filed. Missing history passes vacuously.
	if filing1 || filing3b {
		prevMonth := common.PreviousMonth(ret.Month)
		if prevMonth != "" {
			prev, err := s.returnRepo.GetByClientAndMonth(ctx, ret.ClientID, prevMonth)
			if err != nil && err != pgx.ErrNoRows {
				return nil, fmt.Errorf("failed to load prior month: %w", err)
			}
			if prev != nil && (prev.GSTR1 != models.StatusFiled || prev.GSTR3B != models.StatusFiled) {
				return nil, ErrSequenceViolation
			}
		}
	}

	if err := s.returnRepo.UpdateStatuses(ctx, returnID, next1, next3b); err != nil {
		return nil, fmt.Errorf("failed to update return: %w", err)
	}

	ret.GSTR1 = next1
	ret.GSTR3B = next3b
	return ret, nil
}
