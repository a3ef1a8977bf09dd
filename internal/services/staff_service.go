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

// StaffService owns the tenant's staff roster and the two-phase
// deletion-with-reassignment workflow.
type StaffService interface {
	List(ctx context.Context, caller *Caller) ([]*models.User, error)
	// DeleteWithReassignment runs both phases of the deletion workflow.
	// With assigned clients and an empty map it returns
	// *ReassignRequiredError carrying the client ids: the caller collects
	// reassignment choices and resubmits with a complete map.
	DeleteWithReassignment(ctx context.Context, caller *Caller, staffID uuid.UUID, reason string, reassignments map[uuid.UUID]uuid.UUID) error
}

type staffService struct {
	db         repositories.TxBeginner
	userRepo   repositories.UserRepository
	clientRepo repositories.ClientRepository
}

func NewStaffService(db repositories.TxBeginner, userRepo repositories.UserRepository, clientRepo repositories.ClientRepository) StaffService {
	return &staffService{
		db:         db,
		userRepo:   userRepo,
		clientRepo: clientRepo,
	}
}

func (s *staffService) List(ctx context.Context, caller *Caller) ([]*models.User, error) {
	if caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.userRepo.ListStaff(ctx, caller.UserID)
}

func (s *staffService) loadStaff(ctx context.Context, caller *Caller, staffID uuid.UUID) (*models.User, error) {
	staff, err := s.userRepo.GetByID(ctx, staffID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load staff member: %w", err)
	}
	if staff.Role != models.RoleStaff {
		return nil, ErrNotFound
	}
	if staff.CreatedBy == nil || *staff.CreatedBy != caller.UserID {
		return nil, ErrForbidden
	}
	return staff, nil
}

// DeleteWithReassignment is the two-phase protocol from the probe/commit
// endpoint. The reason is validated before phase 1 ever runs. Phase 2 is a
// single transaction: deletion log, reassignments, dangling audit-trail
// references nulled, user row removed, or none of it on rollback.
func (s *staffService) DeleteWithReassignment(ctx context.Context, caller *Caller, staffID uuid.UUID, reason string, reassignments map[uuid.UUID]uuid.UUID) error {
	if caller.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if err := common.ValidateReason(reason); err != nil {
		return err
	}

	staff, err := s.loadStaff(ctx, caller, staffID)
	if err != nil {
		return err
	}

	// Phase 1: gate check over the staff member's current book of clients.
	assigned, err := s.clientRepo.ListAssignedTo(ctx, staffID)
	if err != nil {
		return fmt.Errorf("failed to load assigned clients: %w", err)
	}

	if len(assigned) > 0 {
		if len(reassignments) == 0 {
			gate := &ReassignRequiredError{ClientIDs: make([]uuid.UUID, 0, len(assigned))}
			for _, client := range assigned {
				gate.ClientIDs = append(gate.ClientIDs, client.ID)
			}
			return gate
		}
		// Partial reassignment is never accepted.
		if len(reassignments) != len(assigned) {
			return ErrIncompleteReassignment
		}
		for _, client := range assigned {
			newStaffID, ok := reassignments[client.ID]
			if !ok {
				return ErrIncompleteReassignment
			}
			if err := s.validateTarget(ctx, caller, staffID, newStaffID); err != nil {
				return err
			}
		}
	}

	// Phase 2: commit.
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	adminID := caller.UserID
	if err := repositories.NewDeletionLogRepo(tx).CreateStaffLog(ctx, &models.DeletedStaffLog{
		StaffName:  staff.Name,
		StaffEmail: staff.Email,
		Reason:     reason,
		AdminID:    &adminID,
	}); err != nil {
		return fmt.Errorf("failed to record staff deletion: %w", err)
	}

	txClients := repositories.NewClientRepo(tx)
	txLogs := repositories.NewAssignmentLogRepo(tx)
	for _, client := range assigned {
		newStaffID := reassignments[client.ID]
		if err := txClients.UpdateAssignment(ctx, client.ID, &newStaffID); err != nil {
			return fmt.Errorf("failed to reassign client %s: %w", client.ID, err)
		}
		from := staffID
		if err := txLogs.Create(ctx, &models.AssignmentLog{
			ClientID:  client.ID,
			FromStaff: &from,
			ToStaff:   &newStaffID,
			AdminID:   &adminID,
		}); err != nil {
			return fmt.Errorf("failed to log reassignment: %w", err)
		}
	}

	if err := txLogs.DetachStaff(ctx, staffID); err != nil {
		return fmt.Errorf("failed to detach audit references: %w", err)
	}
	if err := repositories.NewUserRepo(tx).Delete(ctx, staffID); err != nil {
		return fmt.Errorf("failed to delete staff member: %w", err)
	}

	return tx.Commit(ctx)
}

// validateTarget checks a reassignment target is a different staff member
// of the same tenant.
func (s *staffService) validateTarget(ctx context.Context, caller *Caller, departingID, targetID uuid.UUID) error {
	if targetID == departingID {
		return fmt.Errorf("cannot reassign clients to the departing staff member")
	}
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("reassignment target %s not found", targetID)
		}
		return fmt.Errorf("failed to load reassignment target: %w", err)
	}
	if target.Role != models.RoleStaff || target.CreatedBy == nil || *target.CreatedBy != caller.UserID {
		return fmt.Errorf("reassignment target %s not found", targetID)
	}
	return nil
}
