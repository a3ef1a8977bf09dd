package services

import (
	"context"
	"fmt"
	"time"

	"gstmate/internal/common"
	"gstmate/internal/models"
	"gstmate/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ClientInput is the validated payload for client creation and bulk import.
type ClientInput struct {
	GSTIN          string
	Name           string
	PortalUsername *string
	PortalPassword *string
	Remarks        *string
	AssignedTo     *uuid.UUID
}

// ClientUpdate carries a partial client update. Nil fields are untouched.
// AssignedTo uses the Set flag so "set to unassigned" is expressible.
type ClientUpdate struct {
	GSTIN          *string
	Name           *string
	PortalUsername *string
	PortalPassword *string
	Remarks        *string
	AssignedTo     *uuid.UUID
	AssignedToSet  bool
}

// BulkImportResult reports the outcome of a single row of a bulk import.
type BulkImportResult struct {
	Index  int        `json:"index"`
	ID     *uuid.UUID `json:"id,omitempty"`
	GSTIN  string     `json:"gstin"`
	Status string     `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// ClientService owns the client registry: tenant-scoped CRUD, return
// seeding on creation, the reassignment audit trail, and guarded deletion.
type ClientService interface {
	Create(ctx context.Context, caller *Caller, input *ClientInput) (*models.Client, error)
	Get(ctx context.Context, caller *Caller, clientID uuid.UUID) (*models.Client, error)
	List(ctx context.Context, caller *Caller, limit, offset int) ([]*models.Client, error)
	Update(ctx context.Context, caller *Caller, clientID uuid.UUID, update *ClientUpdate) (*models.Client, error)
	Assign(ctx context.Context, caller *Caller, clientID uuid.UUID, staffID *uuid.UUID) (*models.Client, error)
	Delete(ctx context.Context, caller *Caller, clientID uuid.UUID, reason string) error
	BulkImport(ctx context.Context, caller *Caller, inputs []*ClientInput) []*BulkImportResult
	History(ctx context.Context, caller *Caller, clientID uuid.UUID) ([]*models.AssignmentLogEntry, error)
}

type clientService struct {
	db              repositories.TxBeginner
	clientRepo      repositories.ClientRepository
	userRepo        repositories.UserRepository
	assignmentRepo  repositories.AssignmentLogRepository
	deletionLogRepo repositories.DeletionLogRepository

	seedFrom string // optional YYYY-MM start of eager return seeding
	now      func() time.Time
}

func NewClientService(db repositories.TxBeginner, clientRepo repositories.ClientRepository, userRepo repositories.UserRepository,
	assignmentRepo repositories.AssignmentLogRepository, deletionLogRepo repositories.DeletionLogRepository, seedFrom string) ClientService {
	return &clientService{
		db:              db,
		clientRepo:      clientRepo,
		userRepo:        userRepo,
		assignmentRepo:  assignmentRepo,
		deletionLogRepo: deletionLogRepo,
		seedFrom:        seedFrom,
		now:             time.Now,
	}
}

// seedMonths returns the filing periods to seed for a new client: the full
// history from the configured start month, or the last 3 months.
func (s *clientService) seedMonths() []string {
	current := s.now().Format("2006-01")

	if s.seedFrom != "" {
		if start, err := time.Parse("2006-01", s.seedFrom); err == nil {
			var months []string
			for t := start; t.Format("2006-01") <= current; t = t.AddDate(0, 1, 0) {
				months = append(months, t.Format("2006-01"))
			}
			if len(months) > 0 {
				return months
			}
		}
	}

	t := s.now()
	return []string{
		t.AddDate(0, -2, 0).Format("2006-01"),
		t.AddDate(0, -1, 0).Format("2006-01"),
		current,
	}
}

// validateAssignee checks the target staff member exists and belongs to the
// caller's tenant.
func (s *clientService) validateAssignee(ctx context.Context, caller *Caller, staffID uuid.UUID) error {
	staff, err := s.userRepo.GetByID(ctx, staffID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("assigned staff member not found")
		}
		return fmt.Errorf("failed to load staff member: %w", err)
	}
	if staff.Role != models.RoleStaff || staff.CreatedBy == nil || *staff.CreatedBy != caller.UserID {
		return fmt.Errorf("assigned staff member not found")
	}
	return nil
}

func (s *clientService) validateInput(input *ClientInput) error {
	input.GSTIN = common.NormalizeGSTIN(input.GSTIN)
	if err := common.ValidateGSTIN(input.GSTIN); err != nil {
		return err
	}
	return common.ValidateRequiredString(input.Name, "name")
}

// Create inserts the client and seeds its return records in one
// transaction. An initial assignment is logged like any other.
func (s *clientService) Create(ctx context.Context, caller *Caller, input *ClientInput) (*models.Client, error) {
	if caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	exists, err := s.clientRepo.GSTINExists(ctx, input.GSTIN)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, NewConflictError("a client with GSTIN %s already exists", input.GSTIN)
	}

	if input.AssignedTo != nil {
		if err := s.validateAssignee(ctx, caller, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	client := &models.Client{
		ID:             uuid.New(),
		GSTIN:          input.GSTIN,
		Name:           input.Name,
		PortalUsername: input.PortalUsername,
		PortalPassword: input.PortalPassword,
		Remarks:        input.Remarks,
		AssignedTo:     input.AssignedTo,
		CreatedBy:      caller.UserID,
		CreatedAt:      s.now(),
		UpdatedAt:      s.now(),
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := repositories.NewClientRepo(tx).Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	if err := repositories.NewReturnRepo(tx).SeedMonths(ctx, client.ID, s.seedMonths()); err != nil {
		return nil, fmt.Errorf("failed to seed returns: %w", err)
	}
	if client.AssignedTo != nil {
		adminID := caller.UserID
		if err := repositories.NewAssignmentLogRepo(tx).Create(ctx, &models.AssignmentLog{
			ClientID: client.ID,
			ToStaff:  client.AssignedTo,
			AdminID:  &adminID,
		}); err != nil {
			return nil, fmt.Errorf("failed to log assignment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit client creation: %w", err)
	}
	return client, nil
}

// authorize loads a client and checks read visibility for the caller.
func (s *clientService) authorize(ctx context.Context, caller *Caller, clientID uuid.UUID) (*models.Client, error) {
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

func (s *clientService) Get(ctx context.Context, caller *Caller, clientID uuid.UUID) (*models.Client, error) {
	return s.authorize(ctx, caller, clientID)
}

// List returns the caller's slice of the registry. The scoping predicate
// lives in the query, never as a post-fetch filter.
func (s *clientService) List(ctx context.Context, caller *Caller, limit, offset int) ([]*models.Client, error) {
	limit, offset = common.ValidatePaginationParams(limit, offset)
	if caller.Role == models.RoleAdmin {
		return s.clientRepo.ListForAdmin(ctx, caller.UserID, limit, offset)
	}
	return s.clientRepo.ListForStaff(ctx, caller.UserID, limit, offset)
}

// Update applies a partial update. A change of assignee is written together
// with its AssignmentLog row in one transaction.
func (s *clientService) Update(ctx context.Context, caller *Caller, clientID uuid.UUID, update *ClientUpdate) (*models.Client, error) {
	if caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	client, err := s.authorize(ctx, caller, clientID)
	if err != nil {
		return nil, err
	}

	prevAssigned := client.AssignedTo

	if update.GSTIN != nil {
		gstin := common.NormalizeGSTIN(*update.GSTIN)
		if err := common.ValidateGSTIN(gstin); err != nil {
			return nil, err
		}
		if gstin != client.GSTIN {
			exists, err := s.clientRepo.GSTINExists(ctx, gstin)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, NewConflictError("a client with GSTIN %s already exists", gstin)
			}
		}
		client.GSTIN = gstin
	}
	if update.Name != nil {
		if err := common.ValidateRequiredString(*update.Name, "name"); err != nil {
			return nil, err
		}
		client.Name = *update.Name
	}
	if update.PortalUsername != nil {
		client.PortalUsername = update.PortalUsername
	}
	if update.PortalPassword != nil {
		client.PortalPassword = update.PortalPassword
	}
	if update.Remarks != nil {
		client.Remarks = update.Remarks
	}

	assignmentChanged := false
	if update.AssignedToSet {
		if update.AssignedTo != nil {
			if err := s.validateAssignee(ctx, caller, *update.AssignedTo); err != nil {
				return nil, err
			}
		}
		assignmentChanged = !uuidPtrEqual(prevAssigned, update.AssignedTo)
		client.AssignedTo = update.AssignedTo
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := repositories.NewClientRepo(tx).Update(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	if assignmentChanged {
		adminID := caller.UserID
		if err := repositories.NewAssignmentLogRepo(tx).Create(ctx, &models.AssignmentLog{
			ClientID:  client.ID,
			FromStaff: prevAssigned,
			ToStaff:   client.AssignedTo,
			AdminID:   &adminID,
		}); err != nil {
			return nil, fmt.Errorf("failed to log assignment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit client update: %w", err)
	}
	return client, nil
}

// Assign changes only the assignee, through the same logged path.
func (s *clientService) Assign(ctx context.Context, caller *Caller, clientID uuid.UUID, staffID *uuid.UUID) (*models.Client, error) {
	return s.Update(ctx, caller, clientID, &ClientUpdate{AssignedTo: staffID, AssignedToSet: true})
}

// Delete removes the client after recording the mandatory reason. The log
// row and the delete commit together.
func (s *clientService) Delete(ctx context.Context, caller *Caller, clientID uuid.UUID, reason string) error {
	if caller.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if err := common.ValidateReason(reason); err != nil {
		return err
	}

	client, err := s.authorize(ctx, caller, clientID)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	adminID := caller.UserID
	if err := repositories.NewDeletionLogRepo(tx).CreateClientLog(ctx, &models.DeletedClientLog{
		ClientName: client.Name,
		GSTIN:      client.GSTIN,
		Reason:     reason,
		AdminID:    &adminID,
	}); err != nil {
		return fmt.Errorf("failed to record deletion: %w", err)
	}
	if err := repositories.NewClientRepo(tx).Delete(ctx, clientID); err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}

	return tx.Commit(ctx)
}

// BulkImport creates clients row by row, each in its own transaction.
// Duplicates and validation failures are reported per row, never fatal.
func (s *clientService) BulkImport(ctx context.Context, caller *Caller, inputs []*ClientInput) []*BulkImportResult {
	results := make([]*BulkImportResult, 0, len(inputs))
	for i, input := range inputs {
		result := &BulkImportResult{Index: i, GSTIN: common.NormalizeGSTIN(input.GSTIN)}
		client, err := s.Create(ctx, caller, input)
		if err != nil {
			result.Status = "failed"
			result.Error = err.Error()
		} else {
			result.Status = "created"
			result.ID = &client.ID
		}
		results = append(results, result)
	}
	return results
}

// History returns the client's reassignment trail, newest first.
func (s *clientService) History(ctx context.Context, caller *Caller, clientID uuid.UUID) ([]*models.AssignmentLogEntry, error) {
	if _, err := s.authorize(ctx, caller, clientID); err != nil {
		return nil, err
	}
	return s.assignmentRepo.HistoryByClient(ctx, clientID)
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
