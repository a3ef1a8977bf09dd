package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"gstmate/internal/models"
	"gstmate/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockClientService struct {
	mock.Mock
}

func (m *MockClientService) Create(ctx context.Context, caller *services.Caller, input *services.ClientInput) (*models.Client, error) {
	args := m.Called(ctx, caller, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientService) Get(ctx context.Context, caller *services.Caller, clientID uuid.UUID) (*models.Client, error) {
	args := m.Called(ctx, caller, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientService) List(ctx context.Context, caller *services.Caller, limit, offset int) ([]*models.Client, error) {
	args := m.Called(ctx, caller, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Client), args.Error(1)
}

func (m *MockClientService) Update(ctx context.Context, caller *services.Caller, clientID uuid.UUID, update *services.ClientUpdate) (*models.Client, error) {
	args := m.Called(ctx, caller, clientID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientService) Assign(ctx context.Context, caller *services.Caller, clientID uuid.UUID, staffID *uuid.UUID) (*models.Client, error) {
	args := m.Called(ctx, caller, clientID, staffID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientService) Delete(ctx context.Context, caller *services.Caller, clientID uuid.UUID, reason string) error {
	args := m.Called(ctx, caller, clientID, reason)
	return args.Error(0)
}

func (m *MockClientService) BulkImport(ctx context.Context, caller *services.Caller, inputs []*services.ClientInput) []*services.BulkImportResult {
	args := m.Called(ctx, caller, inputs)
	return args.Get(0).([]*services.BulkImportResult)
}

func (m *MockClientService) History(ctx context.Context, caller *services.Caller, clientID uuid.UUID) ([]*models.AssignmentLogEntry, error) {
	args := m.Called(ctx, caller, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AssignmentLogEntry), args.Error(1)
}

// A row whose assignedToId is not a UUID must surface as a failed row in
// the results, never as a silent unassigned import.
func TestBulkCreateClients_BadRowReportedNotMasked(t *testing.T) {
	e := echo.New()
	adminID := uuid.New()
	createdA := uuid.New()
	createdC := uuid.New()

	clientSvc := &MockClientService{}
	clientSvc.On("BulkImport", mock.Anything, mock.Anything,
		mock.MatchedBy(func(inputs []*services.ClientInput) bool {
			return len(inputs) == 2 &&
				inputs[0].GSTIN == "27AAPFU0939F1ZV" &&
				inputs[1].GSTIN == "29AABCT1332L2ZD"
		})).
		Return([]*services.BulkImportResult{
			{Index: 0, ID: &createdA, GSTIN: "27AAPFU0939F1ZV", Status: "created"},
			{Index: 1, ID: &createdC, GSTIN: "29AABCT1332L2ZD", Status: "created"},
		})
	h := NewClientHandlers(clientSvc)

	body := `[
		{"gstin":"27AAPFU0939F1ZV","name":"Ace Traders"},
		{"gstin":"33AAGCB1286Q1ZV","name":"Bharat Mills","assignedToId":"not-a-uuid"},
		{"gstin":"29AABCT1332L2ZD","name":"Cauvery Agro"}
	]`
	c, rec := authenticatedRequest(e, http.MethodPost, "/api/clients/bulk", body, adminID)

	assert.NoError(t, h.BulkCreateClients(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []*services.BulkImportResult `json:"results"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 3)

	assert.Equal(t, 0, resp.Results[0].Index)
	assert.Equal(t, "created", resp.Results[0].Status)

	assert.Equal(t, 1, resp.Results[1].Index)
	assert.Equal(t, "failed", resp.Results[1].Status)
	assert.Contains(t, resp.Results[1].Error, "assignedToId")

	assert.Equal(t, 2, resp.Results[2].Index)
	assert.Equal(t, "created", resp.Results[2].Status)
	clientSvc.AssertExpectations(t)
}
