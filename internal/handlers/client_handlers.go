package handlers

import (
	"net/http"

	"gstmate/internal/common"
	"gstmate/internal/middleware"
	"gstmate/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ClientHandlers handles client-registry HTTP requests
type ClientHandlers struct {
	clientService services.ClientService
}

// NewClientHandlers creates a new client handlers instance
func NewClientHandlers(clientService services.ClientService) *ClientHandlers {
	return &ClientHandlers{clientService: clientService}
}

// ListClientsRequest represents query parameters for listing clients
type ListClientsRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// ListClients returns the caller's tenant-scoped slice of the registry.
func (h *ClientHandlers) ListClients(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.CallerFromContext(ctx)
	if err != nil {
		return err
	}

	var req ListClientsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}

	clients, err := h.clientService.List(ctx, caller, req.Limit, req.Offset)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"clients": clients,
	})
}

// CreateClientRequest represents the client creation request payload
type CreateClientRequest struct {
	GSTIN          string  `json:"gstin"`
	Name           string  `json:"name"`
	PortalUsername *string `json:"portalUsername"`
	PortalPassword *string `json:"portalPassword"`
	Remarks        *string `json:"remarks"`
	AssignedToID   *string `json:"assignedToId"`
}

func (r *CreateClientRequest) toInput() (*services.ClientInput, error) {
	input := &services.ClientInput{
		GSTIN:          r.GSTIN,
		Name:           r.Name,
		PortalUsername: r.PortalUsername,
		PortalPassword: r.PortalPassword,
		Remarks:        r.Remarks,
	}
	if r.AssignedToID != nil && *r.AssignedToID != "" {
		id, err := common.ValidateUUID(*r.AssignedToID, "assignedToId")
		if err != nil {
			return nil, err
		}
		input.AssignedTo = &id
	}
	return input, nil
}

// CreateClient creates a client and seeds its return records.
func (h *ClientHandlers) CreateClient(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.CallerFromContext(ctx)
	if err != nil {
		return err
	}

	var req CreateClientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	input, err := req.toInput()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	client, err := h.clientService.Create(ctx, caller, input)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, client)
}

// GetClient returns a single client within the caller's visibility.
func (h *ClientHandlers) GetClient(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.CallerFromContext(ctx)
	if err != nil {
		return err
	}
	clientID, err := common.ValidateUUID(c.Param("id"), "client id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	client, err := h.clientService.Get(ctx, caller, clientID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, client)
}

// UpdateClientRequest represents a partial client update. assignedToId
// distinguishes "absent" from "set to null" via json.RawMessage-free
// double-pointer decoding: presence is tracked with a separate flag field
// populated by Echo's bind into *string plus the raw check below.
type UpdateClientRequest struct {
	GSTIN          *string `json:"gstin"`
	Name           *string `json:"name"`
	PortalUsername *string `json:"portalUsername"`
	PortalPassword *string `json:"portalPassword"`
	Remarks        *string `json:"remarks"`
	AssignedToID   *string `json:"assignedToId"`
}

// UpdateClient applies a partial update, logging assignment changes.
func (h *ClientHandlers) UpdateClient(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.CallerFromContext(ctx)
	if err != nil {
		return err
	}
	clientID, err := common.ValidateUUID(c.Param("id"), "client id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req UpdateClientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	update := &services.ClientUpdate{
		GSTIN:          req.GSTIN,
		Name:           req.Name,
		PortalUsername: req.PortalUsername,
		PortalPassword: req.PortalPassword,
		Remarks:        req.Remarks,
	}
	if req.AssignedToID != nil {
		update.AssignedToSet = true
		if *req.AssignedToID != "" {
			id, err := common.ValidateUUID(*req.AssignedToID, "assignedToId")
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			update.AssignedTo = &id
		}
	}

	client, err := h.clientService.Update(ctx, caller, clientID, update)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, client)
}

// AssignClientRequest reassigns a client. An empty staffId unassigns.
type AssignClientRequest struct {
	StaffID string `json:"staffId"`
}

// AssignClient changes the assignee, writing the audit row atomically.
func (h *ClientHandlers) AssignClient(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.CallerFromContext(ctx)
	if err != nil {
		return err
	}
	clientID, err := common.ValidateUUID(c.Param("id"), "client id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req AssignClientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	var staffID *uuid.UUID
	if req.StaffID != "" {
		id, err := common.ValidateUUID(req.StaffID, "staffId")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		staffID = &id
	}

	client, err := h.clientService.Assign(ctx, caller, clientID, staffID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, client)
}

// DeleteClientRequest carries the mandatory deletion reason.
type DeleteClientRequest struct {
	Reason string `json:"reason"`
}

// DeleteClient removes a client after recording the reason.
func (h *ClientHandlers) DeleteClient(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.CallerFromContext(ctx)
	if err != nil {
		return err
	}
	clientID, err := common.ValidateUUID(c.Param("id"), "client id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req DeleteClientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := h.clientService.Delete(ctx, caller, clientID, req.Reason); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// BulkCreateClients imports an array of clients, reporting per-row results.
func (h *ClientHandlers) BulkCreateClients(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.CallerFromContext(ctx)
	if err != nil {
		return err
	}

	var reqs []CreateClientRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Import array is empty")
	}

	// Row-level problems are reported per row, not fatal. Rows that fail
	// request validation never reach the service; their slot is filled
	// with a failed result so indexes line up with the submitted array.
	results := make([]*services.BulkImportResult, len(reqs))
	validIndexes := make([]int, 0, len(reqs))
	validInputs := make([]*services.ClientInput, 0, len(reqs))
	for i := range reqs {
		input, err := reqs[i].toInput()
		if err != nil {
			results[i] = &services.BulkImportResult{
				Index:  i,
				GSTIN:  common.NormalizeGSTIN(reqs[i].GSTIN),
				Status: "failed",
				Error:  err.Error(),
			}
			continue
		}
		validIndexes = append(validIndexes, i)
		validInputs = append(validInputs, input)
	}

	for j, result := range h.clientService.BulkImport(ctx, caller, validInputs) {
		result.Index = validIndexes[j]
		results[validIndexes[j]] = result
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

// ClientHistory returns the reassignment audit trail, newest first.
func (h *ClientHandlers) ClientHistory(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.CallerFromContext(ctx)
	if err != nil {
		return err
	}
	clientID, err := common.ValidateUUID(c.Param("id"), "client id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	history, err := h.clientService.History(ctx, caller, clientID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"history": history})
}
