package handlers

import (
	"errors"
	"net/http"

	"gstmate/internal/common"
	"gstmate/internal/middleware"
	"gstmate/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// StaffHandlers handles staff management HTTP requests
type StaffHandlers struct {
	staffService services.StaffService
}

// NewStaffHandlers creates a new staff handlers instance
func NewStaffHandlers(staffService services.StaffService) *StaffHandlers {
	return &StaffHandlers{staffService: staffService}
}

// ListStaff returns the staff accounts created by the calling admin.
func (h *StaffHandlers) ListStaff(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.CallerFromContext(ctx)
	if err != nil {
		return err
	}

	staff, err := h.staffService.List(ctx, caller)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"users": staff})
}

// DeleteStaffRequest drives both phases of the deletion workflow. The first
// call typically omits reassignments; when the staff member still has
// clients the response lists them and the caller resubmits with a complete
// clientId to staffId map.
type DeleteStaffRequest struct {
	Reason        string            `json:"reason"`
	Reassignments map[string]string `json:"reassignments"`
}

// DeleteStaff deletes a staff account, reassigning their clients first.
func (h *StaffHandlers) DeleteStaff(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.CallerFromContext(ctx)
	if err != nil {
		return err
	}
	staffID, err := common.ValidateUUID(c.Param("id"), "staff id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req DeleteStaffRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	reassignments := make(map[uuid.UUID]uuid.UUID, len(req.Reassignments))
	for clientStr, targetStr := range req.Reassignments {
		clientID, err := common.ValidateUUID(clientStr, "reassignment client id")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		targetID, err := common.ValidateUUID(targetStr, "reassignment staff id")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		reassignments[clientID] = targetID
	}

	err = h.staffService.DeleteWithReassignment(ctx, caller, staffID, req.Reason, reassignments)
	if err != nil {
		var reassign *services.ReassignRequiredError
		if errors.As(err, &reassign) {
			return c.JSON(http.StatusConflict, map[string]any{
				"code":    "REASSIGN_REQUIRED",
				"clients": reassign.ClientIDs,
			})
		}
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
