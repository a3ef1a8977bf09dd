package handlers

import (
	"net/http"

	"gstmate/internal/common"
	"gstmate/internal/middleware"
	"gstmate/internal/services"

	"github.com/labstack/echo/v4"
)

// ReturnHandlers handles filing-status HTTP requests
type ReturnHandlers struct {
	returnService services.ReturnService
}

// NewReturnHandlers creates a new return handlers instance
func NewReturnHandlers(returnService services.ReturnService) *ReturnHandlers {
	return &ReturnHandlers{returnService: returnService}
}

// ListReturns returns a client's filing records, newest month first.
func (h *ReturnHandlers) ListReturns(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.CallerFromContext(ctx)
	if err != nil {
		return err
	}
	clientID, err := common.ValidateUUID(c.Param("id"), "client id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	returns, err := h.returnService.ListForClient(ctx, caller, clientID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"returns": returns})
}

// CreateReturnRequest opens a filing record for one period.
type CreateReturnRequest struct {
	Month string `json:"month"`
}

// CreateReturn opens a Pending/Pending record for the given month. Repeating
// the call for an existing month returns the stored record unchanged.
func (h *ReturnHandlers) CreateReturn(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.CallerFromContext(ctx)
	if err != nil {
		return err
	}
	clientID, err := common.ValidateUUID(c.Param("id"), "client id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req CreateReturnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	ret, err := h.returnService.CreateForMonth(ctx, caller, clientID, req.Month)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, ret)
}

// UpdateReturnRequest carries the statuses to change. Omitted fields keep
// their stored value.
type UpdateReturnRequest struct {
	GSTR1  *string `json:"gstr1"`
	GSTR3B *string `json:"gstr3b"`
}

// UpdateReturn updates filing statuses subject to the ordering rules.
func (h *ReturnHandlers) UpdateReturn(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.CallerFromContext(ctx)
	if err != nil {
		return err
	}
	returnID, err := common.ValidateUUID(c.Param("id"), "return id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req UpdateReturnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	ret, err := h.returnService.UpdateStatuses(ctx, caller, returnID, &services.ReturnUpdate{
		GSTR1:  req.GSTR1,
		GSTR3B: req.GSTR3B,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, ret)
}
