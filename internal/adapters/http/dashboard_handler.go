package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fieldsales/core/internal/application/services"
	"github.com/fieldsales/core/internal/infrastructure/logger"
	"github.com/fieldsales/core/internal/ports"
)

// pendingFilterKey is the stored preference behind the shop list's
// "active tasks only" toggle.
const pendingFilterKey = "filter_pending_tasks"

// DashboardHandler serves the aggregated views and the UI preferences.
type DashboardHandler struct {
	dashboardService *services.DashboardService
	shopService      *services.ShopService
	prefs            ports.PreferenceRepository
	logger           *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService, shopService *services.ShopService, prefs ports.PreferenceRepository, logger *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		shopService:      shopService,
		prefs:            prefs,
		logger:           logger,
	}
}

// GetAgenda handles the daily agenda view
func (h *DashboardHandler) GetAgenda(c echo.Context) error {
	groups, err := h.dashboardService.DailyAgenda(c.Request().Context())
	if err != nil {
		h.logger.Errorw("Daily agenda failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, groups)
}

// GetStats handles the roll-up counts view
func (h *DashboardHandler) GetStats(c echo.Context) error {
	stats, err := h.dashboardService.Stats(c.Request().Context())
	if err != nil {
		h.logger.Errorw("Stats failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, stats)
}

// GetLocations handles the distinct-locations suggestion list
func (h *DashboardHandler) GetLocations(c echo.Context) error {
	locations, err := h.shopService.Locations(c.Request().Context())
	if err != nil {
		h.logger.Errorw("Locations failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, locations)
}

// PendingFilterResponse carries the stored shop-list filter preference.
type PendingFilterResponse struct {
	Enabled bool `json:"enabled"`
}

// GetPendingFilter returns the stored "active tasks only" preference.
func (h *DashboardHandler) GetPendingFilter(c echo.Context) error {
	enabled, err := h.prefs.GetBool(c.Request().Context(), pendingFilterKey)
	if err != nil {
		h.logger.Errorw("Read pending filter failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, PendingFilterResponse{Enabled: enabled})
}

// SetPendingFilter stores the "active tasks only" preference.
func (h *DashboardHandler) SetPendingFilter(c echo.Context) error {
	var req PendingFilterResponse
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := h.prefs.SetBool(c.Request().Context(), pendingFilterKey, req.Enabled); err != nil {
		h.logger.Errorw("Write pending filter failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, req)
}
