package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fieldsales/core/internal/application/services"
	"github.com/fieldsales/core/internal/domain/entities"
	"github.com/fieldsales/core/internal/infrastructure/logger"
	"github.com/fieldsales/core/internal/ports"
)

// MessageResponse is a simple JSON message envelope.
type MessageResponse struct {
	Message string `json:"message"`
}

// toHTTPError maps domain errors onto HTTP statuses: validation failures are
// the caller's fault, missing records are 404, anything else is a
// persistence failure reported as a non-fatal 500 notice.
func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, entities.ErrShopNotFound), errors.Is(err, entities.ErrTaskNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrEmptyNote),
		errors.Is(err, entities.ErrEmptyShopName),
		errors.Is(err, entities.ErrInvalidStatus),
		errors.Is(err, entities.ErrInvalidType),
		errors.Is(err, entities.ErrInvalidDueDate):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "storage operation failed")
	}
}

// ShopHandler handles shop-related requests
type ShopHandler struct {
	shopService *services.ShopService
	taskService *services.TaskService
	logger      *logger.Logger
}

// NewShopHandler creates a new shop handler
func NewShopHandler(shopService *services.ShopService, taskService *services.TaskService, logger *logger.Logger) *ShopHandler {
	return &ShopHandler{
		shopService: shopService,
		taskService: taskService,
		logger:      logger,
	}
}

// CreateShop handles shop creation
func (h *ShopHandler) CreateShop(c echo.Context) error {
	var req ports.CreateShopRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	shop, err := h.shopService.CreateShop(c.Request().Context(), req)
	if err != nil {
		h.logger.Errorw("Create shop failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, shop)
}

// GetShop handles getting a shop by ID
func (h *ShopHandler) GetShop(c echo.Context) error {
	shop, err := h.shopService.GetShop(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, shop)
}

// ListShops handles listing shops with filters
func (h *ShopHandler) ListShops(c echo.Context) error {
	filter := ports.ShopFilter{
		Location: c.QueryParam("location"),
	}

	if status := c.QueryParam("status"); status != "" && status != "all" {
		shopStatus := entities.ShopStatus(status)
		if !shopStatus.IsValid() {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid status filter")
		}
		filter.Status = &shopStatus
	}

	if c.QueryParam("pending_tasks") == "true" {
		filter.PendingTasksOnly = true
	}

	shops, err := h.shopService.ListShops(c.Request().Context(), filter)
	if err != nil {
		h.logger.Errorw("List shops failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, shops)
}

// UpdateShop handles partial shop edits
func (h *ShopHandler) UpdateShop(c echo.Context) error {
	var req ports.UpdateShopRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	shop, err := h.shopService.UpdateShop(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		h.logger.Errorw("Update shop failed", "error", err, "shop_id", c.Param("id"))
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, shop)
}

// DeleteShop handles shop deletion. This is the irreversible operation: the
// shop's visit history and every task referencing it go with it. The
// confirmation prompt lives client-side; the API deletes when asked.
func (h *ShopHandler) DeleteShop(c echo.Context) error {
	if err := h.shopService.DeleteShop(c.Request().Context(), c.Param("id")); err != nil {
		h.logger.Errorw("Delete shop failed", "error", err, "shop_id", c.Param("id"))
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Shop deleted"})
}

// AddUpdateRequest carries a new visit note.
type AddUpdateRequest struct {
	Note string `json:"note" validate:"required"`
}

// AddUpdate handles appending a visit note to a shop
func (h *ShopHandler) AddUpdate(c echo.Context) error {
	var req AddUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	shop, err := h.shopService.AddUpdate(c.Request().Context(), c.Param("id"), req.Note)
	if err != nil {
		h.logger.Errorw("Add update failed", "error", err, "shop_id", c.Param("id"))
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, shop)
}

// GetShopTasks handles listing one shop's tasks
func (h *ShopHandler) GetShopTasks(c echo.Context) error {
	if _, err := h.shopService.GetShop(c.Request().Context(), c.Param("id")); err != nil {
		return toHTTPError(err)
	}

	tasks, err := h.taskService.ListShopTasks(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Errorw("List shop tasks failed", "error", err, "shop_id", c.Param("id"))
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, tasks)
}

// TaskHandler handles follow-up task requests
type TaskHandler struct {
	taskService *services.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// CreateTask handles task creation
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), req)
	if err != nil {
		h.logger.Errorw("Create task failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, task)
}

// GetTask handles getting a task by ID
func (h *TaskHandler) GetTask(c echo.Context) error {
	task, err := h.taskService.GetTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// ListTasks handles listing all tasks
func (h *TaskHandler) ListTasks(c echo.Context) error {
	tasks, err := h.taskService.ListTasks(c.Request().Context())
	if err != nil {
		h.logger.Errorw("List tasks failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, tasks)
}

// UpdateTask handles partial task edits, including the Pending/Completed
// toggle from the agenda checkboxes.
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	var req ports.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		h.logger.Errorw("Update task failed", "error", err, "task_id", c.Param("id"))
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask handles task deletion; deleting an absent id still returns OK.
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	if err := h.taskService.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		h.logger.Errorw("Delete task failed", "error", err, "task_id", c.Param("id"))
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Task deleted"})
}
