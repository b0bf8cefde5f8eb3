package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/fieldsales/core/internal/domain/entities"
	"github.com/fieldsales/core/internal/infrastructure/logger"
	"github.com/fieldsales/core/internal/ports"
)

// TaskService handles follow-up task operations
type TaskService struct {
	taskRepo ports.TaskRepository
	shopRepo ports.ShopRepository
	logger   *logger.Logger
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo ports.TaskRepository, shopRepo ports.ShopRepository, logger *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		shopRepo: shopRepo,
		logger:   logger,
	}
}

// CreateTask schedules a follow-up action for an existing shop. Status always
// starts out Pending; Overdue is derived at read time and never stored here.
func (s *TaskService) CreateTask(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	// Verify the shop exists
	if _, err := s.shopRepo.GetByID(ctx, req.ShopID); err != nil {
		return nil, fmt.Errorf("shop not found: %w", err)
	}

	task := &entities.Task{
		ShopID:  req.ShopID,
		Type:    req.Type,
		DueDate: req.DueDate,
		Status:  entities.TaskStatusPending,
	}
	if req.Note != nil {
		if note := strings.TrimSpace(*req.Note); note != "" {
			task.Note = &note
		}
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Infow("Task created", "task_id", task.ID, "shop_id", task.ShopID, "type", task.Type, "due_date", task.DueDate)

	return task, nil
}

// GetTask retrieves a task by ID
func (s *TaskService) GetTask(ctx context.Context, id string) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask merges the provided fields into an existing task. Only Pending
// and Completed may be written as status values; Overdue exists purely as a
// read-time derivation.
func (s *TaskService) UpdateTask(ctx context.Context, id string, req ports.UpdateTaskRequest) (*entities.Task, error) {
	patch := ports.TaskPatch{
		DueDate: req.DueDate,
	}
	if req.Type != nil {
		if !req.Type.IsValid() {
			return nil, entities.ErrInvalidType
		}
		patch.Type = req.Type
	}
	if req.DueDate != nil && *req.DueDate == "" {
		return nil, entities.ErrInvalidDueDate
	}
	if req.Status != nil {
		if *req.Status != entities.TaskStatusPending && *req.Status != entities.TaskStatusCompleted {
			return nil, entities.ErrInvalidStatus
		}
		patch.Status = req.Status
	}
	if req.Note != nil {
		var note *string
		if trimmed := strings.TrimSpace(*req.Note); trimmed != "" {
			note = &trimmed
		}
		patch.Note = &note
	}

	if err := s.taskRepo.Update(ctx, id, patch); err != nil {
		return nil, err
	}

	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}

	s.logger.Infow("Task updated", "task_id", id)

	return task, nil
}

// DeleteTask removes a task. Deleting an id that is already gone is a no-op.
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.logger.Infow("Task deleted", "task_id", id)

	return nil
}

// ListTasks returns every task.
func (s *TaskService) ListTasks(ctx context.Context) ([]*entities.Task, error) {
	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// ListShopTasks returns the tasks belonging to one shop.
func (s *TaskService) ListShopTasks(ctx context.Context, shopID string) ([]*entities.Task, error) {
	tasks, err := s.taskRepo.ListByShop(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shop tasks: %w", err)
	}
	return tasks, nil
}
