package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsales/core/internal/adapters/repository/memory"
	"github.com/fieldsales/core/internal/domain/entities"
	"github.com/fieldsales/core/internal/infrastructure/logger"
	"github.com/fieldsales/core/internal/ports"
)

func newTaskFixture(t *testing.T) (*TaskService, *entities.Shop) {
	t.Helper()
	store := memory.New()
	shopSvc := NewShopService(store.Shops(), store.Tasks(), logger.NewNop())

	shop, err := shopSvc.CreateShop(context.Background(), ports.CreateShopRequest{
		Name:   "Corner Store",
		Status: entities.ShopStatusNew,
	})
	require.NoError(t, err)

	return NewTaskService(store.Tasks(), store.Shops(), logger.NewNop()), shop
}

func TestCreateTask(t *testing.T) {
	svc, shop := newTaskFixture(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, ports.CreateTaskRequest{
		ShopID:  shop.ID,
		Type:    entities.TaskTypeVisit,
		DueDate: "2024-01-15",
		Note:    strPtr("  bring samples  "),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, shop.ID, task.ShopID)
	assert.Equal(t, entities.TaskStatusPending, task.Status, "new tasks always start Pending")
	require.NotNil(t, task.Note)
	assert.Equal(t, "bring samples", *task.Note)
	assert.False(t, task.CreatedAt.IsZero())
}

func TestCreateTaskUnknownShop(t *testing.T) {
	svc, _ := newTaskFixture(t)

	_, err := svc.CreateTask(context.Background(), ports.CreateTaskRequest{
		ShopID:  "missing",
		Type:    entities.TaskTypeVisit,
		DueDate: "2024-01-15",
	})
	assert.ErrorIs(t, err, entities.ErrShopNotFound)
}

func TestCreateTaskValidation(t *testing.T) {
	svc, shop := newTaskFixture(t)
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, ports.CreateTaskRequest{
		ShopID:  shop.ID,
		Type:    "Email",
		DueDate: "2024-01-15",
	})
	assert.ErrorIs(t, err, entities.ErrInvalidType)

	_, err = svc.CreateTask(ctx, ports.CreateTaskRequest{
		ShopID: shop.ID,
		Type:   entities.TaskTypeVisit,
	})
	assert.ErrorIs(t, err, entities.ErrInvalidDueDate)
}

func TestUpdateTaskToggleStatus(t *testing.T) {
	svc, shop := newTaskFixture(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, ports.CreateTaskRequest{
		ShopID:  shop.ID,
		Type:    entities.TaskTypeVisit,
		DueDate: "2024-01-15",
	})
	require.NoError(t, err)

	completed := entities.TaskStatusCompleted
	updated, err := svc.UpdateTask(ctx, task.ID, ports.UpdateTaskRequest{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, entities.TaskStatusCompleted, updated.Status)

	pending := entities.TaskStatusPending
	updated, err = svc.UpdateTask(ctx, task.ID, ports.UpdateTaskRequest{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, entities.TaskStatusPending, updated.Status)
}

func TestUpdateTaskRejectsOverdueWrite(t *testing.T) {
	svc, shop := newTaskFixture(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, ports.CreateTaskRequest{
		ShopID:  shop.ID,
		Type:    entities.TaskTypeVisit,
		DueDate: "2024-01-15",
	})
	require.NoError(t, err)

	// Overdue is a derivation, never a stored value.
	overdue := entities.TaskStatusOverdue
	_, err = svc.UpdateTask(ctx, task.ID, ports.UpdateTaskRequest{Status: &overdue})
	assert.ErrorIs(t, err, entities.ErrInvalidStatus)
}

func TestUpdateTaskMergesFields(t *testing.T) {
	svc, shop := newTaskFixture(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, ports.CreateTaskRequest{
		ShopID:  shop.ID,
		Type:    entities.TaskTypeVisit,
		DueDate: "2024-01-15",
		Note:    strPtr("bring samples"),
	})
	require.NoError(t, err)

	updated, err := svc.UpdateTask(ctx, task.ID, ports.UpdateTaskRequest{DueDate: strPtr("2024-01-20")})
	require.NoError(t, err)

	assert.Equal(t, "2024-01-20", updated.DueDate)
	assert.Equal(t, entities.TaskTypeVisit, updated.Type)
	require.NotNil(t, updated.Note)
	assert.Equal(t, "bring samples", *updated.Note)
}

func TestUpdateTaskClearsNote(t *testing.T) {
	svc, shop := newTaskFixture(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, ports.CreateTaskRequest{
		ShopID:  shop.ID,
		Type:    entities.TaskTypeVisit,
		DueDate: "2024-01-15",
		Note:    strPtr("bring samples"),
	})
	require.NoError(t, err)

	updated, err := svc.UpdateTask(ctx, task.ID, ports.UpdateTaskRequest{Note: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.Note)
}

func TestUpdateTaskRejectsEmptyDueDate(t *testing.T) {
	svc, shop := newTaskFixture(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, ports.CreateTaskRequest{
		ShopID:  shop.ID,
		Type:    entities.TaskTypeVisit,
		DueDate: "2024-01-15",
	})
	require.NoError(t, err)

	_, err = svc.UpdateTask(ctx, task.ID, ports.UpdateTaskRequest{DueDate: strPtr("")})
	assert.ErrorIs(t, err, entities.ErrInvalidDueDate)
}

func TestUpdateTaskNotFound(t *testing.T) {
	svc, _ := newTaskFixture(t)

	completed := entities.TaskStatusCompleted
	_, err := svc.UpdateTask(context.Background(), "missing", ports.UpdateTaskRequest{Status: &completed})
	assert.ErrorIs(t, err, entities.ErrTaskNotFound)
}

func TestDeleteTaskIdempotent(t *testing.T) {
	svc, shop := newTaskFixture(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, ports.CreateTaskRequest{
		ShopID:  shop.ID,
		Type:    entities.TaskTypeVisit,
		DueDate: "2024-01-15",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(ctx, task.ID))

	// Deleting again, or deleting an id that never existed, is a no-op.
	assert.NoError(t, svc.DeleteTask(ctx, task.ID))
	assert.NoError(t, svc.DeleteTask(ctx, "missing"))
}

func TestListShopTasks(t *testing.T) {
	svc, shop := newTaskFixture(t)
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, ports.CreateTaskRequest{
		ShopID:  shop.ID,
		Type:    entities.TaskTypeVisit,
		DueDate: "2024-01-15",
	})
	require.NoError(t, err)

	tasks, err := svc.ListShopTasks(ctx, shop.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, shop.ID, tasks[0].ShopID)

	tasks, err = svc.ListShopTasks(ctx, "other-shop")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
