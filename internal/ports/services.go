package ports

import (
	"context"

	"github.com/fieldsales/core/internal/domain/entities"
)

// ShopService interface for shop management operations
type ShopService interface {
	CreateShop(ctx context.Context, req CreateShopRequest) (*entities.Shop, error)
	GetShop(ctx context.Context, id string) (*entities.Shop, error)
	UpdateShop(ctx context.Context, id string, req UpdateShopRequest) (*entities.Shop, error)
	DeleteShop(ctx context.Context, id string) error
	ListShops(ctx context.Context, filter ShopFilter) ([]*entities.Shop, error)
	AddUpdate(ctx context.Context, shopID, note string) (*entities.Shop, error)
	Locations(ctx context.Context) ([]string, error)
}

// TaskService interface for follow-up task operations
type TaskService interface {
	CreateTask(ctx context.Context, req CreateTaskRequest) (*entities.Task, error)
	GetTask(ctx context.Context, id string) (*entities.Task, error)
	UpdateTask(ctx context.Context, id string, req UpdateTaskRequest) (*entities.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context) ([]*entities.Task, error)
	ListShopTasks(ctx context.Context, shopID string) ([]*entities.Task, error)
}

// DashboardService interface for aggregated views
type DashboardService interface {
	DailyAgenda(ctx context.Context) ([]AgendaGroup, error)
	Stats(ctx context.Context) (*Stats, error)
}

// Request/Response Types

type CreateShopRequest struct {
	Name        string              `json:"name" validate:"required"`
	OwnerName   *string             `json:"ownerName" validate:"omitempty,max=200"`
	PhoneNumber string              `json:"phoneNumber"`
	Location    string              `json:"location"`
	Status      entities.ShopStatus `json:"status" validate:"required"`
	InitialNote string              `json:"initialNote"`
}

type UpdateShopRequest struct {
	Name        *string              `json:"name" validate:"omitempty,min=1"`
	OwnerName   *string              `json:"ownerName"`
	PhoneNumber *string              `json:"phoneNumber"`
	Location    *string              `json:"location"`
	Status      *entities.ShopStatus `json:"status"`
}

type CreateTaskRequest struct {
	ShopID  string            `json:"shopId" validate:"required"`
	Type    entities.TaskType `json:"type" validate:"required"`
	DueDate string            `json:"dueDate" validate:"required,datetime=2006-01-02"`
	Note    *string           `json:"note"`
}

type UpdateTaskRequest struct {
	Type    *entities.TaskType   `json:"type"`
	DueDate *string              `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	Status  *entities.TaskStatus `json:"status"`
	Note    *string              `json:"note"`
}

// ShopFilter narrows the shop list. All present criteria must match.
type ShopFilter struct {
	// Status filters to one lead temperature; nil means "all".
	Status *entities.ShopStatus
	// Location is a case-insensitive substring match; empty matches everything.
	Location string
	// PendingTasksOnly keeps only shops with at least one task whose
	// effective status is Pending or Overdue.
	PendingTasksOnly bool
}

// AgendaGroup is one shop's slice of the daily agenda: its unfinished tasks
// sorted overdue-first, then soonest-due.
type AgendaGroup struct {
	Shop  *entities.Shop   `json:"shop"`
	Tasks []*entities.Task `json:"tasks"`
}

// Stats is the roll-up view: shop counts per lead temperature plus the
// number of tasks whose persisted status is not Completed.
type Stats struct {
	TotalShops   int                         `json:"totalShops"`
	ShopsByState map[entities.ShopStatus]int `json:"shopsByStatus"`
	PendingTasks int                         `json:"pendingTasks"`
}
