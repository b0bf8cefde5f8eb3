package ports

import (
	"context"

	"github.com/fieldsales/core/internal/domain/entities"
)

// ShopRepository defines the persistence contract for the shops collection.
//
// Create assigns a new unique identifier; identifiers are never reused, even
// after deletion. Update merges only the fields present in the patch and
// returns entities.ErrShopNotFound when the id is unknown. Delete cascades to
// every task referencing the shop, in every implementation.
type ShopRepository interface {
	Create(ctx context.Context, shop *entities.Shop) error
	GetByID(ctx context.Context, id string) (*entities.Shop, error)
	List(ctx context.Context) ([]*entities.Shop, error)
	Update(ctx context.Context, id string, patch ShopPatch) error
	Delete(ctx context.Context, id string) error
	// AppendUpdate atomically prepends a visit note to the shop's update
	// history without the caller doing a read-modify-write, so concurrent
	// appends cannot lose each other.
	AppendUpdate(ctx context.Context, shopID string, update entities.Update) error
	// Subscribe registers a callback invoked with the full current shop set:
	// once immediately on registration, and again after every change to the
	// collection from any source. The returned func cancels delivery.
	Subscribe(fn func([]*entities.Shop)) (unsubscribe func())
}

// TaskRepository defines the persistence contract for the tasks collection.
//
// Delete is idempotent: removing an absent id is a no-op, not an error.
// DeleteByShop exists so shop deletion can cascade.
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	GetByID(ctx context.Context, id string) (*entities.Task, error)
	List(ctx context.Context) ([]*entities.Task, error)
	ListByShop(ctx context.Context, shopID string) ([]*entities.Task, error)
	Update(ctx context.Context, id string, patch TaskPatch) error
	Delete(ctx context.Context, id string) error
	DeleteByShop(ctx context.Context, shopID string) error
	Subscribe(fn func([]*entities.Task)) (unsubscribe func())
}

// PreferenceRepository stores durable per-device UI preferences, such as the
// "active tasks only" shop-list filter flag.
type PreferenceRepository interface {
	GetBool(ctx context.Context, key string) (bool, error)
	SetBool(ctx context.Context, key string, value bool) error
}

// ShopPatch carries a partial shop edit. Nil fields are left untouched by
// Update; OwnerName uses a double pointer so it can be cleared explicitly.
type ShopPatch struct {
	Name        *string
	OwnerName   **string
	PhoneNumber *string
	Location    *string
	Status      *entities.ShopStatus
}

// TaskPatch carries a partial task edit. Nil fields are left untouched.
type TaskPatch struct {
	Type    *entities.TaskType
	DueDate *string
	Status  *entities.TaskStatus
	Note    **string
}

// Apply merges the patch into a shop in place.
func (p ShopPatch) Apply(s *entities.Shop) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.OwnerName != nil {
		s.OwnerName = *p.OwnerName
	}
	if p.PhoneNumber != nil {
		s.PhoneNumber = *p.PhoneNumber
	}
	if p.Location != nil {
		s.Location = *p.Location
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
}

// Apply merges the patch into a task in place.
func (p TaskPatch) Apply(t *entities.Task) {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Note != nil {
		t.Note = *p.Note
	}
}
