// Package memory implements the persistence contracts with in-process maps.
// It backs the "memory" storage driver and the service/handler test suites.
// Subscriptions fire synchronously after each mutation, like the durable
// local variant.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldsales/core/internal/adapters/repository/watch"
	"github.com/fieldsales/core/internal/domain/entities"
	"github.com/fieldsales/core/internal/ports"
)

// Store holds both collections plus UI preferences behind one lock, so a
// cascading shop deletion mutates shops and tasks atomically.
type Store struct {
	mu    sync.RWMutex
	shops map[string]*entities.Shop
	tasks map[string]*entities.Task
	prefs map[string]bool

	shopHub *watch.Hub[[]*entities.Shop]
	taskHub *watch.Hub[[]*entities.Task]
}

// New creates an empty store.
func New() *Store {
	return &Store{
		shops:   make(map[string]*entities.Shop),
		tasks:   make(map[string]*entities.Task),
		prefs:   make(map[string]bool),
		shopHub: watch.NewHub[[]*entities.Shop](),
		taskHub: watch.NewHub[[]*entities.Task](),
	}
}

// Shops returns the shop collection view of the store.
func (s *Store) Shops() ports.ShopRepository { return &shopRepo{s} }

// Tasks returns the task collection view of the store.
func (s *Store) Tasks() ports.TaskRepository { return &taskRepo{s} }

// Preferences returns the preference view of the store.
func (s *Store) Preferences() ports.PreferenceRepository { return &prefRepo{s} }

func cloneShop(in *entities.Shop) *entities.Shop {
	out := *in
	out.Updates = append([]entities.Update(nil), in.Updates...)
	if in.OwnerName != nil {
		owner := *in.OwnerName
		out.OwnerName = &owner
	}
	if in.UpdatedAt != nil {
		at := *in.UpdatedAt
		out.UpdatedAt = &at
	}
	return &out
}

func cloneTask(in *entities.Task) *entities.Task {
	out := *in
	if in.Note != nil {
		note := *in.Note
		out.Note = &note
	}
	return &out
}

// shopSnapshot lists all shops, oldest-created first. Caller must hold s.mu.
func (s *Store) shopSnapshot() []*entities.Shop {
	out := make([]*entities.Shop, 0, len(s.shops))
	for _, shop := range s.shops {
		out = append(out, cloneShop(shop))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// taskSnapshot lists all tasks, oldest-created first. Caller must hold s.mu.
func (s *Store) taskSnapshot() []*entities.Task {
	out := make([]*entities.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, cloneTask(task))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type shopRepo struct{ s *Store }

func (r *shopRepo) Create(ctx context.Context, shop *entities.Shop) error {
	r.s.mu.Lock()
	shop.ID = uuid.NewString()
	shop.CreatedAt = time.Now()
	r.s.shops[shop.ID] = cloneShop(shop)
	snap := r.s.shopSnapshot()
	r.s.mu.Unlock()

	r.s.shopHub.Publish(snap)
	return nil
}

func (r *shopRepo) GetByID(ctx context.Context, id string) (*entities.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	shop, ok := r.s.shops[id]
	if !ok {
		return nil, entities.ErrShopNotFound
	}
	return cloneShop(shop), nil
}

func (r *shopRepo) List(ctx context.Context) ([]*entities.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.shopSnapshot(), nil
}

func (r *shopRepo) Update(ctx context.Context, id string, patch ports.ShopPatch) error {
	r.s.mu.Lock()
	shop, ok := r.s.shops[id]
	if !ok {
		r.s.mu.Unlock()
		return entities.ErrShopNotFound
	}
	patch.Apply(shop)
	now := time.Now()
	shop.UpdatedAt = &now
	snap := r.s.shopSnapshot()
	r.s.mu.Unlock()

	r.s.shopHub.Publish(snap)
	return nil
}

// Delete removes the shop and every task referencing it in one critical
// section, then notifies both collections.
func (r *shopRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	if _, ok := r.s.shops[id]; !ok {
		r.s.mu.Unlock()
		return entities.ErrShopNotFound
	}
	delete(r.s.shops, id)
	for taskID, task := range r.s.tasks {
		if task.ShopID == id {
			delete(r.s.tasks, taskID)
		}
	}
	shopSnap := r.s.shopSnapshot()
	taskSnap := r.s.taskSnapshot()
	r.s.mu.Unlock()

	r.s.shopHub.Publish(shopSnap)
	r.s.taskHub.Publish(taskSnap)
	return nil
}

func (r *shopRepo) AppendUpdate(ctx context.Context, shopID string, update entities.Update) error {
	r.s.mu.Lock()
	shop, ok := r.s.shops[shopID]
	if !ok {
		r.s.mu.Unlock()
		return entities.ErrShopNotFound
	}
	shop.PrependUpdate(update)
	snap := r.s.shopSnapshot()
	r.s.mu.Unlock()

	r.s.shopHub.Publish(snap)
	return nil
}

func (r *shopRepo) Subscribe(fn func([]*entities.Shop)) func() {
	r.s.mu.RLock()
	snap := r.s.shopSnapshot()
	r.s.mu.RUnlock()

	fn(snap)
	return r.s.shopHub.Subscribe(fn)
}

type taskRepo struct{ s *Store }

func (r *taskRepo) Create(ctx context.Context, task *entities.Task) error {
	r.s.mu.Lock()
	task.ID = uuid.NewString()
	task.CreatedAt = time.Now()
	r.s.tasks[task.ID] = cloneTask(task)
	snap := r.s.taskSnapshot()
	r.s.mu.Unlock()

	r.s.taskHub.Publish(snap)
	return nil
}

func (r *taskRepo) GetByID(ctx context.Context, id string) (*entities.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	task, ok := r.s.tasks[id]
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	return cloneTask(task), nil
}

func (r *taskRepo) List(ctx context.Context) ([]*entities.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.taskSnapshot(), nil
}

func (r *taskRepo) ListByShop(ctx context.Context, shopID string) ([]*entities.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := r.s.taskSnapshot()
	out := make([]*entities.Task, 0, len(all))
	for _, task := range all {
		if task.ShopID == shopID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *taskRepo) Update(ctx context.Context, id string, patch ports.TaskPatch) error {
	r.s.mu.Lock()
	task, ok := r.s.tasks[id]
	if !ok {
		r.s.mu.Unlock()
		return entities.ErrTaskNotFound
	}
	patch.Apply(task)
	snap := r.s.taskSnapshot()
	r.s.mu.Unlock()

	r.s.taskHub.Publish(snap)
	return nil
}

// Delete is idempotent: removing an id that is already gone is a no-op and
// publishes nothing.
func (r *taskRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	if _, ok := r.s.tasks[id]; !ok {
		r.s.mu.Unlock()
		return nil
	}
	delete(r.s.tasks, id)
	snap := r.s.taskSnapshot()
	r.s.mu.Unlock()

	r.s.taskHub.Publish(snap)
	return nil
}

func (r *taskRepo) DeleteByShop(ctx context.Context, shopID string) error {
	r.s.mu.Lock()
	removed := false
	for id, task := range r.s.tasks {
		if task.ShopID == shopID {
			delete(r.s.tasks, id)
			removed = true
		}
	}
	if !removed {
		r.s.mu.Unlock()
		return nil
	}
	snap := r.s.taskSnapshot()
	r.s.mu.Unlock()

	r.s.taskHub.Publish(snap)
	return nil
}

func (r *taskRepo) Subscribe(fn func([]*entities.Task)) func() {
	r.s.mu.RLock()
	snap := r.s.taskSnapshot()
	r.s.mu.RUnlock()

	fn(snap)
	return r.s.taskHub.Subscribe(fn)
}

type prefRepo struct{ s *Store }

func (r *prefRepo) GetBool(ctx context.Context, key string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.prefs[key], nil
}

func (r *prefRepo) SetBool(ctx context.Context, key string, value bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.prefs[key] = value
	return nil
}
