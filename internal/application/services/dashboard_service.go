package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/fieldsales/core/internal/domain/entities"
	"github.com/fieldsales/core/internal/infrastructure/logger"
	"github.com/fieldsales/core/internal/ports"
)

// DashboardService computes the aggregated read-side views: the daily task
// agenda and the roll-up counts. All derivation happens against a single
// "today" captured once per call, so one evaluation pass can never straddle
// a midnight rollover.
type DashboardService struct {
	shopRepo ports.ShopRepository
	taskRepo ports.TaskRepository
	logger   *logger.Logger
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(shopRepo ports.ShopRepository, taskRepo ports.TaskRepository, logger *logger.Logger) *DashboardService {
	return &DashboardService{
		shopRepo: shopRepo,
		taskRepo: taskRepo,
		logger:   logger,
	}
}

// DailyAgenda returns every unfinished task grouped by shop, ordered for a
// field visit round: most urgent groups and tasks first.
func (s *DashboardService) DailyAgenda(ctx context.Context) ([]ports.AgendaGroup, error) {
	shops, err := s.shopRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return BuildAgenda(shops, tasks, entities.Today()), nil
}

// Stats returns the status roll-up counts.
func (s *DashboardService) Stats(ctx context.Context) (*ports.Stats, error) {
	shops, err := s.shopRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return ComputeStats(shops, tasks), nil
}

// BuildAgenda groups the non-completed tasks by shop and orders everything
// for the day's round:
//
//   - tasks whose effective status (relative to today) is Completed are
//     dropped, everything else is in scope, future due dates included
//   - tasks whose shop cannot be resolved are silently dropped; a dangling
//     reference is tolerated, not an error
//   - within a group, overdue tasks come before the rest (due date strictly
//     before today; a task due exactly today is not overdue), then ascending
//     by due date
//   - groups are ordered by the earliest due date among their tasks
//
// Groups left with zero tasks never appear.
func BuildAgenda(shops []*entities.Shop, tasks []*entities.Task, today string) []ports.AgendaGroup {
	byID := make(map[string]*entities.Shop, len(shops))
	for _, shop := range shops {
		byID[shop.ID] = shop
	}

	grouped := make(map[string][]*entities.Task)
	order := make([]string, 0)
	for _, task := range tasks {
		if task.EffectiveStatusOn(today) == entities.TaskStatusCompleted {
			continue
		}
		if _, ok := byID[task.ShopID]; !ok {
			continue
		}
		if _, ok := grouped[task.ShopID]; !ok {
			order = append(order, task.ShopID)
		}
		grouped[task.ShopID] = append(grouped[task.ShopID], task)
	}

	groups := make([]ports.AgendaGroup, 0, len(order))
	for _, shopID := range order {
		shopTasks := grouped[shopID]
		sort.SliceStable(shopTasks, func(i, j int) bool {
			iOverdue := shopTasks[i].DueDate < today
			jOverdue := shopTasks[j].DueDate < today
			if iOverdue != jOverdue {
				return iOverdue
			}
			return shopTasks[i].DueDate < shopTasks[j].DueDate
		})
		groups = append(groups, ports.AgendaGroup{Shop: byID[shopID], Tasks: shopTasks})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Tasks[0].DueDate < groups[j].Tasks[0].DueDate
	})

	return groups
}

// FilterShops applies the shop-list filter: every present criterion must
// match. The result is sorted by shop name with locale-aware collation.
func FilterShops(shops []*entities.Shop, tasks []*entities.Task, filter ports.ShopFilter, today string) []*entities.Shop {
	byShop := make(map[string][]*entities.Task)
	if filter.PendingTasksOnly {
		for _, task := range tasks {
			byShop[task.ShopID] = append(byShop[task.ShopID], task)
		}
	}

	needle := strings.ToLower(filter.Location)

	out := make([]*entities.Shop, 0, len(shops))
	for _, shop := range shops {
		if filter.Status != nil && shop.Status != *filter.Status {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(shop.Location), needle) {
			continue
		}
		if filter.PendingTasksOnly && !hasActiveTask(byShop[shop.ID], today) {
			continue
		}
		out = append(out, shop)
	}

	coll := collate.New(language.Und)
	sort.SliceStable(out, func(i, j int) bool {
		return coll.CompareString(out[i].Name, out[j].Name) < 0
	})

	return out
}

// hasActiveTask reports whether any task is effectively Pending or Overdue.
func hasActiveTask(tasks []*entities.Task, today string) bool {
	for _, task := range tasks {
		switch task.EffectiveStatusOn(today) {
		case entities.TaskStatusPending, entities.TaskStatusOverdue:
			return true
		}
	}
	return false
}

// ComputeStats counts shops per lead temperature and the tasks not yet
// completed. The task count deliberately uses the persisted status rather
// than the date-aware derivation, matching the behavior this view always had.
func ComputeStats(shops []*entities.Shop, tasks []*entities.Task) *ports.Stats {
	stats := &ports.Stats{
		TotalShops:   len(shops),
		ShopsByState: make(map[entities.ShopStatus]int, len(entities.ShopStatuses())),
	}
	for _, status := range entities.ShopStatuses() {
		stats.ShopsByState[status] = 0
	}
	for _, shop := range shops {
		stats.ShopsByState[shop.Status]++
	}
	for _, task := range tasks {
		if task.Status != entities.TaskStatusCompleted {
			stats.PendingTasks++
		}
	}
	return stats
}
