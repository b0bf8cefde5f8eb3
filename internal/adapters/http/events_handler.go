package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fieldsales/core/internal/domain/entities"
	"github.com/fieldsales/core/internal/infrastructure/logger"
	"github.com/fieldsales/core/internal/ports"
)

// EventsHandler streams collection snapshots to clients over Server-Sent
// Events. Each repository subscription delivers the full current record set,
// so a client replaces its copy wholesale instead of patching it; the stream
// is authoritative and needs no reconciliation against optimistic state.
type EventsHandler struct {
	shopRepo ports.ShopRepository
	taskRepo ports.TaskRepository
	logger   *logger.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(shopRepo ports.ShopRepository, taskRepo ports.TaskRepository, logger *logger.Logger) *EventsHandler {
	return &EventsHandler{
		shopRepo: shopRepo,
		taskRepo: taskRepo,
		logger:   logger,
	}
}

type event struct {
	name string
	data []byte
}

// Stream handles GET /events. It emits a "shops" or "tasks" event carrying
// the full collection whenever either changes, starting with one of each.
func (h *EventsHandler) Stream(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	events := make(chan event, 16)

	push := func(name string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			h.logger.Errorw("Failed to encode event", "event", name, "error", err)
			return
		}
		select {
		case events <- event{name: name, data: data}:
		default:
			// Slow consumer; it will catch up on the next snapshot.
		}
	}

	unsubShops := h.shopRepo.Subscribe(func(shops []*entities.Shop) { push("shops", shops) })
	defer unsubShops()

	unsubTasks := h.taskRepo.Subscribe(func(tasks []*entities.Task) { push("tasks", tasks) })
	defer unsubTasks()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", ev.name, ev.data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
