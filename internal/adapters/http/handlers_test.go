package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsales/core/internal/adapters/repository/memory"
	"github.com/fieldsales/core/internal/application/services"
	"github.com/fieldsales/core/internal/domain/entities"
	"github.com/fieldsales/core/internal/infrastructure/logger"
	"github.com/fieldsales/core/internal/ports"
)

type structValidator struct{ v *validator.Validate }

func (sv *structValidator) Validate(i interface{}) error { return sv.v.Struct(i) }

type fixture struct {
	echo      *echo.Echo
	store     *memory.Store
	shops     *ShopHandler
	tasks     *TaskHandler
	dashboard *DashboardHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	log := logger.NewNop()

	shopSvc := services.NewShopService(store.Shops(), store.Tasks(), log)
	taskSvc := services.NewTaskService(store.Tasks(), store.Shops(), log)
	dashSvc := services.NewDashboardService(store.Shops(), store.Tasks(), log)

	e := echo.New()
	e.Validator = &structValidator{v: validator.New()}

	return &fixture{
		echo:      e,
		store:     store,
		shops:     NewShopHandler(shopSvc, taskSvc, log),
		tasks:     NewTaskHandler(taskSvc, log),
		dashboard: NewDashboardHandler(dashSvc, shopSvc, store.Preferences(), log),
	}
}

func (f *fixture) request(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return f.echo.NewContext(req, rec), rec
}

func (f *fixture) seedShop(t *testing.T, name, location string, status entities.ShopStatus) *entities.Shop {
	t.Helper()
	shop := &entities.Shop{Name: name, Location: location, Status: status}
	require.NoError(t, f.store.Shops().Create(context.Background(), shop))
	return shop
}

func (f *fixture) seedTask(t *testing.T, shopID, dueDate string, status entities.TaskStatus) *entities.Task {
	t.Helper()
	task := &entities.Task{ShopID: shopID, Type: entities.TaskTypeVisit, DueDate: dueDate, Status: status}
	require.NoError(t, f.store.Tasks().Create(context.Background(), task))
	return task
}

func TestCreateShopHandler(t *testing.T) {
	f := newFixture(t)

	c, rec := f.request(http.MethodPost, "/api/v1/shops", `{
		"name": "Corner Store",
		"phoneNumber": "555-0101",
		"location": "Downtown",
		"status": "New",
		"initialNote": "met the owner"
	}`)

	require.NoError(t, f.shops.CreateShop(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var shop entities.Shop
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shop))
	assert.NotEmpty(t, shop.ID)
	assert.Equal(t, "Corner Store", shop.Name)
	require.Len(t, shop.Updates, 1)
	assert.Equal(t, "met the owner", shop.Updates[0].Note)
}

func TestCreateShopHandlerRejectsMissingName(t *testing.T) {
	f := newFixture(t)

	c, _ := f.request(http.MethodPost, "/api/v1/shops", `{"status": "New"}`)

	err := f.shops.CreateShop(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCreateShopHandlerRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)

	c, _ := f.request(http.MethodPost, "/api/v1/shops", `{"name": "Corner Store", "status": "Tepid"}`)

	err := f.shops.CreateShop(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestGetShopHandlerNotFound(t *testing.T) {
	f := newFixture(t)

	c, _ := f.request(http.MethodGet, "/api/v1/shops/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := f.shops.GetShop(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestListShopsHandlerFilters(t *testing.T) {
	f := newFixture(t)
	f.seedShop(t, "Apollo Kiosk", "Downtown", entities.ShopStatusWarm)
	f.seedShop(t, "Beacon Mart", "Uptown", entities.ShopStatusHot)

	c, rec := f.request(http.MethodGet, "/api/v1/shops?status=Warm&location=down", "")
	require.NoError(t, f.shops.ListShops(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var shops []*entities.Shop
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shops))
	require.Len(t, shops, 1)
	assert.Equal(t, "Apollo Kiosk", shops[0].Name)
}

func TestListShopsHandlerRejectsBadStatus(t *testing.T) {
	f := newFixture(t)

	c, _ := f.request(http.MethodGet, "/api/v1/shops?status=Tepid", "")

	err := f.shops.ListShops(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestAddUpdateHandler(t *testing.T) {
	f := newFixture(t)
	shop := f.seedShop(t, "Corner Store", "Downtown", entities.ShopStatusNew)

	c, rec := f.request(http.MethodPost, "/api/v1/shops/"+shop.ID+"/updates", `{"note": "second visit"}`)
	c.SetParamNames("id")
	c.SetParamValues(shop.ID)

	require.NoError(t, f.shops.AddUpdate(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var got entities.Shop
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Updates, 1)
	assert.Equal(t, "second visit", got.Updates[0].Note)
}

func TestAddUpdateHandlerRejectsBlankNote(t *testing.T) {
	f := newFixture(t)
	shop := f.seedShop(t, "Corner Store", "Downtown", entities.ShopStatusNew)

	c, _ := f.request(http.MethodPost, "/api/v1/shops/"+shop.ID+"/updates", `{"note": "   "}`)
	c.SetParamNames("id")
	c.SetParamValues(shop.ID)

	err := f.shops.AddUpdate(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestDeleteShopHandlerCascades(t *testing.T) {
	f := newFixture(t)
	shop := f.seedShop(t, "Corner Store", "Downtown", entities.ShopStatusNew)
	f.seedTask(t, shop.ID, "2024-01-15", entities.TaskStatusPending)

	c, rec := f.request(http.MethodDelete, "/api/v1/shops/"+shop.ID, "")
	c.SetParamNames("id")
	c.SetParamValues(shop.ID)

	require.NoError(t, f.shops.DeleteShop(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	tasks, err := f.store.Tasks().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestCreateTaskHandler(t *testing.T) {
	f := newFixture(t)
	shop := f.seedShop(t, "Corner Store", "Downtown", entities.ShopStatusNew)

	c, rec := f.request(http.MethodPost, "/api/v1/tasks", `{
		"shopId": "`+shop.ID+`",
		"type": "Visit",
		"dueDate": "2024-01-15"
	}`)

	require.NoError(t, f.tasks.CreateTask(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var task entities.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, entities.TaskStatusPending, task.Status)
}

func TestCreateTaskHandlerUnknownShop(t *testing.T) {
	f := newFixture(t)

	c, _ := f.request(http.MethodPost, "/api/v1/tasks", `{
		"shopId": "missing",
		"type": "Visit",
		"dueDate": "2024-01-15"
	}`)

	err := f.tasks.CreateTask(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestCreateTaskHandlerRejectsBadDate(t *testing.T) {
	f := newFixture(t)
	shop := f.seedShop(t, "Corner Store", "Downtown", entities.ShopStatusNew)

	c, _ := f.request(http.MethodPost, "/api/v1/tasks", `{
		"shopId": "`+shop.ID+`",
		"type": "Visit",
		"dueDate": "15-01-2024"
	}`)

	err := f.tasks.CreateTask(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestDeleteTaskHandlerAbsentIDStillOK(t *testing.T) {
	f := newFixture(t)

	c, rec := f.request(http.MethodDelete, "/api/v1/tasks/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	require.NoError(t, f.tasks.DeleteTask(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetAgendaHandler(t *testing.T) {
	f := newFixture(t)
	shop := f.seedShop(t, "Corner Store", "Downtown", entities.ShopStatusNew)
	f.seedTask(t, shop.ID, "2020-01-01", entities.TaskStatusPending)
	f.seedTask(t, shop.ID, "2020-01-02", entities.TaskStatusCompleted)

	c, rec := f.request(http.MethodGet, "/api/v1/agenda", "")
	require.NoError(t, f.dashboard.GetAgenda(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var groups []ports.AgendaGroup
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, shop.ID, groups[0].Shop.ID)
	require.Len(t, groups[0].Tasks, 1)
	assert.Equal(t, "2020-01-01", groups[0].Tasks[0].DueDate)
}

func TestGetStatsHandler(t *testing.T) {
	f := newFixture(t)
	shop := f.seedShop(t, "Corner Store", "Downtown", entities.ShopStatusHot)
	f.seedTask(t, shop.ID, "2024-01-15", entities.TaskStatusPending)

	c, rec := f.request(http.MethodGet, "/api/v1/stats", "")
	require.NoError(t, f.dashboard.GetStats(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var stats ports.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalShops)
	assert.Equal(t, 1, stats.ShopsByState[entities.ShopStatusHot])
	assert.Equal(t, 1, stats.PendingTasks)
}

func TestGetLocationsHandler(t *testing.T) {
	f := newFixture(t)
	f.seedShop(t, "A", "Uptown", entities.ShopStatusNew)
	f.seedShop(t, "B", "Downtown", entities.ShopStatusNew)
	f.seedShop(t, "C", "Uptown", entities.ShopStatusNew)

	c, rec := f.request(http.MethodGet, "/api/v1/locations", "")
	require.NoError(t, f.dashboard.GetLocations(c))

	var locations []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &locations))
	assert.Equal(t, []string{"Downtown", "Uptown"}, locations)
}

func TestPendingFilterRoundTrip(t *testing.T) {
	f := newFixture(t)

	c, rec := f.request(http.MethodGet, "/api/v1/preferences/pending-filter", "")
	require.NoError(t, f.dashboard.GetPendingFilter(c))

	var resp PendingFilterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Enabled)

	c, rec = f.request(http.MethodPut, "/api/v1/preferences/pending-filter", `{"enabled": true}`)
	require.NoError(t, f.dashboard.SetPendingFilter(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = f.request(http.MethodGet, "/api/v1/preferences/pending-filter", "")
	require.NoError(t, f.dashboard.GetPendingFilter(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Enabled)
}
