package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/service"
	"go-pos-ledger/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDoc[T interface{ Clone() T }] struct{ doc T }

func (m *memDoc[T]) Load(context.Context) (T, error)     { return m.doc.Clone(), nil }
func (m *memDoc[T]) Save(_ context.Context, doc T) error { m.doc = doc.Clone(); return nil }

var today = time.Date(2024, 3, 15, 10, 0, 0, 0, time.FixedZone("ICT", 7*60*60))

type testAPI struct {
	t   *testing.T
	app *fiber.App
}

func newTestAPI(t *testing.T, loginLimit int) *testAPI {
	t.Helper()
	jwt.SetSecret("handler-test")
	t.Cleanup(func() { jwt.SetSecret("") })

	ctx := context.Background()
	st, err := model.NewPosState()
	require.NoError(t, err)
	pos, err := service.NewWorkspace[*model.PosState](ctx, &memDoc[*model.PosState]{doc: st}, today.Location())
	require.NoError(t, err)
	pos.SetClock(func() time.Time { return today })
	tracker, err := service.NewWorkspace[*model.Tracker](ctx, &memDoc[*model.Tracker]{doc: model.NewTracker()}, today.Location())
	require.NoError(t, err)
	tracker.SetClock(func() time.Time { return today })

	log, _ := test.NewNullLogger()
	events := service.NopPublisher()
	authService := service.NewAuthService(pos, log)
	userService := service.NewUserService(pos, events)
	h := Handlers{
		Auth:      NewAuthHandler(authService, userService),
		Inventory: NewInventoryHandler(service.NewInventoryService(pos, events, log)),
		Sale:      NewSaleHandler(service.NewSaleService(pos, events, log)),
		Store:     NewStoreHandler(service.NewStoreService(pos, events)),
		User:      NewUserHandler(userService),
		Report:    NewReportHandler(service.NewReportService(pos)),
		Backup:    NewBackupHandler(service.NewBackupService(pos, events, log), service.NewResetService(pos, events, log), today.Location()),
		Tracker:   NewTrackerHandler(service.NewTrackerService(tracker, events, log)),
		Dashboard: NewDashboardHandler(service.NewDashboardService(pos)),
		Role:      NewRoleHandler(),
	}

	app := fiber.New()
	Register(app, h, authService, loginLimit)
	return &testAPI{t: t, app: app}
}

// call sends body as JSON and decodes a JSON response into out when given.
func (a *testAPI) call(method, path, token string, body any, out any) *http.Response {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (a *testAPI) login(username, password string) string {
	a.t.Helper()
	var out service.LoginResponse
	resp := a.call("POST", "/api/v1/auth/login", "", service.LoginRequest{Username: username, Password: password}, &out)
	require.Equal(a.t, 200, resp.StatusCode)
	return out.Token
}

type created struct {
	Data struct {
		ID model.ID `json:"id"`
	} `json:"data"`
}

// seed creates a store, a seller assigned to one stocked product, and
// returns the admin token, the seller token and the product id.
func (a *testAPI) seed() (string, string, model.ID) {
	a.t.Helper()
	admin := a.login(model.DefaultAdminUsername, model.DefaultAdminPassword)

	var store created
	require.Equal(a.t, 201, a.call("POST", "/api/v1/stores", admin, service.StoreRequest{Name: "ตลาดเช้า"}, &store).StatusCode)
	var product created
	require.Equal(a.t, 201, a.call("POST", "/api/v1/products", admin, service.ProductRequest{Name: "น้ำ", Unit: "ขวด"}, &product).StatusCode)
	require.Equal(a.t, 201, a.call("POST", "/api/v1/stock-ins", admin, map[string]any{
		"productId": product.Data.ID, "quantity": 20, "costPrice": "5", "sellingPrice": "10",
	}, nil).StatusCode)

	sid := store.Data.ID
	require.Equal(a.t, 201, a.call("POST", "/api/v1/users", admin, map[string]any{
		"username": "somsri", "password": "abc", "role": model.RoleSeller, "storeId": sid,
		"assignedProductIds": []model.ID{product.Data.ID},
		"salesStartDate":     "2024-03-01", "salesEndDate": "2024-03-31",
		"commissionRate": "10", "commissionOnCash": true,
	}, nil).StatusCode)

	return admin, a.login("somsri", "abc"), product.Data.ID
}

func TestRoutes_Auth(t *testing.T) {
	api := newTestAPI(t, 0)

	resp := api.call("POST", "/api/v1/auth/login", "", service.LoginRequest{Username: "admin", Password: "wrong"}, nil)
	assert.Equal(t, 401, resp.StatusCode)
	resp = api.call("POST", "/api/v1/auth/login", "", nil, nil)
	assert.Equal(t, 400, resp.StatusCode)

	assert.Equal(t, 401, api.call("GET", "/api/v1/products", "", nil, nil).StatusCode)

	token := api.login("admin", "123")
	var me model.UserResponse
	require.Equal(t, 200, api.call("GET", "/api/v1/auth/me", token, nil, &me).StatusCode)
	assert.Equal(t, model.RoleAdmin, me.Role)

	resp = api.call("POST", "/api/v1/auth/change-password", token, service.ChangePasswordRequest{OldPassword: "123", NewPassword: "456"}, nil)
	assert.Equal(t, 200, resp.StatusCode)
	api.login("admin", "456")
}

func TestRoutes_SellerCannotReachAdminRoutes(t *testing.T) {
	api := newTestAPI(t, 0)
	_, seller, _ := api.seed()

	for _, path := range []string{"/api/v1/users", "/api/v1/sales", "/api/v1/stock-ins", "/api/v1/backup", "/api/v1/reports/stock", "/api/v1/tracker/accounts", "/api/v1/dashboard/stats", "/api/v1/roles"} {
		assert.Equal(t, 403, api.call("GET", path, seller, nil, nil).StatusCode, path)
	}
	assert.Equal(t, 200, api.call("GET", "/api/v1/products", seller, nil, nil).StatusCode)
	assert.Equal(t, 200, api.call("GET", "/api/v1/stores", seller, nil, nil).StatusCode)
}

func TestRoutes_CheckoutAndReports(t *testing.T) {
	api := newTestAPI(t, 0)
	admin, seller, productID := api.seed()

	resp := api.call("POST", "/api/v1/sales", seller, map[string]any{
		"items": []map[string]any{{"productId": productID, "quantity": 10}},
	}, nil)
	require.Equal(t, 201, resp.StatusCode)

	resp = api.call("POST", "/api/v1/sales", seller, map[string]any{
		"items": []map[string]any{{"productId": productID, "quantity": 50}},
	}, nil)
	assert.Equal(t, 400, resp.StatusCode, "more than the stock on hand")

	var summary struct {
		SellerName string `json:"sellerName"`
		Result     struct {
			Sellers []struct {
				Commission struct {
					Amount decimal.Decimal `json:"amount"`
				} `json:"commission"`
			} `json:"sellers"`
		} `json:"result"`
	}
	require.Equal(t, 200, api.call("GET", "/api/v1/reports/summary?start=2024-03-15&end=2024-03-15", seller, nil, &summary).StatusCode)
	assert.Equal(t, "somsri", summary.SellerName)
	require.Len(t, summary.Result.Sellers, 1)
	assert.True(t, decimal.NewFromInt(10).Equal(summary.Result.Sellers[0].Commission.Amount), summary.Result.Sellers[0].Commission.Amount.String())

	resp = api.call("GET", "/api/v1/reports/detailed?start=2024-03-15&end=2024-03-15&format=csv", admin, nil, nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "\uFEFF\"รายงานการขายของ ผู้ขายทั้งหมด\""))

	assert.Equal(t, 404, api.call("GET", "/api/v1/reports/credit?start=2024-03-15&end=2024-03-15", admin, nil, nil).StatusCode)
	assert.Equal(t, 400, api.call("GET", "/api/v1/reports/summary?start=2024-03-16&end=2024-03-15", admin, nil, nil).StatusCode)

	var stock struct {
		Drifted []service.StockLine `json:"drifted"`
	}
	require.Equal(t, 200, api.call("GET", "/api/v1/reports/stock", admin, nil, &stock).StatusCode)
	assert.Empty(t, stock.Drifted)
}

func TestRoutes_BackupRoundTrip(t *testing.T) {
	api := newTestAPI(t, 0)
	admin, _, _ := api.seed()

	resp := api.call("GET", "/api/v1/backup", admin, nil, nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "pos_backup_admin_")
	backup, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/backup", bytes.NewReader(backup))
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err = api.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp = api.call("POST", "/api/v1/reset", admin, service.ResetOptions{Sales: true}, nil)
	assert.Equal(t, 400, resp.StatusCode, "reset needs the confirmation code")
	resp = api.call("POST", "/api/v1/reset", admin, service.ResetOptions{Sales: true, Confirm: service.ResetConfirmation}, nil)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRoutes_Tracker(t *testing.T) {
	api := newTestAPI(t, 0)
	admin := api.login("admin", "123")

	require.Equal(t, 201, api.call("POST", "/api/v1/tracker/accounts", admin, map[string]string{"name": "ร้าน"}, nil).StatusCode)
	assert.Equal(t, 400, api.call("POST", "/api/v1/tracker/accounts", admin, map[string]string{"name": "ร้าน"}, nil).StatusCode)

	path := "/api/v1/tracker/accounts/" + url.PathEscape("ร้าน") + "/entries"
	require.Equal(t, 201, api.call("POST", path, admin, map[string]any{
		"date": "2024-03-15", "time": "08:00", "amount": "-45", "type": "อาหาร", "description": "กาแฟ",
	}, nil).StatusCode)

	var entries []service.IndexedEntry
	require.Equal(t, 200, api.call("GET", path+"?date=2024-03-15", admin, nil, &entries).StatusCode)
	require.Len(t, entries, 1)
	assert.Equal(t, "กาแฟ", entries[0].Description)

	assert.Equal(t, 404, api.call("GET", "/api/v1/tracker/accounts/ghost/entries", admin, nil, nil).StatusCode)
	assert.Equal(t, 400, api.call("DELETE", path+"/abc", admin, nil, nil).StatusCode)

	resp := api.call("GET", "/api/v1/tracker/export?format=csv", admin, nil, nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
}

func TestRoutes_LoginRateLimit(t *testing.T) {
	api := newTestAPI(t, 2)
	bad := service.LoginRequest{Username: "admin", Password: "nope"}

	assert.Equal(t, 401, api.call("POST", "/api/v1/auth/login", "", bad, nil).StatusCode)
	assert.Equal(t, 401, api.call("POST", "/api/v1/auth/login", "", bad, nil).StatusCode)
	assert.Equal(t, 429, api.call("POST", "/api/v1/auth/login", "", bad, nil).StatusCode)
}

func TestRoutes_DashboardAndRoles(t *testing.T) {
	api := newTestAPI(t, 0)
	admin, seller, productID := api.seed()
	require.Equal(t, 201, api.call("POST", "/api/v1/sales", seller, map[string]any{
		"items": []map[string]any{{"productId": productID, "quantity": 3}},
	}, nil).StatusCode)

	var stats struct {
		TotalProducts  int `json:"totalProducts"`
		TodaySaleCount int `json:"todaySaleCount"`
	}
	require.Equal(t, 200, api.call("GET", "/api/v1/dashboard/stats", admin, nil, &stats).StatusCode)
	assert.Equal(t, 1, stats.TotalProducts)
	assert.Equal(t, 1, stats.TodaySaleCount)

	var movement struct {
		Period int `json:"period"`
		Data   []struct {
			Date     string `json:"date"`
			Outbound int    `json:"outbound"`
		} `json:"data"`
	}
	require.Equal(t, 200, api.call("GET", "/api/v1/dashboard/stock-movement?days=500", admin, nil, &movement).StatusCode)
	assert.Equal(t, 90, movement.Period)
	require.Len(t, movement.Data, 90)
	assert.Equal(t, "2024-03-15", movement.Data[89].Date)
	assert.Equal(t, 3, movement.Data[89].Outbound)

	var roles []struct {
		Code string `json:"code"`
	}
	require.Equal(t, 200, api.call("GET", "/api/v1/roles", admin, nil, &roles).StatusCode)
	require.Len(t, roles, 2)
	assert.Equal(t, "admin", roles[0].Code)
	assert.Equal(t, "seller", roles[1].Code)
}
