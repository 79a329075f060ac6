package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/ws"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// bangkok is a fixed UTC+7 zone so tests do not depend on the tz database.
var bangkok = time.FixedZone("ICT", 7*60*60)

// fixedNow is 2024-03-15 10:00 local.
var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, bangkok)

type memStore[T document[T]] struct {
	doc   T
	saves int
	fail  bool
}

func (m *memStore[T]) Load(context.Context) (T, error) { return m.doc.Clone(), nil }

func (m *memStore[T]) Save(_ context.Context, doc T) error {
	if m.fail {
		return errors.New("disk full")
	}
	m.saves++
	m.doc = doc.Clone()
	return nil
}

type recorder struct{ events []ws.Event }

func (r *recorder) Publish(evt ws.Event) { r.events = append(r.events, evt) }

func (r *recorder) actions() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

func nullLog() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func newPosWorkspace(t *testing.T, st *model.PosState) (*PosWorkspace, *memStore[*model.PosState]) {
	t.Helper()
	store := &memStore[*model.PosState]{doc: st}
	w, err := NewWorkspace[*model.PosState](context.Background(), store, bangkok)
	require.NoError(t, err)
	w.SetClock(func() time.Time { return fixedNow })
	return w, store
}

func newTrackerWorkspace(t *testing.T, tr *model.Tracker) (*TrackerWorkspace, *memStore[*model.Tracker]) {
	t.Helper()
	store := &memStore[*model.Tracker]{doc: tr}
	w, err := NewWorkspace[*model.Tracker](context.Background(), store, bangkok)
	require.NoError(t, err)
	w.SetClock(func() time.Time { return fixedNow })
	return w, store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func at(day string, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", day+" "+clock, bangkok)
	if err != nil {
		panic(err)
	}
	return t
}

// Fixture ids.
const (
	adminID  model.ID = "u-admin"
	sellerID model.ID = "u-somsri"
	storeID  model.ID = "st-1"
	waterID  model.ID = "p-water"
	riceID   model.ID = "p-rice"
)

var (
	adminActor  = Actor{ID: adminID, Username: "admin", Role: model.RoleAdmin}
	sellerActor = Actor{ID: sellerID, Username: "somsri", Role: model.RoleSeller}
)

// baseState has an admin, one seller assigned to water only, one store and
// two products with stock-ins matching their cached stock.
func baseState() *model.PosState {
	sid := storeID
	st := &model.PosState{
		SchemaVersion: model.PosSchemaVersion,
		Users: []model.User{
			{ID: adminID, Username: "admin", Password: "123", Role: model.RoleAdmin},
			{
				ID: sellerID, Username: "somsri", Password: "abc", Role: model.RoleSeller,
				StoreID:            &sid,
				AssignedProductIDs: []model.ID{waterID},
				SalesStartDate:     strPtr("2024-03-01"),
				SalesEndDate:       strPtr("2024-03-31"),
				CommissionRate:     dec("5"),
				CommissionOnCash:   true,
			},
		},
		Stores: []model.Store{{ID: storeID, Name: "ตลาดเช้า"}},
		Products: []model.Product{
			{ID: waterID, Name: "น้ำ", Unit: "ขวด", CostPrice: dec("5"), SellingPrice: dec("10"), Stock: 100},
			{ID: riceID, Name: "ข้าว", Unit: "ถุง", CostPrice: dec("20"), SellingPrice: dec("35"), Stock: 50},
		},
		StockIns: []model.StockIn{
			{ID: "si-1", Date: at("2024-03-01", "08:00"), ProductID: waterID, ProductName: "น้ำ", Quantity: 100, CostPerUnit: dec("5")},
			{ID: "si-2", Date: at("2024-03-01", "08:05"), ProductID: riceID, ProductName: "ข้าว", Quantity: 50, CostPerUnit: dec("20")},
		},
	}
	st.Normalize()
	return st
}
