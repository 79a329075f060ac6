package service

import (
	"context"
	"testing"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyState(t *testing.T) *model.PosState {
	t.Helper()
	st, err := model.NewPosState()
	require.NoError(t, err)
	return st
}

func TestStockScenario_InSaleOut(t *testing.T) {
	ctx := context.Background()
	w, _ := newPosWorkspace(t, emptyState(t))
	inv := NewInventoryService(w, NopPublisher(), nullLog())
	sales := NewSaleService(w, NopPublisher(), nullLog())

	p, err := inv.CreateProduct(ctx, SystemActor(), &ProductRequest{Name: "P", Unit: "ชิ้น"})
	require.NoError(t, err)

	_, err = inv.RecordStockIn(ctx, SystemActor(), &StockInRequest{ProductID: p.ID, Quantity: 100, CostPrice: dec("10"), SellingPrice: dec("20")})
	require.NoError(t, err)

	sale, err := sales.Checkout(ctx, SystemActor(), &CheckoutRequest{Items: []CartItem{{ProductID: p.ID, Quantity: 30}}})
	require.NoError(t, err)
	assert.True(t, sale.Profit.Equal(dec("300")), "profit %s", sale.Profit)
	assert.True(t, sale.Total.Equal(dec("600")))
	assert.Equal(t, model.PaymentCash, sale.PaymentMethod)

	_, err = inv.RecordStockOut(ctx, SystemActor(), &StockOutRequest{ProductID: p.ID, Quantity: 5, Reason: "damaged"})
	require.NoError(t, err)

	got, err := inv.GetProduct(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 65, got.Stock)

	report := inv.StockReport()
	require.Len(t, report.Lines, 1)
	line := report.Lines[0]
	assert.True(t, line.Matched)
	assert.Equal(t, 100, line.TotalIn)
	assert.Equal(t, 30, line.TotalSold)
	assert.Equal(t, 5, line.TotalOut)
	assert.Equal(t, 65, line.Computed)
}

func TestRecalculateAll_IsIdempotentAndMatchesLedger(t *testing.T) {
	st := baseState()
	st.Products[0].Stock = 7 // drifted
	st.Sales = []model.Sale{{ID: "s1", Date: at("2024-03-02", "09:00"), Items: []model.SaleItem{{ProductID: waterID, Quantity: 4}}}}
	st.StockOuts = []model.StockOut{{ID: "so1", ProductID: waterID, Quantity: 6}}

	report := BuildStockReport(st)
	assert.Len(t, report.Drifted(), 1)

	RecalculateAll(st)
	once := st.Clone()
	RecalculateAll(st)

	assert.Equal(t, once.Products, st.Products)
	assert.Equal(t, 90, st.Products[0].Stock)
	assert.Equal(t, 50, st.Products[1].Stock)
	assert.Empty(t, BuildStockReport(st).Drifted())
}

func TestRecordStockOut_RejectsMoreThanStock(t *testing.T) {
	w, store := newPosWorkspace(t, baseState())
	inv := NewInventoryService(w, NopPublisher(), nullLog())

	_, err := inv.RecordStockOut(context.Background(), adminActor, &StockOutRequest{ProductID: riceID, Quantity: 51, Reason: "expired"})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, 50, w.Snapshot().Products[1].Stock)
}

func TestRecordStockOut_RequiresReason(t *testing.T) {
	w, _ := newPosWorkspace(t, baseState())
	inv := NewInventoryService(w, NopPublisher(), nullLog())

	_, err := inv.RecordStockOut(context.Background(), adminActor, &StockOutRequest{ProductID: riceID, Quantity: 1, Reason: "  "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStockInUpdateMovesQuantityBetweenProducts(t *testing.T) {
	ctx := context.Background()
	w, _ := newPosWorkspace(t, baseState())
	inv := NewInventoryService(w, NopPublisher(), nullLog())

	_, err := inv.UpdateStockIn(ctx, adminActor, "si-2", &StockInRequest{ProductID: waterID, Quantity: 40, CostPrice: dec("6"), SellingPrice: dec("12")})
	require.NoError(t, err)

	snap := w.Snapshot()
	assert.Equal(t, 140, snap.Product(waterID).Stock)
	assert.Equal(t, 0, snap.Product(riceID).Stock)
	assert.True(t, snap.Product(waterID).SellingPrice.Equal(dec("12")))
	assert.Empty(t, BuildStockReport(snap).Drifted())

	require.NoError(t, inv.DeleteStockIn(ctx, adminActor, "si-2"))
	assert.Equal(t, 100, w.Snapshot().Product(waterID).Stock)
}

func TestUpdateProduct_RenamesHistory(t *testing.T) {
	ctx := context.Background()
	st := baseState()
	st.Sales = []model.Sale{{ID: "s1", Items: []model.SaleItem{{ProductID: waterID, Name: "น้ำ", Quantity: 1}}}}
	w, _ := newPosWorkspace(t, st)
	events := &recorder{}
	inv := NewInventoryService(w, events, nullLog())

	_, err := inv.UpdateProduct(ctx, adminActor, waterID, &ProductRequest{Name: "น้ำดื่ม", Unit: "ขวด"})
	require.NoError(t, err)

	snap := w.Snapshot()
	assert.Equal(t, "น้ำดื่ม", snap.Sales[0].Items[0].Name)
	assert.Equal(t, "น้ำดื่ม", snap.StockIns[0].ProductName)
	require.Len(t, events.events, 1)
	assert.Equal(t, ws.TypeStockUpdate, events.events[0].Type)
}

func TestListProducts_SellerSeesAssignedOnly(t *testing.T) {
	w, _ := newPosWorkspace(t, baseState())
	inv := NewInventoryService(w, NopPublisher(), nullLog())

	products, err := inv.ListProducts(sellerActor)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, waterID, products[0].ID)

	products, err = inv.ListProducts(adminActor)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}
