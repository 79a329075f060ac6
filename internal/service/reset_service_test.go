package service

import (
	"context"
	"testing"

	"go-pos-ledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetService_Guards(t *testing.T) {
	ctx := context.Background()
	w, store := newPosWorkspace(t, baseState())
	reset := NewResetService(w, NopPublisher(), nullLog())

	assert.ErrorIs(t, reset.Reset(ctx, sellerActor, ResetOptions{Sales: true, Confirm: ResetConfirmation}), ErrForbidden)
	assert.ErrorIs(t, reset.Reset(ctx, adminActor, ResetOptions{Confirm: ResetConfirmation}), ErrNothingToReset)
	assert.ErrorIs(t, reset.Reset(ctx, adminActor, ResetOptions{Sales: true, Confirm: "1234"}), ErrResetNotConfirmed)
	assert.Zero(t, store.saves)
}

func TestResetService_SalesRestoreStock(t *testing.T) {
	ctx := context.Background()
	w, _ := newPosWorkspace(t, baseState())
	sales := NewSaleService(w, NopPublisher(), nullLog())
	_, err := sales.Checkout(ctx, adminActor, &CheckoutRequest{Items: []CartItem{{ProductID: riceID, Quantity: 4}}})
	require.NoError(t, err)
	require.Equal(t, 46, w.Snapshot().Product(riceID).Stock)

	events := &recorder{}
	reset := NewResetService(w, events, nullLog())
	require.NoError(t, reset.Reset(ctx, adminActor, ResetOptions{Sales: true, Confirm: ResetConfirmation}))

	snap := w.Snapshot()
	assert.Empty(t, snap.Sales)
	assert.Equal(t, 50, snap.Product(riceID).Stock)
	assert.Len(t, snap.StockIns, 2)
	assert.Equal(t, []string{"reset"}, events.actions())
}

func TestResetService_SellersAndStores(t *testing.T) {
	ctx := context.Background()
	st := baseState()
	sid := storeID
	st.Users[0].StoreID = &sid
	w, _ := newPosWorkspace(t, st)
	reset := NewResetService(w, NopPublisher(), nullLog())

	require.NoError(t, reset.Reset(ctx, adminActor, ResetOptions{Sellers: true, Stores: true, StockHistory: true, Confirm: ResetConfirmation}))

	snap := w.Snapshot()
	require.Len(t, snap.Users, 1)
	assert.Equal(t, model.RoleAdmin, snap.Users[0].Role)
	assert.Nil(t, snap.Users[0].StoreID)
	assert.Empty(t, snap.Stores)
	assert.Empty(t, snap.StockIns)
	assert.Zero(t, snap.Product(waterID).Stock, "no history left means no stock")
}
