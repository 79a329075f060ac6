package service

import (
	"context"
	"testing"

	"go-pos-ledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sellerRequest(name string) *UserRequest {
	sid := storeID
	return &UserRequest{
		Username:           name,
		Password:           "pw",
		Role:               model.RoleSeller,
		StoreID:            &sid,
		AssignedProductIDs: []model.ID{riceID},
		SalesStartDate:     "2024-03-01",
		SalesEndDate:       "2024-03-10",
		CommissionRate:     dec("3"),
		CommissionOnCredit: true,
		VisibleSalesDays:   intPtr(7),
	}
}

func TestUserService_CreateSeller(t *testing.T) {
	ctx := context.Background()
	w, _ := newPosWorkspace(t, baseState())
	users := NewUserService(w, NopPublisher())

	resp, err := users.CreateUser(ctx, adminActor, sellerRequest(" malee "))
	require.NoError(t, err)
	assert.Equal(t, "malee", resp.Username)
	assert.Equal(t, []model.ID{riceID}, resp.AssignedProductIDs)
	assert.Equal(t, "2024-03-10", *resp.SalesEndDate)

	stored := w.Snapshot().User(resp.ID)
	require.NotNil(t, stored)
	assert.NotEqual(t, "pw", stored.Password, "passwords are hashed")
	assert.True(t, stored.CheckPassword("pw"))

	_, err = users.CreateUser(ctx, adminActor, sellerRequest("malee"))
	assert.ErrorIs(t, err, ErrUsernameTaken)

	noPassword := sellerRequest("dang")
	noPassword.Password = ""
	_, err = users.CreateUser(ctx, adminActor, noPassword)
	assert.ErrorIs(t, err, ErrPasswordRequired)

	noStore := sellerRequest("dang")
	noStore.StoreID = nil
	_, err = users.CreateUser(ctx, adminActor, noStore)
	assert.ErrorIs(t, err, ErrSellerStoreRequired)

	backwards := sellerRequest("dang")
	backwards.SalesEndDate = "2024-02-01"
	_, err = users.CreateUser(ctx, adminActor, backwards)
	assert.ErrorIs(t, err, ErrSellerPeriodInvalid)

	_, err = users.CreateUser(ctx, adminActor, &UserRequest{Username: "boss", Password: "x", Role: model.RoleAdmin})
	assert.ErrorIs(t, err, ErrSingleAdmin)
}

func TestUserService_UpdateRenamesPastSales(t *testing.T) {
	ctx := context.Background()
	st := baseState()
	st.Sales = []model.Sale{{ID: "s-1", Date: fixedNow, SellerID: sellerID, SellerName: "somsri"}}
	w, _ := newPosWorkspace(t, st)
	users := NewUserService(w, NopPublisher())

	req := sellerRequest("somsri2")
	req.Password = ""
	resp, err := users.UpdateUser(ctx, adminActor, sellerID, req)
	require.NoError(t, err)
	assert.Equal(t, "somsri2", resp.Username)
	assert.Equal(t, []model.ID{riceID}, resp.AssignedProductIDs)
	assert.True(t, dec("3").Equal(resp.CommissionRate))
	assert.False(t, resp.CommissionOnCash)

	snap := w.Snapshot()
	assert.Equal(t, "somsri2", snap.Sale("s-1").SellerName)
	assert.True(t, snap.User(sellerID).CheckPassword("abc"), "empty password keeps the old one")

	_, err = users.UpdateUser(ctx, adminActor, sellerID, sellerRequest("admin"))
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = users.UpdateUser(ctx, adminActor, sellerID, &UserRequest{Username: "somsri2", Role: model.RoleAdmin})
	assert.ErrorIs(t, err, ErrSingleAdmin)

	_, err = users.UpdateUser(ctx, adminActor, adminID, sellerRequest("admin"))
	assert.ErrorIs(t, err, ErrSingleAdmin)

	_, err = users.UpdateUser(ctx, adminActor, "missing", sellerRequest("ghost"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_AdminKeepsNoSellerFields(t *testing.T) {
	w, _ := newPosWorkspace(t, baseState())
	users := NewUserService(w, NopPublisher())

	sid := storeID
	resp, err := users.UpdateUser(context.Background(), adminActor, adminID, &UserRequest{
		Username: "admin", Role: model.RoleAdmin, StoreID: &sid, CommissionRate: dec("9"),
	})
	require.NoError(t, err)
	assert.Nil(t, resp.StoreID)
	assert.True(t, resp.CommissionRate.IsZero())
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	w, _ := newPosWorkspace(t, baseState())
	users := NewUserService(w, NopPublisher())

	assert.ErrorIs(t, users.DeleteUser(ctx, adminActor, adminID), ErrAdminProtected)
	assert.ErrorIs(t, users.DeleteUser(ctx, adminActor, "missing"), ErrNotFound)
	require.NoError(t, users.DeleteUser(ctx, adminActor, sellerID))

	_, err := users.GetUser(sellerID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Len(t, users.ListUsers(), 1)
}
