package service

import (
	"context"
	"encoding/json"
	"testing"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/pkg/backupcrypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func incomingSnapshot() *model.PosState {
	st := baseState()
	st.Users[0].ID = "u-other-admin"
	st.Users[0].Password = "new-admin-pw"
	st.Users = append(st.Users, model.User{ID: "u-lek", Username: "lek", Password: "x", Role: model.RoleSeller})
	st.Products[0].SellingPrice = dec("15")
	st.Products[0].Stock = 3
	st.StockIns = append(st.StockIns, model.StockIn{ID: "si-3", Date: at("2024-03-05", "08:00"), ProductID: waterID, ProductName: "น้ำ", Quantity: 10})
	st.Sales = []model.Sale{{ID: "s-remote", Date: at("2024-03-06", "12:00"), SellerID: "u-lek", SellerName: "lek",
		Items: []model.SaleItem{{ProductID: riceID, Name: "ข้าว", Quantity: 4, Price: dec("35"), Cost: dec("20")}},
		Total: dec("140"), Profit: dec("60")}}
	return st
}

func encode(t *testing.T, st *model.PosState) []byte {
	t.Helper()
	raw, err := json.Marshal(st)
	require.NoError(t, err)
	return raw
}

func TestMergeSnapshot_UpdatesPricesButNotStock(t *testing.T) {
	local := baseState()
	res := MergeSnapshot(local, incomingSnapshot(), nullLog())

	water := local.Product(waterID)
	assert.True(t, water.SellingPrice.Equal(dec("15")))
	assert.Equal(t, 100, water.Stock)
	assert.Equal(t, 2, res.Products.Updated)
	assert.Equal(t, 1, res.StockIns.Added)

	RecalculateAll(local)
	assert.Equal(t, 110, local.Product(waterID).Stock)
	assert.Equal(t, 46, local.Product(riceID).Stock)
}

func TestMergeSnapshot_ProtectsAdmin(t *testing.T) {
	local := baseState()
	res := MergeSnapshot(local, incomingSnapshot(), nullLog())

	var admins []model.User
	for _, u := range local.Users {
		if u.IsAdmin() {
			admins = append(admins, u)
		}
	}
	require.Len(t, admins, 1)
	assert.Equal(t, adminID, admins[0].ID)
	assert.Equal(t, "new-admin-pw", admins[0].Password)
	assert.True(t, res.AdminPasswordUpdated)
	assert.Len(t, local.Users, 3)
}

func TestMergeSnapshot_SkipsConflictsAndMissingIDs(t *testing.T) {
	local := baseState()
	incoming := baseState()
	incoming.Users = []model.User{
		{ID: "u-dup", Username: "somsri", Role: model.RoleSeller},
		{ID: adminID, Username: "sneaky", Role: model.RoleSeller},
	}
	incoming.Stores = []model.Store{{Name: "no id"}}

	res := MergeSnapshot(local, incoming, nullLog())
	assert.Equal(t, 2, res.Users.Skipped)
	assert.Equal(t, 1, res.Stores.Skipped)
	assert.Len(t, local.Users, 2)
	assert.Len(t, local.Stores, 1)
}

func TestMergeSnapshot_IncomingUsernamesStayUnique(t *testing.T) {
	local := baseState()
	incoming := baseState()
	incoming.Users = []model.User{
		{ID: "u-n1", Username: "dup", Role: model.RoleSeller},
		{ID: "u-n2", Username: "dup", Role: model.RoleSeller},
	}

	res := MergeSnapshot(local, incoming, nullLog())
	assert.Equal(t, 1, res.Users.Added)
	assert.Equal(t, 1, res.Users.Skipped)

	var named []model.ID
	for _, u := range local.Users {
		if u.Username == "dup" {
			named = append(named, u.ID)
		}
	}
	assert.Equal(t, []model.ID{"u-n1"}, named)
}

func TestImport_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	w, _ := newPosWorkspace(t, baseState())
	events := &recorder{}
	backup := NewBackupService(w, events, nullLog())
	raw := encode(t, incomingSnapshot())

	first, err := backup.Import(ctx, adminActor, raw)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Sales.Added)
	once := w.Snapshot()

	second, err := backup.Import(ctx, adminActor, raw)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Sales.Added)
	assert.Equal(t, 1, second.Sales.Updated)

	twice := w.Snapshot()
	assert.Equal(t, len(once.Users), len(twice.Users))
	assert.Equal(t, len(once.Sales), len(twice.Sales))
	assert.Equal(t, len(once.StockIns), len(twice.StockIns))
	assert.Equal(t, once.Product(waterID).Stock, twice.Product(waterID).Stock)
	assert.Equal(t, []string{"backup_imported", "backup_imported"}, events.actions())
}

func TestImport_FormatErrorsLeaveStateUntouched(t *testing.T) {
	ctx := context.Background()
	w, store := newPosWorkspace(t, baseState())
	backup := NewBackupService(w, NopPublisher(), nullLog())

	_, err := backup.Import(ctx, adminActor, []byte("not json"))
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)

	_, err = backup.Import(ctx, adminActor, []byte(`{"products": []}`))
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)

	_, err = backup.Import(ctx, adminActor, []byte(`{"users": {}}`))
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)

	assert.Equal(t, 0, store.saves)
}

func TestImport_Encrypted(t *testing.T) {
	ctx := context.Background()
	payload, err := backupcrypto.Encrypt(string(encode(t, incomingSnapshot())), "pw-1")
	require.NoError(t, err)
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	w, store := newPosWorkspace(t, baseState())
	backup := NewBackupService(w, NopPublisher(), nullLog())

	_, err = backup.Import(ctx, adminActor, raw)
	assert.ErrorIs(t, err, ErrBackupPasswordNotSet)

	require.NoError(t, backup.SetBackupPassword(ctx, adminActor, "wrong"))
	_, err = backup.Import(ctx, adminActor, raw)
	assert.ErrorIs(t, err, ErrDecryptFailed)
	assert.Len(t, w.Snapshot().Sales, 0)

	require.NoError(t, backup.SetBackupPassword(ctx, adminActor, " pw-1 "))
	_, err = backup.Import(ctx, adminActor, raw)
	require.NoError(t, err)
	assert.Len(t, w.Snapshot().Sales, 1)
	assert.Equal(t, 3, store.saves)
}

func TestExport_EncryptsWhenPasswordSet(t *testing.T) {
	ctx := context.Background()
	w, _ := newPosWorkspace(t, baseState())
	backup := NewBackupService(w, NopPublisher(), nullLog())

	plain, err := backup.Export(ctx)
	require.NoError(t, err)
	_, encrypted := backupcrypto.Parse(plain)
	assert.False(t, encrypted)
	assert.False(t, backup.HasBackupPassword())

	require.NoError(t, backup.SetBackupPassword(ctx, adminActor, "secret"))
	assert.True(t, backup.HasBackupPassword())

	sealed, err := backup.Export(ctx)
	require.NoError(t, err)
	p, encrypted := backupcrypto.Parse(sealed)
	require.True(t, encrypted)
	clear, ok := backupcrypto.Decrypt(p, "secret")
	require.True(t, ok)
	assert.Contains(t, clear, `"users"`)

	// An exported file merges back cleanly.
	_, err = backup.Import(ctx, adminActor, sealed)
	require.NoError(t, err)

	require.NoError(t, backup.SetBackupPassword(ctx, adminActor, ""))
	assert.False(t, backup.HasBackupPassword())
}

func TestBackupFileName(t *testing.T) {
	assert.Equal(t, "pos_backup_admin_20240315_1000.json", BackupFileName("admin", fixedNow))
}
