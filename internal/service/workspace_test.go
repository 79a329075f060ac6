package service

import (
	"context"
	"errors"
	"testing"

	"go-pos-ledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_FailedMutationLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	w, store := newPosWorkspace(t, baseState())

	boom := errors.New("boom")
	err := w.Mutate(ctx, func(st *model.PosState) error {
		st.Products[0].Stock = 1
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 100, w.Snapshot().Product(waterID).Stock)

	store.fail = true
	err = w.Mutate(ctx, func(st *model.PosState) error {
		st.Products[0].Stock = 2
		return nil
	})
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, 100, w.Snapshot().Product(waterID).Stock)
	assert.Equal(t, 100, store.doc.Product(waterID).Stock)

	store.fail = false
	require.NoError(t, w.Mutate(ctx, func(st *model.PosState) error {
		st.Products[0].Stock = 3
		return nil
	}))
	assert.Equal(t, 3, w.Snapshot().Product(waterID).Stock)
	assert.Equal(t, 1, store.saves)
}

func TestWorkspace_SnapshotIsPrivate(t *testing.T) {
	w, _ := newPosWorkspace(t, baseState())

	snap := w.Snapshot()
	snap.Products[0].Name = "changed"
	snap.Users = nil

	assert.Equal(t, "น้ำ", w.Snapshot().Product(waterID).Name)
	assert.Len(t, w.Snapshot().Users, 2)
}

func TestWorkspace_NowUsesLocation(t *testing.T) {
	w, _ := newPosWorkspace(t, baseState())
	assert.Equal(t, bangkok, w.Location())
	assert.True(t, fixedNow.Equal(w.Now()))
	assert.Equal(t, bangkok, w.Now().Location())
}
