package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/ws"
)

var (
	ErrStoreNotFound = fmt.Errorf("store %w", ErrNotFound)
	ErrStoreInUse    = errors.New("store is still assigned to at least one user")
)

type StoreRequest struct {
	Name string `json:"name" validate:"required"`
}

type StoreService interface {
	ListStores() []model.Store
	CreateStore(ctx context.Context, actor Actor, req *StoreRequest) (*model.Store, error)
	RenameStore(ctx context.Context, actor Actor, id model.ID, req *StoreRequest) (*model.Store, error)
	DeleteStore(ctx context.Context, actor Actor, id model.ID) error
}

type storeService struct {
	ws     *PosWorkspace
	events Publisher
}

func NewStoreService(w *PosWorkspace, events Publisher) StoreService {
	return &storeService{ws: w, events: events}
}

func (s *storeService) ListStores() []model.Store {
	return s.ws.Snapshot().Stores
}

func (s *storeService) CreateStore(ctx context.Context, actor Actor, req *StoreRequest) (*model.Store, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate(req); err != nil {
		return nil, err
	}
	store := model.Store{ID: model.NewID(), Name: req.Name}
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		st.Stores = append(st.Stores, store)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(actor, "store_created", store)
	return &store, nil
}

// RenameStore also rewrites the store name recorded on past sales.
func (s *storeService) RenameStore(ctx context.Context, actor Actor, id model.ID, req *StoreRequest) (*model.Store, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate(req); err != nil {
		return nil, err
	}
	var renamed model.Store
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		store := st.Store(id)
		if store == nil {
			return ErrStoreNotFound
		}
		store.Name = req.Name
		for i := range st.Sales {
			if st.Sales[i].StoreID != nil && *st.Sales[i].StoreID == id {
				name := req.Name
				st.Sales[i].StoreName = &name
			}
		}
		renamed = *store
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(actor, "store_updated", renamed)
	return &renamed, nil
}

// DeleteStore refuses while any user is still assigned to the store.
func (s *storeService) DeleteStore(ctx context.Context, actor Actor, id model.ID) error {
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		idx := slices.IndexFunc(st.Stores, func(store model.Store) bool { return store.ID == id })
		if idx < 0 {
			return ErrStoreNotFound
		}
		for _, u := range st.Users {
			if u.StoreID != nil && *u.StoreID == id {
				return ErrStoreInUse
			}
		}
		st.Stores = slices.Delete(st.Stores, idx, idx+1)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(actor, "store_deleted", map[string]any{"id": id})
	return nil
}

func (s *storeService) publish(actor Actor, action string, data any) {
	s.events.Publish(ws.Event{Type: ws.TypeStateUpdate, Action: action, Data: data, User: actor.eventUser()})
}
