package service

import (
	"fmt"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/ws"
)

var (
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	ErrAdminOnly    = fmt.Errorf("%w: admin only", ErrForbidden)
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID       model.ID
	Username string
	Role     model.Role
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// SystemActor acts with admin rights for maintenance tasks.
func SystemActor() Actor {
	return Actor{ID: "system", Username: "system", Role: model.RoleAdmin}
}

func (a Actor) eventUser() *ws.EventUser {
	return &ws.EventUser{ID: a.ID.String(), Username: a.Username}
}

// Publisher delivers change events to connected clients.
type Publisher interface {
	Publish(evt ws.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(ws.Event) {}

// NopPublisher discards every event.
func NopPublisher() Publisher { return nopPublisher{} }

// actorUser resolves the caller's current account. SystemActor resolves to
// nil with no error.
func actorUser(s *model.PosState, a Actor) (*model.User, error) {
	if a == SystemActor() {
		return nil, nil
	}
	u := s.User(a.ID)
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func requireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}
