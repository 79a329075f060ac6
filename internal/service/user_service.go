package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/ws"

	"github.com/shopspring/decimal"
)

var (
	ErrUsernameTaken       = errors.New("username already exists")
	ErrPasswordRequired    = fmt.Errorf("%w: password is required for new users", ErrValidation)
	ErrSellerStoreRequired = fmt.Errorf("%w: sellers must be assigned to a store", ErrValidation)
	ErrSellerPeriodInvalid = fmt.Errorf("%w: seller sales period is missing or ends before it starts", ErrValidation)
	ErrAdminProtected      = errors.New("the admin account cannot be deleted")
	ErrSingleAdmin         = errors.New("there must be exactly one admin account")
)

// UserRequest creates or updates an account. Seller fields are ignored for
// other roles.
type UserRequest struct {
	Username             string          `json:"username" validate:"required"`
	Password             string          `json:"password"`
	Role                 model.Role      `json:"role" validate:"required,role"`
	StoreID              *model.ID       `json:"storeId"`
	AssignedProductIDs   []model.ID      `json:"assignedProductIds"`
	SalesStartDate       string          `json:"salesStartDate" validate:"omitempty,day"`
	SalesEndDate         string          `json:"salesEndDate" validate:"omitempty,day"`
	CommissionRate       decimal.Decimal `json:"commissionRate" validate:"gte=0"`
	CommissionOnCash     bool            `json:"commissionOnCash"`
	CommissionOnTransfer bool            `json:"commissionOnTransfer"`
	CommissionOnCredit   bool            `json:"commissionOnCredit"`
	VisibleSalesDays     *int            `json:"visibleSalesDays" validate:"omitempty,gte=0"`
}

type UserService interface {
	ListUsers() []model.UserResponse
	GetUser(id model.ID) (*model.UserResponse, error)
	CreateUser(ctx context.Context, actor Actor, req *UserRequest) (*model.UserResponse, error)
	UpdateUser(ctx context.Context, actor Actor, id model.ID, req *UserRequest) (*model.UserResponse, error)
	DeleteUser(ctx context.Context, actor Actor, id model.ID) error
}

type userService struct {
	ws     *PosWorkspace
	events Publisher
}

func NewUserService(w *PosWorkspace, events Publisher) UserService {
	return &userService{ws: w, events: events}
}

func (s *userService) ListUsers() []model.UserResponse {
	var out []model.UserResponse
	s.ws.View(func(st *model.PosState) error {
		out = make([]model.UserResponse, 0, len(st.Users))
		for i := range st.Users {
			out = append(out, st.Users[i].ToResponse())
		}
		return nil
	})
	return out
}

func (s *userService) GetUser(id model.ID) (*model.UserResponse, error) {
	var resp model.UserResponse
	err := s.ws.View(func(st *model.PosState) error {
		u := st.User(id)
		if u == nil {
			return ErrUserNotFound
		}
		resp = u.ToResponse()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *userService) CreateUser(ctx context.Context, actor Actor, req *UserRequest) (*model.UserResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, ErrPasswordRequired
	}
	if req.Role == model.RoleAdmin {
		return nil, ErrSingleAdmin
	}

	var resp model.UserResponse
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		if st.UserByUsername(req.Username) != nil {
			return ErrUsernameTaken
		}
		user := model.User{ID: model.NewID(), Username: req.Username, Role: req.Role}
		if err := user.SetPassword(req.Password); err != nil {
			return err
		}
		if err := applySellerFields(st, &user, req); err != nil {
			return err
		}
		st.Users = append(st.Users, user)
		resp = user.ToResponse()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(actor, "user_created", resp)
	return &resp, nil
}

// UpdateUser edits an account. An empty password keeps the current one and
// a rename is copied onto the user's past sales.
func (s *userService) UpdateUser(ctx context.Context, actor Actor, id model.ID, req *UserRequest) (*model.UserResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := validate(req); err != nil {
		return nil, err
	}

	var resp model.UserResponse
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		user := st.User(id)
		if user == nil {
			return ErrUserNotFound
		}
		if other := st.UserByUsername(req.Username); other != nil && other.ID != id {
			return ErrUsernameTaken
		}
		if user.IsAdmin() != (req.Role == model.RoleAdmin) {
			return ErrSingleAdmin
		}

		if user.Username != req.Username {
			for i := range st.Sales {
				if st.Sales[i].SellerID == id {
					st.Sales[i].SellerName = req.Username
				}
			}
			user.Username = req.Username
		}
		if req.Password != "" {
			if err := user.SetPassword(req.Password); err != nil {
				return err
			}
		}
		user.Role = req.Role
		if err := applySellerFields(st, user, req); err != nil {
			return err
		}
		resp = user.ToResponse()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(actor, "user_updated", resp)
	return &resp, nil
}

func applySellerFields(st *model.PosState, user *model.User, req *UserRequest) error {
	if user.Role != model.RoleSeller {
		user.ClearSellerFields()
		return nil
	}
	if req.StoreID == nil || st.Store(*req.StoreID) == nil {
		return ErrSellerStoreRequired
	}
	if req.SalesStartDate == "" || req.SalesEndDate == "" || req.SalesEndDate < req.SalesStartDate {
		return ErrSellerPeriodInvalid
	}

	storeID := *req.StoreID
	start, end := req.SalesStartDate, req.SalesEndDate
	user.StoreID = &storeID
	user.AssignedProductIDs = slices.Clone(req.AssignedProductIDs)
	if user.AssignedProductIDs == nil {
		user.AssignedProductIDs = []model.ID{}
	}
	user.SalesStartDate = &start
	user.SalesEndDate = &end
	user.CommissionRate = req.CommissionRate
	user.CommissionOnCash = req.CommissionOnCash
	user.CommissionOnTransfer = req.CommissionOnTransfer
	user.CommissionOnCredit = req.CommissionOnCredit
	user.VisibleSalesDays = nil
	if req.VisibleSalesDays != nil {
		days := *req.VisibleSalesDays
		user.VisibleSalesDays = &days
	}
	return nil
}

func (s *userService) DeleteUser(ctx context.Context, actor Actor, id model.ID) error {
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		idx := slices.IndexFunc(st.Users, func(u model.User) bool { return u.ID == id })
		if idx < 0 {
			return ErrUserNotFound
		}
		if st.Users[idx].IsAdmin() {
			return ErrAdminProtected
		}
		st.Users = slices.Delete(st.Users, idx, idx+1)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(actor, "user_deleted", map[string]any{"id": id})
	return nil
}

func (s *userService) publish(actor Actor, action string, data any) {
	s.events.Publish(ws.Event{Type: ws.TypeStateUpdate, Action: action, Data: data, User: actor.eventUser()})
}
