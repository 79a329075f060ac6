package service

import (
	"context"
	"errors"
	"fmt"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/pkg/jwt"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWrongPassword      = fmt.Errorf("%w: current password is incorrect", ErrValidation)
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string             `json:"token"`
	User  model.UserResponse `json:"user"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type AuthService interface {
	Login(req *LoginRequest) (*LoginResponse, error)
	ValidateToken(tokenString string) (Actor, error)
	ChangePassword(ctx context.Context, actor Actor, req *ChangePasswordRequest) error
	ResetAdminPassword(ctx context.Context, password string) error
}

type authService struct {
	ws  *PosWorkspace
	log logrus.FieldLogger
}

func NewAuthService(w *PosWorkspace, log logrus.FieldLogger) AuthService {
	return &authService{ws: w, log: log}
}

func (s *authService) Login(req *LoginRequest) (*LoginResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var user model.User
	err := s.ws.View(func(st *model.PosState) error {
		u := st.UserByUsername(req.Username)
		if u == nil || !u.CheckPassword(req.Password) {
			return ErrInvalidCredentials
		}
		user = *u
		return nil
	})
	if err != nil {
		s.log.WithField("username", req.Username).Warn("Failed login attempt")
		return nil, err
	}

	token, err := jwt.GenerateToken(user.ID.String(), user.Username, string(user.Role))
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	return &LoginResponse{Token: token, User: user.ToResponse()}, nil
}

// ValidateToken checks the token and reloads the account it names, so a
// deleted user or a changed role takes effect on the next request.
func (s *authService) ValidateToken(tokenString string) (Actor, error) {
	claims, err := jwt.ValidateToken(tokenString)
	if err != nil {
		return Actor{}, err
	}

	var actor Actor
	err = s.ws.View(func(st *model.PosState) error {
		u := st.User(model.ID(claims.UserID))
		if u == nil {
			return ErrUserNotFound
		}
		actor = Actor{ID: u.ID, Username: u.Username, Role: u.Role}
		return nil
	})
	return actor, err
}

func (s *authService) ChangePassword(ctx context.Context, actor Actor, req *ChangePasswordRequest) error {
	if err := validate(req); err != nil {
		return err
	}
	return s.ws.Mutate(ctx, func(st *model.PosState) error {
		u, err := actorUser(st, actor)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		if !u.CheckPassword(req.OldPassword) {
			return ErrWrongPassword
		}
		return u.SetPassword(req.NewPassword)
	})
}

// ResetAdminPassword sets the admin account's password, recreating the
// account if it is missing.
func (s *authService) ResetAdminPassword(ctx context.Context, password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		admin := st.Admin()
		if admin == nil {
			st.Users = append(st.Users, model.User{
				ID:       model.NewID(),
				Username: model.DefaultAdminUsername,
				Role:     model.RoleAdmin,
			})
			admin = &st.Users[len(st.Users)-1]
		}
		return admin.SetPassword(password)
	})
	if err != nil {
		return err
	}
	s.log.Info("Admin password reset")
	return nil
}
