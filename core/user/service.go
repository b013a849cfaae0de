package user

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/aicanvas/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
	ErrInvalidRole = errors.New("invalid role")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nu NewUser, exec ...core.DBExecutor) (User, error) {
	nu.Clean()
	if !IsValidRole(nu.Role) {
		return User{}, ErrInvalidRole
	}
	usr := User{
		Email:     nu.Email,
		Role:      nu.Role,
		Name:      null.NewString(nu.Name, nu.Name != ""),
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateUser(ctx, usr, exec...)
}

func (svc *Service) GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id}, exec...)
}

func (svc *Service) GetByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)}, exec...)
}

// GetOrCreate finds the User with the given email, creating it with `role` when absent.
// An empty role never creates: ErrNotFound is returned instead.
func (svc *Service) GetOrCreate(ctx context.Context, email, role string, exec ...core.DBExecutor) (usr User, created bool, err error) {
	usr, err = svc.GetByEmail(ctx, email, exec...)
	if err == nil {
		return usr, false, nil
	}
	if !errors.Is(err, ErrNotFound) || role == "" {
		return User{}, false, err
	}
	usr, err = svc.Create(ctx, NewUser{Email: email, Role: role}, exec...)
	if err != nil {
		return User{}, false, err
	}
	return usr, true, nil
}

// SetName updates the display name of a User.
func (svc *Service) SetName(ctx context.Context, usr User, name string, exec ...core.DBExecutor) (User, error) {
	name = core.CleanString(name)
	usr.Name = null.NewString(name, name != "")
	return svc.repo.UpdateUser(ctx, usr, exec...)
}
