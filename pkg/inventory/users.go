package inventory

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// UserService manages backend accounts under /users.
type UserService struct {
	service
}

func (u *UserService) GetByUsername(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}

	var out User
	if err := u.doJSON(ctx, http.MethodGet, "username/"+url.PathEscape(username), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *UserService) Get(ctx context.Context, id uint) (*User, error) {
	var out User
	if err := u.doJSON(ctx, http.MethodGet, idPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *UserService) List(ctx context.Context) (*ListUsersResponse, error) {
	var out ListUsersResponse
	if err := u.doJSON(ctx, http.MethodGet, "list", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *UserService) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	var out User
	if err := u.doJSON(ctx, http.MethodPost, "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *UserService) Update(ctx context.Context, id uint, req UpdateUserRequest) (*User, error) {
	var out User
	if err := u.doJSON(ctx, http.MethodPatch, idPath(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *UserService) Delete(ctx context.Context, id uint) error {
	return u.doJSON(ctx, http.MethodDelete, idPath(id), nil, nil)
}
