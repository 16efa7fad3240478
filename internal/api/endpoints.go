package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/me/journal/internal/config"
	"github.com/me/journal/pkg/model"
)

// ErrNoToken is returned by authorized operations when no token is held.
// The request is not sent.
var ErrNoToken = errors.New("not signed in")

// authorized runs an operation that requires a bearer token.
func (c *Client) authorized(ctx context.Context, method, name string, params map[string]string, body, out any) error {
	if c.token() == "" {
		return ErrNoToken
	}
	path, err := c.path(name, params)
	if err != nil {
		return err
	}
	return c.Do(ctx, method, path, body, out)
}

// public runs an operation that must go out without credentials.
func (c *Client) public(ctx context.Context, method, name string, body, out any) error {
	path, err := c.path(name, nil)
	if err != nil {
		return err
	}
	return c.WithToken(nil).Do(ctx, method, path, body, out)
}

// Login exchanges credentials for a token and role.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	if err := c.public(ctx, http.MethodPost, config.PathLogin, creds, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.New("login response carried no token")
	}
	return &resp, nil
}

// Signup registers a new account. The backend may answer with an object,
// a bare string, or nothing.
func (c *Client) Signup(ctx context.Context, s model.Signup) (*model.MessageResponse, error) {
	var raw []byte
	if err := c.public(ctx, http.MethodPost, config.PathSignup, s, &raw); err != nil {
		return nil, err
	}
	resp := &model.MessageResponse{}
	body := bytes.TrimSpace(raw)
	if len(body) == 0 {
		return resp, nil
	}
	if json.Unmarshal(body, resp) == nil {
		return resp, nil
	}
	var msg string
	if json.Unmarshal(body, &msg) == nil {
		resp.Message = msg
		return resp, nil
	}
	if body[0] != '<' {
		resp.Message = string(body)
	}
	return resp, nil
}

// ListJournals fetches the caller's entries.
func (c *Client) ListJournals(ctx context.Context) ([]model.Journal, error) {
	var out []model.Journal
	if err := c.authorized(ctx, http.MethodGet, config.PathJournals, nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Journal{}
	}
	return out, nil
}

// CreateJournal creates an entry and returns it as stored by the backend.
func (c *Client) CreateJournal(ctx context.Context, in model.JournalInput) (*model.Journal, error) {
	var out model.Journal
	if err := c.authorized(ctx, http.MethodPost, config.PathJournals, nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateJournal replaces the title and content of entry id.
func (c *Client) UpdateJournal(ctx context.Context, id string, in model.JournalInput) (*model.Journal, error) {
	var out model.Journal
	if err := c.authorized(ctx, http.MethodPut, config.PathJournal, map[string]string{"id": id}, in, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		out.ID = id
	}
	return &out, nil
}

// DeleteJournal removes entry id.
func (c *Client) DeleteJournal(ctx context.Context, id string) error {
	return c.authorized(ctx, http.MethodDelete, config.PathJournal, map[string]string{"id": id}, nil, nil)
}

// UpdateProfile submits the whole profile.
func (c *Client) UpdateProfile(ctx context.Context, p model.Profile) error {
	return c.authorized(ctx, http.MethodPut, config.PathUser, nil, p, nil)
}

// DeleteProfile deletes the caller's account.
func (c *Client) DeleteProfile(ctx context.Context) error {
	return c.authorized(ctx, http.MethodDelete, config.PathUser, nil, nil, nil)
}

// ListUsers fetches every user with embedded journal entries (admin only).
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	if err := c.authorized(ctx, http.MethodGet, config.PathAdminUsers, nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.User{}
	}
	return out, nil
}

// PromoteUser grants the admin role to userID.
func (c *Client) PromoteUser(ctx context.Context, userID string) error {
	return c.authorized(ctx, http.MethodPost, config.PathAdminPromote, map[string]string{"userId": userID}, struct{}{}, nil)
}

// DeleteUser deletes userID and their entries.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.authorized(ctx, http.MethodDelete, config.PathAdminDeleteUser, map[string]string{"userId": userID}, nil, nil)
}
