// Package api is a typed client for the gophfeed REST API. Sign-in calls go
// out directly; everything that needs a session goes through the gateway.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/client/gateway"
	"github.com/dmitrijs2005/gophfeed/internal/client/tokens"
	"github.com/dmitrijs2005/gophfeed/internal/common"
)

type AuthResponse struct {
	Message      string      `json:"message"`
	User         tokens.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int       `json:"likes"`
}

// PostInput is sent on create and update. Nil fields are omitted.
type PostInput struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Author  *string `json:"author,omitempty"`
}

type Client struct {
	baseURL string
	public  gateway.Doer
	gw      *gateway.Gateway
}

func New(baseURL string, public gateway.Doer, gw *gateway.Gateway) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), public: public, gw: gw}
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	in := map[string]string{"name": name, "email": email, "password": password}
	if err := c.call(ctx, false, http.MethodPost, "/user/register", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	in := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, false, http.MethodPost, "/user/login", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes refreshToken on the server.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.call(ctx, false, http.MethodPost, "/user/logout", map[string]string{"refreshToken": refreshToken}, nil)
}

// LogoutAll revokes every session of the caller and returns how many there were.
func (c *Client) LogoutAll(ctx context.Context) (int, error) {
	var out struct {
		Revoked int `json:"revoked"`
	}
	if err := c.call(ctx, true, http.MethodPost, "/user/logout-all", nil, &out); err != nil {
		return 0, err
	}
	return out.Revoked, nil
}

func (c *Client) Me(ctx context.Context) (*tokens.User, error) {
	var out struct {
		User tokens.User `json:"user"`
	}
	if err := c.call(ctx, true, http.MethodGet, "/user/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	var out []Post
	if err := c.call(ctx, false, http.MethodGet, "/posts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPost(ctx context.Context, id int64) (*Post, error) {
	var out Post
	if err := c.call(ctx, false, http.MethodGet, fmt.Sprintf("/posts/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePost(ctx context.Context, in PostInput) (*Post, error) {
	var out Post
	if err := c.call(ctx, true, http.MethodPost, "/posts", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePost(ctx context.Context, id int64, in PostInput) (*Post, error) {
	var out Post
	if err := c.call(ctx, true, http.MethodPut, fmt.Sprintf("/posts/%d", id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.call(ctx, true, http.MethodDelete, fmt.Sprintf("/posts/%d", id), nil, nil)
}

func (c *Client) LikePost(ctx context.Context, id int64) (*Post, error) {
	var out Post
	if err := c.call(ctx, true, http.MethodPatch, fmt.Sprintf("/posts/%d/like", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call encodes in, sends the request and decodes a 2xx body into out.
// Non-2xx answers become *common.Error.
func (c *Client) call(ctx context.Context, protected bool, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var resp *http.Response
	if protected {
		resp, err = c.gw.Do(ctx, req)
	} else {
		resp, err = c.public.Do(req)
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return common.FromResponse(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
