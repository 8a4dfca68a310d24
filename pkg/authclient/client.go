package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthorized is returned for any 401 from the auth API.
var ErrUnauthorized = errors.New("authclient: unauthorized")

// Client lets other venue services call the auth API: rotate a refresh
// value, revoke it, or look up the principal behind an access token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(authServiceURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(authServiceURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*Session, error) {
	var out Session
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", "", refreshRequest{RefreshToken: refreshToken}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LogOut(ctx context.Context, accessToken, refreshToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", accessToken, refreshRequest{RefreshToken: refreshToken}, nil)
}

// Me returns the caller's profile; exactly one of the two results is non-nil.
func (c *Client) Me(ctx context.Context, accessToken string) (*User, *Company, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/auth/me", accessToken, nil, &raw); err != nil {
		return nil, nil, err
	}
	var shape struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, nil, fmt.Errorf("decode profile: %w", err)
	}
	if shape.Name != "" {
		var co Company
		if err := json.Unmarshal(raw, &co); err != nil {
			return nil, nil, fmt.Errorf("decode company: %w", err)
		}
		return nil, &co, nil
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode >= 300:
		var msg message
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, msg.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
