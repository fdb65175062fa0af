// Package api is the client for the chat service's companion REST
// surface: identity lookup, unread-count bootstrap and the active-player
// roster.
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotAuthenticated is returned when the service rejects the token.
var ErrNotAuthenticated = errors.New("api: not authenticated")

// Player is one roster entry from the players endpoint.
type Player struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	Status      string `json:"status,omitempty"`
	Level       int    `json:"level,omitempty"`
	IsConnected bool   `json:"is_connected"`
}

// Client wraps the REST endpoints.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second),
	}
}

// WhoAmI resolves the token to the local player id.
func (c *Client) WhoAmI(ctx context.Context, token string) (string, error) {
	var out struct {
		OK       bool   `json:"ok"`
		PlayerID string `json:"player_id"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("token", token).
		SetResult(&out).
		Get("/whoami")
	if err != nil {
		return "", fmt.Errorf("api: whoami: %w", err)
	}
	if resp.IsError() || !out.OK {
		return "", ErrNotAuthenticated
	}
	return out.PlayerID, nil
}

// UnreadSummary returns the per-peer unread counts for the token's owner.
func (c *Client) UnreadSummary(ctx context.Context, token string) (map[string]int, error) {
	var out struct {
		OK     bool           `json:"ok"`
		Counts map[string]int `json:"counts"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("token", token).
		SetResult(&out).
		Get("/unread-summary")
	if err != nil {
		return nil, fmt.Errorf("api: unread summary: %w", err)
	}
	if resp.IsError() || !out.OK {
		return nil, ErrNotAuthenticated
	}
	if out.Counts == nil {
		out.Counts = map[string]int{}
	}
	return out.Counts, nil
}

// ActivePlayers returns the current roster.
func (c *Client) ActivePlayers(ctx context.Context) ([]Player, error) {
	var out []Player
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/players")
	if err != nil {
		return nil, fmt.Errorf("api: players: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("api: players: status %d", resp.StatusCode())
	}
	return out, nil
}
