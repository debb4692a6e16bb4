// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package api

import (
	"context"
	"net/http"
	"strconv"
)

// AppToken authorises an external application to call the API on the
// user's behalf. The server generates the token value on creation; the
// name is unique per account.
type AppToken struct {
	ID    int    `json:"id,omitempty"`
	Name  string `json:"name"`
	Token string `json:"token,omitempty"`
}

// ListAppTokens returns the account's authorised app tokens, ordered by
// name server-side. The list is not paginated.
func (c *Client) ListAppTokens(ctx context.Context) ([]AppToken, error) {
	var out []AppToken
	err := c.do(ctx, http.MethodGet, "/auth/tokens", nil, &out, authenticated, asValidationErr, asTransportErr)
	return out, err
}

// GetAppToken reads a single app token.
func (c *Client) GetAppToken(ctx context.Context, id int) (AppToken, error) {
	var out AppToken
	err := c.do(ctx, http.MethodGet, "/auth/tokens/"+strconv.Itoa(id), nil, &out, authenticated, asValidationErr, asTransportErr)
	return out, err
}

// CreateAppToken registers a named app token. The response carries the
// generated token value.
func (c *Client) CreateAppToken(ctx context.Context, name string) (AppToken, error) {
	body := struct {
		Name string `json:"name"`
	}{Name: name}
	var out AppToken
	err := c.do(ctx, http.MethodPost, "/auth/tokens/", body, &out, authenticated, asValidationErr, asTransportErr)
	return out, err
}

// DeleteAppToken revokes an app token.
func (c *Client) DeleteAppToken(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/auth/tokens/"+strconv.Itoa(id), nil, nil, authenticated, asValidationErr, asTransportErr)
}
