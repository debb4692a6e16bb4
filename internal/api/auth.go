// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package api

import (
	"context"
	"net/http"

	"github.com/repleo/bounca/internal/model"
)

// Credentials is the login request body. The server accepts a username, an
// email address, or both.
type Credentials struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// Registration is the signup request body.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

// PasswordResetConfirmation completes a password reset started by email.
type PasswordResetConfirmation struct {
	UID          string `json:"uid"`
	Token        string `json:"token"`
	NewPassword1 string `json:"new_password1"`
	NewPassword2 string `json:"new_password2"`
}

// PasswordChange updates the password of the logged-in user.
type PasswordChange struct {
	OldPassword  string `json:"old_password"`
	NewPassword1 string `json:"new_password1"`
	NewPassword2 string `json:"new_password2"`
}

// TokenResponse carries the bearer key the server issues on login,
// registration and (optionally) password change.
type TokenResponse struct {
	Key string `json:"key"`
}

// Account is the user profile exposed at /auth/user.
type Account struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func asAuthErr(fields model.FieldErrors) error {
	return &model.AuthenticationError{Fields: fields}
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/login/", creds, &out, anonymous, asAuthErr, asTransportErr)
	return out, err
}

// Logout invalidates the server-side token. Local cleanup is the session
// manager's job and happens regardless of this call's outcome.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout/", struct{}{}, nil, authenticated, asAuthErr, asTransportErr)
}

// Register creates an account. The server issues a token right away.
func (c *Client) Register(ctx context.Context, reg Registration) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/registration/", reg, &out, anonymous, asAuthErr, asTransportErr)
	return out, err
}

// PasswordReset requests a reset email for the given address.
func (c *Client) PasswordReset(ctx context.Context, email string) error {
	body := struct {
		Email string `json:"email"`
	}{Email: email}
	return c.do(ctx, http.MethodPost, "/auth/password/reset/", body, nil, anonymous, asAuthErr, asTransportErr)
}

// PasswordResetConfirm completes a reset with the emailed uid and token.
func (c *Client) PasswordResetConfirm(ctx context.Context, confirmation PasswordResetConfirmation) error {
	return c.do(ctx, http.MethodPost, "/auth/password/reset/confirm/", confirmation, nil, anonymous, asAuthErr, asTransportErr)
}

// ChangePassword updates the current user's password. Some server versions
// rotate the token on change; the returned key is empty when they do not.
func (c *Client) ChangePassword(ctx context.Context, change PasswordChange) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/password/change/", change, &out, authenticated, asAuthErr, asTransportErr)
	return out, err
}

// VerifyEmail confirms a registration with the emailed key.
func (c *Client) VerifyEmail(ctx context.Context, key string) error {
	body := struct {
		Key string `json:"key"`
	}{Key: key}
	return c.do(ctx, http.MethodPost, "/auth/registration/verify-email/", body, nil, anonymous, asAuthErr, asTransportErr)
}

// GetAccount reads the current user's profile.
func (c *Client) GetAccount(ctx context.Context) (Account, error) {
	var out Account
	err := c.do(ctx, http.MethodGet, "/auth/user/", nil, &out, authenticated, asAuthErr, asTransportErr)
	return out, err
}

// UpdateAccount patches the current user's profile.
func (c *Client) UpdateAccount(ctx context.Context, account Account) (Account, error) {
	var out Account
	err := c.do(ctx, http.MethodPatch, "/auth/user/", account, &out, authenticated, asAuthErr, asTransportErr)
	return out, err
}
