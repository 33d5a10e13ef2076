// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// credentials is the body of the login and register endpoints.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Login exchanges credentials for a session token. On success the token and
// user id are stored on the client and sent with subsequent requests.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	result, err := c.postCredentials(ctx, "/login", username, password)
	if err != nil {
		return nil, err
	}
	if result.Success && result.Token != "" {
		c.SetAuth(result.Token, result.UserID)
	}
	return result, nil
}

// Register creates a new account. Registration does not log in; call Login
// afterwards to obtain a session token.
func (c *Client) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	return c.postCredentials(ctx, "/register", username, password)
}

func (c *Client) postCredentials(ctx context.Context, path, username, password string) (*AuthResult, error) {
	if username == "" || password == "" {
		return nil, &APIError{
			Status:  http.StatusBadRequest,
			Message: "username and password must not be empty",
		}
	}

	body, err := json.Marshal(credentials{Username: username, Password: password})
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("failed to marshal credentials: %v", err)}
	}

	var result AuthResult
	if err := c.doJSON(ctx, &request{
		method: http.MethodPost,
		path:   path,
		body:   body,
	}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
