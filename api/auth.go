package api

import (
	"context"
	"net/http"

	"cinease/models"
)

func (c *Client) Register(ctx context.Context, creds models.Credentials) (models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", creds, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", models.Credentials{Email: email, Password: password}, &out)
	return out, err
}
