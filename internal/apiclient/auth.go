package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
)

type Auth struct {
	c *Client
}

func (c *Client) Auth() *Auth {
	return &Auth{c: c}
}

// Login uses the OAuth2 password form the server expects: the email goes in
// the "username" field.
func (a *Auth) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := a.c.newRequest(ctx, http.MethodPost, "/auth/login", "", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var pair domain.TokenPair
	if err := a.c.call(ctx, "login", req, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("login: response carried no access token")
	}
	return &pair, nil
}

// Refresh exchanges a refresh token for a new access token. The answer has
// no refresh token of its own.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	req, err := a.c.newRequest(ctx, http.MethodPost, "/auth/refresh?token="+url.QueryEscape(refreshToken), "", nil)
	if err != nil {
		return nil, err
	}

	var pair domain.TokenPair
	if err := a.c.call(ctx, "refresh", req, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("refresh: response carried no access token")
	}
	return &pair, nil
}

func (a *Auth) Signup(ctx context.Context, cmd *domain.SignupCommand) (*domain.Account, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encoding signup: %w", err)
	}
	req, err := a.c.newRequest(ctx, http.MethodPost, "/auth/signup", "", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var acct domain.Account
	if err := a.c.call(ctx, "signup", req, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}
