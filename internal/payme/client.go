package payme

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/luqea/luqea-wallet/internal/config"
)

const tokenScope = "create:token post:charges get:charges delete:charges"

// AuthClient talks to the payment authority: one call for an access token,
// one for a single-use nonce. The two calls are strictly sequential and no
// client-side deadline is imposed; cancellation comes from ctx alone.
type AuthClient struct {
	http   *http.Client
	cfg    config.Payme
	logger *slog.Logger
}

func NewAuthClient(cfg config.Payme, logger *slog.Logger) *AuthClient {
	return &AuthClient{
		http:   &http.Client{},
		cfg:    cfg,
		logger: logger,
	}
}

type tokenRequest struct {
	Action       string `json:"action"`
	GrantType    string `json:"grant_type"`
	Audience     string `json:"audience"`
	ClientId     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Scope        string `json:"scope"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type nonceRequest struct {
	Action   string `json:"action"`
	Audience string `json:"audience"`
	ClientId string `json:"client_id"`
	Scope    string `json:"scope"`
}

type nonceResponse struct {
	Nonce string `json:"nonce"`
}

func (c *AuthClient) FetchToken(ctx context.Context) (string, error) {
	const op = "payme.FetchToken"

	if c.cfg.ClientId == "" || c.cfg.ClientSecret == "" {
		return "", fmt.Errorf("%s: %w: client credentials not set", op, ErrConfigurationMissing)
	}

	var res tokenResponse
	err := c.postJson(ctx, c.cfg.AuthUrl+"/token", "", tokenRequest{
		Action:       "authorize",
		GrantType:    "client_credentials",
		Audience:     c.cfg.Audience,
		ClientId:     c.cfg.ClientId,
		ClientSecret: c.cfg.ClientSecret,
		Scope:        tokenScope,
	}, &res)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if res.AccessToken == "" {
		return "", fmt.Errorf("%s: %w: access_token missing", op, ErrMalformedResponse)
	}
	return res.AccessToken, nil
}

// FetchNonce acquires a fresh single-use nonce. Nonces are never reused
// across attempts; every retry fetches a new one.
func (c *AuthClient) FetchNonce(ctx context.Context, accessToken string) (string, error) {
	const op = "payme.FetchNonce"

	var res nonceResponse
	err := c.postJson(ctx, c.cfg.AuthUrl+"/nonce", accessToken, nonceRequest{
		Action:   "create.nonce",
		Audience: c.cfg.Audience,
		ClientId: c.cfg.ClientId,
		Scope:    "post:charges",
	}, &res)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if res.Nonce == "" {
		return "", fmt.Errorf("%s: %w: nonce missing", op, ErrMalformedResponse)
	}
	return res.Nonce, nil
}

func (c *AuthClient) postJson(ctx context.Context, url, bearer string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("ALG-API-VERSION", c.cfg.ApiVersion)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned %d", ErrNetworkFailure, url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
