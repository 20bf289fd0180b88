package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const apiKeysPath = "/user/api-keys"

// Credential is a stored provider API key. The raw secret never comes back
// from the auth service, only its masked form.
type Credential struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	MaskedKey string    `json:"masked_key"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Client) ListCredentials(ctx context.Context) ([]*Credential, error) {
	var raw map[string]any
	if err := c.getJSON(ctx, c.authEndpoint(apiKeysPath), &raw); err != nil {
		return nil, err
	}

	var keys []*Credential
	if raw["api_keys"] == nil {
		return keys, nil
	}

	if err := decodeField(raw, "api_keys", false, &keys); err != nil {
		return nil, err
	}

	return keys, nil
}

func (c *Client) CreateCredential(ctx context.Context, provider, secret string) (*Credential, error) {
	provider = strings.TrimSpace(provider)
	secret = strings.TrimSpace(secret)
	if provider == "" || secret == "" {
		return nil, errors.New("provider and api key are required")
	}

	payload := map[string]string{
		"provider": provider,
		"api_key":  secret,
	}

	var raw map[string]any
	if err := c.sendJSON(ctx, http.MethodPost, c.authEndpoint(apiKeysPath), payload, &raw); err != nil {
		return nil, fmt.Errorf("create %s api key: %w", provider, err)
	}

	var key Credential
	if err := decodeField(raw, "api_key", true, &key); err != nil {
		return nil, err
	}

	return &key, nil
}

func (c *Client) DeleteCredential(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("api key id is required")
	}

	err := c.sendJSON(ctx, http.MethodDelete, c.authEndpoint(apiKeysPath+"/"+url.PathEscape(id)), nil, nil)
	if err != nil {
		return fmt.Errorf("delete api key %s: %w", id, err)
	}

	return nil
}
