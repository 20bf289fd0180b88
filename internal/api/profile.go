package api

import (
	"context"
	"net/http"
)

type Profile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	PictureURL string `json:"picture_url,omitempty"`
}

func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var raw map[string]any
	if err := c.getJSON(ctx, c.authEndpoint("/auth/profile"), &raw); err != nil {
		return nil, err
	}

	var profile Profile
	if err := decodeField(raw, "user", true, &profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.sendJSON(ctx, http.MethodPost, c.authEndpoint("/auth/logout"), nil, nil)
}
