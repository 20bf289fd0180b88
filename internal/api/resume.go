package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const resumesPath = "/resumes"

type Resume struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id,omitempty"`
	Title         string    `json:"title"`
	FileType      string    `json:"file_type"`
	FileSize      *int64    `json:"file_size,omitempty"`
	ExtractedText string    `json:"extracted_text,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (c *Client) ListResumes(ctx context.Context) ([]*Resume, error) {
	var raw map[string]any
	if err := c.getJSON(ctx, c.resumeEndpoint(resumesPath+"/"), &raw); err != nil {
		return nil, err
	}

	var resumes []*Resume
	if raw["resumes"] == nil {
		return resumes, nil
	}

	if err := decodeField(raw, "resumes", false, &resumes); err != nil {
		return nil, err
	}

	return resumes, nil
}

func (c *Client) GetResume(ctx context.Context, id string) (*Resume, error) {
	if id == "" {
		return nil, errors.New("resume id is required")
	}

	var raw map[string]any
	if err := c.getJSON(ctx, c.resumeEndpoint(resumesPath+"/"+url.PathEscape(id)), &raw); err != nil {
		return nil, err
	}

	var resume Resume
	if err := decodeField(raw, "resume", true, &resume); err != nil {
		return nil, err
	}

	return &resume, nil
}

func (c *Client) DeleteResume(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("resume id is required")
	}

	err := c.sendJSON(ctx, http.MethodDelete, c.resumeEndpoint(resumesPath+"/"+url.PathEscape(id)), nil, nil)
	if err != nil {
		return fmt.Errorf("delete resume %s: %w", id, err)
	}

	return nil
}
