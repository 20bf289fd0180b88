package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	optimizePath = "/optimize/"
	feedbackPath = "/optimize/feedback"
)

type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

type Session struct {
	ID                 string        `json:"id"`
	UserID             string        `json:"user_id,omitempty"`
	ResumeID           string        `json:"resume_id"`
	JobDescriptionURL  string        `json:"job_description_url,omitempty"`
	JobDescriptionText string        `json:"job_description_text,omitempty"`
	AIModel            string        `json:"ai_model"`
	KeepOnePage        bool          `json:"keep_one_page"`
	OptimizedContent   string        `json:"optimized_content,omitempty"`
	Status             SessionStatus `json:"status"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// OptimizeRequest is the body of POST /optimize/. Exactly one of the job
// description fields must be set.
type OptimizeRequest struct {
	ResumeID           string `json:"resumeId" validate:"required"`
	JobDescriptionURL  string `json:"jobDescriptionUrl,omitempty" validate:"excluded_with=JobDescriptionText,omitempty,url"`
	JobDescriptionText string `json:"jobDescriptionText,omitempty" validate:"required_without=JobDescriptionURL"`
	AIModel            string `json:"aiModel" validate:"required"`
	KeepOnePage        bool   `json:"keepOnePage"`
	// CredentialID is the id of a stored API key, not the secret itself.
	CredentialID string `json:"userApiKey" validate:"required"`
}

var validate = validator.New()

// Validate checks the request before it is sent. The returned error is a
// validator.ValidationErrors when any field rule fails.
func (r *OptimizeRequest) Validate() error {
	return validate.Struct(r)
}

type OptimizationResult struct {
	Session *Session `json:"session"`
	Summary string   `json:"summary,omitempty"`
	Changes []string `json:"changes,omitempty"`
}

type FeedbackItem struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	SectionHighlight string    `json:"section_highlight"`
	UserComment      string    `json:"user_comment"`
	IsProcessed      bool      `json:"is_processed"`
	CreatedAt        time.Time `json:"created_at"`
}

// FeedbackPair is the wire form of a feedback item inside an apply request.
type FeedbackPair struct {
	SectionHighlight string `json:"section_highlight"`
	UserComment      string `json:"user_comment"`
}

func (c *Client) Optimize(ctx context.Context, req *OptimizeRequest) (*OptimizationResult, error) {
	if req == nil {
		return nil, errors.New("optimize request is required")
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid optimize request: %w", err)
	}

	var raw map[string]any
	if err := c.sendJSON(ctx, http.MethodPost, c.resumeEndpoint(optimizePath), req, &raw); err != nil {
		return nil, err
	}

	result := &OptimizationResult{Session: &Session{}}
	if err := decodeField(raw, "session", true, result.Session); err != nil {
		return nil, err
	}

	if _, ok := raw["session"]; ok {
		if err := decode(raw["summary"], &result.Summary); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		if err := decode(raw["changes"], &result.Changes); err != nil {
			return nil, fmt.Errorf("decode changes: %w", err)
		}
	}

	return result, nil
}

func (c *Client) ApplyFeedback(ctx context.Context, sessionID string, items []FeedbackPair) (*Session, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}

	if len(items) == 0 {
		return nil, errors.New("feedback batch must not be empty")
	}

	payload := struct {
		SessionID string         `json:"sessionId"`
		Feedback  []FeedbackPair `json:"feedback"`
	}{
		SessionID: sessionID,
		Feedback:  items,
	}

	var raw map[string]any
	if err := c.sendJSON(ctx, http.MethodPost, c.resumeEndpoint(feedbackPath), payload, &raw); err != nil {
		return nil, err
	}

	var session Session
	if err := decodeField(raw, "session", true, &session); err != nil {
		return nil, err
	}

	return &session, nil
}
