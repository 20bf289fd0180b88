package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/resume-optimizer/internal/api"
)

// Backend names where optimization rounds run.
type Backend string

const (
	// Remote sends rounds to the resume processor service.
	Remote Backend = "remote"
	// Gemini runs rounds locally against the Gemini API.
	Gemini Backend = "gemini"
)

// Assistant rewrites resumes for a job description and revises them from
// reviewer feedback.
type Assistant interface {
	Optimize(ctx context.Context, req *api.OptimizeRequest) (*api.OptimizationResult, error)
	ApplyFeedback(ctx context.Context, sessionID string, items []api.FeedbackPair) (*api.Session, error)
}

// ParseBackend accepts a backend name in any case. Empty means Remote.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return Remote, nil
	case Remote, Gemini:
		return b, nil
	default:
		return "", fmt.Errorf("unsupported ai backend: %s", s)
	}
}
