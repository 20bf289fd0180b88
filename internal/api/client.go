package api

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultAuthURL   = "http://localhost:8080/api/v1"
	DefaultResumeURL = "http://localhost:8081/api/v1"
	userAgent        = "spigell/resume-optimizer"
	defaultTimeout   = 30 * time.Second
)

// Client talks to the auth service (profile, API keys) and the resume
// processor service (resumes, optimization, feedback) on behalf of one user.
type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	AuthURL    string
	ResumeURL  string
}

func New(logger *zap.Logger, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:     strings.TrimSpace(token),
		AuthURL:   DefaultAuthURL,
		ResumeURL: DefaultResumeURL,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

func (c *Client) authEndpoint(path string) string {
	return strings.TrimRight(c.AuthURL, "/") + path
}

func (c *Client) resumeEndpoint(path string) string {
	return strings.TrimRight(c.ResumeURL, "/") + path
}
