package gemini

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-optimizer/internal/ai"
	"github.com/spigell/resume-optimizer/internal/api"
	"github.com/spigell/resume-optimizer/internal/credentials"
	"github.com/spigell/resume-optimizer/internal/logger"
	"github.com/spigell/resume-optimizer/internal/utils"
)

//go:embed prompts/system.md
var systemPrompt string

//go:embed prompts/optimize.md
var optimizeTemplate string

//go:embed prompts/feedback.md
var feedbackTemplate string

const (
	defaultMaxLogLength = 200
	onePageRequirement  = "\n- IMPORTANT: Keep the resume to exactly ONE PAGE. Be selective and concise."
)

var _ ai.Assistant = (*Optimizer)(nil)

type contentGenerator interface {
	Generate(ctx context.Context, model, system, message string) (string, error)
}

// ResumeSource returns a resume with its extracted text.
type ResumeSource interface {
	GetResume(ctx context.Context, id string) (*api.Resume, error)
}

// JobFetcher turns a job posting URL into plain text.
type JobFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type session struct {
	api.Session
	jobDescription string
}

// Optimizer runs optimization and feedback rounds directly against Gemini.
// Sessions live in memory for the lifetime of the process.
type Optimizer struct {
	generator contentGenerator
	resumes   ResumeSource
	jobs      JobFetcher
	logger    *zap.Logger
	maxLogLen int
	// model overrides the requested model when set.
	model string

	mu       sync.Mutex
	sessions map[string]*session

	newID func() string
	now   func() time.Time
}

func NewOptimizer(generator contentGenerator, resumes ResumeSource, jobs JobFetcher, log *zap.Logger, model string, maxLogLength int) *Optimizer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Optimizer{
		generator: generator,
		resumes:   resumes,
		jobs:      jobs,
		logger:    logger.WithFields(log),
		maxLogLen: maxLogLength,
		model:     strings.TrimSpace(model),
		sessions:  make(map[string]*session),
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

func (o *Optimizer) Optimize(ctx context.Context, req *api.OptimizeRequest) (*api.OptimizationResult, error) {
	if req == nil {
		return nil, errors.New("optimize request is required")
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid optimize request: %w", err)
	}

	model, err := o.resolveModel(req.AIModel)
	if err != nil {
		return nil, err
	}

	resume, err := o.resumes.GetResume(ctx, req.ResumeID)
	if err != nil {
		return nil, fmt.Errorf("get resume %s: %w", req.ResumeID, err)
	}

	resumeText := strings.TrimSpace(resume.ExtractedText)
	if resumeText == "" {
		return nil, fmt.Errorf("resume %s has no extracted text", req.ResumeID)
	}

	jobDescription := strings.TrimSpace(req.JobDescriptionText)
	if jobDescription == "" {
		if o.jobs == nil {
			return nil, errors.New("job description url given but no fetcher configured")
		}
		jobDescription, err = o.jobs.Fetch(ctx, req.JobDescriptionURL)
		if err != nil {
			return nil, fmt.Errorf("fetch job description: %w", err)
		}
	}

	prompt := fill(optimizeTemplate, map[string]string{
		"RESUME":          resumeText,
		"JOB_DESCRIPTION": jobDescription,
		"PAGE_LIMIT":      pageLimit(req.KeepOnePage),
	})

	parsed, err := o.generate(ctx, model, prompt, zap.String(logger.FieldResume, req.ResumeID))
	if err != nil {
		return nil, err
	}

	now := o.now()
	s := &session{
		Session: api.Session{
			ID:                 o.newID(),
			UserID:             resume.UserID,
			ResumeID:           req.ResumeID,
			JobDescriptionURL:  req.JobDescriptionURL,
			JobDescriptionText: req.JobDescriptionText,
			AIModel:            req.AIModel,
			KeepOnePage:        req.KeepOnePage,
			OptimizedContent:   parsed.Content,
			Status:             api.SessionCompleted,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		jobDescription: jobDescription,
	}

	o.mu.Lock()
	o.sessions[s.ID] = s
	o.mu.Unlock()

	o.logger.Info("resume optimized",
		zap.String(logger.FieldSession, s.ID),
		zap.String(logger.FieldModel, model),
		zap.Int("changes", len(parsed.Changes)),
	)

	out := s.Session
	return &api.OptimizationResult{
		Session: &out,
		Summary: parsed.Summary,
		Changes: parsed.Changes,
	}, nil
}

func (o *Optimizer) ApplyFeedback(ctx context.Context, sessionID string, items []api.FeedbackPair) (*api.Session, error) {
	if len(items) == 0 {
		return nil, errors.New("feedback batch must not be empty")
	}

	o.mu.Lock()
	s, ok := o.sessions[sessionID]
	var current session
	if ok {
		current = *s
	}
	o.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}

	model, err := o.resolveModel(current.AIModel)
	if err != nil {
		return nil, err
	}

	prompt := fill(feedbackTemplate, map[string]string{
		"CONTENT":         current.OptimizedContent,
		"JOB_DESCRIPTION": current.jobDescription,
		"FEEDBACK":        formatFeedback(items),
		"PAGE_LIMIT":      pageLimit(current.KeepOnePage),
	})

	parsed, err := o.generate(ctx, model, prompt, zap.String(logger.FieldSession, sessionID), zap.Int("feedback_items", len(items)))
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok = o.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	s.OptimizedContent = parsed.Content
	s.UpdatedAt = o.now()

	o.logger.Info("feedback applied", zap.String(logger.FieldSession, sessionID), zap.Int("feedback_items", len(items)))

	updated := s.Session
	return &updated, nil
}

// resolveModel maps the requested model onto the Gemini model to call. Only
// Google models can be served locally.
func (o *Optimizer) resolveModel(requested string) (string, error) {
	provider, ok := credentials.ProviderFor(credentials.Model(requested))
	if !ok {
		return "", fmt.Errorf("unknown model %q", requested)
	}
	if provider != credentials.Google {
		return "", fmt.Errorf("model %q needs provider %s, the local backend only serves %s models", requested, provider, credentials.Google)
	}

	if o.model != "" {
		return o.model, nil
	}
	return requested, nil
}

func (o *Optimizer) generate(ctx context.Context, model, prompt string, fields ...zap.Field) (*reply, error) {
	o.logger.Debug("gemini generate content request", append(fields,
		zap.String(logger.FieldModel, model),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, o.maxLogLen)),
	)...)

	raw, err := o.generator.Generate(ctx, model, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("gemini generate content response", append(fields,
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, o.maxLogLen)),
	)...)

	parsed, err := parseReply(raw)
	if err != nil {
		return nil, fmt.Errorf("parse gemini reply: %w", err)
	}

	return parsed, nil
}

func fill(template string, values map[string]string) string {
	for key, value := range values {
		template = strings.ReplaceAll(template, "{{"+key+"}}", value)
	}
	return strings.TrimSpace(template)
}

func pageLimit(keepOnePage bool) string {
	if keepOnePage {
		return onePageRequirement
	}
	return ""
}

func formatFeedback(items []api.FeedbackPair) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". Passage: \"")
		b.WriteString(item.SectionHighlight)
		b.WriteString("\"\n   Change: ")
		b.WriteString(item.UserComment)
	}
	return b.String()
}
