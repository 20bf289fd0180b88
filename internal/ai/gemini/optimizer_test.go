package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-optimizer/internal/api"
)

type stubGenerator struct {
	responses []string
	err       error

	models  []string
	system  string
	prompts []string
}

func (s *stubGenerator) Generate(_ context.Context, model, system, message string) (string, error) {
	s.models = append(s.models, model)
	s.system = system
	s.prompts = append(s.prompts, message)
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", errors.New("unexpected call")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

type stubResumes map[string]*api.Resume

func (s stubResumes) GetResume(_ context.Context, id string) (*api.Resume, error) {
	r, ok := s[id]
	if !ok {
		return nil, &api.Error{StatusCode: 404, Message: "Resume not found"}
	}
	return r, nil
}

type stubJobs struct {
	text string
	urls []string
}

func (s *stubJobs) Fetch(_ context.Context, url string) (string, error) {
	s.urls = append(s.urls, url)
	return s.text, nil
}

func newTestOptimizer(gen *stubGenerator, jobs *stubJobs) *Optimizer {
	resumes := stubResumes{
		"R1": {ID: "R1", UserID: "U1", ExtractedText: "Jane Doe. Led team of 5. Python, Go."},
		"R2": {ID: "R2"},
	}

	var fetcher JobFetcher
	if jobs != nil {
		fetcher = jobs
	}

	o := NewOptimizer(gen, resumes, fetcher, zap.NewNop(), "", 0)
	o.newID = func() string { return "S1" }
	o.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return o
}

func TestOptimizerOptimize(t *testing.T) {
	gen := &stubGenerator{responses: []string{`{"optimized_content": "Jane Doe. Led a team of 5 Go engineers.", "summary": "Go focus", "changes": ["Emphasized Go"]}`}}
	o := newTestOptimizer(gen, nil)

	result, err := o.Optimize(context.Background(), &api.OptimizeRequest{
		ResumeID:           "R1",
		JobDescriptionText: "Senior Go engineer, Kubernetes",
		AIModel:            "gemini-2.5-pro",
		KeepOnePage:        true,
		CredentialID:       "K1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := result.Session
	if s.ID != "S1" || s.Status != api.SessionCompleted || s.ResumeID != "R1" || s.UserID != "U1" {
		t.Fatalf("unexpected session: %+v", s)
	}
	if s.OptimizedContent != "Jane Doe. Led a team of 5 Go engineers." {
		t.Fatalf("unexpected content: %q", s.OptimizedContent)
	}
	if result.Summary != "Go focus" || len(result.Changes) != 1 {
		t.Fatalf("unexpected summary/changes: %q %v", result.Summary, result.Changes)
	}

	if gen.models[0] != "gemini-2.5-pro" {
		t.Fatalf("expected requested model to be used, got %q", gen.models[0])
	}
	if !strings.Contains(gen.system, "JSON") {
		t.Fatalf("expected system prompt to describe the reply format")
	}

	prompt := gen.prompts[0]
	for _, want := range []string{"Led team of 5", "Senior Go engineer, Kubernetes", "ONE PAGE"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "{{") {
		t.Fatalf("expected all placeholders to be filled:\n%s", prompt)
	}
}

func TestOptimizerFetchesJobDescriptionURL(t *testing.T) {
	gen := &stubGenerator{responses: []string{"Plain text resume"}}
	jobs := &stubJobs{text: "Scraped posting: Go developer"}
	o := newTestOptimizer(gen, jobs)

	result, err := o.Optimize(context.Background(), &api.OptimizeRequest{
		ResumeID:          "R1",
		JobDescriptionURL: "https://example.com/jobs/1",
		AIModel:           "gemini-2.5-flash",
		CredentialID:      "K1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(jobs.urls) != 1 || jobs.urls[0] != "https://example.com/jobs/1" {
		t.Fatalf("expected url to be fetched, got %v", jobs.urls)
	}
	if !strings.Contains(gen.prompts[0], "Scraped posting") {
		t.Fatalf("expected fetched text in prompt")
	}
	if strings.Contains(gen.prompts[0], "ONE PAGE") {
		t.Fatalf("expected no page limit")
	}
	if result.Session.OptimizedContent != "Plain text resume" || result.Summary != fallbackSummary {
		t.Fatalf("expected fallback parsing, got %+v %q", result.Session, result.Summary)
	}
}

func TestOptimizerRejectsRequests(t *testing.T) {
	tests := []struct {
		name    string
		req     *api.OptimizeRequest
		wantErr string
	}{
		{
			name:    "non google model",
			req:     &api.OptimizeRequest{ResumeID: "R1", JobDescriptionText: "jd", AIModel: "gpt-4", CredentialID: "K1"},
			wantErr: "only serves google models",
		},
		{
			name:    "unknown model",
			req:     &api.OptimizeRequest{ResumeID: "R1", JobDescriptionText: "jd", AIModel: "gemini-9", CredentialID: "K1"},
			wantErr: "unknown model",
		},
		{
			name:    "resume without text",
			req:     &api.OptimizeRequest{ResumeID: "R2", JobDescriptionText: "jd", AIModel: "gemini-2.5-pro", CredentialID: "K1"},
			wantErr: "no extracted text",
		},
		{
			name:    "missing resume",
			req:     &api.OptimizeRequest{ResumeID: "R404", JobDescriptionText: "jd", AIModel: "gemini-2.5-pro", CredentialID: "K1"},
			wantErr: "Resume not found",
		},
		{
			name:    "invalid request",
			req:     &api.OptimizeRequest{ResumeID: "R1", AIModel: "gemini-2.5-pro", CredentialID: "K1"},
			wantErr: "invalid optimize request",
		},
		{
			name:    "url without fetcher",
			req:     &api.OptimizeRequest{ResumeID: "R1", JobDescriptionURL: "https://example.com/j", AIModel: "gemini-2.5-pro", CredentialID: "K1"},
			wantErr: "no fetcher configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{}
			o := newTestOptimizer(gen, nil)

			_, err := o.Optimize(context.Background(), tt.req)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if len(gen.prompts) != 0 {
				t.Fatalf("expected no generation call")
			}
		})
	}
}

func TestOptimizerApplyFeedback(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		`{"optimized_content": "Led team of 5 engineers. Python, Go."}`,
		`{"optimized_content": "Led a team of 5 engineers for 3 years. Python (6 years), Go."}`,
	}}
	o := newTestOptimizer(gen, nil)

	result, err := o.Optimize(context.Background(), &api.OptimizeRequest{
		ResumeID:           "R1",
		JobDescriptionText: "Go developer",
		AIModel:            "gemini-2.5-pro",
		CredentialID:       "K1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	updated, err := o.ApplyFeedback(context.Background(), result.Session.ID, []api.FeedbackPair{
		{SectionHighlight: "Led team", UserComment: "clarify scope"},
		{SectionHighlight: "Python", UserComment: "add years of experience"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.OptimizedContent != "Led a team of 5 engineers for 3 years. Python (6 years), Go." {
		t.Fatalf("unexpected content: %q", updated.OptimizedContent)
	}
	if updated.UpdatedAt.Month() != time.June || updated.CreatedAt.Month() != time.May {
		t.Fatalf("unexpected timestamps: %v %v", updated.CreatedAt, updated.UpdatedAt)
	}

	prompt := gen.prompts[1]
	first := strings.Index(prompt, `1. Passage: "Led team"`)
	second := strings.Index(prompt, `2. Passage: "Python"`)
	if first == -1 || second == -1 || first > second {
		t.Fatalf("expected feedback in order:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Led team of 5 engineers. Python, Go.") || !strings.Contains(prompt, "Go developer") {
		t.Fatalf("expected current content and job description in prompt:\n%s", prompt)
	}

	if _, err := o.ApplyFeedback(context.Background(), "missing", []api.FeedbackPair{{SectionHighlight: "a", UserComment: "b"}}); err == nil {
		t.Fatalf("expected error for unknown session")
	}
	if _, err := o.ApplyFeedback(context.Background(), result.Session.ID, nil); err == nil {
		t.Fatalf("expected error for empty batch")
	}
}

func TestOptimizerKeepsContentOnGenerationError(t *testing.T) {
	gen := &stubGenerator{responses: []string{`{"optimized_content": "v1"}`}}
	o := newTestOptimizer(gen, nil)

	result, err := o.Optimize(context.Background(), &api.OptimizeRequest{
		ResumeID: "R1", JobDescriptionText: "jd", AIModel: "gemini-2.5-flash", CredentialID: "K1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gen.err = errors.New("boom")
	if _, err := o.ApplyFeedback(context.Background(), result.Session.ID, []api.FeedbackPair{{SectionHighlight: "v1", UserComment: "x"}}); err == nil {
		t.Fatalf("expected error")
	}

	if got := o.sessions[result.Session.ID].OptimizedContent; got != "v1" {
		t.Fatalf("expected content to be kept, got %q", got)
	}
}

func TestOptimizerModelOverride(t *testing.T) {
	gen := &stubGenerator{responses: []string{`{"optimized_content": "x"}`}}
	o := newTestOptimizer(gen, nil)
	o.model = "gemini-2.0-flash-exp"

	_, err := o.Optimize(context.Background(), &api.OptimizeRequest{
		ResumeID: "R1", JobDescriptionText: "jd", AIModel: "gemini-2.5-pro", CredentialID: "K1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.models[0] != "gemini-2.0-flash-exp" {
		t.Fatalf("expected override model, got %q", gen.models[0])
	}
}
