package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const testToken = "test-token"

type fakeBackend struct {
	mu           sync.Mutex
	optimizeBody map[string]any
	feedbackBody struct {
		SessionID string         `json:"sessionId"`
		Feedback  []FeedbackPair `json:"feedback"`
	}
	uploadedName string
	uploadedData string
	deleted      []string
}

func newTestServer(t *testing.T, backend *fakeBackend) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer "+testToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}
		c.Next()
	})

	v1 := r.Group("/api/v1")
	v1.GET("/user/api-keys", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"api_keys": []gin.H{
			{"id": "K1", "provider": "anthropic", "masked_key": "sk-ant-***1234", "created_at": "2024-03-01T10:00:00Z"},
			{"id": "K2", "provider": "openai", "masked_key": "sk-***9876", "created_at": "2024-03-02T10:00:00.123456Z"},
		}})
	})
	v1.POST("/user/api-keys", func(c *gin.Context) {
		var body struct {
			Provider string `json:"provider"`
			APIKey   string `json:"api_key"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.Provider == "cohere" {
			c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "Invalid provider"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"api_key": gin.H{"id": "K3", "provider": body.Provider, "masked_key": "sk-***0000"}})
	})
	v1.DELETE("/user/api-keys/:id", func(c *gin.Context) {
		backend.mu.Lock()
		backend.deleted = append(backend.deleted, c.Param("id"))
		backend.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"message": "API key deleted"})
	})
	v1.GET("/resumes/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"resumes": []gin.H{
			{"id": "R1", "title": "Backend", "file_type": ".pdf", "file_size": 2048, "is_active": true, "extracted_text": "Led team", "created_at": "2024-01-01T00:00:00Z"},
			{"id": "R2", "title": "Frontend", "file_type": ".docx", "file_size": nil, "is_active": false, "created_at": "2024-01-02T00:00:00Z"},
		}})
	})
	v1.GET("/resumes/:id", func(c *gin.Context) {
		if c.Param("id") != "R1" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Resume not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"resume": gin.H{"id": "R1", "title": "Backend", "extracted_text": "Led team"}})
	})
	v1.POST("/resumes/upload", func(c *gin.Context) {
		header, err := c.FormFile(uploadField)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Bad request: " + err.Error()})
			return
		}
		f, _ := header.Open()
		data, _ := io.ReadAll(f)
		backend.mu.Lock()
		backend.uploadedName = header.Filename
		backend.uploadedData = string(data)
		backend.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"id": "R9", "title": header.Filename, "file_type": ".txt"})
	})
	v1.POST("/optimize/", func(c *gin.Context) {
		var body map[string]any
		_ = c.ShouldBindJSON(&body)
		backend.mu.Lock()
		backend.optimizeBody = body
		backend.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{
			"session": gin.H{
				"id": "S1", "resume_id": body["resumeId"], "ai_model": body["aiModel"],
				"optimized_content": "Led team of 5", "status": "completed",
				"job_description_url": nil,
			},
			"summary": "Tailored",
			"changes": []string{"Added metrics"},
		})
	})
	v1.POST("/optimize/feedback", func(c *gin.Context) {
		backend.mu.Lock()
		_ = c.ShouldBindJSON(&backend.feedbackBody)
		backend.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"session": gin.H{"id": "S1", "optimized_content": "Led team of 5 engineers", "status": "completed"}})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client := New(zap.NewNop(), testToken)
	client.AuthURL = srv.URL + "/api/v1"
	client.ResumeURL = srv.URL + "/api/v1/"
	return client
}

func TestListResumes(t *testing.T) {
	client := newTestServer(t, &fakeBackend{})

	resumes, err := client.ListResumes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resumes) != 2 {
		t.Fatalf("expected 2 resumes, got %d", len(resumes))
	}

	first := resumes[0]
	if first.ID != "R1" || first.Title != "Backend" || !first.IsActive {
		t.Fatalf("unexpected first resume: %+v", first)
	}
	if first.FileSize == nil || *first.FileSize != 2048 {
		t.Fatalf("expected file size 2048, got %v", first.FileSize)
	}
	if first.CreatedAt.Year() != 2024 {
		t.Fatalf("expected created_at to be decoded, got %v", first.CreatedAt)
	}
	if resumes[1].FileSize != nil {
		t.Fatalf("expected nil file size for second resume")
	}
}

func TestGetResumeNotFound(t *testing.T) {
	client := newTestServer(t, &fakeBackend{})

	_, err := client.GetResume(context.Background(), "missing")
	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404 error, got %v", err)
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Message != "Resume not found" {
		t.Fatalf("expected backend message, got %v", err)
	}
}

func TestUnauthorized(t *testing.T) {
	client := newTestServer(t, &fakeBackend{})
	client.token = "wrong"

	_, err := client.ListCredentials(context.Background())
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestCredentials(t *testing.T) {
	backend := &fakeBackend{}
	client := newTestServer(t, backend)
	ctx := context.Background()

	keys, err := client.ListCredentials(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0].ID != "K1" || keys[0].Provider != "anthropic" {
		t.Fatalf("unexpected keys: %+v", keys)
	}
	if keys[1].CreatedAt.IsZero() {
		t.Fatalf("expected fractional timestamp to be decoded")
	}

	created, err := client.CreateCredential(ctx, "openai", "sk-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "K3" || created.MaskedKey != "sk-***0000" {
		t.Fatalf("unexpected created key: %+v", created)
	}

	_, err = client.CreateCredential(ctx, "cohere", "short")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected api error, got %v", err)
	}
	if apiErr.Code != "VALIDATION_ERROR" || apiErr.Message != "Invalid provider" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}

	if err := client.DeleteCredential(ctx, "K1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(backend.deleted) != 1 || backend.deleted[0] != "K1" {
		t.Fatalf("expected K1 to be deleted, got %v", backend.deleted)
	}
}

func TestOptimize(t *testing.T) {
	backend := &fakeBackend{}
	client := newTestServer(t, backend)

	result, err := client.Optimize(context.Background(), &OptimizeRequest{
		ResumeID:           "R1",
		JobDescriptionText: "Go developer",
		AIModel:            "claude-3-opus",
		KeepOnePage:        true,
		CredentialID:       "K1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Session.ID != "S1" || result.Session.Status != SessionCompleted {
		t.Fatalf("unexpected session: %+v", result.Session)
	}
	if result.Session.OptimizedContent != "Led team of 5" {
		t.Fatalf("unexpected content: %q", result.Session.OptimizedContent)
	}
	if result.Summary != "Tailored" || len(result.Changes) != 1 {
		t.Fatalf("unexpected summary/changes: %q %v", result.Summary, result.Changes)
	}

	body := backend.optimizeBody
	if body["userApiKey"] != "K1" || body["resumeId"] != "R1" || body["keepOnePage"] != true {
		t.Fatalf("unexpected request body: %v", body)
	}
	if _, ok := body["jobDescriptionUrl"]; ok {
		t.Fatalf("expected empty url to be omitted, got %v", body)
	}
}

func TestOptimizeRequestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		req   OptimizeRequest
		field string
		tag   string
	}{
		{
			name:  "missing resume",
			req:   OptimizeRequest{JobDescriptionText: "jd", AIModel: "gpt-4", CredentialID: "K"},
			field: "ResumeID",
			tag:   "required",
		},
		{
			name:  "missing job description",
			req:   OptimizeRequest{ResumeID: "R", AIModel: "gpt-4", CredentialID: "K"},
			field: "JobDescriptionText",
			tag:   "required_without",
		},
		{
			name:  "both job description fields",
			req:   OptimizeRequest{ResumeID: "R", JobDescriptionURL: "https://example.com/job", JobDescriptionText: "jd", AIModel: "gpt-4", CredentialID: "K"},
			field: "JobDescriptionURL",
			tag:   "excluded_with",
		},
		{
			name:  "invalid url",
			req:   OptimizeRequest{ResumeID: "R", JobDescriptionURL: "not a url", AIModel: "gpt-4", CredentialID: "K"},
			field: "JobDescriptionURL",
			tag:   "url",
		},
		{
			name:  "missing credential",
			req:   OptimizeRequest{ResumeID: "R", JobDescriptionURL: "https://example.com/job", AIModel: "gpt-4"},
			field: "CredentialID",
			tag:   "required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.req.Validate()
			var errs validator.ValidationErrors
			if !errors.As(err, &errs) {
				t.Fatalf("expected validation errors, got %v", err)
			}
			if len(errs) != 1 || errs[0].StructField() != tt.field || errs[0].Tag() != tt.tag {
				t.Fatalf("expected %s/%s, got %v", tt.field, tt.tag, errs)
			}
		})
	}

	ok := OptimizeRequest{ResumeID: "R", JobDescriptionURL: "https://example.com/job", AIModel: "gpt-4", CredentialID: "K"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestApplyFeedbackKeepsOrder(t *testing.T) {
	backend := &fakeBackend{}
	client := newTestServer(t, backend)

	items := []FeedbackPair{
		{SectionHighlight: "Led team", UserComment: "clarify scope"},
		{SectionHighlight: "Python", UserComment: "add years of experience"},
	}

	session, err := client.ApplyFeedback(context.Background(), "S1", items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.OptimizedContent != "Led team of 5 engineers" {
		t.Fatalf("unexpected content: %q", session.OptimizedContent)
	}

	got := backend.feedbackBody
	if got.SessionID != "S1" || len(got.Feedback) != 2 {
		t.Fatalf("unexpected body: %+v", got)
	}
	for i := range items {
		if got.Feedback[i] != items[i] {
			t.Fatalf("item %d: expected %+v, got %+v", i, items[i], got.Feedback[i])
		}
	}

	if _, err := client.ApplyFeedback(context.Background(), "S1", nil); err == nil {
		t.Fatalf("expected error for empty batch")
	}
}

func TestUploadResumeReportsProgress(t *testing.T) {
	backend := &fakeBackend{}
	client := newTestServer(t, backend)

	path := filepath.Join(t.TempDir(), "cv.txt")
	content := strings.Repeat("experience ", 10000)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	var reported []int
	resume, err := client.UploadResume(context.Background(), path, func(p int) {
		reported = append(reported, p)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resume.ID != "R9" || resume.Title != "cv.txt" {
		t.Fatalf("unexpected resume: %+v", resume)
	}
	if backend.uploadedName != "cv.txt" || backend.uploadedData != content {
		t.Fatalf("server got unexpected file %q (%d bytes)", backend.uploadedName, len(backend.uploadedData))
	}

	if len(reported) == 0 {
		t.Fatalf("expected progress to be reported")
	}
	for i := 1; i < len(reported); i++ {
		if reported[i] <= reported[i-1] {
			t.Fatalf("expected increasing progress, got %v", reported)
		}
	}
	if last := reported[len(reported)-1]; last != 99 {
		t.Fatalf("expected progress to stop at 99 before confirmation, got %d", last)
	}
}

func TestProfileAndLogout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	loggedOut := false
	r.GET("/auth/profile", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": "U1", "email": "jane@example.com", "name": "Jane"})
	})
	r.POST("/auth/logout", func(c *gin.Context) {
		loggedOut = true
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	client := New(nil, testToken)
	client.AuthURL = srv.URL

	profile, err := client.GetProfile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Email != "jane@example.com" || profile.Name != "Jane" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !loggedOut {
		t.Fatalf("expected logout endpoint to be called")
	}
}
