package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeChatCreator struct {
	mu    sync.Mutex
	calls []chatCallRecord
	queue map[string][]fakeChatResponse
}

type chatCallRecord struct {
	model  string
	config *genai.GenerateContentConfig
	chat   *fakeChat
}

type fakeChatResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeChat struct {
	mu       sync.Mutex
	response fakeChatResponse
	messages []string
}

func (f *fakeChat) SendMessage(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, part := range parts {
		f.messages = append(f.messages, part.Text)
	}
	return f.response.resp, f.response.err
}

func newFakeChatCreator() *fakeChatCreator {
	return &fakeChatCreator{queue: make(map[string][]fakeChatResponse)}
}

func (f *fakeChatCreator) enqueue(model string, resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[model] = append(f.queue[model], fakeChatResponse{resp: resp, err: err})
}

func (f *fakeChatCreator) Create(_ context.Context, model string, config *genai.GenerateContentConfig, _ []*genai.Content) (chatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	responses := f.queue[model]
	if len(responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := responses[0]
	f.queue[model] = responses[1:]
	chat := &fakeChat{response: res}
	f.calls = append(f.calls, chatCallRecord{model: model, config: config, chat: chat})
	return chat, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func noWait(t *testing.T) *[]time.Duration {
	t.Helper()

	var waited []time.Duration
	original := wait
	wait = func(_ context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}
	t.Cleanup(func() { wait = original })

	return &waited
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	waited := noWait(t)

	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	chats.enqueue("gemini-2.5-pro", nil, tempErr)
	chats.enqueue("gemini-2.5-pro", textResponse("retry ok"), nil)

	g := &Generator{
		chats:      chats,
		model:      "gemini-2.5-flash",
		maxRetries: 2,
		logger:     zap.NewNop(),
	}

	output, err := g.Generate(context.Background(), "gemini-2.5-pro", "system", "message")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}

	if len(*waited) != 1 || (*waited)[0] != baseRetryDelay {
		t.Fatalf("expected one backoff of %v, got %v", baseRetryDelay, *waited)
	}

	for _, call := range chats.calls {
		if call.config == nil || call.config.SystemInstruction == nil {
			t.Fatalf("expected system instruction to be set")
		}
		if got := call.config.SystemInstruction.Parts[0].Text; got != "system" {
			t.Fatalf("unexpected system instruction: %q", got)
		}
		if len(call.chat.messages) != 1 || call.chat.messages[0] != "message" {
			t.Fatalf("unexpected chat message: %+v", call.chat.messages)
		}
	}
}

func TestGeneratorUsesDefaultModel(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-2.5-flash", textResponse("  first  "), nil)

	g := &Generator{chats: chats, model: "gemini-2.5-flash", maxRetries: 1, logger: zap.NewNop()}

	output, err := g.GenerateContent(context.Background(), "", "message")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "first" {
		t.Fatalf("unexpected output: %q", output)
	}
	if chats.calls[0].config != nil {
		t.Fatalf("expected no config without a system instruction")
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	noWait(t)

	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	chats.enqueue("gemini-2.5-pro", nil, tempErr)
	chats.enqueue("gemini-2.5-pro", nil, tempErr)

	g := &Generator{chats: chats, model: "gemini-2.5-pro", maxRetries: 2, logger: zap.NewNop()}

	_, err := g.GenerateContent(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected api error to be kept, got %v", err)
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	noWait(t)

	chats := newFakeChatCreator()
	quotaErr := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	}
	chats.enqueue("gemini-2.5-pro", nil, quotaErr)

	g := &Generator{chats: chats, model: "gemini-2.5-pro", maxRetries: 3, logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error when quota delay too long")
	}

	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func TestGeneratorWaitsShortQuotaDelay(t *testing.T) {
	waited := noWait(t)

	chats := newFakeChatCreator()
	quotaErr := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Message: "rate limited, please retry in 2.5s",
	}
	chats.enqueue("gemini-2.5-pro", nil, quotaErr)
	chats.enqueue("gemini-2.5-pro", textResponse("ok"), nil)

	g := &Generator{chats: chats, model: "gemini-2.5-pro", maxRetries: 3, logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(*waited) != 1 || (*waited)[0] != 2500*time.Millisecond {
		t.Fatalf("expected to wait 2.5s, got %v", *waited)
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	noWait(t)

	chats := newFakeChatCreator()
	chats.enqueue("gemini-2.5-pro", nil, genai.APIError{Code: http.StatusBadRequest, Message: "API key not valid"})

	g := &Generator{chats: chats, model: "gemini-2.5-pro", maxRetries: 3, logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error")
	}
	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func TestGeneratorRejectsEmptyResponse(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-2.5-pro", &genai.GenerateContentResponse{}, nil)

	g := &Generator{chats: chats, model: "gemini-2.5-pro", maxRetries: 1, logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error for empty response")
	}

	if _, err := g.GenerateContent(context.Background(), "sys", "   "); err == nil {
		t.Fatal("expected error for empty message")
	}
}
