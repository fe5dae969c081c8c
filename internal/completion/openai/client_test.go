package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"resume-processor/internal/completion"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
		APIKey:  "test-key",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientValidatesOptions(t *testing.T) {
	if _, err := NewClient(Options{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing model")
	}
	if _, err := NewClient(Options{Model: "m"}); err == nil {
		t.Fatal("expected error for missing credentials")
	}
	if _, err := NewClient(Options{Model: "m", OAuthTokenURL: "https://login.example.com/token"}); err != nil {
		t.Fatalf("oauth-only options rejected: %v", err)
	}
}

func TestCompleteReturnsContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Tools) != 0 {
			t.Errorf("tools = %v, want none", req.Tools)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "  redacted text  "}}]}`))
	})

	resp, err := client.Complete(context.Background(), completion.Request{User: "redact this"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "redacted text" {
		t.Fatalf("content = %q", resp.Content)
	}
}

func TestCompleteForcesFunctionCallForSchema(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != "extract_resume" {
			t.Errorf("tools = %+v", req.Tools)
		}
		if req.ToolChoice == nil || req.ToolChoice.Function.Name != "extract_resume" {
			t.Errorf("tool choice = %+v", req.ToolChoice)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"tool_calls": [{"function": {"name": "extract_resume", "arguments": "{\"skills\": [\"go\"]}"}}]}}]}`))
	})

	resp, err := client.Complete(context.Background(), completion.Request{
		User:   "resume text",
		Schema: &completion.Schema{Name: "extract_resume", Parameters: json.RawMessage(`{"type": "object"}`)},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	var parsed struct {
		Skills []string `json:"skills"`
	}
	if err := json.Unmarshal(resp.Arguments, &parsed); err != nil {
		t.Fatalf("arguments: %v", err)
	}
	if len(parsed.Skills) != 1 || parsed.Skills[0] != "go" {
		t.Fatalf("skills = %v", parsed.Skills)
	}
}

func TestCompleteClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		kind   completion.Kind
	}{
		{http.StatusUnauthorized, completion.KindAuthFailed},
		{http.StatusForbidden, completion.KindAuthFailed},
		{http.StatusTooManyRequests, completion.KindRateLimited},
		{http.StatusInternalServerError, completion.KindUnavailable},
		{http.StatusBadGateway, completion.KindUnavailable},
		{http.StatusBadRequest, completion.KindInvalidResponse},
	}
	for _, tc := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"error": {"message": "nope"}}`))
		})

		_, err := client.Complete(context.Background(), completion.Request{User: "hi"})
		var cerr *completion.Error
		if !errors.As(err, &cerr) {
			t.Fatalf("status %d: err = %v", tc.status, err)
		}
		if cerr.Kind != tc.kind {
			t.Fatalf("status %d: kind = %s, want %s", tc.status, cerr.Kind, tc.kind)
		}
	}
}

func TestCompleteRejectsMissingFunctionCall(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"content": "prose instead of a call"}}]}`))
	})

	_, err := client.Complete(context.Background(), completion.Request{
		User:   "x",
		Schema: &completion.Schema{Name: "extract_resume", Parameters: json.RawMessage(`{}`)},
	})
	var cerr *completion.Error
	if !errors.As(err, &cerr) || cerr.Kind != completion.KindInvalidResponse {
		t.Fatalf("err = %v, want invalid response", err)
	}
}

func TestCompleteRejectsInvalidArgumentsJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"tool_calls": [{"function": {"name": "f", "arguments": "{not json"}}]}}]}`))
	})

	_, err := client.Complete(context.Background(), completion.Request{
		User:   "x",
		Schema: &completion.Schema{Name: "f", Parameters: json.RawMessage(`{}`)},
	})
	var cerr *completion.Error
	if !errors.As(err, &cerr) || cerr.Kind != completion.KindInvalidResponse {
		t.Fatalf("err = %v, want invalid response", err)
	}
}
