package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"resume-processor/internal/completion"
)

func TestSummarizeTruncatesToWordLimit(t *testing.T) {
	longSummary := strings.TrimSpace(strings.Repeat("word ", 40))
	client := &staticCompletion{resp: completion.Response{
		Arguments: []byte(fmt.Sprintf(`{"summary": %q, "aiGeneratedRoles": ["Engineer"]}`, longSummary)),
	}}
	summarizer := &Summarizer{Client: client, MaxWords: 25}

	got, err := summarizer.Summarize(context.Background(), extractedFixture())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if n := len(strings.Fields(got.Text)); n != 25 {
		t.Fatalf("word count = %d, want 25", n)
	}
	if !strings.Contains(client.lastReq.User, "Maximum 25 words") {
		t.Fatalf("prompt missing word limit: %q", client.lastReq.User)
	}
}

func TestSummarizeCapsSuggestedRoles(t *testing.T) {
	roles := make([]string, 0, 14)
	for i := 0; i < 14; i++ {
		roles = append(roles, fmt.Sprintf(`"Role %d"`, i))
	}
	client := &staticCompletion{resp: completion.Response{
		Arguments: []byte(`{"summary": "short summary", "aiGeneratedRoles": [` + strings.Join(roles, ",") + `]}`),
	}}
	summarizer := &Summarizer{Client: client}

	got, err := summarizer.Summarize(context.Background(), extractedFixture())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(got.AIGeneratedRoles) != MaxSuggestedRoles {
		t.Fatalf("roles = %d, want %d", len(got.AIGeneratedRoles), MaxSuggestedRoles)
	}
}

func TestSummarizeRejectsEmptySummary(t *testing.T) {
	client := &staticCompletion{resp: completion.Response{
		Arguments: []byte(`{"summary": "  ", "aiGeneratedRoles": []}`),
	}}
	summarizer := &Summarizer{Client: client}

	if _, err := summarizer.Summarize(context.Background(), extractedFixture()); err == nil {
		t.Fatal("expected error for empty summary")
	}
}

func TestNormalizeKeywords(t *testing.T) {
	got := NormalizeKeywords([]string{" Go ", "SQL", "go", "", "N/A", "Kubernetes"})
	want := []string{"go", "kubernetes", "sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("keywords = %v, want %v", got, want)
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("one two three", 5); got != "one two three" {
		t.Fatalf("got %q", got)
	}
	if got := TruncateWords("one two three four", 2); got != "one two" {
		t.Fatalf("got %q", got)
	}
	if got := TruncateWords("  padded   text  ", 0); got != "padded   text" {
		t.Fatalf("got %q", got)
	}
}
