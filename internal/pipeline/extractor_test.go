package pipeline

import (
	"context"
	"errors"
	"testing"

	"resume-processor/internal/completion"
)

type staticCompletion struct {
	resp    completion.Response
	err     error
	lastReq completion.Request
}

func (s *staticCompletion) Complete(ctx context.Context, req completion.Request) (completion.Response, error) {
	s.lastReq = req
	return s.resp, s.err
}

func TestExtractNormalizesMissingFields(t *testing.T) {
	client := &staticCompletion{resp: completion.Response{Arguments: []byte(`{
		"personalInformation": {"firstName": "Jane", "lastName": ""},
		"contactInformation": {"email": "jane@example.com", "phone": "n/a"},
		"education": [{"institution": "State University", "degree": ""}],
		"workExperience": [],
		"skills": ["Go", "N/A", " SQL "]
	}`)}}
	extractor := &Extractor{Client: client}

	data, err := extractor.Extract(context.Background(), "Jane Doe resume text")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if data.PersonalInformation.LastName != FieldSentinel {
		t.Fatalf("last name = %q, want sentinel", data.PersonalInformation.LastName)
	}
	if data.ContactInformation.Phone != FieldSentinel {
		t.Fatalf("phone = %q, want sentinel", data.ContactInformation.Phone)
	}
	if data.Education[0].Degree != FieldSentinel {
		t.Fatalf("degree = %q, want sentinel", data.Education[0].Degree)
	}
	if len(data.Skills) != 2 || data.Skills[1] != "SQL" {
		t.Fatalf("skills = %v", data.Skills)
	}
	if client.lastReq.Schema == nil || client.lastReq.Schema.Name != "extract_resume" {
		t.Fatalf("schema = %+v", client.lastReq.Schema)
	}
}

func TestExtractRejectsAllSentinelIdentity(t *testing.T) {
	client := &staticCompletion{resp: completion.Response{Arguments: []byte(`{
		"personalInformation": {"firstName": "N/A", "lastName": "N/A"},
		"contactInformation": {"email": "", "phone": "N/A"},
		"education": [], "workExperience": [], "skills": []
	}`)}}
	extractor := &Extractor{Client: client}

	if _, err := extractor.Extract(context.Background(), "illegible scan"); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("err = %v, want ErrNoIdentity", err)
	}
}

func TestExtractRejectsEmptyText(t *testing.T) {
	extractor := &Extractor{Client: &staticCompletion{}}
	if _, err := extractor.Extract(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestExtractPropagatesCompletionError(t *testing.T) {
	wantErr := completion.NewError(completion.KindRateLimited, errors.New("429"))
	extractor := &Extractor{Client: &staticCompletion{err: wantErr}}

	_, err := extractor.Extract(context.Background(), "text")
	var cerr *completion.Error
	if !errors.As(err, &cerr) || cerr.Kind != completion.KindRateLimited {
		t.Fatalf("err = %v, want rate-limited completion error", err)
	}
}

func TestExtractRejectsMalformedArguments(t *testing.T) {
	client := &staticCompletion{resp: completion.Response{Arguments: []byte(`{"personalInformation": 3}`)}}
	extractor := &Extractor{Client: client}
	if _, err := extractor.Extract(context.Background(), "text"); err == nil {
		t.Fatal("expected error for malformed arguments")
	}
}
