package pipeline

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"resume-processor/internal/completion"
	"resume-processor/internal/resumes"
)

// Redaction markers, one per PII class.
const (
	MarkerName    = "[NAME]"
	MarkerEmail   = "[EMAIL]"
	MarkerPhone   = "[PHONE]"
	MarkerAddress = "[ADDRESS]"
	MarkerDOB     = "[DOB]"
)

const piiRemoverSystemPrompt = `Remove all PII from the text:
- Names -> [NAME]
- Emails -> [EMAIL]
- Phone numbers -> [PHONE]
- Addresses -> [ADDRESS]
- Dates of birth -> [DOB]
- Replace gendered pronouns with neutral ones

Preserve professional content.`

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	// Nine digits or more, at most two separator characters between
	// digits. Dates and employment year spans stay below the floor.
	phonePattern = regexp.MustCompile(`\+?\d(?:[\s().\-]{0,2}\d){8,14}`)
	spacePattern = regexp.MustCompile(`\s*\n+\s*`)
)

// PIIRemover wraps the completion client with the fixed redaction prompt
// and applies a deterministic scrub afterwards, so every identifier known
// from extraction is guaranteed gone even when the model misses one. Both
// passes leave markers untouched, which makes the stage idempotent.
type PIIRemover struct {
	Client completion.Client
}

// Redact replaces personal identifiers in the summary with the fixed markers.
func (p *PIIRemover) Redact(ctx context.Context, summary string, data resumes.ExtractedData) (string, error) {
	if strings.TrimSpace(summary) == "" {
		return "", errors.New("summary is empty")
	}

	resp, err := p.Client.Complete(ctx, completion.Request{
		System:      piiRemoverSystemPrompt,
		User:        summary,
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", errors.New("redacted text is empty")
	}

	return Scrub(resp.Content, data), nil
}

// Scrub is the deterministic redaction pass: pattern-based email/phone
// removal plus replacement of every identity value carried by the
// extracted record. Scrub(Scrub(t, d), d) == Scrub(t, d).
func Scrub(text string, data resumes.ExtractedData) string {
	out := emailPattern.ReplaceAllString(text, MarkerEmail)

	// Known values go before the phone pass: short local formats sit
	// below the pattern's digit floor and would otherwise leak.
	out = replaceKnown(out, MarkerDOB, data.PersonalInformation.DateOfBirth)
	if addr := data.ContactInformation.Address; addr != nil {
		out = replaceKnown(out, MarkerAddress, addr.Street, addr.City, addr.State, addr.Zip)
	}
	out = replaceKnown(out, MarkerName,
		data.PersonalInformation.FirstName,
		data.PersonalInformation.MiddleName,
		data.PersonalInformation.LastName,
	)
	out = replaceKnown(out, MarkerPhone, data.ContactInformation.Phone)

	out = phonePattern.ReplaceAllString(out, MarkerPhone)
	out = spacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

func replaceKnown(text, marker string, values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" || IsSentinel(trimmed) {
			continue
		}
		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(trimmed) + `\b`)
		if err != nil {
			continue
		}
		text = pattern.ReplaceAllString(text, marker)
	}
	return text
}

var _ RedactStage = (*PIIRemover)(nil)
