package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"resume-processor/internal/completion"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Options configures the client. Either APIKey or the OAuth fields must
// be set; when both are present the API key wins.
type Options struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration

	OAuthTokenURL     string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthScope        string
}

// Client implements completion.Client using an OpenAI-compatible
// chat-completions endpoint.
type Client struct {
	baseURL     string
	model       string
	apiKey      string
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
}

// NewClient constructs a new chat-completions client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("COMPLETION_MODEL is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	c := &Client{
		baseURL: baseURL,
		model:   opts.Model,
		apiKey:  strings.TrimSpace(opts.APIKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	if c.apiKey == "" {
		if strings.TrimSpace(opts.OAuthTokenURL) == "" {
			return nil, fmt.Errorf("COMPLETION_API_KEY or COMPLETION_OAUTH_TOKEN_URL is required")
		}
		cc := clientcredentials.Config{
			ClientID:     opts.OAuthClientID,
			ClientSecret: opts.OAuthClientSecret,
			TokenURL:     opts.OAuthTokenURL,
		}
		if scope := strings.TrimSpace(opts.OAuthScope); scope != "" {
			cc.Scopes = []string{scope}
		}
		c.tokenSource = cc.TokenSource(context.Background())
	}

	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatTool struct {
	Type     string            `json:"type"`
	Function completion.Schema `json:"function"`
}

type chatToolChoice struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

type chatRequest struct {
	Model       string          `json:"model"`
	Messages    []chatMessage   `json:"messages"`
	Temperature *float32        `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Tools       []chatTool      `json:"tools,omitempty"`
	ToolChoice  *chatToolChoice `json:"tool_choice,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role      string `json:"role"`
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends one chat-completion request. When the request carries a
// schema, the provider is forced to answer with a function call and the
// arguments are returned; otherwise the message content is returned.
func (c *Client) Complete(ctx context.Context, req completion.Request) (completion.Response, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	temp := req.Temperature
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: &temp,
		MaxTokens:   req.MaxTokens,
	}
	if req.Schema != nil {
		reqBody.Tools = []chatTool{{Type: "function", Function: *req.Schema}}
		choice := &chatToolChoice{Type: "function"}
		choice.Function.Name = req.Schema.Name
		reqBody.ToolChoice = choice
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return completion.Response{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return completion.Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if err := c.authorize(httpReq); err != nil {
		return completion.Response{}, completion.NewError(completion.KindAuthFailed, err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return completion.Response{}, completion.NewError(completion.KindUnavailable, fmt.Errorf("request timeout: %w", err))
		}
		return completion.Response{}, completion.NewError(completion.KindUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion.Response{}, completion.NewError(completion.KindUnavailable, err)
	}

	if kindErr := classifyStatus(resp.StatusCode, body); kindErr != nil {
		return completion.Response{}, kindErr
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return completion.Response{}, completion.NewError(completion.KindInvalidResponse, fmt.Errorf("response parse: %w", err))
	}
	if parsed.Error != nil {
		return completion.Response{}, completion.NewError(completion.KindInvalidResponse, fmt.Errorf("provider error: %s (%s)", parsed.Error.Message, parsed.Error.Type))
	}
	if len(parsed.Choices) == 0 {
		return completion.Response{}, completion.NewError(completion.KindInvalidResponse, errors.New("response missing choices"))
	}
	logUsage(c.model, parsed.Usage)

	msg := parsed.Choices[0].Message
	if req.Schema != nil {
		if len(msg.ToolCalls) == 0 {
			return completion.Response{}, completion.NewError(completion.KindInvalidResponse, errors.New("response missing function call"))
		}
		args := strings.TrimSpace(msg.ToolCalls[0].Function.Arguments)
		if !json.Valid([]byte(args)) {
			return completion.Response{}, completion.NewError(completion.KindInvalidResponse, errors.New("function arguments are not valid JSON"))
		}
		return completion.Response{Arguments: json.RawMessage(args)}, nil
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return completion.Response{}, completion.NewError(completion.KindInvalidResponse, errors.New("response empty content"))
	}
	return completion.Response{Content: content}, nil
}

func (c *Client) authorize(req *http.Request) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return nil
	}
	token, err := c.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("oauth token: %w", err)
	}
	token.SetAuthHeader(req)
	return nil
}

func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return completion.NewError(completion.KindAuthFailed, fmt.Errorf("http status %d: %s", status, truncate(body)))
	case status == http.StatusTooManyRequests:
		return completion.NewError(completion.KindRateLimited, fmt.Errorf("http status %d: %s", status, truncate(body)))
	case status >= 500:
		return completion.NewError(completion.KindUnavailable, fmt.Errorf("http status %d: %s", status, truncate(body)))
	default:
		return completion.NewError(completion.KindInvalidResponse, fmt.Errorf("http status %d: %s", status, truncate(body)))
	}
}

func truncate(body []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}

func logUsage(model string, usage *struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}) {
	if usage == nil {
		log.Printf("completion response model=%s", model)
		return
	}
	log.Printf("completion response model=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

var _ completion.Client = (*Client)(nil)
