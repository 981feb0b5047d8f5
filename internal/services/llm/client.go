package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultBaseURL     = "https://api.deepseek.com"
	defaultModel       = "deepseek-reasoner"
	defaultHTTPTimeout = 180 * time.Second
)

// Role names a chat participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation sent to the model.
type Message struct {
	Role    Role
	Content string
}

// Request is a single completion call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Usage reports token accounting returned by the API.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a successful completion.
type Response struct {
	ID           string
	Model        string
	Content      string
	FinishReason string
	Usage        Usage
}

// Config captures the runtime settings required to talk to the API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// DefaultHTTPTimeout returns the default timeout used for requests.
func DefaultHTTPTimeout() time.Duration {
	return defaultHTTPTimeout
}

// Client wraps the chat completions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	api        *openai.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}

	apiCfg := openai.DefaultConfig(client.cfg.APIKey)
	apiCfg.BaseURL = client.cfg.BaseURL
	apiCfg.HTTPClient = client.httpClient
	client.api = openai.NewClientWithConfig(apiCfg)
	return client
}

// Model returns the configured default model.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete performs one chat completion. Errors are always *Error.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	const op = "llm complete"
	if err := c.validate(req); err != nil {
		return Response{}, &Error{Class: ClassPermanent, Op: op, Err: err}
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.cfg.Model
	}

	payload := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
	for _, msg := range req.Messages {
		payload.Messages = append(payload.Messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, payload)
	if err != nil {
		return Response{}, wrap(op, err)
	}

	out := Response{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, choice := range resp.Choices {
		if out.FinishReason == "" {
			out.FinishReason = string(choice.FinishReason)
		}
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			out.Content = content
			break
		}
	}
	if out.Content == "" {
		return out, &Error{
			Class: ClassTransient,
			Op:    op,
			Err:   &emptyContentError{FinishReason: out.FinishReason, Choices: len(resp.Choices)},
		}
	}
	return out, nil
}

func (c *Client) validate(req Request) error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("%w: api key required", ErrInvalidRequest)
	}
	return ValidateMessages(req.Messages)
}

// ValidateMessages checks the structural rules every request must satisfy:
// at least one message, known roles, and a final message that is not from
// the assistant.
func ValidateMessages(messages []Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: no messages", ErrInvalidRequest)
	}
	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidRequest, i, msg.Role)
		}
	}
	if messages[len(messages)-1].Role == RoleAssistant {
		return fmt.Errorf("%w: final message must not be from the assistant", ErrInvalidRequest)
	}
	return nil
}
