package inference

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nikishkaa/docx-bot/internal/config"
)

// Message is one turn of a chat exchange.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider generates a reply for a conversation.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Name() string
}

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint,
// including local model servers.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAIProvider builds a provider from the inference settings.
func NewOpenAIProvider(cfg config.InferenceConfig) (*OpenAIProvider, error) {
	if cfg.Endpoint == "" && cfg.APIKey == "" {
		return nil, fmt.Errorf("openai provider needs INFERENCE_ENDPOINT or INFERENCE_API_KEY")
	}
	opts := []option.RequestOption{
		option.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
		option.WithMaxRetries(0),
	}
	// Local servers accept any key, but the client insists on one.
	key := cfg.APIKey
	if key == "" {
		key = "local"
	}
	opts = append(opts, option.WithAPIKey(key))
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	return &OpenAIProvider{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (o *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
	}
	if o.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.maxTokens))
	}
	for _, m := range messages {
		switch strings.ToLower(m.Role) {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}

// EchoProvider answers with the last user message. Used when no model is configured.
type EchoProvider struct{}

func (EchoProvider) Chat(_ context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	return "[echo] " + strings.TrimSpace(messages[len(messages)-1].Content), nil
}

func (EchoProvider) Name() string {
	return "echo"
}
