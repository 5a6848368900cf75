package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// captionPayload is the structured-output envelope for OpenAI completions.
// Constraining the response to a schema keeps the model from wrapping the
// caption in quotes, preamble, or markdown.
type captionPayload struct {
	Text string `json:"text" jsonschema_description:"The generated text, with no surrounding quotes or commentary"`
}

var captionSchema = GenerateSchema[captionPayload]()

type openAIClient struct {
	openai  openai.Client
	model   string
	enabled bool
}

// NewOpenAIClient creates a Client backed by the OpenAI chat completions API.
func NewOpenAIClient(cfg Config) Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &openAIClient{
		openai:  openai.NewClient(opts...),
		model:   model,
		enabled: cfg.APIKey != "",
	}
}

func (c *openAIClient) ID() string {
	return ProviderOpenAI
}

func (c *openAIClient) Model() string {
	return c.model
}

func (c *openAIClient) Available(_ context.Context) bool {
	return c.enabled
}

func (c *openAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if !c.enabled {
		return nil, fmt.Errorf("openai: API key not configured")
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 400
	}

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "caption_response",
		Description: openai.String("Structured response schema"),
		Schema:      captionSchema,
		Strict:      openai.Bool(true),
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(req.SystemPrompt),
		openai.UserMessage(req.UserPrompt),
	}

	params := openai.ChatCompletionNewParams{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: openai.Int(int64(maxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if len(req.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{
			OfStringArray: req.Stop,
		}
	}

	start := time.Now()
	resp, err := c.openai.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	slog.DebugContext(ctx, "llm completion finished",
		"provider", ProviderOpenAI,
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat: no choices in response")
	}

	var payload captionPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return nil, fmt.Errorf("openai chat: unmarshal response: %w", err)
	}

	return &Response{
		Text:             payload.Text,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}, nil
}
