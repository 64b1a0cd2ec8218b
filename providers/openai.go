package providers

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// GeminiBaseURL is Google's OpenAI-compatible endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// OpenAI drafts descriptions through the chat completions API. The same
// client serves any OpenAI-compatible endpoint, Gemini included.
type OpenAI struct {
	client    openai.Client
	name      string
	model     string
	maxTokens int64
}

// NewOpenAI builds the provider for api.openai.com or cfg.BaseURL.
func NewOpenAI(cfg Config) *OpenAI {
	return newChatProvider("openai", cfg)
}

// NewGemini builds an OpenAI-compatible client pointed at Gemini.
func NewGemini(cfg Config) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiBaseURL
	}
	return newChatProvider("gemini", cfg)
}

func newChatProvider(name string, cfg Config) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &OpenAI{
		client:    openai.NewClient(opts...),
		name:      name,
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
	}
}

func (p *OpenAI) Name() string  { return p.name }
func (p *OpenAI) Model() string { return p.model }

func (p *OpenAI) Describe(ctx context.Context, req Request) (Description, error) {
	mediaType := req.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}
	dataURL := "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(req.Image)
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(p.model),
		MaxTokens: openai.Int(p.maxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(UserText(req)),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
	})
	if err != nil {
		status := 0
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return Description{}, classify(p.name, status, err)
	}
	if len(resp.Choices) == 0 {
		return Description{}, emptyResponse(p.name)
	}
	text := cleanDraft(resp.Choices[0].Message.Content)
	if text == "" {
		return Description{}, emptyResponse(p.name)
	}
	return Description{Text: text, Provider: p.name, Model: p.model}, nil
}
