package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/timmy/altseo/internal/config"
	"github.com/timmy/altseo/internal/domain"
)

// openAIVisionModels are model name prefixes that accept images.
var openAIVisionModels = []string{"gpt-4o", "gpt-4.1", "gpt-4-turbo", "gpt-5", "o1", "o3", "o4"}

// OpenAIProvider calls the OpenAI chat completions API in JSON mode.
type OpenAIProvider struct {
	cfg    *config.ProviderConfig
	client *openai.Client
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(cfg *config.ProviderConfig) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeoutOrDefault(cfg.Timeout)}

	return &OpenAIProvider{
		cfg:    cfg.Clone(),
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (p *OpenAIProvider) Name() string { return p.cfg.Name }
func (p *OpenAIProvider) Model() string { return p.cfg.Model }
func (p *OpenAIProvider) Configured() bool { return p.cfg.Configured() }

func (p *OpenAIProvider) Capabilities() Capabilities {
	return Capabilities{
		Vision:        hasPrefix(p.cfg.Model, openAIVisionModels),
		JSONMode:      true,
		MaxTokens:     maxTokensOrDefault(p.cfg.MaxTokens),
		MaxImageBytes: 20 << 20,
		MimeTypes:     commonMimeTypes,
	}
}

func (p *OpenAIProvider) ValidateConfig() error {
	if err := p.cfg.ValidateWithAPIKey(); err != nil {
		return err
	}
	if !p.Capabilities().Vision {
		return fmt.Errorf("provider %q: model %q does not support vision", p.cfg.Name, p.cfg.Model)
	}
	return nil
}

func (p *OpenAIProvider) TestConnection(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return p.wrapError(err)
	}
	return nil
}

// Analyze sends the prompt and image as one user message.
func (p *OpenAIProvider) Analyze(ctx context.Context, req *Request) (*domain.AnalysisResult, error) {
	if err := p.Capabilities().Accepts(req.Image); err != nil {
		return nil, NewError(p.Name(), ReasonUnsupported, err)
	}
	imageURL, err := imageReference(req.Image)
	if err != nil {
		return nil, NewError(p.Name(), ReasonUnsupported, err)
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: req.Prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    imageURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
		MaxTokens: maxTokensOrDefault(p.cfg.MaxTokens),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, p.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewError(p.Name(), ReasonMalformed, errors.New("no choices in response"))
	}

	content := resp.Choices[0].Message.Content
	fields, score, err := ParseContent(content)
	if err != nil {
		return nil, NewError(p.Name(), ReasonMalformed, err)
	}

	return &domain.AnalysisResult{
		Provider: p.Name(),
		Model:    p.cfg.Model,
		Fields:   fields,
		Score:    score,
		Usage:    usageOrEstimate(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, req.Prompt, content),
		Raw:      content,
	}, nil
}

func (p *OpenAIProvider) wrapError(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewError(p.Name(), reasonForStatus(apiErr.HTTPStatusCode), err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewError(p.Name(), reasonForStatus(reqErr.HTTPStatusCode), err)
	}
	return NewError(p.Name(), reasonForTransport(err), err)
}

// imageReference returns a data URL for inline bytes or the public URL.
func imageReference(img domain.ImagePayload) (string, error) {
	if len(img.Data) > 0 {
		return fmt.Sprintf("data:%s;base64,%s", img.MimeType, base64.StdEncoding.EncodeToString(img.Data)), nil
	}
	if img.URL != "" {
		return img.URL, nil
	}
	return "", errors.New("image has neither data nor URL")
}

func hasPrefix(model string, prefixes []string) bool {
	model = strings.ToLower(model)
	for _, p := range prefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return 500
	}
	return n
}
