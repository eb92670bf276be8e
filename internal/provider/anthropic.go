package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/altseo/internal/config"
	"github.com/timmy/altseo/internal/domain"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// AnthropicProvider calls the Anthropic messages API.
type AnthropicProvider struct {
	cfg    *config.ProviderConfig
	client *resty.Client
}

// NewAnthropic creates an Anthropic provider.
func NewAnthropic(cfg *config.ProviderConfig) *AnthropicProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetHeader("x-api-key", cfg.APIKey)
	client.SetHeader("anthropic-version", anthropicVersion)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeoutOrDefault(cfg.Timeout))

	return &AnthropicProvider{cfg: cfg.Clone(), client: client}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string                 `json:"role"`
	Content []anthropicContentPart `json:"content"`
}

type anthropicContentPart struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *AnthropicProvider) Name() string { return p.cfg.Name }
func (p *AnthropicProvider) Model() string { return p.cfg.Model }
func (p *AnthropicProvider) Configured() bool { return p.cfg.Configured() }

func (p *AnthropicProvider) Capabilities() Capabilities {
	return Capabilities{
		Vision:        strings.HasPrefix(strings.ToLower(p.cfg.Model), "claude-"),
		JSONMode:      false,
		MaxTokens:     maxTokensOrDefault(p.cfg.MaxTokens),
		MaxImageBytes: 5 << 20,
		MimeTypes:     commonMimeTypes,
	}
}

func (p *AnthropicProvider) ValidateConfig() error {
	if err := p.cfg.ValidateWithAPIKey(); err != nil {
		return err
	}
	if !p.Capabilities().Vision {
		return fmt.Errorf("provider %q: model %q does not support vision", p.cfg.Name, p.cfg.Model)
	}
	return nil
}

func (p *AnthropicProvider) TestConnection(ctx context.Context) error {
	httpResp, err := p.client.R().SetContext(ctx).Get("/v1/models")
	if err != nil {
		return NewError(p.Name(), reasonForTransport(err), err)
	}
	if httpResp.IsError() {
		return httpError(p.Name(), httpResp.StatusCode(), string(httpResp.Body()))
	}
	return nil
}

// Analyze sends the image before the prompt, as the messages API recommends.
func (p *AnthropicProvider) Analyze(ctx context.Context, req *Request) (*domain.AnalysisResult, error) {
	if err := p.Capabilities().Accepts(req.Image); err != nil {
		return nil, NewError(p.Name(), ReasonUnsupported, err)
	}
	source, err := anthropicSource(req.Image)
	if err != nil {
		return nil, NewError(p.Name(), ReasonUnsupported, err)
	}

	body := anthropicRequest{
		Model:     p.cfg.Model,
		MaxTokens: maxTokensOrDefault(p.cfg.MaxTokens),
		Messages: []anthropicMessage{
			{
				Role: "user",
				Content: []anthropicContentPart{
					{Type: "image", Source: source},
					{Type: "text", Text: req.Prompt},
				},
			},
		},
	}

	var resp anthropicResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		SetError(&resp).
		Post("/v1/messages")
	if err != nil {
		return nil, NewError(p.Name(), reasonForTransport(err), err)
	}
	if httpResp.IsError() {
		msg := string(httpResp.Body())
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return nil, httpError(p.Name(), httpResp.StatusCode(), msg)
	}

	var text strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			text.WriteString(part.Text)
		}
	}
	content := text.String()
	if content == "" {
		return nil, NewError(p.Name(), ReasonMalformed, errors.New("no text content in response"))
	}

	fields, score, err := ParseContent(content)
	if err != nil {
		return nil, NewError(p.Name(), ReasonMalformed, err)
	}

	return &domain.AnalysisResult{
		Provider: p.Name(),
		Model:    p.cfg.Model,
		Fields:   fields,
		Score:    score,
		Usage:    usageOrEstimate(resp.Usage.InputTokens, resp.Usage.OutputTokens, req.Prompt, content),
		Raw:      content,
	}, nil
}

func anthropicSource(img domain.ImagePayload) (*anthropicImageSource, error) {
	if len(img.Data) > 0 {
		return &anthropicImageSource{
			Type:      "base64",
			MediaType: img.MimeType,
			Data:      base64.StdEncoding.EncodeToString(img.Data),
		}, nil
	}
	if img.URL != "" {
		return &anthropicImageSource{Type: "url", URL: img.URL}, nil
	}
	return nil, errors.New("image has neither data nor URL")
}
