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

const geminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiProvider calls the Gemini generateContent API.
type GeminiProvider struct {
	cfg    *config.ProviderConfig
	client *resty.Client
}

// NewGemini creates a Gemini provider.
func NewGemini(cfg *config.ProviderConfig) *GeminiProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = geminiBaseURL
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetHeader("x-goog-api-key", cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeoutOrDefault(cfg.Timeout))

	return &GeminiProvider{cfg: cfg.Clone(), client: client}
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
	MaxOutputTokens  int    `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (p *GeminiProvider) Name() string { return p.cfg.Name }
func (p *GeminiProvider) Model() string { return p.cfg.Model }
func (p *GeminiProvider) Configured() bool { return p.cfg.Configured() }

func (p *GeminiProvider) Capabilities() Capabilities {
	return Capabilities{
		Vision:        strings.HasPrefix(strings.ToLower(p.cfg.Model), "gemini-"),
		JSONMode:      true,
		MaxTokens:     maxTokensOrDefault(p.cfg.MaxTokens),
		MaxImageBytes: 20 << 20,
		MimeTypes:     []string{"image/jpeg", "image/png", "image/webp"},
	}
}

func (p *GeminiProvider) ValidateConfig() error {
	if err := p.cfg.ValidateWithAPIKey(); err != nil {
		return err
	}
	if !p.Capabilities().Vision {
		return fmt.Errorf("provider %q: model %q does not support vision", p.cfg.Name, p.cfg.Model)
	}
	return nil
}

func (p *GeminiProvider) TestConnection(ctx context.Context) error {
	httpResp, err := p.client.R().SetContext(ctx).Get("/v1beta/models")
	if err != nil {
		return NewError(p.Name(), reasonForTransport(err), err)
	}
	if httpResp.IsError() {
		return httpError(p.Name(), httpResp.StatusCode(), string(httpResp.Body()))
	}
	return nil
}

// Analyze requires inline image bytes; Gemini does not fetch public URLs.
func (p *GeminiProvider) Analyze(ctx context.Context, req *Request) (*domain.AnalysisResult, error) {
	if len(req.Image.Data) == 0 {
		return nil, NewError(p.Name(), ReasonUnsupported, errors.New("inline image data required"))
	}
	if err := p.Capabilities().Accepts(req.Image); err != nil {
		return nil, NewError(p.Name(), ReasonUnsupported, err)
	}

	body := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: req.Prompt},
				{InlineData: &geminiInlineData{
					MimeType: req.Image.MimeType,
					Data:     base64.StdEncoding.EncodeToString(req.Image.Data),
				}},
			},
		}},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			MaxOutputTokens:  maxTokensOrDefault(p.cfg.MaxTokens),
		},
	}

	var resp geminiResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		SetError(&resp).
		Post("/v1beta/models/" + p.cfg.Model + ":generateContent")
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
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, NewError(p.Name(), ReasonMalformed, errors.New("no candidates in response"))
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	content := text.String()

	fields, score, err := ParseContent(content)
	if err != nil {
		return nil, NewError(p.Name(), ReasonMalformed, err)
	}

	return &domain.AnalysisResult{
		Provider: p.Name(),
		Model:    p.cfg.Model,
		Fields:   fields,
		Score:    score,
		Usage:    usageOrEstimate(resp.UsageMetadata.PromptTokenCount, resp.UsageMetadata.CandidatesTokenCount, req.Prompt, content),
		Raw:      content,
	}, nil
}
