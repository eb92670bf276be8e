package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/timmy/altseo/internal/config"
	"github.com/timmy/altseo/internal/domain"
)

const modelJSON = `{"alt":"Golden sunset over a sandy beach","caption":"The sun sets over the calm sea.","title":"Sunset at the beach","keywords":["sunset","beach","sea"],"score":0.92}`

func testRequest() *Request {
	return &Request{
		AttachmentID: "1",
		Language:     "en",
		Prompt:       "Describe the image",
		Image:        domain.ImagePayload{Data: []byte{0xff, 0xd8, 0xff}, MimeType: "image/jpeg"},
	}
}

func TestOpenAIProvider_Analyze(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if rf, ok := body["response_format"].(map[string]interface{}); !ok || rf["type"] != "json_object" {
			t.Errorf("expected json mode, got %v", body["response_format"])
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "x",
			"object":  "chat.completion",
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": modelJSON}}},
			"usage":   map[string]int{"prompt_tokens": 900, "completion_tokens": 60, "total_tokens": 960},
		})
	}))
	defer server.Close()

	p := NewOpenAI(&config.ProviderConfig{Name: "openai", Type: "openai", Model: "gpt-4o-mini", APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	res, err := p.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Fields.Alt != "Golden sunset over a sandy beach" {
		t.Errorf("unexpected alt %q", res.Fields.Alt)
	}
	if res.Usage.Estimated || res.Usage.InputTokens != 900 {
		t.Errorf("expected exact usage, got %+v", res.Usage)
	}
	if res.Score == nil || *res.Score != 0.92 {
		t.Errorf("unexpected score %v", res.Score)
	}
}

func TestOpenAIProvider_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	p := NewOpenAI(&config.ProviderConfig{Name: "openai", Model: "gpt-4o", APIKey: "bad", BaseURL: server.URL + "/v1"})
	_, err := p.Analyze(context.Background(), testRequest())

	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if pe.Reason != ReasonAuth {
		t.Errorf("expected auth reason, got %s", pe.Reason)
	}
}

func TestAnthropicProvider_Analyze(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "ak" || r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing auth headers")
		}
		var body anthropicRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Messages) != 1 || body.Messages[0].Content[0].Source == nil || body.Messages[0].Content[0].Source.Type != "base64" {
			t.Errorf("expected base64 image first, got %+v", body.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":` + strconvQuote(modelJSON) + `}],"usage":{"input_tokens":700,"output_tokens":50}}`))
	}))
	defer server.Close()

	p := NewAnthropic(&config.ProviderConfig{Name: "anthropic", Model: "claude-3-5-haiku-latest", APIKey: "ak", BaseURL: server.URL})
	res, err := p.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Fields.Keywords) != 3 {
		t.Errorf("expected 3 keywords, got %v", res.Fields.Keywords)
	}
	if res.Usage.OutputTokens != 50 {
		t.Errorf("expected 50 output tokens, got %d", res.Usage.OutputTokens)
	}
}

func TestAnthropicProvider_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	p := NewAnthropic(&config.ProviderConfig{Name: "anthropic", Model: "claude-3-5-haiku-latest", APIKey: "ak", BaseURL: server.URL})
	_, err := p.Analyze(context.Background(), testRequest())

	var pe *Error
	if !errors.As(err, &pe) || pe.Reason != ReasonRateLimited {
		t.Errorf("expected rate_limited error, got %v", err)
	}
}

func TestGeminiProvider_Analyze(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-1.5-flash:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":` + strconvQuote(modelJSON) + `}]}}]}`))
	}))
	defer server.Close()

	p := NewGemini(&config.ProviderConfig{Name: "gemini", Model: "gemini-1.5-flash", APIKey: "gk", BaseURL: server.URL})
	res, err := p.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Usage.Estimated {
		t.Error("expected estimated usage when none is reported")
	}
	if res.Fields.Title != "Sunset at the beach" {
		t.Errorf("unexpected title %q", res.Fields.Title)
	}
}

func TestGeminiProvider_RequiresInlineData(t *testing.T) {
	p := NewGemini(&config.ProviderConfig{Name: "gemini", Model: "gemini-1.5-flash", APIKey: "gk"})
	req := testRequest()
	req.Image = domain.ImagePayload{URL: "https://example.com/a.jpg", MimeType: "image/jpeg"}

	_, err := p.Analyze(context.Background(), req)
	var pe *Error
	if !errors.As(err, &pe) || pe.Reason != ReasonUnsupported {
		t.Errorf("expected unsupported error, got %v", err)
	}
}

func TestAdaptersRejectUnacceptableImages(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	providers := []Provider{
		NewOpenAI(&config.ProviderConfig{Name: "openai", Model: "gpt-4o-mini", APIKey: "sk", BaseURL: server.URL + "/v1"}),
		NewAnthropic(&config.ProviderConfig{Name: "anthropic", Model: "claude-3-5-haiku-latest", APIKey: "ak", BaseURL: server.URL}),
		NewGemini(&config.ProviderConfig{Name: "gemini", Model: "gemini-1.5-flash", APIKey: "gk", BaseURL: server.URL}),
	}
	for _, p := range providers {
		limit := p.Capabilities().MaxImageBytes
		tests := []struct {
			name  string
			image domain.ImagePayload
		}{
			{"over size limit", domain.ImagePayload{Data: make([]byte, limit+1), MimeType: "image/jpeg"}},
			{"unlisted mime type", domain.ImagePayload{Data: []byte{0x49, 0x49, 0x2a, 0x00}, MimeType: "image/tiff"}},
			{"inline data without mime type", domain.ImagePayload{Data: []byte{0xff, 0xd8, 0xff}}},
		}
		for _, tt := range tests {
			t.Run(p.Name()+"/"+tt.name, func(t *testing.T) {
				req := testRequest()
				req.Image = tt.image
				_, err := p.Analyze(context.Background(), req)

				var pe *Error
				if !errors.As(err, &pe) || pe.Reason != ReasonUnsupported {
					t.Errorf("expected unsupported error, got %v", err)
				}
			})
		}
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("expected no requests to reach the API, got %d", n)
	}
}

func TestCapabilitiesAccepts(t *testing.T) {
	caps := Capabilities{MaxImageBytes: 4, MimeTypes: []string{"image/png"}}
	tests := []struct {
		name    string
		image   domain.ImagePayload
		wantErr bool
	}{
		{"within limit", domain.ImagePayload{Data: []byte{1, 2, 3, 4}, MimeType: "image/png"}, false},
		{"one byte over", domain.ImagePayload{Data: []byte{1, 2, 3, 4, 5}, MimeType: "image/png"}, true},
		{"wrong type", domain.ImagePayload{Data: []byte{1}, MimeType: "image/gif"}, true},
		{"url without type", domain.ImagePayload{URL: "https://example.com/a"}, false},
		{"url with wrong type", domain.ImagePayload{URL: "https://example.com/a.bmp", MimeType: "image/bmp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := caps.Accepts(tt.image)
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		p       Provider
		wantErr bool
	}{
		{name: "openai ok", p: NewOpenAI(&config.ProviderConfig{Name: "openai", Type: "openai", Model: "gpt-4o", APIKey: "k"})},
		{name: "openai missing key", p: NewOpenAI(&config.ProviderConfig{Name: "openai", Type: "openai", Model: "gpt-4o"}), wantErr: true},
		{name: "openai text-only model", p: NewOpenAI(&config.ProviderConfig{Name: "openai", Type: "openai", Model: "gpt-3.5-turbo", APIKey: "k"}), wantErr: true},
		{name: "gemini ok", p: NewGemini(&config.ProviderConfig{Name: "gemini", Type: "gemini", Model: "gemini-1.5-pro", APIKey: "k"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.ValidateConfig()
			if tt.wantErr != (err != nil) {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func strconvQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
