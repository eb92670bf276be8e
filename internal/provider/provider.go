package provider

import (
	"context"
	"fmt"

	"github.com/timmy/altseo/internal/domain"
)

// Capabilities describes what a configured model accepts.
type Capabilities struct {
	Vision        bool     `json:"vision"`
	JSONMode      bool     `json:"json_mode"`
	MaxTokens     int      `json:"max_tokens"`
	MaxImageBytes int64    `json:"max_image_bytes"`
	MimeTypes     []string `json:"mime_types"`
}

// Supports reports whether a mime type is accepted.
func (c Capabilities) Supports(mimeType string) bool {
	for _, m := range c.MimeTypes {
		if m == mimeType {
			return true
		}
	}
	return false
}

// Accepts checks inline image bytes against the size limit and, when the
// mime type is known, the accepted types. URL payloads are sized by the
// remote API.
func (c Capabilities) Accepts(img domain.ImagePayload) error {
	if c.MaxImageBytes > 0 && int64(len(img.Data)) > c.MaxImageBytes {
		return fmt.Errorf("image is %d bytes, limit is %d", len(img.Data), c.MaxImageBytes)
	}
	if (len(img.Data) > 0 || img.MimeType != "") && !c.Supports(img.MimeType) {
		return fmt.Errorf("mime type %q not supported", img.MimeType)
	}
	return nil
}

// Request is one image analysis request.
type Request struct {
	AttachmentID string
	Language     string
	Prompt       string
	Image        domain.ImagePayload
}

// Provider invokes a vision model.
type Provider interface {
	// Name returns the configured provider name, e.g. "openai".
	Name() string

	// Model returns the model identifier.
	Model() string

	// Configured reports whether a credential is present.
	Configured() bool

	// Capabilities returns the declared model capabilities.
	Capabilities() Capabilities

	// ValidateConfig checks credential and model settings without network access.
	ValidateConfig() error

	// TestConnection makes a cheap authenticated call.
	TestConnection(ctx context.Context) error

	// Analyze sends the prompt and image and parses the generated metadata.
	// Failures are returned as *Error.
	Analyze(ctx context.Context, req *Request) (*domain.AnalysisResult, error)
}

// commonMimeTypes are accepted by every supported vision API.
var commonMimeTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
