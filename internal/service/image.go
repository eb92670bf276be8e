package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/logger"
	"github.com/timmy/altseo/internal/storage"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gorm.io/gorm"
)

// DefaultMaxImageBytes caps downloaded originals.
const DefaultMaxImageBytes = 20 << 20

// formats every provider accepts as-is
var passthroughFormats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// AttachmentReader loads attachment records.
type AttachmentReader interface {
	GetAttachment(ctx context.Context, id string) (*domain.Attachment, error)
}

// ImageSource returns image bytes in a format every provider accepts.
// Formats outside that set are decoded and re-encoded as PNG.
type ImageSource struct {
	attachments AttachmentReader
	storage     storage.ObjectStorage
	maxBytes    int64
}

// NewImageSource creates an ImageSource.
func NewImageSource(attachments AttachmentReader, objectStorage storage.ObjectStorage, maxBytes int64) *ImageSource {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &ImageSource{attachments: attachments, storage: objectStorage, maxBytes: maxBytes}
}

// Attachment returns the attachment record or ErrImageNotFound.
func (s *ImageSource) Attachment(ctx context.Context, id string) (*domain.Attachment, error) {
	a, err := s.attachments.GetAttachment(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", id, ErrImageNotFound)
		}
		return nil, fmt.Errorf("failed to load attachment: %w", err)
	}
	return a, nil
}

// Load reads and normalizes the image of an attachment.
// Missing records, missing files and undecodable bytes are input errors.
func (s *ImageSource) Load(ctx context.Context, attachmentID string) (*domain.ImagePayload, error) {
	a, err := s.Attachment(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			return nil, domain.NewPipelineError(domain.KindInput, StepValidateImage, err)
		}
		return nil, err
	}

	key := a.StorageKey
	if key == "" {
		key = a.Filename
	}
	obj, err := s.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.NewPipelineError(domain.KindInput, StepValidateImage, fmt.Errorf("missing file: %w", err))
		}
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(io.LimitReader(obj.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, domain.NewPipelineError(domain.KindInput, StepValidateImage,
			fmt.Errorf("image exceeds %d bytes", s.maxBytes))
	}

	payload, converted, err := normalizeImage(data)
	if err != nil {
		return nil, domain.NewPipelineError(domain.KindInput, StepValidateImage, err)
	}
	payload.AttachmentID = attachmentID
	if !converted {
		payload.URL = s.storage.URL(key)
	}

	logger.CtxDebug(ctx, "Loaded image: key=%s, mime=%s, size=%d", key, payload.MimeType, len(payload.Data))
	return payload, nil
}

// normalizeImage sniffs the format, keeps provider-compatible formats
// and converts the rest to PNG.
func normalizeImage(data []byte) (*domain.ImagePayload, bool, error) {
	if len(data) == 0 {
		return nil, false, fmt.Errorf("empty file: %w", ErrUnsupportedImage)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	if mime, ok := passthroughFormats[format]; ok {
		return &domain.ImagePayload{Data: data, MimeType: mime, Width: cfg.Width, Height: cfg.Height}, false, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, false, fmt.Errorf("failed to convert %s to png: %w", format, err)
	}
	return &domain.ImagePayload{Data: buf.Bytes(), MimeType: "image/png", Width: cfg.Width, Height: cfg.Height}, true, nil
}
