package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/storage"
	"golang.org/x/image/bmp"
	"gorm.io/gorm"
)

type fakeAttachments map[string]*domain.Attachment

func (f fakeAttachments) GetAttachment(_ context.Context, id string) (*domain.Attachment, error) {
	if a, ok := f[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: 120, B: uint8(y * 8), A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(w, h), nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func encodeBMP(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("failed to encode bmp: %v", err)
	}
	return buf.Bytes()
}

func newTestImageSource(t *testing.T, files map[string][]byte, maxBytes int64) *ImageSource {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir(), "https://cdn.example.com/media")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	attachments := fakeAttachments{
		"missing-file": {ID: "missing-file", Filename: "gone.jpg"},
	}
	for name, data := range files {
		if err := store.Put(context.Background(), name, bytes.NewReader(data), int64(len(data)), ""); err != nil {
			t.Fatalf("failed to store %s: %v", name, err)
		}
		attachments[name] = &domain.Attachment{ID: name, Filename: name}
	}
	return NewImageSource(attachments, store, maxBytes)
}

func TestImageSourceLoad(t *testing.T) {
	src := newTestImageSource(t, map[string][]byte{
		"photo.jpg":  encodeJPEG(t, 16, 8),
		"scan.bmp":   encodeBMP(t, 4, 4),
		"notes.txt":  []byte("definitely not an image"),
		"empty.jpg":  {},
		"banner.jpg": encodeJPEG(t, 256, 256),
	}, 2048)

	t.Run("jpeg passes through", func(t *testing.T) {
		img, err := src.Load(context.Background(), "photo.jpg")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if img.MimeType != "image/jpeg" || img.Width != 16 || img.Height != 8 {
			t.Errorf("unexpected payload %s %dx%d", img.MimeType, img.Width, img.Height)
		}
		if img.URL != "https://cdn.example.com/media/photo.jpg" {
			t.Errorf("expected public URL, got %q", img.URL)
		}
	})

	t.Run("bmp converted to png", func(t *testing.T) {
		img, err := src.Load(context.Background(), "scan.bmp")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if img.MimeType != "image/png" || img.URL != "" {
			t.Errorf("expected png without URL, got %s %q", img.MimeType, img.URL)
		}
		if _, format, err := image.DecodeConfig(bytes.NewReader(img.Data)); err != nil || format != "png" {
			t.Errorf("expected png bytes, got %s/%v", format, err)
		}
	})

	inputErrors := []struct {
		name string
		id   string
		is   error
	}{
		{"unknown attachment", "nope", ErrImageNotFound},
		{"missing file", "missing-file", storage.ErrNotFound},
		{"not an image", "notes.txt", ErrUnsupportedImage},
		{"empty file", "empty.jpg", ErrUnsupportedImage},
		{"too large", "banner.jpg", nil},
	}
	for _, tt := range inputErrors {
		t.Run(tt.name, func(t *testing.T) {
			_, err := src.Load(context.Background(), tt.id)
			if !domain.IsKind(err, domain.KindInput) {
				t.Fatalf("expected input error, got %v", err)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("expected %v, got %v", tt.is, err)
			}
		})
	}
}
