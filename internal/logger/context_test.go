package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func newBufferLogger(name string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&Config{Level: "info", Format: "json", Output: &buf, ServiceName: name}), &buf
}

func TestAttach(t *testing.T) {
	configured, buf := newBufferLogger("configured")
	existing, existingBuf := newBufferLogger("existing")

	tests := []struct {
		name    string
		ctx     context.Context
		attach  *Logger
		wantBuf *bytes.Buffer
	}{
		{"empty context gets the configured logger", context.Background(), configured, buf},
		{"context logger is kept", existing.WithContext(context.Background()), configured, existingBuf},
		{"nil logger leaves context alone", existing.WithContext(context.Background()), nil, existingBuf},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			existingBuf.Reset()

			CtxInfo(Attach(tt.ctx, tt.attach), "hello")
			if !strings.Contains(tt.wantBuf.String(), "hello") {
				t.Errorf("expected the entry in the chosen logger, got %q", tt.wantBuf.String())
			}
		})
	}
}
