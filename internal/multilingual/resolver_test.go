package multilingual

import (
	"context"
	"errors"
	"testing"

	"github.com/timmy/altseo/internal/config"
)

type fakeStore struct {
	data map[string]map[string]string
	err  error
}

func (f *fakeStore) GetAll(_ context.Context, id string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data[id], nil
}

func newResolver(store MetadataReader, chains map[string][]string) *Resolver {
	settings := config.DefaultSettings()
	settings.FallbackChains = chains
	settings.DefaultLanguage = "cs"
	settings.HubLanguage = "en"
	settings.Languages = []string{"de", "en", "cs", "sk"}
	return NewResolver(store, settings)
}

func TestResolver_Resolve(t *testing.T) {
	store := &fakeStore{data: map[string]map[string]string{
		"1": {"alt_en": "Sunset over the beach", "alt_sk": "", "title_cs": "Západ slunce"},
	}}
	r := newResolver(store, nil)
	ctx := context.Background()

	tests := []struct {
		name         string
		field        string
		language     string
		wantValue    string
		wantSource   string
		wantFallback bool
	}{
		{name: "direct hit", field: "title", language: "cs", wantValue: "Západ slunce", wantSource: "cs"},
		{name: "fallback skips empty sk", field: "alt", language: "cs", wantValue: "Sunset over the beach", wantSource: "en", wantFallback: true},
		{name: "exhausted chain", field: "caption", language: "cs", wantValue: "", wantSource: "cs"},
		{name: "no chain", field: "title", language: "en", wantValue: "", wantSource: "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, "1", tt.field, tt.language)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Value != tt.wantValue {
				t.Errorf("expected value %q, got %q", tt.wantValue, got.Value)
			}
			if got.SourceLanguage != tt.wantSource {
				t.Errorf("expected source %q, got %q", tt.wantSource, got.SourceLanguage)
			}
			if got.UsedFallback != tt.wantFallback {
				t.Errorf("expected usedFallback %v, got %v", tt.wantFallback, got.UsedFallback)
			}
		})
	}
}

func TestResolver_OverrideReplacesDefault(t *testing.T) {
	store := &fakeStore{data: map[string]map[string]string{
		"1": {"alt_sk": "Slovak alt", "alt_de": "German alt"},
	}}
	r := newResolver(store, map[string][]string{"cs": {"de"}})

	got, err := r.Resolve(context.Background(), "1", "alt", "cs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SourceLanguage != "de" {
		t.Errorf("expected override chain to be used, got source %q", got.SourceLanguage)
	}
	if chain := r.Chain("cs"); len(chain) != 1 || chain[0] != "de" {
		t.Errorf("expected override to replace default, got %v", chain)
	}
}

func TestResolver_SelfReferenceTerminates(t *testing.T) {
	store := &fakeStore{data: map[string]map[string]string{"1": {}}}
	r := newResolver(store, map[string][]string{"en": {"en", "en"}})

	got, err := r.Resolve(context.Background(), "1", "alt", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Value != "" || got.UsedFallback {
		t.Errorf("expected empty unresolved value, got %+v", got)
	}
}

func TestResolver_StoreError(t *testing.T) {
	r := newResolver(&fakeStore{err: errors.New("db down")}, nil)
	if _, err := r.Resolve(context.Background(), "1", "alt", "en"); err == nil {
		t.Error("expected error from store")
	}
}

func TestResolver_SuggestNextLanguage(t *testing.T) {
	tests := []struct {
		name   string
		meta   map[string]string
		want   string
		wantOK bool
	}{
		{name: "default first", meta: map[string]string{}, want: "cs", wantOK: true},
		{name: "hub next", meta: map[string]string{"alt_cs": "x"}, want: "en", wantOK: true},
		{name: "then configured order", meta: map[string]string{"alt_cs": "x", "keywords_en": "a, b"}, want: "de", wantOK: true},
		{
			name:   "complete",
			meta:   map[string]string{"alt_cs": "x", "alt_en": "x", "title_de": "x", "caption_sk": "x"},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(&fakeStore{data: map[string]map[string]string{"1": tt.meta}}, nil)
			got, ok, err := r.SuggestNextLanguage(context.Background(), "1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("expected (%q, %v), got (%q, %v)", tt.want, tt.wantOK, got, ok)
			}
		})
	}
}
